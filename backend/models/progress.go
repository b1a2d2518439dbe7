package models

import (
	"time"

	"gorm.io/gorm"
)

// VideoProgress only ever moves forward; see services.VideoProgressService.
type VideoProgress struct {
	gorm.Model
	UserID         uint    `gorm:"not null;uniqueIndex:idx_video_progress_user_video"`
	VideoID        uint    `gorm:"not null;uniqueIndex:idx_video_progress_user_video"`
	CourseID       uint    `gorm:"index;not null"`
	CurrentSeconds float64 `gorm:"not null;default:0"`
	Duration       float64 `gorm:"not null;default:0"`
	Progress       float64 `gorm:"not null;default:0"`
	TotalWatchTime float64 `gorm:"not null;default:0"`
	IsCompleted    bool    `gorm:"not null;default:false"`
	CompletedAt    *time.Time
	Checkpoints    []VideoCheckpoint
}

type VideoCheckpoint struct {
	gorm.Model
	VideoProgressID uint `gorm:"not null;uniqueIndex:idx_video_checkpoint"`
	Percentage      int  `gorm:"not null;uniqueIndex:idx_video_checkpoint"`
	ReachedAt       time.Time
}
