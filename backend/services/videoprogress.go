package services

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"coursegate/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	completionProgress  = 90.0 // percent
	completionMinWatch  = 30.0 // seconds
	checkpointTolerance = 2.0  // percent around stored progress
)

// VideoObservation is one playback report from a client.
type VideoObservation struct {
	CurrentTime       float64
	Duration          float64
	Progress          float64
	WatchTimeDelta    float64
	ReachedPercentage *int
}

func (o VideoObservation) validate() error {
	switch {
	case o.CurrentTime < 0:
		return invalid("currentTime must be >= 0")
	case o.Duration < 0:
		return invalid("duration must be >= 0")
	case o.Progress < 0 || o.Progress > 100:
		return invalid("progress must be within [0,100]")
	case o.WatchTimeDelta < 0:
		return invalid("watchTime must be >= 0")
	case o.ReachedPercentage != nil && (*o.ReachedPercentage < 0 || *o.ReachedPercentage > 100):
		return invalid("reachedPercentage must be within [0,100]")
	}
	return nil
}

// VideoProgressService is the progress ratchet: stored values only grow.
// Every merge runs as server-side expressions so concurrent reports from
// several tabs cannot overwrite each other.
type VideoProgressService struct {
	DB     *gorm.DB
	Logger *log.Logger
	Now    func() time.Time
}

func NewVideoProgressService(db *gorm.DB, logger *log.Logger) *VideoProgressService {
	return &VideoProgressService{DB: db, Logger: logger, Now: time.Now}
}

func raiseTo(column string, value float64) clause.Expr {
	return gorm.Expr("CASE WHEN "+column+" < ? THEN ? ELSE "+column+" END", value, value)
}

func (s *VideoProgressService) ApplyUpdate(ctx context.Context, userID, videoID, courseID uint, obs VideoObservation) (*models.VideoProgress, error) {
	if err := obs.validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	var stored models.VideoProgress
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.VideoProgress{UserID: userID, VideoID: videoID, CourseID: courseID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		mine := tx.Model(&models.VideoProgress{}).Where("user_id = ? AND video_id = ?", userID, videoID)
		if err := mine.Updates(map[string]interface{}{
			"progress":         raiseTo("progress", obs.Progress),
			"current_seconds":  raiseTo("current_seconds", obs.CurrentTime),
			"duration":         raiseTo("duration", obs.Duration),
			"total_watch_time": gorm.Expr("total_watch_time + ?", obs.WatchTimeDelta),
		}).Error; err != nil {
			return err
		}

		// Завершение необратимо: флаг только выставляется, но никогда не сбрасывается
		if err := tx.Model(&models.VideoProgress{}).
			Where("user_id = ? AND video_id = ? AND is_completed = ?", userID, videoID, false).
			Where("progress >= ?", completionProgress).
			Where("total_watch_time >= CASE WHEN duration > 0 AND duration * 0.5 < ? THEN duration * 0.5 ELSE ? END",
				completionMinWatch, completionMinWatch).
			Updates(map[string]interface{}{"is_completed": true, "completed_at": now}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ? AND video_id = ?", userID, videoID).First(&stored).Error; err != nil {
			return err
		}

		if rp := obs.ReachedPercentage; rp != nil && math.Abs(float64(*rp)-stored.Progress) <= checkpointTolerance {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "video_progress_id"}, {Name: "percentage"}},
				DoNothing: true,
			}).Create(&models.VideoCheckpoint{
				VideoProgressID: stored.ID,
				Percentage:      *rp,
				ReachedAt:       now,
			}).Error; err != nil {
				return err
			}
		}

		return tx.Where("video_progress_id = ?", stored.ID).
			Order("percentage ASC").
			Find(&stored.Checkpoints).Error
	})
	if err != nil {
		return nil, err
	}

	if stored.IsCompleted && stored.CompletedAt != nil && stored.CompletedAt.Equal(now) {
		s.Logger.Printf("[VIDEO] user=%d video=%d completed (watched %.0fs)", userID, videoID, stored.TotalWatchTime)
	}
	return &stored, nil
}

func (s *VideoProgressService) Get(ctx context.Context, userID, videoID uint) (*models.VideoProgress, error) {
	var vp models.VideoProgress
	err := s.DB.WithContext(ctx).
		Preload("Checkpoints", func(db *gorm.DB) *gorm.DB { return db.Order("percentage ASC") }).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		First(&vp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("video progress for video", videoID)
	}
	if err != nil {
		return nil, err
	}
	return &vp, nil
}

// ListForCourse returns all of the user's video progress rows in a course.
func (s *VideoProgressService) ListForCourse(ctx context.Context, userID, courseID uint) ([]models.VideoProgress, error) {
	var rows []models.VideoProgress
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("video_id ASC").
		Find(&rows).Error
	return rows, err
}
