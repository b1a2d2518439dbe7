package models

import (
	"time"

	"gorm.io/gorm"
)

// ExamResult is the reporting projection of attempts, one row per
// (user, course, lesson, exam type). Gating never reads it; it can be
// rebuilt from the attempts table at any time.
type ExamResult struct {
	gorm.Model
	UserID           uint           `gorm:"not null;uniqueIndex:idx_exam_result_key"`
	CourseID         uint           `gorm:"not null;uniqueIndex:idx_exam_result_key"`
	LessonID         uint           `gorm:"not null;uniqueIndex:idx_exam_result_key"`
	ExamType         AssessmentKind `gorm:"type:varchar(16);not null;uniqueIndex:idx_exam_result_key"`
	UnitID           *uint
	AssessmentID     uint
	Score            int
	TotalQuestions   int
	Percentage       int
	Passed           bool
	BestPercentage   int
	AttemptCount     int
	TimeTakenSeconds int
	LastAttemptAt    time.Time
}
