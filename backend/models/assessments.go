package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AssessmentKind string

const (
	KindFinal    AssessmentKind = "final"    // single attempt, open/close window
	KindTraining AssessmentKind = "training" // unlimited attempts, open date only
)

func (k AssessmentKind) Valid() bool {
	return k == KindFinal || k == KindTraining
}

// Assessment is either a final exam or a training attached to a lesson.
type Assessment struct {
	gorm.Model
	LessonID         uint           `gorm:"index;not null"`
	Kind             AssessmentKind `gorm:"type:varchar(16);not null;index"`
	Title            string
	OpenDate         *time.Time
	CloseDate        *time.Time // ignored for trainings
	TimeLimitMinutes int
	PassingScore     int // percent; 0 means default
	Questions        []AssessmentQuestion
}

type AssessmentQuestion struct {
	gorm.Model
	AssessmentID  uint `gorm:"index;not null"`
	Question      string
	Options       datatypes.JSONSlice[string]
	CorrectAnswer int
	SequenceOrder int
}

type AttemptAnswer struct {
	QuestionIndex  int  `json:"questionIndex"`
	SelectedAnswer int  `json:"selectedAnswer"`
	IsCorrect      bool `json:"isCorrect"`
}

// Attempt is one immutable scored submission. SingleAttemptKey is set only
// for final exams; its unique index is what rejects a second final attempt.
type Attempt struct {
	gorm.Model
	AssessmentID     uint           `gorm:"index;not null"`
	Kind             AssessmentKind `gorm:"type:varchar(16);not null"`
	UserID           uint           `gorm:"index;not null"`
	CourseID         uint           `gorm:"index;not null"`
	LessonID         uint           `gorm:"index;not null"`
	UnitID           *uint
	Score            int
	TotalQuestions   int
	Percentage       int
	Passed           bool
	Answers          datatypes.JSONSlice[AttemptAnswer]
	TimeTakenSeconds int
	SubmittedAt      time.Time
	SingleAttemptKey *string `gorm:"type:varchar(64);uniqueIndex"`
}
