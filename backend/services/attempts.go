package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"coursegate/backend/gating"
	"coursegate/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmitInput struct {
	CourseID     uint
	LessonID     uint
	UnitID       *uint
	Kind         models.AssessmentKind
	AssessmentID uint
	UserID       uint
	Answers      []SubmittedAnswer
	StartTime    *time.Time
}

type SubmitResult struct {
	AttemptID      uint             `json:"attemptId"`
	Kind           string           `json:"kind"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"totalQuestions"`
	Percentage     int              `json:"percentage"`
	Passed         bool             `json:"passed"`
	CorrectAnswers int              `json:"correctAnswers"`
	TimeTaken      int              `json:"timeTaken"`
	SubmittedAt    time.Time        `json:"submittedAt"`
	Questions      []QuestionResult `json:"questions"`
}

// AttemptRecorder validates, scores and stores assessment submissions.
type AttemptRecorder struct {
	DB     *gorm.DB
	Logger *log.Logger
	Now    func() time.Time
}

func NewAttemptRecorder(db *gorm.DB, logger *log.Logger) *AttemptRecorder {
	return &AttemptRecorder{DB: db, Logger: logger, Now: time.Now}
}

func singleAttemptKey(assessmentID, userID uint) *string {
	key := fmt.Sprintf("%d:%d", assessmentID, userID)
	return &key
}

// checkWindow applies the open/close dates. Trainings have no upper bound.
func checkWindow(a *models.Assessment, now time.Time) error {
	if a.OpenDate != nil && now.Before(*a.OpenDate) {
		return ErrNotOpenYet
	}
	if a.Kind == models.KindFinal && a.CloseDate != nil && now.After(*a.CloseDate) {
		return ErrClosed
	}
	return nil
}

// timeTaken measures from the start time on the server clock. A start
// time in the future counts as zero.
func timeTaken(start *time.Time, now time.Time) int {
	if start == nil || now.Before(*start) {
		return 0
	}
	return int(now.Sub(*start) / time.Second)
}

// Submit records one attempt. For final exams the unique single attempt key
// makes a concurrent second submission fail with AlreadyAttemptedError
// instead of storing a duplicate.
func (r *AttemptRecorder) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if !in.Kind.Valid() {
		return nil, invalid("unknown assessment kind %q", in.Kind)
	}

	course, err := LoadCourseTree(ctx, r.DB, in.CourseID)
	if err != nil {
		return nil, err
	}
	rl, err := findLesson(course, in.LessonID, in.UnitID)
	if err != nil {
		return nil, err
	}

	var assessment *models.Assessment
	for i := range rl.Lesson.Assessments {
		a := &rl.Lesson.Assessments[i]
		if a.ID == in.AssessmentID && a.Kind == in.Kind {
			assessment = a
			break
		}
	}
	if assessment == nil {
		return nil, notFound(string(in.Kind)+" assessment", in.AssessmentID)
	}

	now := r.Now()
	if err := checkWindow(assessment, now); err != nil {
		return nil, err
	}

	var unitID *uint
	if rl.Unit != nil {
		id := rl.Unit.ID
		unitID = &id
	}

	if in.Kind == models.KindFinal {
		existing, err := r.findFinalAttempt(ctx, assessment.ID, in.UserID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, &AlreadyAttemptedError{Existing: *existing}
		}
	}

	passed, err := PassedLessons(ctx, r.DB, course, in.UserID)
	if err != nil {
		return nil, err
	}
	verdict, err := gating.CheckAccess(Snapshot(course), passed, rl.Lesson.ID, unitID)
	if err != nil {
		return nil, notFound("lesson", in.LessonID)
	}
	if !verdict.HasAccess {
		return nil, &AccessDeniedError{Verdict: verdict}
	}

	scored, err := ScoreAnswers(assessment.Questions, in.Answers, assessment.PassingScore)
	if err != nil {
		return nil, err
	}

	attempt := models.Attempt{
		AssessmentID:     assessment.ID,
		Kind:             assessment.Kind,
		UserID:           in.UserID,
		CourseID:         course.ID,
		LessonID:         rl.Lesson.ID,
		UnitID:           unitID,
		Score:            scored.Score,
		TotalQuestions:   scored.TotalQuestions,
		Percentage:       scored.Percentage,
		Passed:           scored.Passed,
		Answers:          scored.attemptAnswers(),
		TimeTakenSeconds: timeTaken(in.StartTime, now),
		SubmittedAt:      now,
	}
	if assessment.Kind == models.KindFinal {
		attempt.SingleAttemptKey = singleAttemptKey(assessment.ID, in.UserID)
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "single_attempt_key"}},
			DoNothing: true,
		}).Create(&attempt)
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 0 {
			// Параллельная отправка успела первой
			var existing models.Attempt
			if err := tx.Where("single_attempt_key = ?", *attempt.SingleAttemptKey).First(&existing).Error; err != nil {
				return err
			}
			return &AlreadyAttemptedError{Existing: existing}
		}

		return rebuildExamResult(tx, resultKey{
			UserID:   in.UserID,
			CourseID: course.ID,
			LessonID: rl.Lesson.ID,
			ExamType: assessment.Kind,
		})
	})
	if err != nil {
		return nil, err
	}

	r.Logger.Printf("[ATTEMPT] user=%d course=%d lesson=%d %s=%d score=%d/%d passed=%t",
		in.UserID, course.ID, rl.Lesson.ID, assessment.Kind, assessment.ID,
		scored.Score, scored.TotalQuestions, scored.Passed)

	return &SubmitResult{
		AttemptID:      attempt.ID,
		Kind:           string(assessment.Kind),
		Score:          scored.Score,
		TotalQuestions: scored.TotalQuestions,
		Percentage:     scored.Percentage,
		Passed:         scored.Passed,
		CorrectAnswers: scored.Score,
		TimeTaken:      attempt.TimeTakenSeconds,
		SubmittedAt:    now,
		Questions:      scored.Questions,
	}, nil
}

func (r *AttemptRecorder) findFinalAttempt(ctx context.Context, assessmentID, userID uint) (*models.Attempt, error) {
	var existing models.Attempt
	err := r.DB.WithContext(ctx).
		Where("single_attempt_key = ?", *singleAttemptKey(assessmentID, userID)).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// Attempts lists the user's attempts on one assessment, oldest first.
func (r *AttemptRecorder) Attempts(ctx context.Context, userID, assessmentID uint) ([]models.Attempt, error) {
	var attempts []models.Attempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Order("submitted_at ASC, id ASC").
		Find(&attempts).Error
	return attempts, err
}
