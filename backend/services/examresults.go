package services

import (
	"context"
	"errors"

	"coursegate/backend/gating"
	"coursegate/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// resultKey identifies one row of the exam_results projection.
type resultKey struct {
	UserID   uint
	CourseID uint
	LessonID uint
	ExamType models.AssessmentKind
}

func (k resultKey) where(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ? AND course_id = ? AND lesson_id = ? AND exam_type = ?",
		k.UserID, k.CourseID, k.LessonID, k.ExamType)
}

// lockResultKey makes sure the projection row exists and holds a row lock on
// it until tx ends. Two submissions for the same key then rebuild one after
// the other, and the second one sees the first one's attempt.
// SQLite has no row locks; its writers are serialized anyway.
func lockResultKey(tx *gorm.DB, key resultKey) error {
	placeholder := models.ExamResult{
		UserID:   key.UserID,
		CourseID: key.CourseID,
		LessonID: key.LessonID,
		ExamType: key.ExamType,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "lesson_id"}, {Name: "exam_type"}},
		DoNothing: true,
	}).Create(&placeholder).Error; err != nil {
		return err
	}

	var locked models.ExamResult
	return tx.Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(key.where).
		Select("id").
		First(&locked).Error
}

// rebuildExamResult derives the projection row for key from the attempts
// table. Running it twice yields the same row.
func rebuildExamResult(tx *gorm.DB, key resultKey) error {
	if err := lockResultKey(tx, key); err != nil {
		return err
	}

	var attempts []models.Attempt
	err := tx.Where("user_id = ? AND course_id = ? AND lesson_id = ? AND kind = ?",
		key.UserID, key.CourseID, key.LessonID, key.ExamType).
		Order("submitted_at DESC, id DESC").
		Find(&attempts).Error
	if err != nil {
		return err
	}

	if len(attempts) == 0 {
		return tx.Unscoped().Scopes(key.where).Delete(&models.ExamResult{}).Error
	}

	latest := attempts[0]
	passed := latest.Passed
	var assessment models.Assessment
	err = tx.Select("id", "passing_score").First(&assessment, latest.AssessmentID).Error
	switch {
	case err == nil:
		passed = gating.IsPassing(latest.Score, latest.TotalQuestions, assessment.PassingScore)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	best := 0
	for _, a := range attempts {
		if a.Percentage > best {
			best = a.Percentage
		}
	}

	row := models.ExamResult{
		UserID:           key.UserID,
		CourseID:         key.CourseID,
		LessonID:         key.LessonID,
		ExamType:         key.ExamType,
		UnitID:           latest.UnitID,
		AssessmentID:     latest.AssessmentID,
		Score:            latest.Score,
		TotalQuestions:   latest.TotalQuestions,
		Percentage:       latest.Percentage,
		Passed:           passed,
		BestPercentage:   best,
		AttemptCount:     len(attempts),
		TimeTakenSeconds: latest.TimeTakenSeconds,
		LastAttemptAt:    latest.SubmittedAt,
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "lesson_id"}, {Name: "exam_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"unit_id", "assessment_id", "score", "total_questions", "percentage", "passed",
			"best_percentage", "attempt_count", "time_taken_seconds", "last_attempt_at",
			"updated_at", "deleted_at",
		}),
	}).Create(&row).Error
}

// ExamResultService maintains and serves the reporting projection.
type ExamResultService struct {
	DB *gorm.DB
}

func NewExamResultService(db *gorm.DB) *ExamResultService {
	return &ExamResultService{DB: db}
}

// Reconcile rebuilds every projection row of a course from its attempts and
// removes rows that no attempt backs any more. It returns the number of keys
// processed.
func (s *ExamResultService) Reconcile(ctx context.Context, courseID uint) (int, error) {
	processed := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fromAttempts []resultKey
		if err := tx.Model(&models.Attempt{}).
			Select("DISTINCT user_id, course_id, lesson_id, kind AS exam_type").
			Where("course_id = ?", courseID).
			Scan(&fromAttempts).Error; err != nil {
			return err
		}

		var fromResults []resultKey
		if err := tx.Model(&models.ExamResult{}).
			Select("user_id, course_id, lesson_id, exam_type").
			Where("course_id = ?", courseID).
			Scan(&fromResults).Error; err != nil {
			return err
		}

		seen := make(map[resultKey]struct{}, len(fromAttempts)+len(fromResults))
		for _, key := range append(fromAttempts, fromResults...) {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if err := rebuildExamResult(tx, key); err != nil {
				return err
			}
			processed++
		}
		return nil
	})
	return processed, err
}

type ExamResultFilter struct {
	CourseID uint
	UserID   uint
	LessonID uint
	ExamType models.AssessmentKind
	Page     int
	PageSize int
}

// Normalize clamps paging to page >= 1 and 1..100 rows per page.
func (f *ExamResultFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}

func (f ExamResultFilter) scope(db *gorm.DB) *gorm.DB {
	if f.CourseID != 0 {
		db = db.Where("course_id = ?", f.CourseID)
	}
	if f.UserID != 0 {
		db = db.Where("user_id = ?", f.UserID)
	}
	if f.LessonID != 0 {
		db = db.Where("lesson_id = ?", f.LessonID)
	}
	if f.ExamType != "" {
		db = db.Where("exam_type = ?", f.ExamType)
	}
	return db
}

// List returns one page of projection rows, newest attempt first.
func (s *ExamResultService) List(ctx context.Context, f ExamResultFilter) ([]models.ExamResult, int64, error) {
	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.ExamResult{}).
		Scopes(f.scope).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	f.Normalize()

	var rows []models.ExamResult
	err := s.DB.WithContext(ctx).
		Scopes(f.scope).
		Order("last_attempt_at DESC, id DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&rows).Error
	return rows, total, err
}
