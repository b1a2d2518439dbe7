package services

import (
	"context"
	"errors"

	"coursegate/backend/gating"

	"gorm.io/gorm"
)

// AccessService loads a fresh content snapshot and the learner's passed
// lessons, then delegates to the pure evaluator in package gating.
type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

func (s *AccessService) load(ctx context.Context, userID, courseID uint) (*gating.Course, gating.PassedSet, error) {
	course, err := LoadCourseTree(ctx, s.DB, courseID)
	if err != nil {
		return nil, nil, err
	}
	passed, err := PassedLessons(ctx, s.DB, course, userID)
	if err != nil {
		return nil, nil, err
	}
	return Snapshot(course), passed, nil
}

// CheckAccess returns the verdict for one lesson. A denial is a verdict,
// not an error; errors are lookup or store failures.
func (s *AccessService) CheckAccess(ctx context.Context, userID, courseID, lessonID uint, unitID *uint) (gating.Verdict, error) {
	snap, passed, err := s.load(ctx, userID, courseID)
	if err != nil {
		return gating.Verdict{}, err
	}

	v, err := gating.CheckAccess(snap, passed, lessonID, unitID)
	switch {
	case errors.Is(err, gating.ErrUnitNotFound):
		return gating.Verdict{}, notFound("unit", *unitID)
	case errors.Is(err, gating.ErrLessonNotFound):
		return gating.Verdict{}, notFound("lesson", lessonID)
	}
	return v, err
}

// Progression annotates every lesson of the course for the learner. The
// passed set is computed once and shared by all lesson evaluations.
func (s *AccessService) Progression(ctx context.Context, userID, courseID uint) (gating.Progression, error) {
	snap, passed, err := s.load(ctx, userID, courseID)
	if err != nil {
		return gating.Progression{}, err
	}
	return gating.Project(snap, passed), nil
}
