package services

import (
	"errors"
	"fmt"

	"coursegate/backend/gating"
	"coursegate/backend/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotOpenYet       = errors.New("assessment is not open yet")
	ErrClosed           = errors.New("assessment is closed")
	ErrAlreadyAttempted = errors.New("final exam already attempted")
	ErrValidation       = errors.New("validation failed")
	ErrAccessDenied     = errors.New("lesson is locked")
)

func notFound(what string, id uint) error {
	return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// AlreadyAttemptedError carries the stored attempt so the caller can show
// the learner's existing result.
type AlreadyAttemptedError struct {
	Existing models.Attempt
}

func (e *AlreadyAttemptedError) Error() string {
	return fmt.Sprintf("%s (score %d/%d)", ErrAlreadyAttempted, e.Existing.Score, e.Existing.TotalQuestions)
}

func (e *AlreadyAttemptedError) Unwrap() error { return ErrAlreadyAttempted }

// AccessDeniedError wraps a negative verdict of the access evaluator.
type AccessDeniedError struct {
	Verdict gating.Verdict
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAccessDenied, e.Verdict.Message)
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }
