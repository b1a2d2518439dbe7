// Package testutil opens throwaway in-memory databases and builds content
// trees for tests.
package testutil

import (
	"io"
	"log"
	"testing"
	"time"

	"coursegate/backend/models"
	"coursegate/backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Logger discards output.
func Logger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := utils.OpenSQLite(dsn, utils.NewGormLogger(Logger(), gormLogger.Silent))
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Q builds a question whose correct option is correct.
func Q(text string, correct int, options ...string) models.AssessmentQuestion {
	if len(options) == 0 {
		options = []string{"A", "B", "C", "D"}
	}
	return models.AssessmentQuestion{
		Question:      text,
		Options:       datatypes.JSONSlice[string](options),
		CorrectAnswer: correct,
	}
}

// Final builds a final exam with the given questions.
func Final(title string, questions ...models.AssessmentQuestion) models.Assessment {
	return models.Assessment{Kind: models.KindFinal, Title: title, TimeLimitMinutes: 30, Questions: ordered(questions)}
}

// Training builds a training with the given questions.
func Training(title string, questions ...models.AssessmentQuestion) models.Assessment {
	return models.Assessment{Kind: models.KindTraining, Title: title, Questions: ordered(questions)}
}

func ordered(questions []models.AssessmentQuestion) []models.AssessmentQuestion {
	for i := range questions {
		questions[i].SequenceOrder = i
	}
	return questions
}

// Window sets the open/close dates relative to now.
func Window(a models.Assessment, openIn, closeIn time.Duration) models.Assessment {
	now := time.Now()
	if openIn != 0 {
		open := now.Add(openIn)
		a.OpenDate = &open
	}
	if closeIn != 0 {
		closeAt := now.Add(closeIn)
		a.CloseDate = &closeAt
	}
	return a
}

// LessonSpec describes a lesson to seed.
type LessonSpec struct {
	Title       string
	Assessments []models.Assessment
}

// UnitSpec describes a unit to seed.
type UnitSpec struct {
	Title   string
	Lessons []LessonSpec
}

// SeedCourse stores a course with direct lessons and units in order and
// returns it reloaded with ids.
func SeedCourse(t *testing.T, db *gorm.DB, title string, direct []LessonSpec, units []UnitSpec) *models.Course {
	t.Helper()

	course := models.Course{Title: title}
	require.NoError(t, db.Create(&course).Error)

	for i, ls := range direct {
		createLesson(t, db, course.ID, nil, i, ls)
	}
	for u, us := range units {
		unit := models.Unit{CourseID: course.ID, Title: us.Title, SequenceOrder: u}
		require.NoError(t, db.Create(&unit).Error)
		for i, ls := range us.Lessons {
			createLesson(t, db, course.ID, &unit.ID, i, ls)
		}
	}

	var out models.Course
	require.NoError(t, db.
		Preload("DirectLessons", "unit_id IS NULL").
		Preload("DirectLessons.Assessments").
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order ASC") }).
		Preload("Units.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order ASC") }).
		Preload("Units.Lessons.Assessments").
		First(&out, course.ID).Error)
	return &out
}

func createLesson(t *testing.T, db *gorm.DB, courseID uint, unitID *uint, order int, ls LessonSpec) {
	t.Helper()

	lesson := models.Lesson{CourseID: courseID, UnitID: unitID, Title: ls.Title, SequenceOrder: order}
	require.NoError(t, db.Create(&lesson).Error)
	for _, a := range ls.Assessments {
		a.LessonID = lesson.ID
		require.NoError(t, db.Create(&a).Error)
	}
}
