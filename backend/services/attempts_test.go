package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coursegate/backend/models"
	"coursegate/backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const learner uint = 7

// seedScenario: direct lesson D1 with a 2-question final, unit U1 with L1
// (2-question training) and L2 (no assessments).
func seedScenario(t *testing.T, db *gorm.DB) *models.Course {
	return testutil.SeedCourse(t, db, "Scenario",
		[]testutil.LessonSpec{{
			Title:       "D1",
			Assessments: []models.Assessment{testutil.Final("D1 exam", twoQuestions()...)},
		}},
		[]testutil.UnitSpec{{
			Title: "U1",
			Lessons: []testutil.LessonSpec{
				{Title: "L1", Assessments: []models.Assessment{testutil.Training("L1 drill", twoQuestions()...)}},
				{Title: "L2"},
			},
		}},
	)
}

type scenarioIDs struct {
	course, d1, d1Exam, u1, l1, l1Training, l2 uint
}

func idsOf(c *models.Course) scenarioIDs {
	return scenarioIDs{
		course:     c.ID,
		d1:         c.DirectLessons[0].ID,
		d1Exam:     c.DirectLessons[0].Assessments[0].ID,
		u1:         c.Units[0].ID,
		l1:         c.Units[0].Lessons[0].ID,
		l1Training: c.Units[0].Lessons[0].Assessments[0].ID,
		l2:         c.Units[0].Lessons[1].ID,
	}
}

func finalInput(ids scenarioIDs, answers ...SubmittedAnswer) SubmitInput {
	return SubmitInput{
		CourseID:     ids.course,
		LessonID:     ids.d1,
		Kind:         models.KindFinal,
		AssessmentID: ids.d1Exam,
		UserID:       learner,
		Answers:      answers,
	}
}

func trainingInput(ids scenarioIDs, answers ...SubmittedAnswer) SubmitInput {
	return SubmitInput{
		CourseID:     ids.course,
		LessonID:     ids.l1,
		UnitID:       &ids.u1,
		Kind:         models.KindTraining,
		AssessmentID: ids.l1Training,
		UserID:       learner,
		Answers:      answers,
	}
}

func TestSubmit_ScenarioUnlocksInOrder(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	ctx := context.Background()
	recorder := NewAttemptRecorder(db, testutil.Logger())
	access := NewAccessService(db)

	v, err := access.CheckAccess(ctx, learner, ids.course, ids.d1, nil)
	require.NoError(t, err)
	assert.True(t, v.HasAccess)

	v, err = access.CheckAccess(ctx, learner, ids.course, ids.l1, &ids.u1)
	require.NoError(t, err)
	assert.False(t, v.HasAccess)
	assert.Equal(t, "Direct Lessons", v.RequiredAssessment.UnitTitle)

	// Locked lesson: submissions are refused.
	_, err = recorder.Submit(ctx, trainingInput(ids, SubmittedAnswer{0, 1}, SubmittedAnswer{1, 2}))
	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.ErrorIs(t, err, ErrAccessDenied)

	res, err := recorder.Submit(ctx, finalInput(ids, SubmittedAnswer{0, 1}, SubmittedAnswer{1, 0}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 50, res.Percentage)
	assert.True(t, res.Passed)

	v, err = access.CheckAccess(ctx, learner, ids.course, ids.l1, &ids.u1)
	require.NoError(t, err)
	assert.True(t, v.HasAccess)

	v, err = access.CheckAccess(ctx, learner, ids.course, ids.l2, &ids.u1)
	require.NoError(t, err)
	assert.False(t, v.HasAccess)
	assert.Equal(t, ids.l1, v.RequiredAssessment.LessonID)

	// Two failed trainings, then one passing one.
	for i := 0; i < 2; i++ {
		res, err = recorder.Submit(ctx, trainingInput(ids, SubmittedAnswer{0, 0}))
		require.NoError(t, err)
		assert.False(t, res.Passed)
	}
	res, err = recorder.Submit(ctx, trainingInput(ids, SubmittedAnswer{0, 1}))
	require.NoError(t, err)
	assert.True(t, res.Passed)

	v, err = access.CheckAccess(ctx, learner, ids.course, ids.l2, &ids.u1)
	require.NoError(t, err)
	assert.True(t, v.HasAccess)

	// Another learner is unaffected.
	v, err = access.CheckAccess(ctx, learner+1, ids.course, ids.l1, &ids.u1)
	require.NoError(t, err)
	assert.False(t, v.HasAccess)
}

func TestSubmit_FinalSecondAttemptRejected(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	ctx := context.Background()
	recorder := NewAttemptRecorder(db, testutil.Logger())

	first, err := recorder.Submit(ctx, finalInput(ids, SubmittedAnswer{0, 0}))
	require.NoError(t, err)
	assert.Equal(t, 0, first.Score)

	_, err = recorder.Submit(ctx, finalInput(ids, SubmittedAnswer{0, 1}, SubmittedAnswer{1, 2}))
	require.ErrorIs(t, err, ErrAlreadyAttempted)
	var already *AlreadyAttemptedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, 0, already.Existing.Score)
	assert.Equal(t, 2, already.Existing.TotalQuestions)

	attempts, err := recorder.Attempts(ctx, learner, ids.d1Exam)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 0, attempts[0].Score)
}

func TestSubmit_TrainingKeepsEveryAttempt(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	ctx := context.Background()
	recorder := NewAttemptRecorder(db, testutil.Logger())

	_, err := recorder.Submit(ctx, finalInput(ids, SubmittedAnswer{0, 1}, SubmittedAnswer{1, 2}))
	require.NoError(t, err)

	_, err = recorder.Submit(ctx, trainingInput(ids, SubmittedAnswer{0, 1}))
	require.NoError(t, err)
	_, err = recorder.Submit(ctx, trainingInput(ids, SubmittedAnswer{0, 1}, SubmittedAnswer{1, 2}))
	require.NoError(t, err)

	attempts, err := recorder.Attempts(ctx, learner, ids.l1Training)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, 1, attempts[0].Score)
	assert.Equal(t, 2, attempts[1].Score)
	assert.Nil(t, attempts[0].SingleAttemptKey)

	var row models.ExamResult
	require.NoError(t, db.Where("user_id = ? AND lesson_id = ? AND exam_type = ?",
		learner, ids.l1, models.KindTraining).First(&row).Error)
	assert.Equal(t, 2, row.AttemptCount)
	assert.Equal(t, 2, row.Score)
	assert.Equal(t, 100, row.BestPercentage)
	assert.Equal(t, ids.u1, *row.UnitID)
}

func TestSubmit_FinalConcurrentSubmissions(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	recorder := NewAttemptRecorder(db, testutil.Logger())

	const workers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
		other     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := recorder.Submit(context.Background(), finalInput(ids, SubmittedAnswer{0, 1}))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyAttempted):
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, rejected)

	var count int64
	require.NoError(t, db.Model(&models.Attempt{}).Where("assessment_id = ?", ids.d1Exam).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubmit_TimeWindow(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	recorder := NewAttemptRecorder(db, testutil.Logger())

	course := testutil.SeedCourse(t, db, "Windows", []testutil.LessonSpec{{
		Title: "Only",
		Assessments: []models.Assessment{
			testutil.Window(testutil.Final("future", twoQuestions()...), time.Hour, 2*time.Hour),
			testutil.Window(testutil.Final("past", twoQuestions()...), -2*time.Hour, -time.Hour),
			testutil.Window(testutil.Training("old drill", twoQuestions()...), -2*time.Hour, -time.Hour),
			testutil.Window(testutil.Training("new drill", twoQuestions()...), time.Hour, 0),
		},
	}}, nil)
	lesson := course.DirectLessons[0]
	submit := func(a models.Assessment) error {
		_, err := recorder.Submit(ctx, SubmitInput{
			CourseID:     course.ID,
			LessonID:     lesson.ID,
			Kind:         a.Kind,
			AssessmentID: a.ID,
			UserID:       learner,
			Answers:      []SubmittedAnswer{{0, 1}},
		})
		return err
	}

	assert.ErrorIs(t, submit(lesson.Assessments[0]), ErrNotOpenYet)
	assert.ErrorIs(t, submit(lesson.Assessments[1]), ErrClosed)
	assert.NoError(t, submit(lesson.Assessments[2]), "trainings ignore the close date")
	assert.ErrorIs(t, submit(lesson.Assessments[3]), ErrNotOpenYet)
}

func TestSubmit_NotFound(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	ctx := context.Background()
	recorder := NewAttemptRecorder(db, testutil.Logger())
	missing := uint(9999)

	tests := []struct {
		name string
		in   SubmitInput
	}{
		{"course", func() SubmitInput { in := finalInput(ids); in.CourseID = missing; return in }()},
		{"lesson", func() SubmitInput { in := finalInput(ids); in.LessonID = missing; return in }()},
		{"unit", func() SubmitInput { in := trainingInput(ids); in.UnitID = &missing; return in }()},
		{"assessment", func() SubmitInput { in := finalInput(ids); in.AssessmentID = missing; return in }()},
		{"kind mismatch", func() SubmitInput { in := finalInput(ids); in.Kind = models.KindTraining; return in }()},
		{"assessment of another lesson", func() SubmitInput { in := finalInput(ids); in.AssessmentID = ids.l1Training; return in }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := recorder.Submit(ctx, tt.in)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSubmit_ValidationAndUnknownKind(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	ctx := context.Background()
	recorder := NewAttemptRecorder(db, testutil.Logger())

	_, err := recorder.Submit(ctx, finalInput(ids, SubmittedAnswer{5, 0}))
	assert.ErrorIs(t, err, ErrValidation)

	in := finalInput(ids)
	in.Kind = "quiz"
	_, err = recorder.Submit(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)

	// A rejected payload does not consume the single final attempt.
	_, err = recorder.Submit(ctx, finalInput(ids, SubmittedAnswer{0, 1}))
	assert.NoError(t, err)
}

func TestSubmit_TimeTakenMeasuredOnServer(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	recorder := NewAttemptRecorder(db, testutil.Logger())
	now := time.Now()
	recorder.Now = func() time.Time { return now }

	start := now.Add(-95 * time.Second)
	in := finalInput(ids, SubmittedAnswer{0, 1})
	in.StartTime = &start

	res, err := recorder.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 95, res.TimeTaken)

	assert.Equal(t, 0, timeTaken(nil, now))
	future := now.Add(time.Minute)
	assert.Equal(t, 0, timeTaken(&future, now))
}
