package services

import (
	"context"
	"sync"
	"testing"

	"coursegate/backend/models"
	"coursegate/backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestExamResults_ReconcileRebuildsProjection(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	ctx := context.Background()
	recorder := NewAttemptRecorder(db, testutil.Logger())
	results := NewExamResultService(db)

	_, err := recorder.Submit(ctx, finalInput(ids, SubmittedAnswer{0, 1}, SubmittedAnswer{1, 2}))
	require.NoError(t, err)
	_, err = recorder.Submit(ctx, trainingInput(ids, SubmittedAnswer{0, 0}))
	require.NoError(t, err)

	var before []models.ExamResult
	require.NoError(t, db.Order("exam_type").Find(&before).Error)
	require.Len(t, before, 2)

	// Drift: one row lost, the other corrupted.
	require.NoError(t, db.Unscoped().Where("exam_type = ?", models.KindFinal).Delete(&models.ExamResult{}).Error)
	require.NoError(t, db.Model(&models.ExamResult{}).Where("exam_type = ?", models.KindTraining).
		Updates(map[string]interface{}{"score": 99, "attempt_count": 42}).Error)

	n, err := results.Reconcile(ctx, ids.course)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var after []models.ExamResult
	require.NoError(t, db.Order("exam_type").Find(&after).Error)
	require.Len(t, after, 2)
	for i := range before {
		assert.Equal(t, before[i].ExamType, after[i].ExamType)
		assert.Equal(t, before[i].Score, after[i].Score)
		assert.Equal(t, before[i].AttemptCount, after[i].AttemptCount)
		assert.Equal(t, before[i].Passed, after[i].Passed)
	}

	// Idempotent.
	n, err = results.Reconcile(ctx, ids.course)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	var count int64
	require.NoError(t, db.Model(&models.ExamResult{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestExamResults_ReconcileDropsOrphans(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	ctx := context.Background()

	orphan := models.ExamResult{UserID: learner, CourseID: ids.course, LessonID: ids.l2, ExamType: models.KindTraining, Score: 1}
	require.NoError(t, db.Create(&orphan).Error)

	n, err := NewExamResultService(db).Reconcile(ctx, ids.course)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var count int64
	require.NoError(t, db.Unscoped().Model(&models.ExamResult{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestExamResults_ConcurrentTrainingsCountEveryAttempt(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	ctx := context.Background()
	recorder := NewAttemptRecorder(db, testutil.Logger())

	_, err := recorder.Submit(ctx, finalInput(ids, SubmittedAnswer{0, 1}, SubmittedAnswer{1, 2}))
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			answers := []SubmittedAnswer{{0, 1}}
			if i == 0 {
				answers = append(answers, SubmittedAnswer{1, 2})
			}
			_, err := recorder.Submit(ctx, trainingInput(ids, answers...))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var rows []models.ExamResult
	require.NoError(t, db.Where("exam_type = ?", models.KindTraining).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, workers, rows[0].AttemptCount)
	assert.Equal(t, 100, rows[0].BestPercentage)
	assert.Equal(t, ids.l1Training, rows[0].AssessmentID)
}

func TestExamResults_RebuildWithoutAttemptsLeavesNoRow(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))

	key := resultKey{UserID: learner, CourseID: ids.course, LessonID: ids.l2, ExamType: models.KindTraining}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return rebuildExamResult(tx, key)
	}))

	var count int64
	require.NoError(t, db.Unscoped().Model(&models.ExamResult{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestExamResults_List(t *testing.T) {
	db := testutil.NewDB(t)
	ids := idsOf(seedScenario(t, db))
	ctx := context.Background()
	recorder := NewAttemptRecorder(db, testutil.Logger())

	for _, user := range []uint{1, 2, 3} {
		in := finalInput(ids, SubmittedAnswer{0, 1})
		in.UserID = user
		_, err := recorder.Submit(ctx, in)
		require.NoError(t, err)
	}

	results := NewExamResultService(db)
	rows, total, err := results.List(ctx, ExamResultFilter{CourseID: ids.course, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 2)

	rows, total, err = results.List(ctx, ExamResultFilter{CourseID: ids.course, UserID: 2, ExamType: models.KindFinal})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(2), rows[0].UserID)

	_, total, err = results.List(ctx, ExamResultFilter{ExamType: models.KindTraining})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestExamResultFilter_Normalize(t *testing.T) {
	f := ExamResultFilter{Page: -3, PageSize: 500}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 20, f.PageSize)
}
