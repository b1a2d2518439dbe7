package services

import (
	"context"
	"sync"
	"testing"

	"coursegate/backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testVideo  uint = 501
	testCourse uint = 77
)

func pct(v int) *int { return &v }

func TestVideoProgress_Ratchet(t *testing.T) {
	svc := NewVideoProgressService(testutil.NewDB(t), testutil.Logger())
	ctx := context.Background()

	vp, err := svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{CurrentTime: 420, Duration: 600, Progress: 70, WatchTimeDelta: 20})
	require.NoError(t, err)
	assert.Equal(t, 70.0, vp.Progress)
	assert.Equal(t, 20.0, vp.TotalWatchTime)

	vp, err = svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{CurrentTime: 240, Duration: 600, Progress: 40, WatchTimeDelta: 15})
	require.NoError(t, err)
	assert.Equal(t, 70.0, vp.Progress, "progress never goes down")
	assert.Equal(t, 420.0, vp.CurrentSeconds)
	assert.Equal(t, 35.0, vp.TotalWatchTime)

	vp, err = svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{CurrentTime: 510, Duration: 600, Progress: 85})
	require.NoError(t, err)
	assert.Equal(t, 85.0, vp.Progress)
	assert.Equal(t, 510.0, vp.CurrentSeconds)
	assert.Equal(t, 35.0, vp.TotalWatchTime)
	assert.False(t, vp.IsCompleted)
}

func TestVideoProgress_CompletionNeedsWatchTime(t *testing.T) {
	svc := NewVideoProgressService(testutil.NewDB(t), testutil.Logger())
	ctx := context.Background()

	// Scrubbed straight to the end.
	vp, err := svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{CurrentTime: 590, Duration: 600, Progress: 98, WatchTimeDelta: 5})
	require.NoError(t, err)
	assert.False(t, vp.IsCompleted)

	vp, err = svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{CurrentTime: 595, Duration: 600, Progress: 99, WatchTimeDelta: 25})
	require.NoError(t, err)
	assert.True(t, vp.IsCompleted)
	require.NotNil(t, vp.CompletedAt)

	// Completion sticks even if a later report looks worse.
	vp, err = svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{CurrentTime: 10, Duration: 600, Progress: 1})
	require.NoError(t, err)
	assert.True(t, vp.IsCompleted)
	assert.Equal(t, 99.0, vp.Progress)
}

func TestVideoProgress_ShortVideoHalfDuration(t *testing.T) {
	svc := NewVideoProgressService(testutil.NewDB(t), testutil.Logger())

	// 40 second clip: half the duration (20s) is enough.
	vp, err := svc.ApplyUpdate(context.Background(), learner, testVideo, testCourse, VideoObservation{CurrentTime: 38, Duration: 40, Progress: 95, WatchTimeDelta: 20})
	require.NoError(t, err)
	assert.True(t, vp.IsCompleted)
}

func TestVideoProgress_Checkpoints(t *testing.T) {
	svc := NewVideoProgressService(testutil.NewDB(t), testutil.Logger())
	ctx := context.Background()

	vp, err := svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{Duration: 600, Progress: 25, WatchTimeDelta: 10, ReachedPercentage: pct(25)})
	require.NoError(t, err)
	require.Len(t, vp.Checkpoints, 1)

	// Duplicate percentage is ignored.
	vp, err = svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{Duration: 600, Progress: 26, ReachedPercentage: pct(25)})
	require.NoError(t, err)
	require.Len(t, vp.Checkpoints, 1)

	// Far ahead of playback: rejected. Within tolerance: accepted.
	vp, err = svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{Duration: 600, Progress: 26, ReachedPercentage: pct(75)})
	require.NoError(t, err)
	require.Len(t, vp.Checkpoints, 1)

	vp, err = svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{Duration: 600, Progress: 48, ReachedPercentage: pct(50)})
	require.NoError(t, err)
	require.Len(t, vp.Checkpoints, 2)
	assert.Equal(t, 25, vp.Checkpoints[0].Percentage)
	assert.Equal(t, 50, vp.Checkpoints[1].Percentage)

	// Far behind stored progress: rejected as well.
	vp, err = svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{Duration: 600, Progress: 48, ReachedPercentage: pct(10)})
	require.NoError(t, err)
	require.Len(t, vp.Checkpoints, 2)

	got, err := svc.Get(ctx, learner, testVideo)
	require.NoError(t, err)
	assert.Len(t, got.Checkpoints, 2)
}

func TestVideoProgress_ConcurrentReports(t *testing.T) {
	svc := NewVideoProgressService(testutil.NewDB(t), testutil.Logger())
	ctx := context.Background()

	// Несколько вкладок шлют отчеты одновременно: ни одно слагаемое не теряется
	const tabs = 20
	var wg sync.WaitGroup
	errs := make(chan error, tabs)
	for i := 0; i < tabs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{
				CurrentTime:    float64(i * 6),
				Duration:       600,
				Progress:       float64(i),
				WatchTimeDelta: 1,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	vp, err := svc.Get(ctx, learner, testVideo)
	require.NoError(t, err)
	assert.Equal(t, float64(tabs), vp.TotalWatchTime)
	assert.Equal(t, float64(tabs-1), vp.Progress)
	assert.Equal(t, float64((tabs-1)*6), vp.CurrentSeconds)
}

func TestVideoProgress_ValidationAndLookup(t *testing.T) {
	svc := NewVideoProgressService(testutil.NewDB(t), testutil.Logger())
	ctx := context.Background()

	bad := []VideoObservation{
		{Progress: 101},
		{Progress: -1},
		{CurrentTime: -5},
		{Duration: -1},
		{WatchTimeDelta: -3},
		{ReachedPercentage: pct(120)},
	}
	for _, obs := range bad {
		_, err := svc.ApplyUpdate(ctx, learner, testVideo, testCourse, obs)
		assert.ErrorIs(t, err, ErrValidation)
	}

	_, err := svc.Get(ctx, learner, testVideo)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ApplyUpdate(ctx, learner, testVideo, testCourse, VideoObservation{Progress: 10})
	require.NoError(t, err)
	_, err = svc.ApplyUpdate(ctx, learner, testVideo+1, testCourse, VideoObservation{Progress: 20})
	require.NoError(t, err)

	rows, err := svc.ListForCourse(ctx, learner, testCourse)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
