package duration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/retroguide/internal/models"
	"go.uber.org/goleak"
)

func TestWarmer_CompletesJob(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := NewMemoryStore()
	prober := newFakeProber()
	prober.lengths["/media/a.mp4"] = 10
	prober.lengths["/media/b.mp4"] = 20
	r := NewResolver(store, prober, testOptions())

	cached := item("/media/cached.mp4")
	require.NoError(t, store.Put(context.Background(), &models.DurationCacheEntry{
		ContentItemID: cached.ID, DurationSeconds: 5, ResolvedAt: time.Now(),
	}))
	a, b, broken := item("/media/a.mp4"), item("/media/b.mp4"), item("/media/broken.mp4")

	w := NewWarmer(r)
	defer w.Stop()

	jobID, err := w.Start(context.Background(), []*models.ContentItem{cached, a, b, broken, a})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	progress, err := w.Wait(ctx, jobID)
	require.NoError(t, err)

	assert.Equal(t, JobStatusCompleted, progress.Status)
	assert.Equal(t, 4, progress.Total)
	assert.Equal(t, 4, progress.Processed)
	assert.Equal(t, 1, progress.Cached)
	assert.Equal(t, 2, progress.Probed)
	assert.Equal(t, 1, progress.Estimated)
	assert.NotNil(t, progress.EndTime)
}

func TestWarmer_SingleRunningJob(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	prober := newFakeProber()
	prober.lengths["/media/slow.mp4"] = 10
	prober.gate = make(chan struct{})
	prober.started = make(chan string, 1)
	r := NewResolver(NewMemoryStore(), prober, testOptions())

	w := NewWarmer(r)
	defer w.Stop()

	jobID, err := w.Start(context.Background(), []*models.ContentItem{item("/media/slow.mp4")})
	require.NoError(t, err)
	<-prober.started

	_, err = w.Start(context.Background(), []*models.ContentItem{item("/media/other.mp4")})
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)

	close(prober.gate)
	progress, err := w.Wait(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, progress.Status)

	assert.ErrorIs(t, w.Cancel(jobID), ErrJobNotRunning)
}

func TestWarmer_Cancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	prober := newFakeProber()
	prober.gate = make(chan struct{})
	prober.started = make(chan string, 64)
	r := NewResolver(NewMemoryStore(), prober, testOptions())

	items := make([]*models.ContentItem, 0, 20)
	for i := range 20 {
		items = append(items, item("/media/"+string(rune('a'+i))+".mp4"))
	}

	w := NewWarmer(r)
	jobID, err := w.Start(context.Background(), items)
	require.NoError(t, err)
	<-prober.started

	require.NoError(t, w.Cancel(jobID))
	progress, err := w.Wait(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCancelled, progress.Status)
	assert.Less(t, progress.Processed, 20)

	// Let the detached probes drain before checking for leaks
	close(prober.gate)
	w.Stop()
	assert.Eventually(t, func() bool {
		return r.sem.TryAcquire(int64(r.opts.ProbeWorkers))
	}, time.Second, 10*time.Millisecond)
}

func TestWarmer_UnknownJob(t *testing.T) {
	w := NewWarmer(NewResolver(NewMemoryStore(), newFakeProber(), testOptions()))
	defer w.Stop()

	_, err := w.Progress("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, w.Cancel("nope"), ErrJobNotFound)
}

func TestWarmer_CleanupOldJobs(t *testing.T) {
	w := NewWarmer(NewResolver(NewMemoryStore(), newFakeProber(), testOptions()))
	defer w.Stop()

	jobID, err := w.Start(context.Background(), nil)
	require.NoError(t, err)
	_, err = w.Wait(context.Background(), jobID)
	require.NoError(t, err)

	w.CleanupOldJobs(time.Hour)
	_, err = w.Progress(jobID)
	require.NoError(t, err, "recent jobs are retained")

	w.CleanupOldJobs(-time.Minute)
	_, err = w.Progress(jobID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}
