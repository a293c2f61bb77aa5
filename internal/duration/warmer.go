package duration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/models"
	"golang.org/x/sync/errgroup"
)

// Job retention and cleanup settings
const (
	jobRetentionPeriod = 1 * time.Hour
	cleanupInterval    = 15 * time.Minute
)

// JobStatus represents the current state of a warm job
type JobStatus string

// Warm job status constants
const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

// WarmProgress tracks a bulk pre-warm job
type WarmProgress struct {
	JobID     string     `json:"job_id"`
	Status    JobStatus  `json:"status"`
	Total     int        `json:"total"`
	Processed int        `json:"processed"`
	Cached    int        `json:"cached"`
	Probed    int        `json:"probed"`
	Estimated int        `json:"estimated"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	mu         sync.RWMutex
	cancelFunc context.CancelFunc
}

// snapshot copies the exported fields under the read lock
func (p *WarmProgress) snapshot() *WarmProgress {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return &WarmProgress{
		JobID:     p.JobID,
		Status:    p.Status,
		Total:     p.Total,
		Processed: p.Processed,
		Cached:    p.Cached,
		Probed:    p.Probed,
		Estimated: p.Estimated,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
	}
}

// Warmer runs asynchronous pre-warm jobs against a resolver. One job runs at a time.
type Warmer struct {
	resolver *Resolver
	jobs     map[string]*WarmProgress
	mu       sync.RWMutex

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewWarmer creates a warmer and starts its cleanup goroutine
func NewWarmer(resolver *Resolver) *Warmer {
	w := &Warmer{
		resolver:    resolver,
		jobs:        make(map[string]*WarmProgress),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	go w.runCleanupLoop()

	return w
}

// Start launches a job that resolves every item. The job outlives ctx's
// cancellation; use Cancel to stop it.
func (w *Warmer) Start(ctx context.Context, items []*models.ContentItem) (string, error) {
	w.mu.Lock()
	for _, job := range w.jobs {
		job.mu.RLock()
		running := job.Status == JobStatusRunning
		job.mu.RUnlock()
		if running {
			w.mu.Unlock()
			return "", ErrJobAlreadyRunning
		}
	}

	jobID := uuid.New().String()
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	progress := &WarmProgress{
		JobID:      jobID,
		Status:     JobStatusRunning,
		Total:      countUnique(items),
		StartTime:  time.Now().UTC(),
		cancelFunc: cancel,
	}
	w.jobs[jobID] = progress
	w.mu.Unlock()

	go w.run(jobCtx, progress, items)

	logger.Log.Info().
		Str("job_id", jobID).
		Int("items", progress.Total).
		Msg("Duration warm job started")

	return jobID, nil
}

// Progress returns a copy of a job's progress
func (w *Warmer) Progress(jobID string) (*WarmProgress, error) {
	w.mu.RLock()
	progress, ok := w.jobs[jobID]
	w.mu.RUnlock()

	if !ok {
		return nil, ErrJobNotFound
	}
	return progress.snapshot(), nil
}

// Cancel stops a running job
func (w *Warmer) Cancel(jobID string) error {
	w.mu.RLock()
	progress, ok := w.jobs[jobID]
	w.mu.RUnlock()

	if !ok {
		return ErrJobNotFound
	}

	progress.mu.Lock()
	defer progress.mu.Unlock()
	if progress.Status != JobStatusRunning {
		return ErrJobNotRunning
	}
	if progress.cancelFunc != nil {
		progress.cancelFunc()
	}

	logger.Log.Info().
		Str("job_id", jobID).
		Msg("Duration warm job cancellation requested")
	return nil
}

// Wait blocks until the job is no longer running or ctx ends
func (w *Warmer) Wait(ctx context.Context, jobID string) (*WarmProgress, error) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		progress, err := w.Progress(jobID)
		if err != nil {
			return nil, err
		}
		if progress.Status != JobStatusRunning {
			return progress, nil
		}

		select {
		case <-ctx.Done():
			return progress, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Warmer) run(ctx context.Context, progress *WarmProgress, items []*models.ContentItem) {
	seen := make(map[uuid.UUID]struct{}, len(items))

	var g errgroup.Group
	g.SetLimit(w.resolver.opts.ProbeWorkers)

	for _, item := range items {
		if item == nil {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, cached := w.resolver.resolveOne(ctx, item)

			progress.mu.Lock()
			progress.Processed++
			switch {
			case cached:
				progress.Cached++
			case res.Estimated:
				progress.Estimated++
			default:
				progress.Probed++
			}
			progress.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := JobStatusCompleted
	if ctx.Err() != nil {
		status = JobStatusCancelled
	}
	w.finalize(progress, status)
}

func (w *Warmer) finalize(progress *WarmProgress, status JobStatus) {
	endTime := time.Now().UTC()

	progress.mu.Lock()
	progress.Status = status
	progress.EndTime = &endTime
	progress.cancelFunc()
	progress.mu.Unlock()

	snap := progress.snapshot()
	logger.Log.Info().
		Str("job_id", snap.JobID).
		Str("status", string(status)).
		Int("total", snap.Total).
		Int("cached", snap.Cached).
		Int("probed", snap.Probed).
		Int("estimated", snap.Estimated).
		Dur("duration", endTime.Sub(snap.StartTime)).
		Msg("Duration warm job finished")
}

// Stop cancels running jobs and stops the cleanup goroutine
func (w *Warmer) Stop() {
	w.mu.RLock()
	for _, job := range w.jobs {
		job.mu.RLock()
		if job.Status == JobStatusRunning && job.cancelFunc != nil {
			job.cancelFunc()
		}
		job.mu.RUnlock()
	}
	w.mu.RUnlock()

	close(w.stopCleanup)
	<-w.cleanupDone
	logger.Log.Debug().Msg("Warmer cleanup goroutine stopped")
}

func (w *Warmer) runCleanupLoop() {
	defer close(w.cleanupDone)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCleanup:
			return
		case <-ticker.C:
			w.CleanupOldJobs(jobRetentionPeriod)
		}
	}
}

// CleanupOldJobs removes finished jobs that ended before the retention window
func (w *Warmer) CleanupOldJobs(olderThan time.Duration) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	w.mu.Lock()
	defer w.mu.Unlock()

	for jobID, progress := range w.jobs {
		progress.mu.RLock()
		expired := progress.Status != JobStatusRunning && progress.EndTime != nil && progress.EndTime.Before(cutoff)
		progress.mu.RUnlock()

		if expired {
			delete(w.jobs, jobID)
			removed++
		}
	}

	if removed > 0 {
		logger.Log.Debug().
			Int("removed_count", removed).
			Int("remaining_count", len(w.jobs)).
			Msg("Cleaned up old warm jobs")
	}
}

func countUnique(items []*models.ContentItem) int {
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if item != nil {
			seen[item.ID] = struct{}{}
		}
	}
	return len(seen)
}
