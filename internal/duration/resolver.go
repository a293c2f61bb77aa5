package duration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/metrics"
	"github.com/stwalsh4118/retroguide/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Prober measures the playback length of a file in seconds
type Prober interface {
	ProbeDuration(ctx context.Context, filePath string) (float64, error)
}

// Result is a resolved length. Estimated results carry the fallback length.
type Result struct {
	Seconds    float64   `json:"duration_seconds"`
	Estimated  bool      `json:"estimated"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Duration returns Seconds as a time.Duration
func (r Result) Duration() time.Duration {
	return time.Duration(r.Seconds * float64(time.Second))
}

// WarmSummary reports how a bulk pre-warm resolved its items
type WarmSummary struct {
	Total     int `json:"total"`
	Cached    int `json:"cached"`
	Probed    int `json:"probed"`
	Estimated int `json:"estimated"`
}

// Options tunes probing and fallback behaviour
type Options struct {
	FallbackSeconds  float64
	ProbeTimeout     time.Duration
	RetryAfter       time.Duration
	ProbeWorkers     int
	ProbesPerSecond  float64
	ProbeBurst       int
	BreakerThreshold int
	BreakerReset     time.Duration
}

// OptionsFromConfig converts the duration config section
func OptionsFromConfig(cfg config.DurationConfig) Options {
	return Options{
		FallbackSeconds:  cfg.FallbackSeconds,
		ProbeTimeout:     cfg.ProbeTimeout,
		RetryAfter:       cfg.RetryAfter,
		ProbeWorkers:     cfg.ProbeWorkers,
		ProbesPerSecond:  cfg.ProbesPerSecond,
		ProbeBurst:       cfg.ProbeBurst,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerReset:     cfg.BreakerReset,
	}
}

// DefaultOptions returns the built-in defaults
func DefaultOptions() Options {
	return Options{
		FallbackSeconds:  180,
		ProbeTimeout:     5 * time.Second,
		RetryAfter:       10 * time.Minute,
		ProbeWorkers:     4,
		ProbesPerSecond:  8,
		ProbeBurst:       8,
		BreakerThreshold: 5,
		BreakerReset:     time.Minute,
	}
}

// Resolver turns content items into playback lengths. Cache hits return
// immediately; misses share a single in-flight probe per item. Probe
// problems never surface as errors: callers get the fallback length with
// Estimated set.
type Resolver struct {
	store   Store
	prober  Prober
	opts    Options
	group   singleflight.Group
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	breaker *Breaker
	memo    *failureMemo
	now     func() time.Time

	// genMu guards gens and orders probe commits against Invalidate
	genMu sync.Mutex
	gens  map[uuid.UUID]uint64
}

// NewResolver creates a resolver. Zero option values take the defaults.
func NewResolver(store Store, prober Prober, opts Options) *Resolver {
	defaults := DefaultOptions()
	if opts.FallbackSeconds <= 0 {
		opts.FallbackSeconds = defaults.FallbackSeconds
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = defaults.ProbeTimeout
	}
	if opts.ProbeWorkers < 1 {
		opts.ProbeWorkers = defaults.ProbeWorkers
	}
	if opts.ProbesPerSecond <= 0 {
		opts.ProbesPerSecond = defaults.ProbesPerSecond
	}
	if opts.ProbeBurst < 1 {
		opts.ProbeBurst = defaults.ProbeBurst
	}
	if opts.BreakerThreshold < 1 {
		opts.BreakerThreshold = defaults.BreakerThreshold
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = defaults.BreakerReset
	}

	return &Resolver{
		store:   store,
		prober:  prober,
		opts:    opts,
		sem:     semaphore.NewWeighted(int64(opts.ProbeWorkers)),
		limiter: rate.NewLimiter(rate.Limit(opts.ProbesPerSecond), opts.ProbeBurst),
		breaker: NewBreaker(opts.BreakerThreshold, opts.BreakerReset),
		memo:    newFailureMemo(opts.RetryAfter),
		now:     time.Now,
		gens:    make(map[uuid.UUID]uint64),
	}
}

// Options returns the effective options
func (r *Resolver) Options() Options {
	return r.opts
}

// Breaker exposes the probe circuit breaker
func (r *Resolver) Breaker() *Breaker {
	return r.breaker
}

// Resolve returns the length of item
func (r *Resolver) Resolve(ctx context.Context, item *models.ContentItem) Result {
	res, _ := r.resolveOne(ctx, item)
	return res
}

// resolveOne also reports whether the result came straight from the store
func (r *Resolver) resolveOne(ctx context.Context, item *models.ContentItem) (Result, bool) {
	entry, err := r.store.Get(ctx, item.ID)
	switch {
	case err == nil:
		metrics.RecordCacheLookup(metrics.CacheHit)
		return Result{Seconds: entry.DurationSeconds, ResolvedAt: entry.ResolvedAt}, true
	case IsCacheMiss(err):
		metrics.RecordCacheLookup(metrics.CacheMiss)
	default:
		metrics.RecordCacheLookup(metrics.CacheUnavailable)
		logger.Log.Warn().
			Err(err).
			Str("content_item_id", item.ID.String()).
			Msg("Duration cache unavailable, probing directly")
	}
	return r.resolveMiss(ctx, item), false
}

// resolveMiss joins or starts the shared probe for item. A caller whose
// context ends first gets the estimate while the probe keeps running for
// the other waiters.
func (r *Resolver) resolveMiss(ctx context.Context, item *models.ContentItem) Result {
	if failedAt, ok := r.memo.get(item.ID, r.now()); ok {
		metrics.RecordProbe(metrics.ProbeMemo, 0)
		return r.fallback(failedAt)
	}

	probeItem := *item
	gen := r.generation(item.ID)
	key := fmt.Sprintf("%s/%d", item.ID, gen)
	ch := r.group.DoChan(key, func() (any, error) {
		detached := context.WithoutCancel(ctx)
		// a probe that finished after our store read has already cached the length
		if entry, err := r.store.Get(detached, probeItem.ID); err == nil {
			return Result{Seconds: entry.DurationSeconds, ResolvedAt: entry.ResolvedAt}, nil
		}
		return r.probe(detached, &probeItem, gen), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		logger.Log.Debug().
			Str("content_item_id", item.ID.String()).
			Msg("Caller gave up waiting for probe, using estimate")
		return r.fallback(r.now())
	}
}

// generation counts invalidations of id
func (r *Resolver) generation(id uuid.UUID) uint64 {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	return r.gens[id]
}

// commit runs record only if id was not invalidated since gen was read.
// Invalidate bumps the generation under the same lock, so a probe that
// started before an invalidation can never write its outcome afterwards.
func (r *Resolver) commit(id uuid.UUID, gen uint64, record func()) bool {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	if r.gens[id] != gen {
		return false
	}
	record()
	return true
}

// probe runs one bounded, rate limited probe and records the outcome
func (r *Resolver) probe(ctx context.Context, item *models.ContentItem, gen uint64) Result {
	if !r.breaker.CanAttempt() {
		metrics.RecordProbe(metrics.ProbeSkipped, 0)
		logger.Log.Debug().
			Str("content_item_id", item.ID.String()).
			Msg("Probe circuit open, using estimate")
		return r.fallback(r.now())
	}

	// ctx is detached from callers, so these only wait for capacity
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return r.fallback(r.now())
	}
	defer r.sem.Release(1)
	if err := r.limiter.Wait(ctx); err != nil {
		return r.fallback(r.now())
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.opts.ProbeTimeout)
	defer cancel()

	metrics.DurationProbesInFlight.Inc()
	start := time.Now()
	seconds, err := r.prober.ProbeDuration(probeCtx, item.FilePath)
	elapsed := time.Since(start)
	metrics.DurationProbesInFlight.Dec()

	if err == nil && (math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0) {
		err = fmt.Errorf("%w: %v", ErrNonPositiveDuration, seconds)
	}

	now := r.now()
	if err != nil {
		outcome := metrics.ProbeFailure
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			outcome = metrics.ProbeTimeout
		}
		metrics.RecordProbe(outcome, elapsed)
		r.breaker.RecordFailure()
		r.commit(item.ID, gen, func() { r.memo.add(item.ID, now) })

		logger.Log.Warn().
			Err(err).
			Str("content_item_id", item.ID.String()).
			Str("file_path", item.FilePath).
			Str("outcome", outcome).
			Float64("fallback_seconds", r.opts.FallbackSeconds).
			Msg("Duration probe failed, using estimate")
		return r.fallback(now)
	}

	metrics.RecordProbe(metrics.ProbeSuccess, elapsed)
	r.breaker.RecordSuccess()

	entry := &models.DurationCacheEntry{
		ContentItemID:   item.ID,
		DurationSeconds: seconds,
		ResolvedAt:      now,
	}
	var putErr error
	current := r.commit(item.ID, gen, func() {
		r.memo.clear(item.ID)
		putErr = r.store.Put(ctx, entry)
	})
	switch {
	case !current:
		logger.Log.Debug().
			Str("content_item_id", item.ID.String()).
			Msg("Duration invalidated during probe, not caching")
	case putErr != nil:
		logger.Log.Warn().
			Err(putErr).
			Str("content_item_id", item.ID.String()).
			Msg("Failed to cache probed duration")
	}

	logger.Log.Debug().
		Str("content_item_id", item.ID.String()).
		Float64("duration_seconds", seconds).
		Dur("elapsed", elapsed).
		Msg("Probed media duration")

	return Result{Seconds: seconds, ResolvedAt: now}
}

func (r *Resolver) fallback(at time.Time) Result {
	return Result{Seconds: r.opts.FallbackSeconds, Estimated: true, ResolvedAt: at}
}

// ResolveAll resolves a playlist in one pass and returns a snapshot keyed by
// content item id. Repeated items are resolved once.
func (r *Resolver) ResolveAll(ctx context.Context, items []*models.ContentItem) map[uuid.UUID]Result {
	out, _ := r.resolveBatch(ctx, items)
	return out
}

// Prewarm resolves every item ahead of time
func (r *Resolver) Prewarm(ctx context.Context, items []*models.ContentItem) WarmSummary {
	results, cached := r.resolveBatch(ctx, items)

	summary := WarmSummary{Total: len(results), Cached: cached}
	for _, res := range results {
		if res.Estimated {
			summary.Estimated++
		}
	}
	summary.Probed = summary.Total - summary.Cached - summary.Estimated

	logger.Log.Info().
		Int("total", summary.Total).
		Int("cached", summary.Cached).
		Int("probed", summary.Probed).
		Int("estimated", summary.Estimated).
		Msg("Duration pre-warm finished")

	return summary
}

func (r *Resolver) resolveBatch(ctx context.Context, items []*models.ContentItem) (map[uuid.UUID]Result, int) {
	unique := make([]*models.ContentItem, 0, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		unique = append(unique, item)
		ids = append(ids, item.ID)
	}

	out := make(map[uuid.UUID]Result, len(unique))
	if len(unique) == 0 {
		return out, 0
	}

	cachedEntries, err := r.store.GetMany(ctx, ids)
	if err != nil {
		metrics.RecordCacheLookup(metrics.CacheUnavailable)
		logger.Log.Warn().
			Err(err).
			Int("items", len(ids)).
			Msg("Duration cache unavailable for bulk read, probing directly")
		cachedEntries = nil
	}

	var misses []*models.ContentItem
	for _, item := range unique {
		if entry, ok := cachedEntries[item.ID]; ok {
			metrics.RecordCacheLookup(metrics.CacheHit)
			out[item.ID] = Result{Seconds: entry.DurationSeconds, ResolvedAt: entry.ResolvedAt}
			continue
		}
		if err == nil {
			metrics.RecordCacheLookup(metrics.CacheMiss)
		}
		misses = append(misses, item)
	}
	cached := len(unique) - len(misses)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.opts.ProbeWorkers)
	for _, item := range misses {
		g.Go(func() error {
			res := r.resolveMiss(ctx, item)
			mu.Lock()
			out[item.ID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out, cached
}

// Invalidate forgets the cached duration and any remembered failure, so the
// next resolution probes again
func (r *Resolver) Invalidate(ctx context.Context, id uuid.UUID) error {
	r.genMu.Lock()
	r.gens[id]++
	r.memo.clear(id)
	r.genMu.Unlock()

	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to invalidate duration: %w", err)
	}

	logger.Log.Info().
		Str("content_item_id", id.String()).
		Msg("Duration invalidated")
	return nil
}
