package guide

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/stwalsh4118/retroguide/internal/duration"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/metrics"
	"github.com/stwalsh4118/retroguide/internal/models"
)

// Prewarmer resolves durations ahead of rendering
type Prewarmer interface {
	Prewarm(ctx context.Context, items []*models.ContentItem) duration.WarmSummary
}

// Document is a rendered guide with the time it was generated
type Document struct {
	Content     []byte
	GeneratedAt time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	Stats       GuideStats
}

// Publisher keeps the rendered XMLTV guide cached and refreshes it periodically
type Publisher struct {
	exporter  *Exporter
	prewarmer Prewarmer
	interval  time.Duration

	mu  sync.RWMutex
	doc *Document

	// refreshMu serializes renders so concurrent misses share one refresh
	refreshMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPublisher creates a publisher. prewarmer may be nil; interval <= 0 disables periodic refresh.
func NewPublisher(exporter *Exporter, prewarmer Prewarmer, interval time.Duration) *Publisher {
	return &Publisher{
		exporter:  exporter,
		prewarmer: prewarmer,
		interval:  interval,
	}
}

// Start renders the guide in the background and then on every interval until Stop
func (p *Publisher) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if _, err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
			logger.Log.Error().Err(err).Msg("Initial guide render failed")
		}
		if p.interval <= 0 {
			return
		}

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
					logger.Log.Error().Err(err).Msg("Scheduled guide refresh failed")
				}
			}
		}
	}()
}

// Stop ends the refresh loop and waits for it to exit
func (p *Publisher) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Document returns the cached guide, rendering it first when nothing is cached
func (p *Publisher) Document(ctx context.Context) (*Document, error) {
	if doc := p.Cached(); doc != nil {
		return doc, nil
	}

	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()
	if doc := p.Cached(); doc != nil {
		return doc, nil
	}
	return p.refreshLocked(ctx)
}

// Cached returns the current document or nil
func (p *Publisher) Cached() *Document {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc
}

// Refresh pre-warms durations, renders a new guide and replaces the cached one.
// On failure the previous document stays in place.
func (p *Publisher) Refresh(ctx context.Context) (*Document, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()
	return p.refreshLocked(ctx)
}

func (p *Publisher) refreshLocked(ctx context.Context) (*Document, error) {
	if p.prewarmer != nil {
		items, err := p.exporter.Items(ctx)
		if err != nil {
			metrics.GuideRefreshErrors.Inc()
			return nil, err
		}
		summary := p.prewarmer.Prewarm(ctx, items)
		logger.Log.Debug().
			Int("total", summary.Total).
			Int("cached", summary.Cached).
			Int("probed", summary.Probed).
			Int("estimated", summary.Estimated).
			Msg("Durations pre-warmed for guide")
	}

	start, end := p.exporter.Window()
	var buf bytes.Buffer
	stats, err := p.exporter.Guide(ctx, &buf, start, end)
	if err != nil {
		metrics.GuideRefreshErrors.Inc()
		return nil, err
	}

	doc := &Document{
		Content:     buf.Bytes(),
		GeneratedAt: time.Now().UTC(),
		WindowStart: start,
		WindowEnd:   end,
		Stats:       stats,
	}

	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()

	return doc, nil
}
