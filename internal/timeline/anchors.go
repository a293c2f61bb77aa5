package timeline

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/metrics"
	"github.com/stwalsh4118/retroguide/internal/models"
)

// Anchor reset reasons
const (
	anchorCreated            = "created"
	anchorCompositionChanged = "composition_changed"
	anchorExplicitReset      = "explicit_reset"
)

// AnchorStore persists a channel's anchor
type AnchorStore interface {
	SaveAnchor(ctx context.Context, channelID uuid.UUID, anchor time.Time, fingerprint string) error
}

// Fingerprint identifies a playlist composition: the ordered list of content item ids
func Fingerprint(items []*models.ContentItem) string {
	d := xxhash.New()
	for _, item := range items {
		if item == nil {
			continue
		}
		_, _ = d.Write(item.ID[:])
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// AnchorRegistry holds the per-channel anchors. It is the only mutable
// schedule state; every read and transition happens under one mutex so a
// concurrent request sees either the old or the new anchor, never a mix.
type AnchorRegistry struct {
	store AnchorStore
	now   func() time.Time

	mu      sync.Mutex
	anchors map[uuid.UUID]Anchor
	// revisions counts transitions per channel
	revisions map[uuid.UUID]uint64
}

// NewAnchorRegistry creates a registry. store may be nil, in which case anchors live only in memory.
func NewAnchorRegistry(store AnchorStore) *AnchorRegistry {
	return &AnchorRegistry{
		store:   store,
		now:     time.Now,
		anchors:   make(map[uuid.UUID]Anchor),
		revisions: make(map[uuid.UUID]uint64),
	}
}

// Revision returns the channel's transition count. Read it before loading
// the playlist and hand it to ResolveSince.
func (r *AnchorRegistry) Revision(channelID uuid.UUID) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revisions[channelID]
}

// Resolve returns the anchor for ch's current composition. A persisted
// anchor on the channel row is adopted when its fingerprint matches; a
// missing anchor is created at now and a mismatched one is reset to now.
func (r *AnchorRegistry) Resolve(ctx context.Context, ch *models.Channel, fingerprint string) Anchor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(ctx, ch, fingerprint)
}

// ResolveSince is Resolve for a fingerprint computed from a playlist read
// after Revision returned revision. If the anchor moved since then and the
// fingerprint no longer matches, the caller's playlist is stale: the
// current anchor is returned unchanged with ok false and nothing is reset.
func (r *AnchorRegistry) ResolveSince(ctx context.Context, ch *models.Channel, fingerprint string, revision uint64) (Anchor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.revisions[ch.ID] != revision {
		current, ok := r.anchors[ch.ID]
		if !ok || current.Fingerprint != fingerprint {
			return current, false
		}
	}
	return r.resolveLocked(ctx, ch, fingerprint), true
}

func (r *AnchorRegistry) resolveLocked(ctx context.Context, ch *models.Channel, fingerprint string) Anchor {
	current, ok := r.anchors[ch.ID]
	if !ok && ch.AnchorTime != nil {
		current = Anchor{Time: ch.AnchorTime.UTC(), Fingerprint: ch.AnchorFingerprint}
		ok = true
		r.anchors[ch.ID] = current
	}

	if ok && current.Fingerprint == fingerprint {
		return current
	}

	reason := anchorCreated
	if ok {
		reason = anchorCompositionChanged
	}
	return r.setLocked(ctx, ch.ID, fingerprint, reason)
}

// Observe applies a composition change reported by a playlist mutation.
// Channels that have never been scheduled stay unanchored.
func (r *AnchorRegistry) Observe(ctx context.Context, ch *models.Channel, fingerprint string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, known := r.anchors[ch.ID]; !known && ch.AnchorTime == nil {
		return
	}
	r.resolveLocked(ctx, ch, fingerprint)
}

// Reset re-anchors a channel at now regardless of its current state
func (r *AnchorRegistry) Reset(ctx context.Context, channelID uuid.UUID, fingerprint string) Anchor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setLocked(ctx, channelID, fingerprint, anchorExplicitReset)
}

// Get returns the in-memory anchor for a channel
func (r *AnchorRegistry) Get(channelID uuid.UUID) (Anchor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.anchors[channelID]
	return a, ok
}

// Forget drops a channel's anchor, used when the channel is deleted
func (r *AnchorRegistry) Forget(channelID uuid.UUID) {
	r.mu.Lock()
	delete(r.anchors, channelID)
	r.revisions[channelID]++
	r.mu.Unlock()
}

func (r *AnchorRegistry) setLocked(ctx context.Context, channelID uuid.UUID, fingerprint, reason string) Anchor {
	anchor := Anchor{
		Time:        r.now().UTC().Truncate(time.Second),
		Fingerprint: fingerprint,
	}
	r.anchors[channelID] = anchor
	r.revisions[channelID]++

	if r.store != nil {
		if err := r.store.SaveAnchor(ctx, channelID, anchor.Time, fingerprint); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("channel_id", channelID.String()).
				Msg("Failed to persist channel anchor")
		}
	}

	metrics.RecordAnchorReset(reason)
	logger.Log.Info().
		Str("channel_id", channelID.String()).
		Time("anchor", anchor.Time).
		Str("reason", reason).
		Msg("Channel anchor set")

	return anchor
}
