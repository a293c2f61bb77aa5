package duration

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/stwalsh4118/retroguide/internal/config"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/models"
)

// Store is the key to duration cache contract. Writes are idempotent and
// the last writer wins.
type Store interface {
	// Get returns ErrCacheMiss when nothing is cached for id
	Get(ctx context.Context, id uuid.UUID) (*models.DurationCacheEntry, error)
	// GetMany omits missing ids from the result
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.DurationCacheEntry, error)
	Put(ctx context.Context, entry *models.DurationCacheEntry) error
	// Delete succeeds when nothing is cached
	Delete(ctx context.Context, id uuid.UUID) error
}

// NewStore builds the store selected by cfg.CacheBackend
func NewStore(cfg config.DurationConfig, database *db.DB) (Store, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		return NewRedisStore(cfg.Redis)
	case config.CacheBackendMemory:
		return NewMemoryStore(), nil
	case config.CacheBackendSQLite, "":
		if database == nil {
			return nil, fmt.Errorf("sqlite cache backend requires a database")
		}
		return NewDBStore(db.NewDurationRepository(database)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.CacheBackend)
	}
}

// DBStore keeps durations in the duration_cache table
type DBStore struct {
	repo *db.DurationRepository
}

// NewDBStore creates a store backed by the duration repository
func NewDBStore(repo *db.DurationRepository) *DBStore {
	return &DBStore{repo: repo}
}

// Get retrieves a cached duration
func (s *DBStore) Get(ctx context.Context, id uuid.UUID) (*models.DurationCacheEntry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return entry, nil
}

// GetMany retrieves cached durations in one query
func (s *DBStore) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.DurationCacheEntry, error) {
	return s.repo.GetMany(ctx, ids)
}

// Put stores a duration
func (s *DBStore) Put(ctx context.Context, entry *models.DurationCacheEntry) error {
	return s.repo.Upsert(ctx, entry)
}

// Delete removes a cached duration
func (s *DBStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// MemoryStore is a process-local store, used when no persistence is configured and in tests
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]models.DurationCacheEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID]models.DurationCacheEntry)}
}

// Get retrieves a cached duration
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.DurationCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

// GetMany retrieves several cached durations
func (s *MemoryStore) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.DurationCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]*models.DurationCacheEntry, len(ids))
	for _, id := range ids {
		if entry, ok := s.entries[id]; ok {
			out[id] = &entry
		}
	}
	return out, nil
}

// Put stores a duration
func (s *MemoryStore) Put(_ context.Context, entry *models.DurationCacheEntry) error {
	s.mu.Lock()
	s.entries[entry.ContentItemID] = *entry
	s.mu.Unlock()
	return nil
}

// Delete removes a cached duration
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of cached entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
