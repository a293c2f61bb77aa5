package duration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/retroguide/internal/db"
	"github.com/stwalsh4118/retroguide/internal/models"
	"go.uber.org/goleak"
)

type mapFinder struct {
	mu    sync.Mutex
	items map[string]*models.ContentItem
}

func (f *mapFinder) GetByPath(_ context.Context, path string) (*models.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.items[path]; ok {
		return it, nil
	}
	return nil, db.ErrNotFound
}

func TestFileWatcher_InvalidatesChangedFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "shows"), 0o755))
	absPath := filepath.Join(root, "shows", "a.mp4")
	relPath := filepath.Join(root, "b.mkv")
	require.NoError(t, os.WriteFile(absPath, []byte("v1"), 0o644))
	require.NoError(t, os.WriteFile(relPath, []byte("v1"), 0o644))

	absItem := models.NewContentItem(absPath, "A")
	relItem := models.NewContentItem("b.mkv", "B")
	finder := &mapFinder{items: map[string]*models.ContentItem{
		absPath: absItem,
		"b.mkv": relItem,
	}}

	store := NewMemoryStore()
	for _, it := range []*models.ContentItem{absItem, relItem} {
		require.NoError(t, store.Put(context.Background(), &models.DurationCacheEntry{
			ContentItemID: it.ID, DurationSeconds: 10, ResolvedAt: time.Now(),
		}))
	}
	r := NewResolver(store, newFakeProber(), testOptions())

	fw, err := NewFileWatcher(root, []string{"mp4", "mkv"}, finder, r)
	require.NoError(t, err)
	fw.debounce = 20 * time.Millisecond
	require.NoError(t, fw.Start())
	defer func() { _ = fw.Stop() }()

	require.NoError(t, os.WriteFile(absPath, []byte("v2"), 0o644))
	require.NoError(t, os.WriteFile(relPath, []byte("v2"), 0o644))

	assert.Eventually(t, func() bool { return store.Len() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(NewMemoryStore(), newFakeProber(), testOptions())
	fw, err := NewFileWatcher(root, []string{"mp4"}, &mapFinder{items: map[string]*models.ContentItem{}}, r)
	require.NoError(t, err)

	fw.queue(filepath.Join(root, "notes.txt"))
	fw.queue(filepath.Join(root, "clip.mp4"))

	fw.mu.Lock()
	defer fw.mu.Unlock()
	assert.Len(t, fw.pending, 1)
}

func TestNewFileWatcher_Validation(t *testing.T) {
	r := NewResolver(NewMemoryStore(), newFakeProber(), testOptions())

	_, err := NewFileWatcher("", nil, &mapFinder{}, r)
	assert.Error(t, err)

	_, err = NewFileWatcher(t.TempDir(), nil, nil, r)
	assert.Error(t, err)
}

func TestFileWatcher_StopWithoutStart(t *testing.T) {
	r := NewResolver(NewMemoryStore(), newFakeProber(), testOptions())
	fw, err := NewFileWatcher(t.TempDir(), nil, &mapFinder{}, r)
	require.NoError(t, err)

	assert.NoError(t, fw.Stop())
	assert.NoError(t, fw.Stop())
	assert.Error(t, fw.Start())
}
