package duration

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stwalsh4118/retroguide/internal/logger"
	"github.com/stwalsh4118/retroguide/internal/media"
	"github.com/stwalsh4118/retroguide/internal/models"
)

const debounceWindow = 500 * time.Millisecond

// ContentFinder looks up catalog entries by file path
type ContentFinder interface {
	GetByPath(ctx context.Context, path string) (*models.ContentItem, error)
}

// FileWatcher invalidates cached durations when media files under the
// library change on disk
type FileWatcher struct {
	root     string
	formats  []string
	finder   ContentFinder
	resolver *Resolver
	debounce time.Duration

	fsw      *fsnotify.Watcher
	stopChan chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	pending map[string]time.Time
	started bool
	stopped bool
}

// NewFileWatcher creates a watcher for root. formats lists the file
// extensions, without dots, that are considered media.
func NewFileWatcher(root string, formats []string, finder ContentFinder, resolver *Resolver) (*FileWatcher, error) {
	if root == "" {
		return nil, fmt.Errorf("library path cannot be empty")
	}
	if finder == nil || resolver == nil {
		return nil, fmt.Errorf("content finder and resolver are required")
	}

	return &FileWatcher{
		root:     root,
		formats:  formats,
		finder:   finder,
		resolver: resolver,
		debounce: debounceWindow,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[string]time.Time),
	}, nil
}

// Start watches root and every directory below it
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.stopped {
		return fmt.Errorf("watcher has been stopped")
	}
	if fw.started {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	err = filepath.WalkDir(fw.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Log.Warn().
				Err(err).
				Str("path", path).
				Msg("Skipping unreadable path while adding watches")
			return nil
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch library: %w", err)
	}

	fw.fsw = watcher
	fw.started = true
	go fw.run()

	logger.Log.Info().
		Str("library_path", fw.root).
		Int("watched_dirs", len(watcher.WatchList())).
		Msg("Media file watcher started")
	return nil
}

// Stop stops watching and waits for the event loop to exit
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return nil
	}
	fw.stopped = true
	started := fw.started
	fw.mu.Unlock()

	close(fw.stopChan)
	if !started {
		return nil
	}

	err := fw.fsw.Close()
	<-fw.done

	logger.Log.Debug().
		Str("library_path", fw.root).
		Msg("Media file watcher stopped")
	return err
}

func (fw *FileWatcher) run() {
	defer close(fw.done)

	ticker := time.NewTicker(fw.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-fw.stopChan:
			return
		case event, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			logger.Log.Warn().
				Err(err).
				Msg("fsnotify error, continuing")
		case <-ticker.C:
			fw.processPending()
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.fsw.Add(event.Name); err != nil {
				logger.Log.Warn().
					Err(err).
					Str("path", event.Name).
					Msg("Failed to watch new directory")
			}
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	fw.queue(event.Name)
}

// queue records a change to a media file; repeated changes push the deadline back
func (fw *FileWatcher) queue(path string) {
	if !media.IsSupportedFormat(path, fw.formats) {
		return
	}

	fw.mu.Lock()
	fw.pending[path] = time.Now()
	fw.mu.Unlock()
}

// processPending invalidates items whose files have been quiet for a full debounce window
func (fw *FileWatcher) processPending() {
	cutoff := time.Now().Add(-fw.debounce)

	fw.mu.Lock()
	var ready []string
	for path, lastEvent := range fw.pending {
		if lastEvent.Before(cutoff) {
			ready = append(ready, path)
			delete(fw.pending, path)
		}
	}
	fw.mu.Unlock()

	for _, path := range ready {
		fw.invalidatePath(path)
	}
}

func (fw *FileWatcher) invalidatePath(path string) {
	ctx := context.Background()

	candidates := []string{path}
	if rel, err := filepath.Rel(fw.root, path); err == nil {
		candidates = append(candidates, rel)
	}

	for _, candidate := range candidates {
		item, err := fw.finder.GetByPath(ctx, candidate)
		if err != nil || item == nil {
			continue
		}
		if err := fw.resolver.Invalidate(ctx, item.ID); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("file_path", path).
				Msg("Failed to invalidate duration for changed file")
		}
		return
	}

	logger.Log.Debug().
		Str("file_path", path).
		Msg("Changed file is not in the catalog")
}
