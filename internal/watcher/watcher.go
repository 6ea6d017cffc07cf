// Package watcher keeps normalizing files that appear in a watched directory.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// WatchConfig contains watcher settings.
type WatchConfig struct {
	DebounceSeconds   int      // Delay before processing (default: 2)
	StableThresholdMs int      // File size stability threshold in milliseconds (default: 1000)
	IgnorePatterns    []string // Glob patterns to ignore (e.g., "*.tmp", "*.part")
}

// DefaultWatchConfig returns a WatchConfig with sensible defaults.
func DefaultWatchConfig() *WatchConfig {
	return &WatchConfig{
		DebounceSeconds:   2,
		StableThresholdMs: 1000,
		IgnorePatterns:    DefaultIgnorePatterns(),
	}
}

// WatchSummary contains stats from the watch session.
type WatchSummary struct {
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	Duration       time.Duration
}

// ErrAlreadyHandled is returned by a FileHandler for an event it caused
// itself, such as the Create of a file it just renamed. Such events are
// not counted.
var ErrAlreadyHandled = errors.Base("event was caused by the handler")

// FileHandler processes one file. processed is false when the file needed
// no change; a non-nil error marks the file as failed.
type FileHandler func(ctx context.Context, path string) (processed bool, err error)

// Watcher monitors directories and hands settled files to a FileHandler,
// one file at a time.
type Watcher struct {
	config      *WatchConfig
	fileHandler FileHandler
	fileFilter  *FileFilter
	stability   *StabilityChecker

	handleMu sync.Mutex

	mu             sync.Mutex
	filesProcessed int
	filesSkipped   int
	filesFailed    int
}

// New creates a new Watcher. A nil config means DefaultWatchConfig.
func New(config *WatchConfig, fileHandler FileHandler) *Watcher {
	if config == nil {
		config = DefaultWatchConfig()
	}
	return &Watcher{
		config:      config,
		fileHandler: fileHandler,
		fileFilter:  NewFileFilter(config.IgnorePatterns),
		stability:   NewStabilityChecker(time.Duration(config.StableThresholdMs) * time.Millisecond),
	}
}

// Run watches dirs until ctx is cancelled and returns a summary of the session.
func (w *Watcher) Run(ctx context.Context, dirs []string) (*WatchSummary, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Errorf("creating file watcher: %w", err)
	}
	defer fsWatcher.Close()

	for _, dir := range dirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return nil, errors.Errorf("resolving %s: %w", dir, err)
		}
		if err := fsWatcher.Add(absDir); err != nil {
			return nil, errors.Errorf("watching %s: %w", absDir, err)
		}
		zerolog.Ctx(ctx).Debug().Str("dir", absDir).Msg("watching directory")
	}

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	debouncer := NewDebouncer(time.Duration(w.config.DebounceSeconds)*time.Second, func(path string) {
		w.handleFileEvent(gctx, path)
	})

	g.Go(func() error {
		return w.processEvents(gctx, fsWatcher, debouncer)
	})

	err = g.Wait()
	debouncer.Stop()

	summary := w.Summary()
	summary.Duration = time.Since(start)

	// Cancellation of the caller's context is a normal shutdown
	if err != nil && ctx.Err() == nil {
		return summary, err
	}
	return summary, nil
}

// processEvents feeds fsnotify events into the debouncer until ctx is done.
func (w *Watcher) processEvents(ctx context.Context, fsWatcher *fsnotify.Watcher, debouncer *Debouncer) error {
	log := zerolog.Ctx(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return errors.New("file watcher event channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if w.fileFilter.ShouldIgnore(event.Name) {
				// Partial downloads see many writes; count the file once
				if event.Has(fsnotify.Create) {
					log.Debug().Str("path", event.Name).Msg("ignoring temporary file")
					w.count(false, nil, true)
				}
				continue
			}
			debouncer.Add(event.Name)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return errors.New("file watcher error channel closed")
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

// handleFileEvent waits for path to settle and runs the handler on it.
func (w *Watcher) handleFileEvent(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	log := zerolog.Ctx(ctx).With().Str("path", path).Logger()

	if err := w.stability.WaitForStable(ctx, path); err != nil {
		if errors.Is(err, ErrFileNotFound) || errors.Is(err, context.Canceled) {
			// Renamed away or shutting down
			return
		}
		log.Warn().Err(err).Msg("file did not settle")
		w.count(false, err, false)
		return
	}

	if w.fileHandler == nil {
		return
	}

	w.handleMu.Lock()
	defer w.handleMu.Unlock()

	processed, err := w.fileHandler(ctx, path)
	if errors.Is(err, ErrAlreadyHandled) {
		log.Debug().Msg("event caused by an earlier file")
		return
	}
	if err != nil {
		log.Debug().Err(err).Msg("handler failed")
	}
	w.count(processed, err, false)
}

func (w *Watcher) count(processed bool, err error, ignored bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case err != nil:
		w.filesFailed++
	case processed && !ignored:
		w.filesProcessed++
	default:
		w.filesSkipped++
	}
}

// Summary returns the counters collected so far.
func (w *Watcher) Summary() *WatchSummary {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &WatchSummary{
		FilesProcessed: w.filesProcessed,
		FilesSkipped:   w.filesSkipped,
		FilesFailed:    w.filesFailed,
	}
}

// Config returns the watcher configuration.
func (w *Watcher) Config() *WatchConfig {
	return w.config
}
