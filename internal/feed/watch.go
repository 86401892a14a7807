package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/skein/internal/knot"
)

// DefaultSettle is how long a burst of writes must go quiet before the
// files it touched are loaded.
const DefaultSettle = 100 * time.Millisecond

// Event is one batch file picked up by Watch.
// Exactly one of Batch and Err is meaningful.
type Event struct {
	Path  string
	Batch knot.Batch
	Err   error
}

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	settle time.Duration
	logger *slog.Logger
}

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.settle = d
	}
}

// WithWatchLogger sets the logger for watcher diagnostics.
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		c.logger = l
	}
}

// Watch streams batch files created or rewritten in dir until ctx is
// cancelled. Files touched during one burst are loaded once, in name order.
// The channel is closed when ctx is done or the watcher fails.
//
// Files already present when Watch starts are not replayed; use
// ListBatchFiles for those.
func Watch(ctx context.Context, dir string, opts ...WatchOption) (<-chan Event, error) {
	cfg := &watchConfig{settle: DefaultSettle, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("feed: watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("feed: watch %s: not a directory", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("feed: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("feed: watch %s: %w", dir, err)
	}

	events := make(chan Event)

	go func() {
		defer close(events)
		defer watcher.Close()

		throttle := newPathThrottle(cfg.settle)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				cfg.logger.Warn("feed watcher error", "dir", dir, "error", err)

			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
					continue
				}
				if !IsBatchFile(evt.Name) {
					continue
				}
				throttle.Add(filepath.Clean(evt.Name))

			case <-throttle.C():
				for _, path := range throttle.Drain() {
					ev := Event{Path: path}
					ev.Batch, ev.Err = LoadBatch(path)
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return events, nil
}

// pathThrottle coalesces rapid change notifications so each file is loaded
// once per burst of filesystem activity instead of on every single write.
// Not safe for concurrent use; owned by the watch goroutine.
type pathThrottle struct {
	delay   time.Duration
	timer   *time.Timer
	pending map[string]struct{}
}

func newPathThrottle(delay time.Duration) *pathThrottle {
	t := time.NewTimer(delay)
	t.Stop()
	return &pathThrottle{
		delay:   delay,
		timer:   t,
		pending: make(map[string]struct{}),
	}
}

// Add records path and restarts the settle timer.
func (t *pathThrottle) Add(path string) {
	t.pending[path] = struct{}{}
	t.timer.Reset(t.delay)
}

// C fires once the burst has settled.
func (t *pathThrottle) C() <-chan time.Time {
	return t.timer.C
}

// Drain returns the pending paths sorted by name and clears them.
func (t *pathThrottle) Drain() []string {
	paths := make([]string, 0, len(t.pending))
	for p := range t.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	t.pending = make(map[string]struct{})
	return paths
}

func (t *pathThrottle) Stop() {
	t.timer.Stop()
}
