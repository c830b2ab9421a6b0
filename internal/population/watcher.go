package population

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last file event before a
// reload is triggered.
const DefaultDebounce = 250 * time.Millisecond

// Watcher triggers a reload when the population file changes. It watches the
// parent directory so files replaced by rename are still noticed.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the file at path. A non-positive interval
// selects DefaultDebounce.
func NewWatcher(path string, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		interval: interval,
		logger:   logger.With(slog.String("component", "population_watcher")),
	}
}

// Watch blocks until ctx is cancelled, calling onChange after every burst of
// writes, creates or renames of the watched file. Reload errors are logged and
// watching continues.
func (w *Watcher) Watch(ctx context.Context, onChange func(context.Context) error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	debounce := newDebouncer(w.interval)
	defer debounce.stop()

	w.logger.InfoContext(ctx, "population watcher started",
		slog.String("path", w.path),
		slog.Int64("debounce_ms", w.interval.Milliseconds()),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "population watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.DebugContext(ctx, "population file event",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()),
			)
			debounce.trigger(func() {
				if err := onChange(ctx); err != nil {
					w.logger.ErrorContext(ctx, "population reload failed", slog.String("error", err.Error()))
				}
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.ErrorContext(ctx, "population watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// debouncer runs the most recent callback once no trigger has arrived for
// interval.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, callback)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
