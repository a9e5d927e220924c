package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"video2audio/internal/fileutil"
	"video2audio/internal/logging"
	"video2audio/internal/registry"
)

// DefaultSettle is used when a non-positive settle time is configured.
const DefaultSettle = 2 * time.Second

// SubmitFunc receives the base name of a file that stopped changing.
type SubmitFunc func(name string)

// Watcher submits files dropped into a directory once they have been quiet
// for the settle period.
type Watcher struct {
	dir    string
	settle time.Duration
	submit SubmitFunc
	logger *slog.Logger

	fs      *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher for dir. Call Start to begin receiving events.
func New(dir string, settle time.Duration, submit SubmitFunc, logger *slog.Logger) (*Watcher, error) {
	if submit == nil {
		return nil, errors.New("watch: submit func is required")
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	return &Watcher{
		dir:     filepath.Clean(dir),
		settle:  settle,
		submit:  submit,
		logger:  logging.NewComponentLogger(logger, "watch"),
		fs:      fsw,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Start adds the directory watch and runs the event loop until ctx ends or
// Stop is called. Files already present are not submitted.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fs.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
	w.logger.Info("watching incoming directory",
		logging.String("dir", w.dir),
		logging.Duration("settle", w.settle),
		logging.String(logging.FieldEventType, "watch_started"),
	)
	return nil
}

// Stop ends the event loop and drops pending submissions.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.fs.Close()
	w.wg.Wait()

	w.mu.Lock()
	w.stopped = true
	for name, timer := range w.pending {
		timer.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(w.logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "dropped files may need manual processing"),
			)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Dir(event.Name) != w.dir {
		return
	}
	name := filepath.Base(event.Name)
	if registry.CheckName(name) != nil {
		return
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.cancelPending(name)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write), event.Has(fsnotify.Chmod):
		w.schedule(name)
	}
}

func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if timer, ok := w.pending[name]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		current, ok := w.pending[name]
		if !ok || current != timer || w.stopped {
			w.mu.Unlock()
			return
		}
		delete(w.pending, name)
		w.mu.Unlock()
		w.fire(name)
	})
	w.pending[name] = timer
}

func (w *Watcher) cancelPending(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[name]; ok {
		timer.Stop()
		delete(w.pending, name)
	}
}

func (w *Watcher) fire(name string) {
	if !fileutil.IsRegular(filepath.Join(w.dir, name)) {
		return
	}
	w.logger.Info("dropped file settled",
		logging.String(logging.FieldFile, name),
		logging.String(logging.FieldEventType, "watch_submit"),
	)
	w.submit(name)
}

// Pending reports how many files are waiting for their settle timer.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
