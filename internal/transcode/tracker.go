package transcode

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"video2audio/internal/logging"
	"video2audio/internal/settings"
)

// DefaultRetain is how many batches the tracker remembers.
const DefaultRetain = 64

// ErrBatchNotFound is returned for unknown or evicted batch IDs.
var ErrBatchNotFound = errors.New("batch not found")

// Batch is a point-in-time view of a background Process call.
type Batch struct {
	ID       string            `json:"id"`
	Settings settings.Settings `json:"settings"`
	Created  time.Time         `json:"created"`
	Finished time.Time         `json:"finished,omitzero"`
	Done     bool              `json:"done"`
	Files    []Outcome         `json:"files"`
}

// Counts tallies the files of b by status.
func (b Batch) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, f := range b.Files {
		counts[f.Status]++
	}
	return counts
}

type batchEntry struct {
	mu    sync.Mutex
	batch Batch
	index map[string]int
	done  chan struct{}
}

func (e *batchEntry) snapshot() Batch {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.batch
	out.Files = append([]Outcome(nil), e.batch.Files...)
	return out
}

func (e *batchEntry) update(o Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.index[o.Name]; ok {
		e.batch.Files[i] = o
	}
}

// Tracker runs batches in the background and keeps their per-file state for
// polling. State lives in memory only; the filesystem stays authoritative.
type Tracker struct {
	worker *Worker
	ctx    context.Context
	retain int
	logger *slog.Logger

	mu       sync.Mutex
	batches  map[string]*batchEntry
	order    []string
	running  sync.WaitGroup
	onFinish func(Batch)
}

// NewTracker creates a tracker. Batches started through it stop when ctx is
// cancelled.
func NewTracker(ctx context.Context, worker *Worker, retain int, logger *slog.Logger) *Tracker {
	if retain <= 0 {
		retain = DefaultRetain
	}
	return &Tracker{
		worker:  worker,
		ctx:     ctx,
		retain:  retain,
		logger:  logging.NewComponentLogger(logger, "batches"),
		batches: make(map[string]*batchEntry),
	}
}

// OnFinish registers fn to run after every batch completes. It must be set
// before the first Start.
func (t *Tracker) OnFinish(fn func(Batch)) {
	t.onFinish = fn
}

// Start launches Process for names with settings s and returns immediately.
func (t *Tracker) Start(s settings.Settings, names []string) Batch {
	names = distinct(names)
	entry := &batchEntry{
		batch: Batch{
			ID:       uuid.NewString(),
			Settings: s,
			Created:  time.Now().UTC(),
			Files:    make([]Outcome, len(names)),
		},
		index: make(map[string]int, len(names)),
		done:  make(chan struct{}),
	}
	for i, name := range names {
		entry.batch.Files[i] = Outcome{Name: name, Status: StatusPending}
		entry.index[name] = i
	}

	t.mu.Lock()
	t.batches[entry.batch.ID] = entry
	t.order = append(t.order, entry.batch.ID)
	t.evictLocked()
	t.mu.Unlock()

	snapshot := entry.snapshot()
	t.running.Add(1)
	go func() {
		defer t.running.Done()
		ctx := logging.WithBatchID(t.ctx, snapshot.ID)
		result := t.worker.ProcessObserved(ctx, s, names, entry.update)

		entry.mu.Lock()
		for _, o := range result.Outcomes {
			if i, ok := entry.index[o.Name]; ok {
				entry.batch.Files[i] = o
			}
		}
		entry.batch.Done = true
		entry.batch.Finished = time.Now().UTC()
		entry.mu.Unlock()
		close(entry.done)

		if t.onFinish != nil {
			t.onFinish(entry.snapshot())
		}
	}()

	t.logger.Info("batch queued",
		logging.String(logging.FieldEventType, "batch_queued"),
		logging.String(logging.FieldBatchID, snapshot.ID),
		logging.Int("files", len(names)),
	)
	return snapshot
}

// evictLocked drops the oldest finished batches beyond the retention limit.
// Running batches are never evicted.
func (t *Tracker) evictLocked() {
	if len(t.order) <= t.retain {
		return
	}
	excess := len(t.order) - t.retain
	kept := t.order[:0]
	for _, id := range t.order {
		entry := t.batches[id]
		if excess > 0 && entry != nil && isClosed(entry.done) {
			delete(t.batches, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

// Get returns the current view of batch id.
func (t *Tracker) Get(id string) (Batch, error) {
	entry, ok := t.lookup(id)
	if !ok {
		return Batch{}, ErrBatchNotFound
	}
	return entry.snapshot(), nil
}

// Wait blocks until batch id finishes or ctx ends, then returns its view.
func (t *Tracker) Wait(ctx context.Context, id string) (Batch, error) {
	entry, ok := t.lookup(id)
	if !ok {
		return Batch{}, ErrBatchNotFound
	}
	select {
	case <-entry.done:
		return entry.snapshot(), nil
	case <-ctx.Done():
		return entry.snapshot(), ctx.Err()
	}
}

// List returns the retained batches, newest first.
func (t *Tracker) List() []Batch {
	t.mu.Lock()
	entries := make([]*batchEntry, 0, len(t.order))
	for i := len(t.order) - 1; i >= 0; i-- {
		if entry, ok := t.batches[t.order[i]]; ok {
			entries = append(entries, entry)
		}
	}
	t.mu.Unlock()

	out := make([]Batch, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.snapshot())
	}
	return out
}

// Active returns how many batches are still running.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := 0
	for _, entry := range t.batches {
		if !isClosed(entry.done) {
			active++
		}
	}
	return active
}

// Drain waits for all running batches to finish or ctx to end.
func (t *Tracker) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) lookup(id string) (*batchEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.batches[id]
	return entry, ok
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
