package watcher

import (
	"context"
	"errors"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"vapi/internal/config"
	"vapi/pkg/logging"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 100 * time.Millisecond

// Operation is the net effect of a burst of file events on one record.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Event describes a change to one service record file.
type Event struct {
	Name      string
	Operation Operation
	FilePath  string
	Timestamp time.Time
}

// Invalidator evicts cached records by name, or all of them.
type Invalidator interface {
	Invalidate(names ...string)
	InvalidateAll()
}

// Watcher observes a record directory and evicts the cache entries of records
// that change on disk.
//
// Raw fsnotify events are debounced per record. Settled changes are handed to
// a single loop goroutine, which is the only place evictions and listener
// calls happen, so they are never concurrent with each other.
type Watcher struct {
	mu sync.Mutex

	// dir is the directory holding one file per record
	dir string

	// debounce is how long a record must be quiet before its change is applied
	debounce time.Duration

	invalidator Invalidator
	listeners   []func(Event)

	fsw *fsnotify.Watcher

	// pending holds changes still waiting out their debounce interval
	pending map[string]*debounceEntry

	// ready holds settled changes not yet applied by the loop
	ready  map[string]Event
	notify chan struct{}

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

type debounceEntry struct {
	event Event
	timer *time.Timer
}

// New creates a watcher for dir that evicts through invalidator.
func New(dir string, debounce time.Duration, invalidator Invalidator) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:         dir,
		debounce:    debounce,
		invalidator: invalidator,
		pending:     make(map[string]*debounceEntry),
		ready:       make(map[string]Event),
		notify:      make(chan struct{}, 1),
	}
}

// OnChange registers fn to be called after each applied change. Listeners run
// on the watcher loop and must not block. Register them before Start.
func (w *Watcher) OnChange(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Start begins watching. The directory is created if it does not exist.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}

	w.fsw = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.loop(ctx, fsw, w.stopCh, w.doneCh)

	logging.Info("Watcher", "Started watching %s for configuration changes", w.dir)
	return nil
}

// Stop ends watching and waits for the loop to exit. Changes still being
// debounced are discarded.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()

	<-done

	var err error
	if fsw != nil {
		if err = fsw.Close(); err != nil {
			logging.Error("Watcher", err, "Error closing filesystem watcher")
		}
	}
	logging.Info("Watcher", "Stopped watching %s", w.dir)
	return err
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer w.cleanupPending()

	for {
		select {
		case <-ctx.Done():
			return

		case <-stopCh:
			return

		case <-w.notify:
			w.applyReady()

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.handleWatchError(err)
		}
	}
}

// handleFsEvent translates a raw event on a record file into a debounced change.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if !config.IsRecordFile(event.Name) {
		return
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OperationCreate
	case event.Has(fsnotify.Write):
		op = OperationUpdate
	case event.Has(fsnotify.Remove):
		op = OperationDelete
	case event.Has(fsnotify.Rename):
		// The old name is gone; the new name arrives as its own Create.
		op = OperationDelete
	default:
		return
	}

	w.debounceEvent(Event{
		Name:      config.RecordName(event.Name),
		Operation: op,
		FilePath:  event.Name,
		Timestamp: time.Now(),
	})
}

// debounceEvent restarts the quiet period for the record and merges the operation.
func (w *Watcher) debounceEvent(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := event.Name

	if entry, ok := w.pending[key]; ok {
		entry.timer.Stop()
		event.Operation = mergeOperations(entry.event.Operation, event.Operation)
	}

	entry := &debounceEntry{event: event}
	entry.timer = time.AfterFunc(w.debounce, func() {
		w.settle(key, entry)
	})
	w.pending[key] = entry
}

// settle moves a change whose quiet period ended to the ready set.
func (w *Watcher) settle(key string, entry *debounceEntry) {
	w.mu.Lock()
	if w.pending[key] != entry {
		// superseded by a later event
		w.mu.Unlock()
		return
	}
	delete(w.pending, key)
	if prev, ok := w.ready[key]; ok {
		entry.event.Operation = mergeOperations(prev.Operation, entry.event.Operation)
	}
	w.ready[key] = entry.event
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// applyReady evicts every settled record and informs listeners.
func (w *Watcher) applyReady() {
	w.mu.Lock()
	batch := w.ready
	w.ready = make(map[string]Event)
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()

	names := make([]string, 0, len(batch))
	for name := range batch {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		event := batch[name]
		w.invalidator.Invalidate(name)
		logging.Debug("Watcher", "Applied %s of %s", event.Operation, name)
		for _, fn := range listeners {
			fn(event)
		}
	}
}

func (w *Watcher) handleWatchError(err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		// Events were lost, so no cached record can be trusted, including
		// records deleted while events were being dropped.
		logging.Warn("Watcher", "Event queue overflowed, invalidating all records")
		w.invalidator.InvalidateAll()
		return
	}
	logging.Error("Watcher", err, "Filesystem watcher error")
}

func (w *Watcher) cleanupPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, entry := range w.pending {
		entry.timer.Stop()
	}
	w.pending = make(map[string]*debounceEntry)
	w.ready = make(map[string]Event)
}

// mergeOperations folds a later operation into an earlier one on the same record.
func mergeOperations(old, new Operation) Operation {
	if new == OperationDelete {
		return OperationDelete
	}
	if old == OperationCreate {
		return OperationCreate
	}
	if old == OperationDelete && new == OperationCreate {
		// replaced in place, as an atomic rename does
		return OperationUpdate
	}
	return new
}
