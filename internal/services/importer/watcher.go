package importer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is imported.
const DefaultDebounce = 200 * time.Millisecond

// EventType defines the type of watcher event.
type EventType int

const (
	// EventImported indicates that a document was imported.
	EventImported EventType = iota
	// EventError indicates that an import or the watcher failed.
	EventError
)

// Event represents a watcher event.
type Event struct {
	Error    error
	Imported *Imported
	Path     string
	Type     EventType
}

// Watcher imports documents dropped into a directory.
type Watcher struct {
	mu        sync.Mutex
	store     Store
	dir       string
	watcher   *fsnotify.Watcher
	eventChan chan Event
	stopChan  chan struct{}
	done      chan struct{}
	timers    map[string]*time.Timer
	pending   sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	debounce  time.Duration
	closed    bool
}

// NewWatcher starts watching dir, creating it when needed.
func NewWatcher(dir string, store Store, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create readings directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		if closeErr := fw.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		store:     store,
		dir:       dir,
		watcher:   fw,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
		timers:    make(map[string]*time.Timer),
		ctx:       ctx,
		cancel:    cancel,
		debounce:  debounce,
	}

	go w.watchLoop()
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Events returns the event channel.
func (w *Watcher) Events() <-chan Event {
	return w.eventChan
}

// watchLoop handles file system events with per-file debouncing.
func (w *Watcher) watchLoop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !IsDocument(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.schedule(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendEvent(Event{Type: EventError, Error: err})

		case <-w.stopChan:
			return
		}
	}
}

// schedule (re)starts the debounce timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.timers[path]; ok && t.Stop() {
		w.pending.Done()
	}

	w.pending.Add(1)
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		defer w.pending.Done()

		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		w.handleFile(path)
	})
}

func (w *Watcher) handleFile(path string) {
	imp, err := ImportFile(w.ctx, w.store, path)
	if err != nil {
		logger.Warn("failed to import readings", "path", path, "error", err)
		w.sendEvent(Event{Type: EventError, Path: path, Error: err})
		return
	}

	logger.Info("imported readings", "path", path, "date", imp.Date, "plant_unit", imp.PlantUnit, "count", imp.Count)
	w.sendEvent(Event{Type: EventImported, Path: path, Imported: imp})
}

func (w *Watcher) sendEvent(event Event) {
	select {
	case w.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-w.eventChan:
		default:
		}
		select {
		case w.eventChan <- event:
		default:
		}
	}
}

// Close stops the watcher and waits for in-flight imports.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for path, t := range w.timers {
		if t.Stop() {
			w.pending.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()

	close(w.stopChan)
	w.cancel()
	w.pending.Wait()

	err := w.watcher.Close()
	<-w.done
	return err
}
