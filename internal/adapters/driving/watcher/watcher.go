// Package watcher observes the ingestion inbox and asks for a batch
// ingestion run whenever a PDF lands in it.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sea-rag/internal/logger"
)

// DefaultDebounce coalesces the burst of events a single copy produces.
const DefaultDebounce = 2 * time.Second

// ErrAlreadyRunning is returned by Start on a running watcher.
var ErrAlreadyRunning = errors.New("watcher: already running")

// Trigger requests an ingestion run. The scheduler implements it.
type Trigger interface {
	Trigger()
}

// Watcher forwards inbox changes to a Trigger.
type Watcher struct {
	dir      string
	trigger  Trigger
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{}
	running bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before the trigger fires.
// Zero fires on every event.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for dir.
func New(dir string, trigger Trigger, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		trigger:  trigger,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates the inbox if needed and begins watching it.
// The watcher stops when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrAlreadyRunning
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox %s: %w", w.dir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	w.running = true

	go w.loop(ctx, fsw, w.done)

	logger.Info("Watching inbox %s", w.dir)
	return nil
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	fsw, done := w.fsw, w.done
	w.running = false
	w.fsw = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	err := fsw.Close()
	<-done
	return err
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			go func() { _ = w.Stop() }()
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.handleFsEvent(event) {
				w.schedule()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Inbox watcher error: %v", err)
		}
	}
}

// handleFsEvent reports whether event should start an ingestion run.
func (w *Watcher) handleFsEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return false
	}
	logger.Debug("Inbox change: %s %s", event.Op, name)
	return true
}

// schedule fires the trigger after the debounce period, restarting the
// period on every call.
func (w *Watcher) schedule() {
	if w.debounce == 0 {
		w.trigger.Trigger()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.trigger.Trigger)
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}
