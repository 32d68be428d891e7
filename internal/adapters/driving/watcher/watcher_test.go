package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTrigger struct {
	n atomic.Int32
}

func (c *countingTrigger) Trigger() { c.n.Add(1) }

func TestWatcher_handleFsEvent(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "report.pdf")
	upper := filepath.Join(dir, "SCAN.PDF")
	txt := filepath.Join(dir, "notes.txt")
	hidden := filepath.Join(dir, ".partial.pdf")
	sub := filepath.Join(dir, "nested.pdf")
	for _, p := range []string{pdf, upper, txt, hidden} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(sub, 0o755))

	w := New(dir, &countingTrigger{})

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"create pdf", pdf, fsnotify.Create, true},
		{"write pdf", pdf, fsnotify.Write, true},
		{"uppercase extension", upper, fsnotify.Create, true},
		{"chmod ignored", pdf, fsnotify.Chmod, false},
		{"remove ignored", pdf, fsnotify.Remove, false},
		{"rename ignored", pdf, fsnotify.Rename, false},
		{"non pdf", txt, fsnotify.Create, false},
		{"hidden file", hidden, fsnotify.Create, false},
		{"directory named like a pdf", sub, fsnotify.Create, false},
		{"vanished file", filepath.Join(dir, "gone.pdf"), fsnotify.Create, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := w.handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWatcher_TriggersOnNewPDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	trigger := &countingTrigger{}
	w := New(dir, trigger, WithDebounce(0))

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	_, err := os.Stat(dir)
	require.NoError(t, err, "inbox should be created")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF"), 0o644))

	assert.Eventually(t, func() bool {
		return trigger.n.Load() > 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()
	trigger := &countingTrigger{}
	w := New(dir, trigger, WithDebounce(200*time.Millisecond))

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "doc"+string(rune('a'+i))+".pdf")
		require.NoError(t, os.WriteFile(name, []byte("%PDF"), 0o644))
	}

	assert.Eventually(t, func() bool {
		return trigger.n.Load() == 1
	}, 5*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), trigger.n.Load())
}

func TestWatcher_Lifecycle(t *testing.T) {
	t.Run("double start", func(t *testing.T) {
		w := New(t.TempDir(), &countingTrigger{})
		require.NoError(t, w.Start(context.Background()))
		defer w.Stop()

		assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyRunning)
	})

	t.Run("stop without start", func(t *testing.T) {
		w := New(t.TempDir(), &countingTrigger{})
		assert.NoError(t, w.Stop())
	})

	t.Run("context cancel stops", func(t *testing.T) {
		w := New(t.TempDir(), &countingTrigger{})
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, w.Start(ctx))
		cancel()

		assert.Eventually(t, func() bool {
			w.mu.Lock()
			defer w.mu.Unlock()
			return !w.running
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("negative debounce ignored", func(t *testing.T) {
		w := New("inbox", &countingTrigger{}, WithDebounce(-time.Second))
		assert.Equal(t, DefaultDebounce, w.debounce)
		assert.Equal(t, "inbox", w.Dir())
	})
}
