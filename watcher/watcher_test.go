package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quiet = 150 * time.Millisecond

var stems = []string{"transactions", "loans"}

func startWatcher(t *testing.T, root string) (*Watcher, context.CancelFunc) {
	t.Helper()
	w, err := New(root, stems, quiet, 16)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	// Give the event loop a moment to come up before writing.
	time.Sleep(50 * time.Millisecond)
	return w, cancel
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(ch <-chan string, window time.Duration) []string {
	var got []string
	deadline := time.After(window)
	for {
		select {
		case path, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, path)
		case <-deadline:
			return got
		}
	}
}

func TestDebounceCoalescesBurst(t *testing.T) {
	root := t.TempDir()
	w, _ := startWatcher(t, root)

	path := filepath.Join(root, "transactions.json")
	for i := 0; i < 5; i++ {
		touch(t, path, "data")
		time.Sleep(30 * time.Millisecond)
	}
	lastWrite := time.Now()

	select {
	case got := <-w.Events():
		assert.Equal(t, path, got)
		elapsed := time.Since(lastWrite)
		assert.GreaterOrEqual(t, elapsed+20*time.Millisecond, quiet,
			"notification must be timed from the last event, not the first")
	case <-time.After(2 * time.Second):
		t.Fatal("no stable notification received")
	}

	// The whole burst produced exactly one notification.
	extra := collect(w.Events(), 2*quiet)
	assert.Empty(t, extra, "burst must coalesce into a single notification")
}

func TestDistinctFilesDebounceIndependently(t *testing.T) {
	root := t.TempDir()
	w, _ := startWatcher(t, root)

	touch(t, filepath.Join(root, "transactions.json"), "a")
	touch(t, filepath.Join(root, "loans.txt"), "b")

	got := collect(w.Events(), 5*quiet)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "transactions.json"),
		filepath.Join(root, "loans.txt"),
	}, got)
}

func TestUntrackedFilesIgnored(t *testing.T) {
	root := t.TempDir()
	w, _ := startWatcher(t, root)

	touch(t, filepath.Join(root, "notes.txt"), "irrelevant")
	touch(t, filepath.Join(root, "_status.json"), "{}")

	got := collect(w.Events(), 3*quiet)
	assert.Empty(t, got)
}

func TestNewSubdirectoryWatched(t *testing.T) {
	root := t.TempDir()
	w, _ := startWatcher(t, root)

	sub := filepath.Join(root, "2025-05-18", "19")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	// Allow the create event to register the new directories.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "loans.txt")
	touch(t, path, "loan data")

	got := collect(w.Events(), 6*quiet)
	assert.Contains(t, got, path)
}

func TestEventAfterStableStartsFreshCycle(t *testing.T) {
	root := t.TempDir()
	w, _ := startWatcher(t, root)
	path := filepath.Join(root, "transactions.json")

	touch(t, path, "first drop")
	first := collect(w.Events(), 5*quiet)
	require.Len(t, first, 1)

	touch(t, path, "second drop")
	second := collect(w.Events(), 5*quiet)
	assert.Len(t, second, 1, "a write after stability starts a new debounce cycle")
}

func TestCloseCancelsPendingTimers(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, stems, quiet, 16)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	// Start a countdown, then stop before it elapses.
	touch(t, filepath.Join(root, "transactions.json"), "data")
	time.Sleep(quiet / 3)
	cancel()
	w.Close()

	got := collect(w.Events(), 3*quiet)
	assert.Empty(t, got, "no notification may fire after shutdown begins")

	// Events channel is closed after shutdown.
	_, open := <-w.Events()
	assert.False(t, open)
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), stems, quiet, 4)
	require.NoError(t, err)
	w.Close()
	w.Close()
}

func TestMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "does-not-exist"), stems, quiet, 4)
	assert.Error(t, err)
}
