package match

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// watchEnv starts a watcher on a fresh vocabulary file and collects
// every reload it delivers.
func watchEnv(t *testing.T) (string, func() []Vocabulary) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	writeVocabFile(t, path, "welcome_terms:\n  - welcome\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var mu sync.Mutex
	var reloads []Vocabulary
	go func() {
		_ = WatchVocabulary(ctx, path, slog.New(slog.DiscardHandler), func(v Vocabulary) {
			mu.Lock()
			reloads = append(reloads, v)
			mu.Unlock()
		})
	}()

	// Give the watcher a moment to register before the first edit.
	time.Sleep(100 * time.Millisecond)

	snapshot := func() []Vocabulary {
		mu.Lock()
		defer mu.Unlock()
		return append([]Vocabulary(nil), reloads...)
	}
	return path, snapshot
}

func TestWatchVocabularyReloadsOnRewrite(t *testing.T) {
	path, snapshot := watchEnv(t)

	writeVocabFile(t, path, "welcome_terms:\n  - bienvenue\n  - accueil\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(snapshot()) > 0
	}, "vocabulary rewrite did not trigger a reload")

	reloads := snapshot()
	require.Equal(t, []string{"bienvenue", "accueil"}, reloads[len(reloads)-1].WelcomeTerms)

	// The debounce collapses the create/write events of one save into a
	// single reload.
	count := len(reloads)
	time.Sleep(500 * time.Millisecond)
	require.Len(t, snapshot(), count)
}

func TestWatchVocabularyBrokenRewriteKeepsPrevious(t *testing.T) {
	path, snapshot := watchEnv(t)

	// An empty term list fails validation, so no reload may be delivered.
	writeVocabFile(t, path, "welcome_terms: []\n")
	time.Sleep(500 * time.Millisecond)
	require.Empty(t, snapshot())

	// A subsequent valid save recovers.
	writeVocabFile(t, path, "welcome_terms:\n  - greeting\n")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(snapshot()) > 0
	}, "valid rewrite after a broken one did not trigger a reload")

	reloads := snapshot()
	require.Equal(t, []string{"greeting"}, reloads[len(reloads)-1].WelcomeTerms)
}

func TestWatchVocabularyStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	writeVocabFile(t, path, "welcome_terms:\n  - welcome\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchVocabulary(ctx, path, slog.New(slog.DiscardHandler), func(Vocabulary) {})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}

func TestWatchVocabularyIgnoresSiblingFiles(t *testing.T) {
	path, snapshot := watchEnv(t)

	writeVocabFile(t, filepath.Join(filepath.Dir(path), "other.yaml"), "welcome_terms:\n  - noise\n")
	time.Sleep(500 * time.Millisecond)
	require.Empty(t, snapshot())
}
