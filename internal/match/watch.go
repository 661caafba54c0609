package match

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchVocabulary reloads the vocabulary file whenever it changes on
// disk and hands the new set to cb. The parent directory is watched
// (editors replace files rather than write in place) and events are
// debounced so a save produces one reload. Returns when ctx is
// cancelled. A reload that fails validation keeps the previous
// vocabulary in effect.
func WatchVocabulary(ctx context.Context, path string, logger *slog.Logger, cb func(Vocabulary)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("vocabulary watcher: started", slog.String("path", path))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("vocabulary watcher: stopped")
			return nil

		case <-reloadCh:
			vocab, loadErr := LoadVocabulary(path)
			if loadErr != nil {
				logger.Warn("vocabulary reload failed, keeping previous set",
					slog.String("path", path),
					slog.String("error", loadErr.Error()))
				continue
			}
			logger.Info("vocabulary reloaded",
				slog.String("path", path),
				slog.Int("welcome_terms", len(vocab.WelcomeTerms)))
			cb(vocab)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("vocabulary watcher error", slog.String("error", werr.Error()))
		}
	}
}
