package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/hooktriage/internal/ledger"
)

// EventCallback is called for every row a watcher-driven sync indexes.
type EventCallback func(row EventRow)

const syncDebounce = 100 * time.Millisecond

// eventsRel is the watched log, relative to the ledger repository root.
var eventsRel = ledger.EventsPath

// Watch starts an fsnotify watcher on the ledger repository and re-syncs the
// index whenever events.jsonl changes, until ctx is cancelled. It calls cb
// (if non-nil) for each newly indexed row, in ledger order.
//
// The root is watched so that a ledger/ directory created after start-up
// (for example by the first append or a git pull) is picked up.
func Watch(ctx context.Context, db *DB, src LineSource, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	ledgerDir := filepath.Join(root, filepath.Dir(eventsRel))
	if info, statErr := os.Stat(ledgerDir); statErr == nil && info.IsDir() {
		if err := w.Add(ledgerDir); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.String("root", root))

	// syncTimer debounces bursts of writes into one sync pass.
	var syncTimer *time.Timer
	var syncCh <-chan time.Time

	scheduleSync := func() {
		if syncTimer == nil {
			syncTimer = time.NewTimer(syncDebounce)
			syncCh = syncTimer.C
		} else {
			syncTimer.Reset(syncDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if syncTimer != nil {
				syncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-syncCh:
			rows, syncErr := Sync(db, src, logger)
			if syncErr != nil {
				logger.Warn("watcher: sync failed", slog.String("error", syncErr.Error()))
			}
			if cb != nil {
				for _, r := range rows {
					cb(r)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Name == ledgerDir && ev.Op&fsnotify.Create != 0 {
				if addErr := w.Add(ledgerDir); addErr != nil {
					logger.Warn("watcher: add ledger dir failed", slog.String("error", addErr.Error()))
					continue
				}
				logger.Debug("watcher: watching ledger dir", slog.String("path", ledgerDir))
				scheduleSync()
				continue
			}

			if filepath.Base(ev.Name) != filepath.Base(eventsRel) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleSync()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
