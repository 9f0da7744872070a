package index

import (
	"log/slog"

	"github.com/starford/hooktriage/internal/ledger"
)

// LineSource reads the ledger. *ledger.Ledger satisfies it.
type LineSource interface {
	ReadAll() ([]ledger.Line, error)
}

// Sync brings the index up to date with the ledger:
//   - new or changed lines are upserted
//   - rows past the end of the log are removed
//
// It returns the rows it (re)indexed, in ledger order. Lines that are not
// valid JSON are skipped with a warning and any row they previously held is
// dropped.
func Sync(db *DB, src LineSource, logger *slog.Logger) ([]EventRow, error) {
	lines, err := src.ReadAll()
	if err != nil {
		return nil, err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	var indexed []EventRow
	last := 0
	for _, l := range lines {
		last = l.Number
		if checksums[l.Number] == l.Checksum {
			continue
		}
		if l.Err != nil {
			logger.Warn("sync: skipping malformed line", slog.Int("line", l.Number), slog.String("error", l.Err.Error()))
			if _, stale := checksums[l.Number]; stale {
				if err := db.DeleteEvent(l.Number); err != nil {
					logger.Warn("sync: drop stale row failed", slog.Int("line", l.Number), slog.String("error", err.Error()))
				}
			}
			continue
		}
		row := EventRow{Line: l.Number, Checksum: l.Checksum, LedgerEvent: l.Event}
		if err := db.UpsertEvent(row); err != nil {
			logger.Warn("sync: index failed", slog.Int("line", l.Number), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.Int("line", l.Number))
		indexed = append(indexed, row)
	}

	gone, err := db.TruncateAfter(last)
	if err != nil {
		return indexed, err
	}
	if len(gone) > 0 {
		logger.Info("sync: removed lines past end of ledger", slog.Int("count", len(gone)))
	}
	return indexed, nil
}
