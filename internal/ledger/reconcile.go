package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/screener-cli/internal/outcomes"
)

// Reconcile makes the ledger agree with the outcome directory. The scan wins
// over stored state in both directions:
//
//   - outcome files with no ledger entry (crash between file write and
//     ledger update, or a deleted/foreign database) are inserted
//   - ledger entries whose outcome file is gone are dropped, so the company
//     is treated as unprocessed on the next run
//
// Unreadable outcome files are logged and skipped; they are not entered into
// the ledger, so the company will be reprocessed.
func Reconcile(ctx context.Context, l *Ledger, store *outcomes.Store) (added, removed int, err error) {
	names, err := store.List()
	if err != nil {
		return 0, 0, err
	}

	onDisk := make(map[string]string, len(names)) // key -> file name
	for _, name := range names {
		o, err := store.Read(name)
		if err != nil || o.Key == "" || !o.Status.Terminal() {
			zap.L().Warn("skipping unreadable or incomplete outcome file",
				zap.String("file", name),
				zap.Error(err),
			)
			continue
		}
		onDisk[o.Key] = name

		entry, err := l.Get(ctx, o.Key)
		if err != nil {
			return added, removed, err
		}
		if entry != nil && entry.File == name && entry.Status == o.Status {
			continue
		}
		if err := l.Put(ctx, Entry{
			Key:     o.Key,
			Company: o.Input.Name,
			Status:  o.Status,
			File:    name,
		}); err != nil {
			return added, removed, err
		}
		added++
	}

	entries, err := l.All(ctx)
	if err != nil {
		return added, removed, err
	}
	for _, e := range entries {
		if _, ok := onDisk[e.Key]; ok {
			continue
		}
		if err := l.Delete(ctx, e.Key); err != nil {
			return added, removed, err
		}
		removed++
	}

	if added > 0 || removed > 0 {
		zap.L().Info("ledger reconciled with outcome store",
			zap.Int("added", added),
			zap.Int("removed", removed),
		)
	}
	return added, removed, nil
}
