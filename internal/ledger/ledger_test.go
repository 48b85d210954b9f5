package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/screener-cli/internal/model"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerPutGet(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	e := Entry{Key: "acme_12345678", Company: "Acme", Status: model.StatusSucceeded, File: "acme_12345678.json"}
	require.NoError(t, l.Put(ctx, e))

	got, err := l.Get(ctx, e.Key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.Key, got.Key)
	assert.Equal(t, e.Company, got.Company)
	assert.Equal(t, model.StatusSucceeded, got.Status)
	assert.Equal(t, e.File, got.File)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestLedgerGetUnknownKey(t *testing.T) {
	l := openTestLedger(t)

	got, err := l.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLedgerPutUpserts(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	key := "acme_12345678"
	require.NoError(t, l.Put(ctx, Entry{Key: key, Company: "Acme", Status: model.StatusFailedTransient, File: key + ".json"}))
	require.NoError(t, l.Put(ctx, Entry{Key: key, Company: "Acme", Status: model.StatusSucceeded, File: key + ".json"}))

	got, err := l.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSucceeded, got.Status)

	all, err := l.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLedgerDelete(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	require.NoError(t, l.Put(ctx, Entry{Key: "k", Company: "C", Status: model.StatusSucceeded, File: "k.json"}))
	require.NoError(t, l.Delete(ctx, "k"))

	got, err := l.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting a missing key is not an error.
	assert.NoError(t, l.Delete(ctx, "k"))
}

func TestLedgerTerminalKeys(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	require.NoError(t, l.Put(ctx, Entry{Key: "a", Company: "A", Status: model.StatusSucceeded, File: "a.json"}))
	require.NoError(t, l.Put(ctx, Entry{Key: "b", Company: "B", Status: model.StatusFailedValidation, File: "b.json"}))
	require.NoError(t, l.Put(ctx, Entry{Key: "c", Company: "C", Status: model.Status("in_progress"), File: "c.json"}))

	done, err := l.TerminalKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Status{
		"a": model.StatusSucceeded,
		"b": model.StatusFailedValidation,
	}, done)
}

func TestLedgerCounts(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	for i, s := range []model.Status{
		model.StatusSucceeded, model.StatusSucceeded, model.StatusFailedTransient,
	} {
		require.NoError(t, l.Put(ctx, Entry{Key: string(rune('a' + i)), Company: "C", Status: s, File: "f.json"}))
	}

	counts, err := l.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.StatusSucceeded])
	assert.Equal(t, 1, counts[model.StatusFailedTransient])
}

func TestLedgerOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, l.Put(ctx, Entry{Key: "k", Company: "C", Status: model.StatusSucceeded, File: "k.json"}))
	require.NoError(t, l.Close())

	// Reopening migrates again and keeps existing rows.
	l, err = Open(ctx, path)
	require.NoError(t, err)
	defer l.Close()

	got, err := l.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusSucceeded, got.Status)
}
