package journal

import (
	"context"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar/go/xdr"

	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/invoke"
)

const testHash = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(path.Join(t.TempDir(), "journal.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	signed := &invoke.SignedTransaction{ContractID: "cafe", Method: "increment"}
	result := &invoke.ConfirmationResult{
		Status:   invoke.StatusTimedOut,
		Hash:     testHash,
		Attempts: 5,
	}
	require.NoError(t, store.RecordOutcome(ctx, signed, result))

	entry, err := store.Get(ctx, testHash)
	require.NoError(t, err)
	assert.Equal(t, testHash, entry.Hash)
	assert.Equal(t, "cafe", entry.ContractID)
	assert.Equal(t, "increment", entry.Method)
	assert.Equal(t, "TIMED_OUT", entry.Outcome)
	assert.Equal(t, 5, entry.Attempts)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestRecordReplacesOutcomeForSameHash(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	signed := &invoke.SignedTransaction{ContractID: "cafe", Method: "increment"}

	require.NoError(t, store.RecordOutcome(ctx, signed, &invoke.ConfirmationResult{
		Status: invoke.StatusTimedOut, Hash: testHash, Attempts: 5,
	}))
	// a later re-confirmation of the same envelope observed success
	require.NoError(t, store.RecordOutcome(ctx, signed, &invoke.ConfirmationResult{
		Status:      invoke.StatusSucceeded,
		Hash:        testHash,
		Attempts:    1,
		Ledger:      77,
		ReturnValue: xdr.ScVal{Type: xdr.ScValTypeScvVoid},
	}))

	entry, err := store.Get(ctx, testHash)
	require.NoError(t, err)
	assert.Equal(t, "SUCCEEDED", entry.Outcome)
	assert.Equal(t, uint32(77), entry.Ledger)
	assert.NotEmpty(t, entry.ReturnValueXDR)
}

func TestGetUnknownHash(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "bbbb")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecentOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, hash := range []string{"01", "02", "03"} {
		require.NoError(t, store.RecordOutcome(ctx,
			&invoke.SignedTransaction{Method: "increment"},
			&invoke.ConfirmationResult{Status: invoke.StatusFailed, Hash: hash, Diagnostic: "AAAA"}))
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, "FAILED", entry.Outcome)
		assert.Equal(t, "AAAA", entry.DiagnosticXDR)
	}
}
