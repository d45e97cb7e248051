package ledger

import (
	"context"
	"testing"

	"encore/queue-gateway/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubLedger_DebitAndCredit(t *testing.T) {
	l := NewStubLedger(100)
	ctx := context.Background()

	res, err := l.Debit(ctx, domain.DebitRequest{IdempotencyKey: "d1", UserID: "u", VenueID: "v", Amount: 30})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(70), res.NewBalance)

	credit, err := l.Credit(ctx, domain.CreditRequest{IdempotencyKey: "c1", UserID: "u", VenueID: "v", Amount: 30, OriginalTransactionID: res.TransactionID})
	require.NoError(t, err)
	assert.Equal(t, int64(100), credit.NewBalance)
	assert.Equal(t, int64(100), l.Balance("u", "v"))
}

func TestStubLedger_Idempotent(t *testing.T) {
	l := NewStubLedger(100)
	ctx := context.Background()

	first, err := l.Debit(ctx, domain.DebitRequest{IdempotencyKey: "d1", UserID: "u", VenueID: "v", Amount: 30})
	require.NoError(t, err)
	again, err := l.Debit(ctx, domain.DebitRequest{IdempotencyKey: "d1", UserID: "u", VenueID: "v", Amount: 30})
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, again.TransactionID)
	assert.False(t, first.Replayed)
	assert.True(t, again.Replayed)
	assert.Equal(t, int64(70), l.Balance("u", "v"))

	tx, err := l.Lookup(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, domain.TransactionDebit, tx.Kind)

	tx, err = l.Lookup(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestStubLedger_InsufficientFunds(t *testing.T) {
	l := NewStubLedger(5)

	res, err := l.Debit(context.Background(), domain.DebitRequest{IdempotencyKey: "d1", UserID: "u", VenueID: "v", Amount: 10})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.InsufficientFunds)
	assert.Equal(t, int64(5), l.Balance("u", "v"))
}
