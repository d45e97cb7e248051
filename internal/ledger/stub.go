package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// StubLedger is an in-memory ledger for local runs and tests. Balances are
// kept per user and venue; replaying an idempotency key returns the original
// outcome without moving points again.
type StubLedger struct {
	mu             sync.Mutex
	initialBalance int64
	balances       map[string]int64
	byKey          map[string]*domain.Transaction
}

func NewStubLedger(initialBalance int64) *StubLedger {
	return &StubLedger{
		initialBalance: initialBalance,
		balances:       make(map[string]int64),
		byKey:          make(map[string]*domain.Transaction),
	}
}

func balanceKey(userID, venueID string) string {
	return fmt.Sprintf("%s/%s", venueID, userID)
}

// SetBalance overrides a balance.
func (l *StubLedger) SetBalance(userID, venueID string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[balanceKey(userID, venueID)] = amount
}

func (l *StubLedger) Balance(userID, venueID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(userID, venueID)
}

func (l *StubLedger) balanceLocked(userID, venueID string) int64 {
	bal, ok := l.balances[balanceKey(userID, venueID)]
	if !ok {
		return l.initialBalance
	}
	return bal
}

func (l *StubLedger) Debit(ctx context.Context, req domain.DebitRequest) (*domain.DebitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(constant.ErrLedgerAmbiguous, "%v", err)
	}
	if req.Amount <= 0 {
		return nil, errors.Wrap(constant.ErrLedger, "debit amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if tx, ok := l.byKey[req.IdempotencyKey]; ok {
		return &domain.DebitResult{
			Success:       true,
			TransactionID: tx.ID,
			NewBalance:    l.balanceLocked(req.UserID, req.VenueID),
			Replayed:      true,
		}, nil
	}

	bal := l.balanceLocked(req.UserID, req.VenueID)
	if bal < req.Amount {
		return &domain.DebitResult{InsufficientFunds: true, NewBalance: bal, Error: "insufficient funds"}, nil
	}

	bal -= req.Amount
	l.balances[balanceKey(req.UserID, req.VenueID)] = bal
	tx := l.record(req.IdempotencyKey, domain.TransactionDebit, req.UserID, req.VenueID, req.Amount)

	return &domain.DebitResult{Success: true, TransactionID: tx.ID, NewBalance: bal}, nil
}

func (l *StubLedger) Credit(ctx context.Context, req domain.CreditRequest) (*domain.CreditResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(constant.ErrLedgerAmbiguous, "%v", err)
	}
	if req.Amount <= 0 {
		return nil, errors.Wrap(constant.ErrLedger, "credit amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if tx, ok := l.byKey[req.IdempotencyKey]; ok {
		return &domain.CreditResult{
			Success:       true,
			TransactionID: tx.ID,
			NewBalance:    l.balanceLocked(req.UserID, req.VenueID),
		}, nil
	}

	bal := l.balanceLocked(req.UserID, req.VenueID) + req.Amount
	l.balances[balanceKey(req.UserID, req.VenueID)] = bal
	tx := l.record(req.IdempotencyKey, domain.TransactionCredit, req.UserID, req.VenueID, req.Amount)

	return &domain.CreditResult{Success: true, TransactionID: tx.ID, NewBalance: bal}, nil
}

func (l *StubLedger) Lookup(ctx context.Context, idempotencyKey string) (*domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.byKey[idempotencyKey]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (l *StubLedger) record(key string, kind domain.TransactionKind, userID, venueID string, amount int64) *domain.Transaction {
	tx := &domain.Transaction{
		ID:             uuid.NewString(),
		IdempotencyKey: key,
		Kind:           kind,
		UserID:         userID,
		VenueID:        venueID,
		Amount:         amount,
		CreatedAt:      time.Now().UTC(),
	}
	if key != "" {
		l.byKey[key] = tx
	}
	return tx
}
