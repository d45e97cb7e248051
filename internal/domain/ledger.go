package domain

import "time"

type DebitRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	UserID         string            `json:"user_id"`
	VenueID        string            `json:"venue_id"`
	Amount         int64             `json:"amount"`
	Reason         string            `json:"reason"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type DebitResult struct {
	Success           bool   `json:"success"`
	TransactionID     string `json:"transaction_id"`
	NewBalance        int64  `json:"new_balance"`
	InsufficientFunds bool   `json:"insufficient_funds"`
	// Replayed is set when the idempotency key was already used and the
	// ledger answered with the earlier debit without moving points again.
	Replayed          bool   `json:"replayed"`
	Error             string `json:"error,omitempty"`
}

type CreditRequest struct {
	IdempotencyKey        string            `json:"idempotency_key"`
	UserID                string            `json:"user_id"`
	VenueID               string            `json:"venue_id"`
	Amount                int64             `json:"amount"`
	Reason                string            `json:"reason"`
	OriginalTransactionID string            `json:"original_transaction_id"`
	Metadata              map[string]string `json:"metadata,omitempty"`
}

type CreditResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	NewBalance    int64  `json:"new_balance"`
	Error         string `json:"error,omitempty"`
}

type TransactionKind string

const (
	TransactionDebit  TransactionKind = "debit"
	TransactionCredit TransactionKind = "credit"
)

// Transaction is the ledger's record for an idempotency key; it is only read
// to reconcile an ambiguous debit.
type Transaction struct {
	ID             string          `json:"id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Kind           TransactionKind `json:"kind"`
	UserID         string          `json:"user_id"`
	VenueID        string          `json:"venue_id"`
	Amount         int64           `json:"amount"`
	CreatedAt      time.Time       `json:"created_at"`
}
