package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"
	"encore/queue-gateway/internal/metrics"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// maxRedebits bounds how many refunded attempts one client key may chain.
const maxRedebits = 5

// debitKey binds a client idempotency key to everything that decides the
// charge, so the same key can never pay for a different request.
func debitKey(p AddSongParams, venueID, trackID string, cost int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d|%s", venueID, trackID, p.Lane, cost, p.IdempotencyKey)))
	return fmt.Sprintf("queue-add:%s:%s", p.UserID, hex.EncodeToString(sum[:16]))
}

// chainedKey is the key of the attempt that follows a refunded debit.
func chainedKey(key, refundedTxID string) string {
	sum := sha256.Sum256([]byte(key + "|" + refundedTxID))
	return key[:strings.LastIndexByte(key, ':')+1] + hex.EncodeToString(sum[:16])
}

// unspentKey walks the attempts already made under a client key. A debit that
// was refunded may be paid again under a chained key; one that was not has
// paid for an item, so the request is refused instead of queued for free.
func (c *Coordinator) unspentKey(ctx context.Context, req domain.DebitRequest) (string, error) {
	key := req.IdempotencyKey
	for round := 0; round <= maxRedebits; round++ {
		prev, err := c.lookup(ctx, key)
		if err != nil {
			return "", err
		}
		if prev == nil {
			return key, nil
		}

		refunded, err := c.lookup(ctx, refundKey(prev.ID))
		if err != nil {
			return "", err
		}
		if prev.Kind != domain.TransactionDebit || refunded == nil || refunded.Kind != domain.TransactionCredit {
			return "", errors.Wrapf(constant.ErrIdempotencyConflict, "key already paid for debit %s", prev.ID)
		}

		key = chainedKey(key, prev.ID)
	}
	return "", errors.Wrapf(constant.ErrIdempotencyConflict, "key retried more than %d times", maxRedebits)
}

func (c *Coordinator) lookup(ctx context.Context, key string) (*domain.Transaction, error) {
	lctx, cancel := context.WithTimeout(ctx, c.opts.LedgerTimeout)
	defer cancel()

	tx, err := c.ledger.Lookup(lctx, key)
	if err != nil {
		return nil, errors.Wrapf(constant.ErrLedger, "lookup %s: %v", key, err)
	}
	return tx, nil
}

// debit runs detached from the caller's context and bounded by the ledger
// timeout. Any outcome the ledger may have applied is reconciled.
func (c *Coordinator) debit(ctx context.Context, req domain.DebitRequest) (*domain.DebitResult, error) {
	started := time.Now()

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.LedgerTimeout)
	res, err := c.ledger.Debit(dctx, req)
	cancel()

	switch {
	case errors.Is(err, constant.ErrLedgerAmbiguous):
		metrics.ObserveLedger("debit", "ambiguous", started)
		return nil, c.reconcileDebit(ctx, req, err)
	case err != nil:
		metrics.ObserveLedger("debit", "error", started)
		if !errors.Is(err, constant.ErrLedger) {
			err = errors.Wrapf(constant.ErrLedger, "debit: %v", err)
		}
		return nil, err
	case res.InsufficientFunds:
		metrics.ObserveLedger("debit", "insufficient_funds", started)
		return nil, errors.Wrapf(constant.ErrInsufficientFunds, "balance %d, cost %d", res.NewBalance, req.Amount)
	case !res.Success:
		metrics.ObserveLedger("debit", "rejected", started)
		return nil, errors.Wrapf(constant.ErrLedger, "debit rejected: %s", res.Error)
	}

	metrics.ObserveLedger("debit", "ok", started)
	return res, nil
}

// reconcileDebit asks the ledger once whether an ambiguous debit landed. A
// landed debit is credited back; the request itself is abandoned either way.
func (c *Coordinator) reconcileDebit(ctx context.Context, req domain.DebitRequest, cause error) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.ReconcileTimeout)
	tx, err := c.ledger.Lookup(rctx, req.IdempotencyKey)
	cancel()

	if err != nil {
		c.incident(ctx, "unreconciled_debit", logrus.Fields{
			"idempotency_key": req.IdempotencyKey,
			"user_id":         req.UserID,
			"venue_id":        req.VenueID,
			"amount":          req.Amount,
		}, err)
		return errors.Wrapf(constant.ErrLedger, "debit outcome unknown after %v", cause)
	}

	if tx == nil || tx.Kind != domain.TransactionDebit {
		return errors.Wrapf(constant.ErrLedger, "debit did not land: %v", cause)
	}

	c.logger.WithContext(ctx).Warnf("queue: debit %s landed despite an ambiguous response, returning %d points to %s", tx.ID, req.Amount, req.UserID)
	if _, err := c.refund(ctx, refundFor(req, tx.ID, "ambiguous ledger response")); err != nil {
		return err
	}
	return errors.Wrapf(constant.ErrLedger, "debit outcome was unknown, points returned: %v", cause)
}

// refund issues one credit and never retries it. A failed credit is escalated
// as an incident and reported as ErrCompensation.
func (c *Coordinator) refund(ctx context.Context, req domain.CreditRequest) (*domain.CreditResult, error) {
	started := time.Now()

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.LedgerTimeout)
	res, err := c.ledger.Credit(cctx, req)
	cancel()

	if err == nil && !res.Success {
		err = errors.Errorf("credit rejected: %s", res.Error)
	}
	if err != nil {
		metrics.ObserveLedger("credit", "error", started)
		metrics.RecordCompensation("failed")
		c.incident(ctx, "compensation_failed", logrus.Fields{
			"debit_tx":   req.OriginalTransactionID,
			"credit_key": req.IdempotencyKey,
			"user_id":    req.UserID,
			"venue_id":   req.VenueID,
			"amount":     req.Amount,
		}, err)
		return nil, errors.Wrapf(constant.ErrCompensation, "debit %s of %d points: %v", req.OriginalTransactionID, req.Amount, err)
	}

	metrics.ObserveLedger("credit", "ok", started)
	metrics.RecordCompensation("succeeded")
	c.logger.WithContext(ctx).WithFields(logrus.Fields{
		"debit_tx":  req.OriginalTransactionID,
		"credit_tx": res.TransactionID,
		"user_id":   req.UserID,
		"amount":    req.Amount,
	}).Infof("queue: refunded points (%s)", req.Reason)

	return res, nil
}

func (c *Coordinator) incident(ctx context.Context, kind string, fields logrus.Fields, err error) {
	metrics.RecordIncident(kind)

	fields["alert"] = true
	fields["incident"] = kind
	c.logger.WithContext(ctx).WithFields(fields).WithError(err).Error("queue: points movement needs operator attention")
}

func refundKey(debitTxID string) string {
	return "queue-refund:" + debitTxID
}

func refundFor(debit domain.DebitRequest, debitTxID, reason string) domain.CreditRequest {
	return domain.CreditRequest{
		IdempotencyKey:        refundKey(debitTxID),
		UserID:                debit.UserID,
		VenueID:               debit.VenueID,
		Amount:                debit.Amount,
		Reason:                reason,
		OriginalTransactionID: debitTxID,
		Metadata:              debit.Metadata,
	}
}

func refundForItem(item domain.QueueItem, reason string) domain.CreditRequest {
	return domain.CreditRequest{
		IdempotencyKey:        refundKey(item.DebitTxID),
		UserID:                item.RequesterID,
		VenueID:               item.VenueID,
		Amount:                item.Cost,
		Reason:                reason,
		OriginalTransactionID: item.DebitTxID,
		Metadata: map[string]string{
			"item_id":  item.ID,
			"track_id": item.ExternalTrackID,
		},
	}
}
