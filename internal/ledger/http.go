package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"
	"encore/queue-gateway/internal/metrics"

	"github.com/pkg/errors"
)

type reply struct {
	status int
	header http.Header
	body   []byte
}

func (c *HTTPClient) Debit(ctx context.Context, req domain.DebitRequest) (*domain.DebitResult, error) {
	started := time.Now()

	rep, err := c.post(ctx, debitPath, req.IdempotencyKey, req)
	if err != nil {
		metrics.ObserveLedger("debit", "error", started)
		return nil, err
	}

	var result domain.DebitResult
	switch {
	case rep.status == http.StatusPaymentRequired:
		metrics.ObserveLedger("debit", "insufficient_funds", started)
		_ = json.Unmarshal(rep.body, &result)
		result.Success = false
		result.InsufficientFunds = true
		return &result, nil
	case rep.status >= http.StatusInternalServerError:
		metrics.ObserveLedger("debit", "ambiguous", started)
		return nil, errors.Wrapf(constant.ErrLedgerAmbiguous, "debit answered %d", rep.status)
	case rep.status >= http.StatusBadRequest:
		metrics.ObserveLedger("debit", "rejected", started)
		_ = json.Unmarshal(rep.body, &result)
		return nil, errors.Wrapf(constant.ErrLedger, "debit rejected with status %d: %s", rep.status, result.Error)
	}

	if err := json.Unmarshal(rep.body, &result); err != nil {
		metrics.ObserveLedger("debit", "ambiguous", started)
		return nil, errors.Wrapf(constant.ErrLedgerAmbiguous, "failed to decode debit response: %v", err)
	}

	switch {
	case result.InsufficientFunds:
		metrics.ObserveLedger("debit", "insufficient_funds", started)
		result.Success = false
		return &result, nil
	case !result.Success:
		metrics.ObserveLedger("debit", "rejected", started)
		return nil, errors.Wrapf(constant.ErrLedger, "debit rejected: %s", result.Error)
	}

	if strings.EqualFold(rep.header.Get(constant.HeaderIdempotentReplayed), "true") {
		result.Replayed = true
	}

	metrics.ObserveLedger("debit", "ok", started)
	return &result, nil
}

func (c *HTTPClient) Credit(ctx context.Context, req domain.CreditRequest) (*domain.CreditResult, error) {
	started := time.Now()

	rep, err := c.post(ctx, creditPath, req.IdempotencyKey, req)
	if err != nil {
		metrics.ObserveLedger("credit", "error", started)
		return nil, err
	}

	var result domain.CreditResult
	switch {
	case rep.status >= http.StatusInternalServerError:
		metrics.ObserveLedger("credit", "ambiguous", started)
		return nil, errors.Wrapf(constant.ErrLedgerAmbiguous, "credit answered %d", rep.status)
	case rep.status >= http.StatusBadRequest:
		metrics.ObserveLedger("credit", "rejected", started)
		_ = json.Unmarshal(rep.body, &result)
		return nil, errors.Wrapf(constant.ErrLedger, "credit rejected with status %d: %s", rep.status, result.Error)
	}

	if err := json.Unmarshal(rep.body, &result); err != nil {
		metrics.ObserveLedger("credit", "ambiguous", started)
		return nil, errors.Wrapf(constant.ErrLedgerAmbiguous, "failed to decode credit response: %v", err)
	}
	if !result.Success {
		metrics.ObserveLedger("credit", "rejected", started)
		return nil, errors.Wrapf(constant.ErrLedger, "credit rejected: %s", result.Error)
	}

	metrics.ObserveLedger("credit", "ok", started)
	return &result, nil
}

// Lookup returns the transaction the ledger recorded for an idempotency key,
// or nil when the ledger never saw it.
func (c *HTTPClient) Lookup(ctx context.Context, idempotencyKey string) (*domain.Transaction, error) {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+transactionPath+url.PathEscape(idempotencyKey), nil)
	if err != nil {
		return nil, errors.Wrap(constant.ErrLedger, err.Error())
	}

	rep, err := c.do(req)
	if err != nil {
		metrics.ObserveLedger("lookup", "error", started)
		return nil, err
	}

	if rep.status == http.StatusNotFound {
		metrics.ObserveLedger("lookup", "not_found", started)
		return nil, nil
	}
	if rep.status != http.StatusOK {
		metrics.ObserveLedger("lookup", "rejected", started)
		return nil, errors.Wrapf(constant.ErrLedger, "lookup answered %d", rep.status)
	}

	var tx domain.Transaction
	if err := json.Unmarshal(rep.body, &tx); err != nil {
		metrics.ObserveLedger("lookup", "rejected", started)
		return nil, errors.Wrapf(constant.ErrLedger, "failed to decode transaction: %v", err)
	}

	metrics.ObserveLedger("lookup", "ok", started)
	return &tx, nil
}

func (c *HTTPClient) post(ctx context.Context, path, idempotencyKey string, body interface{}) (*reply, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(constant.ErrLedger, "failed to marshal request body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrapf(constant.ErrLedger, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constant.HeaderIdempotencyKey, idempotencyKey)

	return c.do(req)
}

// do sends req and reads the whole body. A failure before the request was
// written is ErrLedger: the ledger never saw it. Any failure after that is
// ErrLedgerAmbiguous, since the ledger may have applied it.
func (c *HTTPClient) do(req *http.Request) (*reply, error) {
	var wrote atomic.Bool
	trace := &httptrace.ClientTrace{
		WroteRequest: func(httptrace.WroteRequestInfo) { wrote.Store(true) },
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err, wrote.Load())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err, true)
	}

	return &reply{status: resp.StatusCode, header: resp.Header, body: raw}, nil
}

func transportError(err error, sent bool) error {
	if sent {
		return errors.Wrapf(constant.ErrLedgerAmbiguous, "%v", err)
	}
	return errors.Wrapf(constant.ErrLedger, "%v", err)
}
