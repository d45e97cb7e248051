package response

import (
	"net/http"

	"encore/queue-gateway/internal/constant"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type errorKind struct {
	sentinel  error
	status    int
	code      string
	retryable bool
}

// checked in order; the first sentinel found in the chain wins
var errorKinds = []errorKind{
	{constant.ErrValidation, http.StatusBadRequest, "VALIDATION_FAILED", false},
	{constant.ErrNotFound, http.StatusNotFound, "NOT_FOUND", false},
	{constant.ErrDuplicate, http.StatusConflict, "DUPLICATE_TRACK", false},
	{constant.ErrIdempotencyConflict, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED", false},
	{constant.ErrQueueFull, http.StatusConflict, "QUEUE_FULL", true},
	{constant.ErrInsufficientFunds, http.StatusPaymentRequired, "INSUFFICIENT_POINTS", false},
	{constant.ErrCompensation, http.StatusInternalServerError, "REFUND_PENDING", false},
	{constant.ErrLedgerAmbiguous, http.StatusBadGateway, "LEDGER_UNAVAILABLE", true},
	{constant.ErrLedger, http.StatusBadGateway, "LEDGER_UNAVAILABLE", true},
	{constant.ErrStore, http.StatusInternalServerError, "QUEUE_STORE_FAILED", true},
	{constant.ErrForbidden, http.StatusForbidden, "FORBIDDEN", false},
	{constant.ErrInvalidTransition, http.StatusConflict, "INVALID_STATE", false},
	{constant.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", true},
}

// Classify maps an error to its HTTP status and error body. Server-side
// failures report the sentinel's text only.
func Classify(err error) (int, ErrorBody) {
	for _, k := range errorKinds {
		if !errors.Is(err, k.sentinel) {
			continue
		}
		message := err.Error()
		if k.status >= http.StatusInternalServerError {
			message = k.sentinel.Error()
		}
		return k.status, ErrorBody{Code: k.code, Message: message, Retryable: k.retryable}
	}

	return http.StatusInternalServerError, ErrorBody{
		Code:      "INTERNAL",
		Message:   "internal server error",
		Retryable: true,
	}
}

func Error(c *gin.Context, err error) {
	status, body := Classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: body})
}

func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: ErrorBody{
		Code:    "UNAUTHORIZED",
		Message: message,
	}})
}

// Invalid reports a request that failed binding.
func Invalid(c *gin.Context, err error) {
	Error(c, errors.Wrap(constant.ErrValidation, err.Error()))
}
