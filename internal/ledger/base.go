package ledger

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	debitPath       = "/ledger/debit"
	creditPath      = "/ledger/credit"
	transactionPath = "/ledger/transactions/"
)

// HTTPClient talks to the external points ledger. Each call is bounded by
// timeout and carries the caller's idempotency key; nothing is retried here.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewHTTPClient(cfg HTTPClientConfig, logger *logrus.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		logger:     logger,
	}
}
