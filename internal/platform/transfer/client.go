// Package transfer calls the external gateway that moves funds out of the
// platform once a withdrawal is approved.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order describes one outbound transfer
type Order struct {
	RequestID   uuid.UUID       `json:"request_id"`
	UserID      string          `json:"user_id"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}

// Executor performs a transfer and returns its external reference
type Executor interface {
	ExecuteTransfer(ctx context.Context, order Order) (string, error)
}

var ErrGatewayNotConfigured = errors.New("transfer gateway not configured")

type transferResponse struct {
	Reference string `json:"reference"`
	Error     string `json:"error,omitempty"`
}

// Client is the HTTP gateway executor. The request id is sent as the
// gateway's Idempotency-Key so a repeated call cannot move funds twice.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewExecutor returns the HTTP client, or a Disabled executor when no gateway URL is set
func NewExecutor(logger *slog.Logger, cfg config.TransferConfig) Executor {
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		logger.Warn("Transfer gateway not configured, withdrawals require a supplied tx_hash")
		return Disabled{}
	}
	return NewClient(logger, cfg.GatewayURL, &http.Client{Timeout: cfg.Timeout})
}

// NewClient creates a gateway client
func NewClient(logger *slog.Logger, baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// ExecuteTransfer posts the order to the gateway.
// Every failure wraps shared.ErrExternalTransferFailure.
func (c *Client) ExecuteTransfer(ctx context.Context, order Order) (string, error) {
	start := time.Now()
	ref, err := c.execute(ctx, order)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		c.logger.Error("External transfer failed",
			"request_id", order.RequestID.String(),
			"currency", order.Currency,
			"error", err,
		)
	}
	metrics.ExternalTransferDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	return ref, err
}

func (c *Client) execute(ctx context.Context, order Order) (string, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode order: %w", shared.ErrExternalTransferFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to build request: %w", shared.ErrExternalTransferFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", order.RequestID.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrExternalTransferFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %w", shared.ErrExternalTransferFailure, err)
	}

	var out transferResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: gateway returned %d: %s", shared.ErrExternalTransferFailure, resp.StatusCode, out.Error)
	}
	if strings.TrimSpace(out.Reference) == "" {
		return "", fmt.Errorf("%w: gateway returned no reference", shared.ErrExternalTransferFailure)
	}

	return out.Reference, nil
}

// Disabled rejects every transfer. Approvals must then carry a tx_hash.
type Disabled struct{}

func (Disabled) ExecuteTransfer(ctx context.Context, order Order) (string, error) {
	return "", fmt.Errorf("%w: %w", shared.ErrExternalTransferFailure, ErrGatewayNotConfigured)
}
