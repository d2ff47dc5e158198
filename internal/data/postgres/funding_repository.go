package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const fundingRequestColumns = `id, kind, user_id, currency, amount::text, fee::text, status, destination,
		COALESCE(reviewed_by, ''), reviewed_at, COALESCE(tx_hash, ''), COALESCE(rejection_reason, ''),
		claimed_until, created_at, updated_at`

// FundingRepository implements funding.Repository for PostgreSQL
type FundingRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewFundingRepository creates a pool-backed funding request repository
func NewFundingRepository(logger *slog.Logger, db *persistence.PostgresDB) *FundingRepository {
	return &FundingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *FundingRepository) WithTx(tx pgx.Tx) *FundingRepository {
	return &FundingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new PENDING request
func (r *FundingRepository) Create(ctx context.Context, req *funding.Request) error {
	query := `
		INSERT INTO funding_requests (id, kind, user_id, currency, amount, fee, status, destination, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		req.ID,
		req.Kind,
		req.UserID,
		req.Currency,
		req.Amount.String(),
		req.Fee.String(),
		req.Status,
		req.Destination,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return funding.ErrDuplicateRequest{ID: req.ID}
		}
		r.logger.Error("Failed to create funding request", "request_id", req.ID.String(), "error", err)
		return fmt.Errorf("failed to create funding request: %w", err)
	}

	return nil
}

// GetByID retrieves a request by its ID
func (r *FundingRepository) GetByID(ctx context.Context, id uuid.UUID) (*funding.Request, error) {
	query := `
		SELECT ` + fundingRequestColumns + `
		FROM funding_requests
		WHERE id = $1
	`

	req, err := scanRequest(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, funding.ErrRequestNotFound{ID: id}
		}
		r.logger.Error("Failed to get funding request", "request_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get funding request: %w", err)
	}

	return req, nil
}

// List returns requests matching filter, oldest first
func (r *FundingRepository) List(ctx context.Context, filter funding.Filter) ([]*funding.Request, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, column+" = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	if filter.Kind != "" {
		add("kind", filter.Kind)
	}
	if filter.UserID != "" {
		add("user_id", filter.UserID)
	}

	query := "SELECT " + fundingRequestColumns + " FROM funding_requests"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list funding requests", "error", err)
		return nil, fmt.Errorf("failed to list funding requests: %w", err)
	}
	defer rows.Close()

	var requests []*funding.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			r.logger.Error("Failed to scan funding request", "error", err)
			return nil, fmt.Errorf("failed to scan funding request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over funding requests", "error", err)
		return nil, fmt.Errorf("error iterating over funding requests: %w", err)
	}

	return requests, nil
}

// Transition persists the review outcome only while the row is still PENDING
func (r *FundingRepository) Transition(ctx context.Context, req *funding.Request) error {
	query := `
		UPDATE funding_requests
		SET status = $1, reviewed_by = $2, reviewed_at = $3,
			tx_hash = COALESCE(NULLIF($4, ''), tx_hash),
			rejection_reason = NULLIF($5, ''), fee = $6::numeric,
			claimed_until = NULL, updated_at = $7
		WHERE id = $8 AND status = 'PENDING'
	`

	result, err := r.querier.Exec(ctx, query,
		req.Status,
		req.ReviewedBy,
		req.ReviewedAt,
		req.TxHash,
		req.RejectionReason,
		req.Fee.String(),
		req.UpdatedAt,
		req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to transition funding request",
			"request_id", req.ID.String(),
			"status", string(req.Status),
			"error", err,
		)
		return fmt.Errorf("failed to transition funding request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrInvalidStateTransition
	}

	return nil
}

// Claim takes the approval lease until the given time
func (r *FundingRepository) Claim(ctx context.Context, id uuid.UUID, until time.Time) (*funding.Request, error) {
	query := `
		UPDATE funding_requests
		SET claimed_until = $1, updated_at = $2
		WHERE id = $3 AND status = 'PENDING' AND (claimed_until IS NULL OR claimed_until < $2)
		RETURNING ` + fundingRequestColumns

	now := time.Now().UTC()
	req, err := scanRequest(r.querier.QueryRow(ctx, query, until, now, id))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to claim funding request", "request_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to claim funding request: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != shared.RequestStatusPending {
		return nil, shared.ErrInvalidStateTransition
	}
	return nil, shared.ErrApprovalInProgress
}

// ReleaseClaim drops the approval lease of a PENDING request
func (r *FundingRepository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE funding_requests
		SET claimed_until = NULL, updated_at = $1
		WHERE id = $2 AND status = 'PENDING'
	`

	if _, err := r.querier.Exec(ctx, query, time.Now().UTC(), id); err != nil {
		r.logger.Error("Failed to release funding request claim", "request_id", id.String(), "error", err)
		return fmt.Errorf("failed to release funding request claim: %w", err)
	}
	return nil
}

// RecordTransferReference stores the external transfer reference and its fee once
func (r *FundingRepository) RecordTransferReference(ctx context.Context, id uuid.UUID, txHash string, fee decimal.Decimal) error {
	query := `
		UPDATE funding_requests
		SET tx_hash = $1, fee = $2::numeric, updated_at = $3
		WHERE id = $4 AND status = 'PENDING'
			AND (tx_hash IS NULL OR (tx_hash = $1 AND fee = $2::numeric))
	`

	result, err := r.querier.Exec(ctx, query, txHash, fee.String(), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to record transfer reference", "request_id", id.String(), "error", err)
		return fmt.Errorf("failed to record transfer reference: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrInvalidStateTransition
	}
	return nil
}

func scanRequest(row pgx.Row) (*funding.Request, error) {
	var (
		req         funding.Request
		amount, fee string
	)
	err := row.Scan(
		&req.ID,
		&req.Kind,
		&req.UserID,
		&req.Currency,
		&amount,
		&fee,
		&req.Status,
		&req.Destination,
		&req.ReviewedBy,
		&req.ReviewedAt,
		&req.TxHash,
		&req.RejectionReason,
		&req.ClaimedUntil,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if req.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("invalid fee %q: %w", fee, err)
	}
	return &req, nil
}
