package handler

import (
	"time"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// CreateFundingRequest is the body of a deposit or withdrawal submission
type CreateFundingRequest struct {
	Currency    string          `json:"currency" binding:"required,min=3,max=10"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}

// ApproveRequest is the optional body of an approval
type ApproveRequest struct {
	TxHash string           `json:"tx_hash"`
	Fee    *decimal.Decimal `json:"fee"`
}

// RejectRequest is the body of a rejection
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// BulkApproveRequest lists the requests to approve
type BulkApproveRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=100,dive,uuid"`
}

// AdjustmentRequest is an admin ledger correction
type AdjustmentRequest struct {
	UserID      string          `json:"user_id" binding:"required"`
	Currency    string          `json:"currency" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type" binding:"required"`
	ReferenceID string          `json:"reference_id"`
	Reason      string          `json:"reason" binding:"required"`
}

// ListRequestsQuery filters the admin request listing
type ListRequestsQuery struct {
	Status string `form:"status"`
	Kind   string `form:"kind"`
	UserID string `form:"user_id"`
	PaginationParams
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// FundingRequestResponse represents a funding request in API responses
type FundingRequestResponse struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	UserID          string `json:"user_id"`
	Currency        string `json:"currency"`
	Amount          string `json:"amount"`
	Fee             string `json:"fee"`
	Status          string `json:"status"`
	Destination     string `json:"destination,omitempty"`
	ReviewedBy      string `json:"reviewed_by,omitempty"`
	ReviewedAt      string `json:"reviewed_at,omitempty"`
	TxHash          string `json:"tx_hash,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// BalanceResponse represents the derived account view
type BalanceResponse struct {
	UserID           string `json:"user_id"`
	Currency         string `json:"currency"`
	Balance          string `json:"balance"`
	AvailableBalance string `json:"available_balance"`
	HeldBalance      string `json:"held_balance"`
	LastUpdated      string `json:"last_updated,omitempty"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Currency    string `json:"currency"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id,omitempty"`
	ActorID     string `json:"actor_id"`
	Reason      string `json:"reason,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// AdjustmentResponse is the written entry and the balance after it
type AdjustmentResponse struct {
	Entry   EntryResponse   `json:"entry"`
	Balance BalanceResponse `json:"balance"`
}

// BulkApproveItem is the outcome for one id of a bulk approval
type BulkApproveItem struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	TxHash  string `json:"tx_hash,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func mapFundingRequest(r *funding.Request) FundingRequestResponse {
	resp := FundingRequestResponse{
		ID:              r.ID.String(),
		Kind:            string(r.Kind),
		UserID:          r.UserID,
		Currency:        r.Currency,
		Amount:          r.Amount.String(),
		Fee:             r.Fee.String(),
		Status:          string(r.Status),
		Destination:     r.Destination,
		ReviewedBy:      r.ReviewedBy,
		TxHash:          r.TxHash,
		RejectionReason: r.RejectionReason,
		CreatedAt:       formatTime(r.CreatedAt),
		UpdatedAt:       formatTime(r.UpdatedAt),
	}
	if r.ReviewedAt != nil {
		resp.ReviewedAt = formatTime(*r.ReviewedAt)
	}
	return resp
}

func mapBalance(b ledger.Balance) BalanceResponse {
	resp := BalanceResponse{
		UserID:           b.UserID,
		Currency:         b.Currency,
		Balance:          b.Balance.String(),
		AvailableBalance: b.AvailableBalance.String(),
		HeldBalance:      b.HeldBalance.String(),
	}
	if b.LastUpdated != nil {
		resp.LastUpdated = formatTime(*b.LastUpdated)
	}
	return resp
}

func mapEntry(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID.String(),
		UserID:      e.UserID,
		Currency:    e.Currency,
		Amount:      e.Amount.String(),
		Type:        string(e.Type),
		Status:      string(e.Status),
		ReferenceID: e.ReferenceID,
		ActorID:     e.ActorID,
		Reason:      e.Reason,
		CreatedAt:   formatTime(e.CreatedAt),
	}
}

func mapBulkResult(r accounting.BulkResult) BulkApproveItem {
	item := BulkApproveItem{ID: r.ID.String(), Success: r.Success}
	if r.Request != nil {
		item.TxHash = r.Request.TxHash
	}
	if r.Err != nil {
		_, item.Code, item.Error = classifyError(r.Err)
	}
	return item
}
