package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fundgate/ledger-core/internal/accounting"
	"github.com/fundgate/ledger-core/internal/api_gateway/middleware"
	"github.com/fundgate/ledger-core/internal/api_gateway/service"
	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves the review and correction endpoints
type AdminHandler struct {
	fundingService service.FundingService
	logger         *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, fundingService service.FundingService) *AdminHandler {
	return &AdminHandler{
		fundingService: fundingService,
		logger:         logger,
	}
}

// ListRequests lists funding requests, optionally filtered by status, kind and user
func (h *AdminHandler) ListRequests(c *gin.Context) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := funding.Filter{
		Status: shared.RequestStatus(strings.ToUpper(q.Status)),
		Kind:   shared.RequestKind(strings.ToUpper(q.Kind)),
		UserID: q.UserID,
		Limit:  q.PerPage,
		Offset: (q.Page - 1) * q.PerPage,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		RespondBadRequest(c, "Invalid status filter")
		return
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		RespondBadRequest(c, "Invalid kind filter")
		return
	}

	requests, err := h.fundingService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		respondDomainError(c, logger.FromContext(c.Request.Context(), h.logger), err)
		return
	}

	items := make([]FundingRequestResponse, 0, len(requests))
	for _, r := range requests {
		items = append(items, mapFundingRequest(r))
	}
	RespondOK(c, items)
}

// Approve approves one request. The body is optional.
func (h *AdminHandler) Approve(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid funding request ID")
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params := accounting.ApproveParams{
		ActorID: middleware.GetActorID(c),
		TxHash:  strings.TrimSpace(req.TxHash),
	}
	if req.Fee != nil {
		params.Fee = *req.Fee
	}

	approved, err := h.fundingService.Approve(c.Request.Context(), id, params)
	if err != nil {
		respondDomainError(c, log, err)
		return
	}
	RespondOK(c, mapFundingRequest(approved))
}

// Reject rejects one request with a reason
func (h *AdminHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid funding request ID")
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rejected, err := h.fundingService.Reject(c.Request.Context(), id, middleware.GetActorID(c), req.Reason)
	if err != nil {
		respondDomainError(c, logger.FromContext(c.Request.Context(), h.logger), err)
		return
	}
	RespondOK(c, mapFundingRequest(rejected))
}

// BulkApprove approves each id independently and reports every outcome
func (h *AdminHandler) BulkApprove(c *gin.Context) {
	var req BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid funding request ID: "+raw)
			return
		}
		ids = append(ids, id)
	}

	results := h.fundingService.BulkApprove(c.Request.Context(), ids, middleware.GetActorID(c))
	items := make([]BulkApproveItem, 0, len(results))
	for _, r := range results {
		items = append(items, mapBulkResult(r))
	}
	RespondOK(c, items)
}

// Adjust writes a correction entry on a user's account
func (h *AdminHandler) Adjust(c *gin.Context) {
	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entryType, err := shared.ParseEntryType(req.Type)
	if err != nil {
		RespondBadRequest(c, "Invalid entry type: "+req.Type)
		return
	}

	entry, balance, err := h.fundingService.Adjust(c.Request.Context(), service.AdjustInput{
		UserID:      req.UserID,
		Currency:    req.Currency,
		Amount:      req.Amount,
		Type:        entryType,
		ReferenceID: req.ReferenceID,
		ActorID:     middleware.GetActorID(c),
		Reason:      req.Reason,
	})
	if err != nil {
		respondDomainError(c, logger.FromContext(c.Request.Context(), h.logger), err)
		return
	}
	RespondWithData(c, http.StatusCreated, AdjustmentResponse{
		Entry:   mapEntry(entry),
		Balance: mapBalance(balance),
	})
}
