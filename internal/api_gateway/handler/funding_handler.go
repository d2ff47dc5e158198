package handler

import (
	"log/slog"

	"github.com/fundgate/ledger-core/internal/api_gateway/middleware"
	"github.com/fundgate/ledger-core/internal/api_gateway/service"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/fundgate/ledger-core/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FundingHandler serves user facing funding request endpoints
type FundingHandler struct {
	fundingService service.FundingService
	logger         *slog.Logger
}

// NewFundingHandler creates a new funding handler
func NewFundingHandler(logger *slog.Logger, fundingService service.FundingService) *FundingHandler {
	return &FundingHandler{
		fundingService: fundingService,
		logger:         logger,
	}
}

// CreateWithdrawal submits a withdrawal and holds its amount
func (h *FundingHandler) CreateWithdrawal(c *gin.Context) {
	h.create(c, shared.RequestKindWithdrawal)
}

// CreateDeposit submits a deposit for review
func (h *FundingHandler) CreateDeposit(c *gin.Context) {
	h.create(c, shared.RequestKindDeposit)
}

func (h *FundingHandler) create(c *gin.Context, kind shared.RequestKind) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	var req CreateFundingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if kind == shared.RequestKindWithdrawal && req.Destination == "" {
		RespondBadRequest(c, "destination is required for withdrawals")
		return
	}

	created, err := h.fundingService.Submit(c.Request.Context(), service.SubmitInput{
		Kind:        kind,
		UserID:      middleware.GetUserID(c),
		Currency:    req.Currency,
		Amount:      req.Amount,
		Destination: req.Destination,
	})
	if err != nil {
		respondDomainError(c, log, err)
		return
	}
	RespondCreated(c, mapFundingRequest(created))
}

// GetRequest returns one of the caller's funding requests
func (h *FundingHandler) GetRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid funding request ID")
		return
	}

	req, err := h.fundingService.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, logger.FromContext(c.Request.Context(), h.logger), err)
		return
	}
	if !middleware.IsAdmin(c) && req.UserID != middleware.GetUserID(c) {
		RespondNotFound(c, "Funding request not found")
		return
	}
	RespondOK(c, mapFundingRequest(req))
}
