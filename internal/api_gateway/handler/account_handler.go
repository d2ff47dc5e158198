package handler

import (
	"log/slog"
	"net/http"

	"github.com/fundgate/ledger-core/internal/api_gateway/middleware"
	"github.com/fundgate/ledger-core/internal/api_gateway/service"
	"github.com/fundgate/ledger-core/internal/logger"
	"github.com/gin-gonic/gin"
)

// AccountHandler serves balances and entry history
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// GetBalance returns balance, available and held amounts for one currency
func (h *AccountHandler) GetBalance(c *gin.Context) {
	userID, ok := h.accountOwner(c)
	if !ok {
		return
	}

	balance, err := h.accountService.GetBalance(c.Request.Context(), userID, c.Param("currency"))
	if err != nil {
		respondDomainError(c, logger.FromContext(c.Request.Context(), h.logger), err)
		return
	}
	RespondOK(c, mapBalance(balance))
}

// GetHistory returns a page of ledger entries, newest first
func (h *AccountHandler) GetHistory(c *gin.Context) {
	userID, ok := h.accountOwner(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.accountService.GetHistory(c.Request.Context(), userID, c.Param("currency"), params.Page, params.PerPage)
	if err != nil {
		respondDomainError(c, logger.FromContext(c.Request.Context(), h.logger), err)
		return
	}

	items := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, mapEntry(e))
	}
	RespondWithPaginatedData(c, http.StatusOK, items, params.Page, params.PerPage, int(total))
}

// accountOwner resolves the path user. Users may only read their own account; admins read any.
func (h *AccountHandler) accountOwner(c *gin.Context) (string, bool) {
	userID := c.Param("user_id")
	if middleware.IsAdmin(c) || middleware.GetUserID(c) == userID {
		return userID, true
	}
	RespondForbidden(c, "cannot read another user's account")
	return "", false
}
