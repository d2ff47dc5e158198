package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fundgate/ledger-core/internal/domain/funding"
	"github.com/fundgate/ledger-core/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// classifyError maps a domain error to its HTTP status, error code and client message
func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, shared.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", err.Error()
	case errors.Is(err, shared.ErrInvalidStateTransition):
		return http.StatusConflict, "INVALID_STATE_TRANSITION", err.Error()
	case errors.Is(err, shared.ErrApprovalInProgress):
		return http.StatusConflict, "APPROVAL_IN_PROGRESS", err.Error()
	case errors.Is(err, shared.ErrHoldNotFound):
		return http.StatusConflict, "HOLD_NOT_FOUND", err.Error()
	case errors.Is(err, funding.ErrRequestNotFound{}):
		return http.StatusNotFound, "NOT_FOUND", "Funding request not found"
	case errors.Is(err, funding.ErrDuplicateRequest{}):
		return http.StatusConflict, "DUPLICATE_REQUEST", err.Error()
	case errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrInvalidFee),
		errors.Is(err, shared.ErrInvalidCurrency),
		errors.Is(err, shared.ErrInvalidEntryType),
		errors.Is(err, shared.ErrInvalidUserID),
		errors.Is(err, shared.ErrInvalidActor),
		errors.Is(err, shared.ErrReasonRequired),
		errors.Is(err, funding.ErrInvalidKind):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, shared.ErrExternalTransferFailure):
		return http.StatusBadGateway, "EXTERNAL_TRANSFER_FAILED", "External transfer failed, the request stays pending and can be retried"
	default:
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred"
	}
}

// respondDomainError is the single place domain errors become HTTP responses
func respondDomainError(c *gin.Context, log *slog.Logger, err error) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "path", c.Request.URL.Path, "code", code, "error", err)
	} else {
		log.Warn("Request rejected", "path", c.Request.URL.Path, "code", code, "error", err)
	}

	if code == "EXTERNAL_TRANSFER_FAILED" {
		respond(c, status, &Response{
			Data:  gin.H{"status": "PENDING_RETRY"},
			Error: &ErrorInfo{Code: code, Message: message},
		})
		return
	}
	RespondWithError(c, status, code, message)
}
