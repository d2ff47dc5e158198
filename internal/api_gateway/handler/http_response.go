package handler

import (
	"net/http"

	"github.com/fundgate/ledger-core/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// Response is the envelope of every JSON body the gateway writes
type Response struct {
	Data          any        `json:"data,omitempty"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

// ErrorInfo carries a stable machine readable code and a client safe message
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo describes the page of a paginated listing
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func newMeta(page, perPage, totalItems int) *MetaInfo {
	totalPages := 0
	if perPage > 0 {
		totalPages = (totalItems + perPage - 1) / perPage
	}
	return &MetaInfo{
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		TotalItems: totalItems,
	}
}

func respond(c *gin.Context, statusCode int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

func RespondWithData(c *gin.Context, statusCode int, data any) {
	respond(c, statusCode, &Response{Data: data})
}

func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondWithPaginatedData(c *gin.Context, statusCode int, data any, page, perPage, totalItems int) {
	respond(c, statusCode, &Response{Data: data, Meta: newMeta(page, perPage, totalItems)})
}

func RespondOK(c *gin.Context, data any) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data any) {
	RespondWithData(c, http.StatusCreated, data)
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondForbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, "FORBIDDEN", message)
}

func RespondNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}
