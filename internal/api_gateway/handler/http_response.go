package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stayhub-wallet-ledger/internal/api_gateway/middleware"
)

// Response is the envelope of every API answer. Exactly one of Data and Error is set.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo carries a stable machine-readable code and a human message
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo describes the page returned by list endpoints
type MetaInfo struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int64 `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

func pageCount(totalItems int64, perPage int) int64 {
	if perPage <= 0 {
		return 0
	}
	return (totalItems + int64(perPage) - 1) / int64(perPage)
}

func respond(c *gin.Context, statusCode int, response Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends an error envelope
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

// RespondWithPaginatedData sends one page of a listing together with its position
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage int, totalItems int64) {
	respond(c, statusCode, Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: pageCount(totalItems, perPage),
			TotalItems: totalItems,
		},
	})
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, Response{Data: data})
}

func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, Response{Data: data})
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
