package response

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stayhub/service-rental/internal/common/domain"
)

// APIResponse is the envelope returned by every JSON endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Pagination `json:"meta,omitempty"`
}

// ErrorBody carries a stable error kind and a human-readable message.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Pagination describes a 1-indexed page of results.
type Pagination struct {
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// Success writes a 200 response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// SuccessWithMessage writes a 200 response with a message and optional data.
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Message: message, Data: data})
}

// Created writes a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// Paginated writes a 200 response with a page of items and its pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    items,
		Meta: &Pagination{
			TotalCount: total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	})
}

// BadRequest writes a 400 invalid_input response.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, domain.ErrValidation.Error(), message)
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, domain.ErrUnauthorized.Error(), message)
}

// Error maps a domain error to its HTTP status. Anything that is not a DomainError
// is reported as an internal error without exposing its detail.
func Error(c *gin.Context, err error) {
	domErr, ok := domain.AsDomainError(err)
	if !ok {
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	if errors.Is(domErr.Err, domain.ErrGateway) {
		_ = c.Error(err)
	}
	abort(c, StatusFor(domErr.Err), domErr.Kind(), domErr.Message)
}

// StatusFor returns the HTTP status code for an error kind.
func StatusFor(kind error) int {
	switch kind {
	case domain.ErrValidation, domain.ErrInvalidState, domain.ErrSignatureInvalid:
		return http.StatusBadRequest
	case domain.ErrUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrForbidden:
		return http.StatusForbidden
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, APIResponse{
		Success: false,
		Error:   &ErrorBody{Kind: kind, Message: message},
	})
}
