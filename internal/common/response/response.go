package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/petcare-marketplace/service-scheduling/internal/common/domain"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code                     string     `json:"code"`
	Message                  string     `json:"message"`
	ConflictingAppointmentID *uuid.UUID `json:"conflicting_appointment_id,omitempty"`
	From                     string     `json:"from,omitempty"`
	To                       string     `json:"to,omitempty"`
}

// Meta carries pagination data.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success writes a 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 with a page of items.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta:    &Meta{Total: total, Page: page, Limit: limit, TotalPages: totalPages},
	})
}

// BadRequest writes a 400 validation error.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
		Error: &ErrorBody{Code: domain.CodeValidation, Message: msg},
	})
}

// Unauthorized writes a 401.
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{
		Error: &ErrorBody{Code: domain.CodeUnauthorized, Message: msg},
	})
}

// Error maps err onto an HTTP status and writes it.
func Error(c *gin.Context, err error) {
	status, body := Classify(err)
	c.AbortWithStatusJSON(status, Envelope{Error: &body})
}

// Classify maps a domain error to its HTTP status and body.
func Classify(err error) (int, ErrorBody) {
	var (
		domainErr     *domain.DomainError
		conflictErr   *domain.ConflictError
		transitionErr *domain.InvalidTransitionError
		persistErr    *domain.PersistenceError
	)

	switch {
	case errors.As(err, &conflictErr):
		return http.StatusConflict, ErrorBody{
			Code:                     domain.CodeConflict,
			Message:                  conflictErr.Message,
			ConflictingAppointmentID: conflictErr.ConflictingID,
		}
	case errors.As(err, &transitionErr):
		return http.StatusConflict, ErrorBody{
			Code:    domain.CodeInvalidTransition,
			Message: transitionErr.Error(),
			From:    transitionErr.From,
			To:      transitionErr.To,
		}
	case errors.As(err, &domainErr):
		return statusForCode(domainErr.Code), ErrorBody{Code: domainErr.Code, Message: domainErr.Message}
	case errors.As(err, &persistErr):
		return http.StatusServiceUnavailable, ErrorBody{Code: domain.CodePersistence, Message: "upstream storage unavailable"}
	default:
		return http.StatusInternalServerError, ErrorBody{Code: "INTERNAL_ERROR", Message: "internal server error"}
	}
}

func statusForCode(code string) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
