package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/services"
	"github.com/SAP-F-2025/school-portal-service/internal/utils"
	"github.com/SAP-F-2025/school-portal-service/internal/validator"
)

type ErrorResponse = models.ErrorResponse

// BaseHandler carries the logging and error mapping shared by every handler
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	fields := []any{"method", c.Request.Method, "route", c.FullPath()}
	if userID := c.GetString("user_id"); userID != "" {
		fields = append(fields, "user_id", userID)
	}
	utils.GetLogger(c, h.logger).Debug(msg, append(fields, args...)...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	fields := append([]any{"error", err, "route", c.FullPath()}, args...)
	utils.GetLogger(c, h.logger).Error(msg, fields...)
}

// respondError writes the standard error body and aborts the chain
func (h *BaseHandler) respondError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

// handleServiceError maps service errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.respondError(c, http.StatusBadRequest, "validation_failed", services.UserMessage(err, "Validation failed"), validationErrors)
		return
	}

	switch {
	case errors.Is(err, services.ErrValidationFailed):
		h.respondError(c, http.StatusBadRequest, "validation_failed", services.UserMessage(err, "Validation failed"), nil)
	case errors.Is(err, services.ErrNotFound):
		h.respondError(c, http.StatusNotFound, "not_found", services.UserMessage(err, "Not found"), nil)
	case errors.Is(err, services.ErrUnauthorized):
		h.respondError(c, http.StatusUnauthorized, "unauthorized", services.UserMessage(err, "User not authenticated"), nil)
	case errors.Is(err, services.ErrForbidden):
		h.respondError(c, http.StatusForbidden, "forbidden", services.UserMessage(err, "Access denied"), nil)
	case errors.Is(err, services.ErrAlreadyLinked):
		h.respondError(c, http.StatusConflict, "already_linked", services.UserMessage(err, "Already linked"), nil)
	case errors.Is(err, services.ErrConflict):
		h.respondError(c, http.StatusConflict, "conflict", services.UserMessage(err, "Conflict"), nil)
	case errors.Is(err, services.ErrRateLimited):
		h.respondError(c, http.StatusTooManyRequests, "rate_limited", services.UserMessage(err, "Rate limited"), nil)
	case errors.Is(err, services.ErrPaymentRequired):
		h.respondError(c, http.StatusPaymentRequired, "payment_required", services.UserMessage(err, "Payment required"), nil)
	case errors.Is(err, services.ErrLinkFailed), errors.Is(err, services.ErrUpstream):
		h.LogError(c, err, "Service call failed")
		h.respondError(c, http.StatusInternalServerError, "internal_error", services.UserMessage(err, "Internal server error"), nil)
	default:
		h.LogError(c, err, "Unexpected service error")
		h.respondError(c, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}

// requireUserID returns the authenticated user id or writes 401
func (h *BaseHandler) requireUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		h.respondError(c, http.StatusUnauthorized, "unauthorized", "User not authenticated", nil)
		return "", false
	}
	return userID, true
}

// bindJSON decodes the body or writes 400
func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body", err.Error())
		return false
	}
	return true
}
