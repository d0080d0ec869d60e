package services

import (
	"errors"

	"github.com/SAP-F-2025/school-portal-service/internal/validator"
)

// Service errors. Handlers map these to HTTP status codes with errors.Is.
var (
	ErrValidationFailed = validator.ErrValidation
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")

	ErrLinkFailed    = errors.New("link failed")
	ErrAlreadyLinked = errors.New("student already linked")

	ErrRateLimited     = errors.New("rate limited")
	ErrPaymentRequired = errors.New("payment required")
	ErrUpstream        = errors.New("upstream error")
)

// ServiceError carries a message safe to show to the user
type ServiceError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel kind and the underlying cause
func (e *ServiceError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newServiceError(kind error, message string) *ServiceError {
	return &ServiceError{Kind: kind, Message: message}
}

func wrapServiceError(kind error, message string, cause error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Cause: cause}
}

// UserMessage returns the user-facing text of err, or fallback when it carries none
func UserMessage(err error, fallback string) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve[0].Field + " " + ve[0].Message
	}
	return fallback
}

// User-facing messages
const (
	msgStudentNotFound      = "Student not found. Please check the name and class."
	msgAlreadyLinked        = "This student is already linked to a parent account."
	msgLinkFailed           = "Could not link student. Contact admin."
	msgLoginFieldsRequired  = "Student name and phone number are required"
	msgLoginNoMatch         = "No student found with that name and phone number. Please check and try again."
	msgRateLimited          = "Rate limited, please try again later."
	msgPaymentRequired      = "Payment required."
	msgGatewayError         = "AI gateway error"
	msgAdminsOnly           = "Only admins can manage staff"
	msgNoAccountForEmail    = "No account found with this email. The user must sign up first."
	msgRoleExists           = "This user already has this role."
	msgCannotRemoveYourself = "Cannot remove yourself"
)
