package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
)

// ErrValidation is wrapped by every ValidationErrors value
var ErrValidation = errors.New("validation failed")

// Validator wraps go-playground/validator with the portal's rules
type Validator struct {
	validate *validator.Validate
}

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

func (ve ValidationErrors) Unwrap() error {
	return ErrValidation
}

// New creates a validator with custom rules registered
func New() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerBusinessRules()

	return v
}

// Validate checks struct tags and returns nil when s is valid
func (v *Validator) Validate(s interface{}) ValidationErrors {
	err := v.validate.Struct(s)
	if err != nil {
		return toValidationErrors(err)
	}
	return nil
}

// ValidateStruct is Validate with a plain error result
func (v *Validator) ValidateStruct(s interface{}) error {
	if errs := v.Validate(s); len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateAttendanceDay checks that every entry belongs to the class roster and
// that no student is marked twice
func (v *Validator) ValidateAttendanceDay(entries []models.AttendanceEntry, roster []models.Student) ValidationErrors {
	var errs ValidationErrors

	inClass := make(map[string]struct{}, len(roster))
	for _, s := range roster {
		inClass[s.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		field := fmt.Sprintf("entries[%d].student_id", i)
		if _, ok := inClass[e.StudentID]; !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "student is not in this class",
				Value:   e.StudentID,
				Rule:    "class_roster",
			})
			continue
		}
		if _, dup := seen[e.StudentID]; dup {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "student is marked more than once",
				Value:   e.StudentID,
				Rule:    "unique_per_day",
			})
			continue
		}
		seen[e.StudentID] = struct{}{}
	}

	return errs
}

// ValidateChatHistory requires the conversation to end with the user's turn
func (v *Validator) ValidateChatHistory(messages []models.ChatMessage) ValidationErrors {
	errs := v.Validate(&models.ChatRequest{Messages: messages})
	if len(errs) > 0 {
		return errs
	}

	if last := messages[len(messages)-1]; last.Role != models.ChatRoleUser {
		errs = append(errs, ValidationError{
			Field:   "messages",
			Message: "last message must come from the user",
			Value:   last.Role,
			Rule:    "business_logic",
		})
	}
	return errs
}

func (v *Validator) registerBusinessRules() {
	v.validate.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})

	// Staff may only be granted console roles
	v.validate.RegisterValidation("staff_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsStaff()
	})

	v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
}

// IsPhone accepts 7 to 15 digits with optional leading + and spaces or dashes
func IsPhone(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

func toValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	errs := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return errs
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have at least %s items or characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s items or characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must match the format %s", fe.Param())
	case "attendance_status":
		return "must be one of: present, absent, late, half-day"
	case "staff_role":
		return "must be admin or teacher"
	case "phone":
		return "must be a valid phone number"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
