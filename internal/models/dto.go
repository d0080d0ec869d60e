package models

import (
	"time"
)

// ===== PARENT =====

type ParentLinkRequest struct {
	ClassID     string `json:"class_id" validate:"required"`
	StudentName string `json:"student_name" validate:"required,max=200"`
}

// ParentLoginRequest is validated by the service so the missing-field message
// matches what the login page shows
type ParentLoginRequest struct {
	StudentName string `json:"student_name"`
	Phone       string `json:"phone"`
}

type ChildViewResponse struct {
	AggregatedChildView
	PartialFailures []FetchKind `json:"partial_failures,omitempty"`
}

// ===== CHAT =====

type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
}

// ===== ATTENDANCE =====

type AttendanceEntry struct {
	StudentID string           `json:"student_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required,attendance_status"`
}

type AttendanceSaveRequest struct {
	Date    string            `json:"date" validate:"required,datetime=2006-01-02"`
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

type AttendanceDayResponse struct {
	ClassID  string                      `json:"class_id"`
	Date     string                      `json:"date"`
	Students []Student                   `json:"students"`
	Statuses map[string]AttendanceStatus `json:"statuses"`
}

// ===== STAFF =====

type StaffAddRequest struct {
	Email string   `json:"email" validate:"required,email"`
	Role  UserRole `json:"role" validate:"required,staff_role"`
}

type StaffMember struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Role     UserRole  `json:"role"`
	Email    string    `json:"email,omitempty"`
	FullName string    `json:"full_name,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// ===== ROSTER =====

type RosterImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// ===== COMMON =====

type ErrorResponse struct {
	Error     string      `json:"error"`
	Message   string      `json:"message,omitempty"`
	Code      string      `json:"code,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Path      string      `json:"path,omitempty"`
}

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
