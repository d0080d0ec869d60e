package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
)

// AggregationResult is a child view plus the collections that could not be loaded
type AggregationResult struct {
	View            models.AggregatedChildView
	PartialFailures []models.FetchKind
}

// PartialData reports whether any collection failed to load
func (r *AggregationResult) PartialData() bool {
	return len(r.PartialFailures) > 0
}

// Response shapes the result for the HTTP layer
func (r *AggregationResult) Response() models.ChildViewResponse {
	return models.ChildViewResponse{
		AggregatedChildView: r.View,
		PartialFailures:     r.PartialFailures,
	}
}

type ParentLinkingService interface {
	// FindAndLink binds the best name match in a class to the parent, unless
	// another request already linked it
	FindAndLink(ctx context.Context, parentID, classID, nameQuery string) (*AggregationResult, error)

	// ResolveByNameAndPhone finds a student without binding anything
	ResolveByNameAndPhone(ctx context.Context, name, phone string) (*AggregationResult, error)

	LinkedChildren(ctx context.Context, parentID string) ([]models.Student, error)
	ChildView(ctx context.Context, parentID, studentID string) (*AggregationResult, error)
	Aggregate(ctx context.Context, student models.Student) (*AggregationResult, error)
}

type ChatService interface {
	// Stream sends every content delta to emit in order. An emit error stops the stream.
	Stream(ctx context.Context, messages []models.ChatMessage, emit func(delta string) error) error
}

type AttendanceService interface {
	GetDay(ctx context.Context, classID string, date time.Time) (*models.AttendanceDayResponse, error)
	SaveDay(ctx context.Context, markedBy, classID string, req *models.AttendanceSaveRequest) error
	ExportMonth(ctx context.Context, classID string, month time.Time) ([]byte, error)
}

type StaffService interface {
	AddStaff(ctx context.Context, callerID string, req *models.StaffAddRequest) (*models.StaffMember, error)
	ListStaff(ctx context.Context, callerID string) ([]models.StaffMember, error)
	RemoveStaff(ctx context.Context, callerID, roleID string) error

	// ResolveRole prefers a portal role assignment over the identity provider's role
	ResolveRole(ctx context.Context, userID string, fallback models.UserRole) (models.UserRole, error)
}

type RosterService interface {
	ImportStudents(ctx context.Context, importedBy, classID string, workbook io.Reader) (*models.RosterImportResult, error)
	ExportRoster(ctx context.Context, classID string) ([]byte, error)
}

// ServiceManager owns service construction and lifecycle
type ServiceManager interface {
	Initialize(ctx context.Context) error

	ParentLinking() ParentLinkingService
	Chat() ChatService
	Attendance() AttendanceService
	Staff() StaffService
	Roster() RosterService

	HealthCheck(ctx context.Context) error
	CacheStats(ctx context.Context) (map[string]interface{}, error)
	Shutdown(ctx context.Context) error
}
