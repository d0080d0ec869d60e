package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
)

// Methods taking tx use it when non-nil and the repository's own connection otherwise.

type ClassRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Class, error)
	List(ctx context.Context, tx *gorm.DB) ([]models.Class, error)
}

type StudentRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error)
	Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error)

	// FindInClassByName matches class_id exactly and name as a case-insensitive
	// substring. Ties resolve by roll number, then name, then id.
	FindInClassByName(ctx context.Context, tx *gorm.DB, classID, nameQuery string) (*models.Student, error)

	// FindByNameAndPhone matches the whole name case-insensitively and the phone exactly
	FindByNameAndPhone(ctx context.Context, tx *gorm.DB, name, phone string) (*models.Student, error)

	// LinkParent sets parent_user_id only while it is still NULL and returns
	// the number of rows changed
	LinkParent(ctx context.Context, tx *gorm.DB, studentID, parentID string) (int64, error)

	ListByParent(ctx context.Context, tx *gorm.DB, parentID string) ([]models.Student, error)
	ListByClass(ctx context.Context, tx *gorm.DB, classID string) ([]models.Student, error)
	CreateBatch(ctx context.Context, tx *gorm.DB, students []*models.Student) error
}

type AttendanceRepository interface {
	// ListRecentByStudent returns the newest records first
	ListRecentByStudent(ctx context.Context, tx *gorm.DB, studentID string, limit int) ([]models.AttendanceRecord, error)
	ListByStudentsOnDate(ctx context.Context, tx *gorm.DB, studentIDs []string, date time.Time) ([]models.AttendanceRecord, error)
	ListByStudentsBetween(ctx context.Context, tx *gorm.DB, studentIDs []string, from, to time.Time) ([]models.AttendanceRecord, error)

	// ReplaceDay removes the day's rows for studentIDs and inserts records.
	// Run it inside WithTransaction so readers never see a half-saved day.
	ReplaceDay(ctx context.Context, tx *gorm.DB, studentIDs []string, date time.Time, records []models.AttendanceRecord) error
}

type FeeRepository interface {
	// ListByStudent orders by due date, latest first
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]models.Fee, error)
}

type MarkRepository interface {
	// ListByStudent joins the subject name
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]models.Mark, error)
}

type RemarkRepository interface {
	// ListByStudent orders by creation time, newest first
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]models.Remark, error)
}

type HomeworkRepository interface {
	// ListByClass orders by due date, latest first
	ListByClass(ctx context.Context, tx *gorm.DB, classID string) ([]models.Homework, error)
}

type UserRoleRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.UserRoleAssignment, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]models.UserRoleAssignment, error)
	ListByRoles(ctx context.Context, tx *gorm.DB, roles ...models.UserRole) ([]models.UserRoleAssignment, error)
	HasRole(ctx context.Context, tx *gorm.DB, userID string, role models.UserRole) (bool, error)
	Create(ctx context.Context, tx *gorm.DB, assignment *models.UserRoleAssignment) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}
