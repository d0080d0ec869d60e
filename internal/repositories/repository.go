package repositories

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when no row matches
var ErrNotFound = errors.New("record not found")

// Repository aggregates every repository used by the portal
type Repository interface {
	// School structure
	Class() ClassRepository
	Student() StudentRepository

	// Student records
	Attendance() AttendanceRepository
	Fee() FeeRepository
	Mark() MarkRepository
	Remark() RemarkRepository
	Homework() HomeworkRepository

	// Access control
	UserRole() UserRoleRepository

	// Identities (read-only, owned by Casdoor)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	CacheStats(ctx context.Context) (map[string]interface{}, error)
	Shutdown(ctx context.Context) error
}
