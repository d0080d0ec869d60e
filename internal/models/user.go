package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleParent  UserRole = "parent"
)

// IsStaff reports whether the role may use the admin console
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleTeacher
}

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleParent:
		return true
	}
	return false
}

// User is an identity resolved from Casdoor. It is never persisted by this service.
type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"size:100"`
	Email    string   `json:"email" gorm:"size:255"`
	Role     UserRole `json:"role" gorm:"-"`

	AvatarURL     *string `json:"avatar_url" gorm:"size:500"`
	EmailVerified bool    `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRoleAssignment grants an application role to a Casdoor user
type UserRoleAssignment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_roles_user_role"`
	Role      UserRole  `json:"role" gorm:"not null;size:20;uniqueIndex:idx_user_roles_user_role"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRoleAssignment) TableName() string {
	return "user_roles"
}

func (a *UserRoleAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
