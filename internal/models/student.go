package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Class struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name" gorm:"not null;size:100"`
	Section   *string   `json:"section" gorm:"size:20"`
	TeacherID *string   `json:"teacher_id" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
}

func (Class) TableName() string {
	return "classes"
}

type Subject struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name" gorm:"not null;size:100"`
	ClassID   *string   `json:"class_id" gorm:"type:uuid;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (Subject) TableName() string {
	return "subjects"
}

// Student is a roster entry. ParentUserID stays nil until the first
// successful parent link and is not changed afterwards.
type Student struct {
	ID           string          `json:"id" gorm:"primaryKey;type:uuid"`
	Name         string          `json:"name" gorm:"not null;size:200;index"`
	ClassID      *string         `json:"class_id" gorm:"type:uuid;index"`
	Phone        *string         `json:"phone" gorm:"size:20;index"`
	RollNumber   *string         `json:"roll_number" gorm:"size:20"`
	GuardianName *string         `json:"guardian_name" gorm:"size:200"`
	ParentUserID *string         `json:"parent_user_id" gorm:"size:255;index"`
	Address      *string         `json:"address" gorm:"type:text"`
	DateOfBirth  *datatypes.Date `json:"date_of_birth"`
	Gender       *string         `json:"gender" gorm:"size:20"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Class *Class `json:"class,omitempty" gorm:"foreignKey:ClassID"`
}

func (Student) TableName() string {
	return "students"
}

func (c *Class) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *Student) IsLinked() bool {
	return s.ParentUserID != nil && *s.ParentUserID != ""
}
