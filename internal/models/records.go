package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceHalfDay AttendanceStatus = "half-day"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceHalfDay:
		return true
	}
	return false
}

// AttendanceRecord holds at most one row per (student_id, date); the day
// save flow replaces rows instead of updating them.
type AttendanceRecord struct {
	ID        string           `json:"id" gorm:"primaryKey;type:uuid"`
	StudentID string           `json:"student_id" gorm:"type:uuid;not null;index:idx_attendance_student_date"`
	Date      datatypes.Date   `json:"date" gorm:"not null;index:idx_attendance_student_date"`
	Status    AttendanceStatus `json:"status" gorm:"not null;size:20"`
	MarkedBy  *string          `json:"marked_by" gorm:"size:255"`
	CreatedAt time.Time        `json:"created_at"`
}

func (AttendanceRecord) TableName() string {
	return "attendance"
}

type Fee struct {
	ID        string          `json:"id" gorm:"primaryKey;type:uuid"`
	StudentID string          `json:"student_id" gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	FeeType   string          `json:"fee_type" gorm:"not null;size:50"`
	DueDate   datatypes.Date  `json:"due_date" gorm:"not null"`
	Paid      bool            `json:"paid" gorm:"default:false"`
	PaidDate  *datatypes.Date `json:"paid_date"`
	CreatedBy *string         `json:"created_by" gorm:"size:255"`
	CreatedAt time.Time       `json:"created_at"`
}

func (Fee) TableName() string {
	return "fees"
}

// Mark is read joined with its subject so SubjectName is populated on reads only
type Mark struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	StudentID     string    `json:"student_id" gorm:"type:uuid;not null;index"`
	SubjectID     string    `json:"subject_id" gorm:"type:uuid;not null"`
	ExamType      string    `json:"exam_type" gorm:"not null;size:50"`
	MarksObtained float64   `json:"marks_obtained"`
	TotalMarks    float64   `json:"total_marks"`
	Grade         *string   `json:"grade" gorm:"size:5"`
	MarkedBy      *string   `json:"marked_by" gorm:"size:255"`
	CreatedAt     time.Time `json:"created_at"`

	SubjectName string `json:"subject_name" gorm:"->;-:migration"`
}

func (Mark) TableName() string {
	return "marks"
}

type Remark struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	StudentID string    `json:"student_id" gorm:"type:uuid;not null;index"`
	Remark    string    `json:"remark" gorm:"type:text;not null"`
	Type      string    `json:"type" gorm:"size:30"`
	CreatedBy *string   `json:"created_by" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
}

func (Remark) TableName() string {
	return "remarks"
}

type Homework struct {
	ID          string          `json:"id" gorm:"primaryKey;type:uuid"`
	ClassID     string          `json:"class_id" gorm:"type:uuid;not null;index"`
	SubjectID   *string         `json:"subject_id" gorm:"type:uuid"`
	Title       string          `json:"title" gorm:"not null;size:200"`
	Description *string         `json:"description" gorm:"type:text"`
	DueDate     *datatypes.Date `json:"due_date"`
	AssignedBy  *string         `json:"assigned_by" gorm:"size:255"`
	CreatedAt   time.Time       `json:"created_at"`

	SubjectName string `json:"subject_name,omitempty" gorm:"->;-:migration"`
}

func (Homework) TableName() string {
	return "homework"
}

func (r *AttendanceRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (f *Fee) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

func (m *Mark) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (r *Remark) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (h *Homework) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
