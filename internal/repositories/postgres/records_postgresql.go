package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
)

// ===== ATTENDANCE =====

type AttendancePostgreSQL struct {
	baseRepository
}

func NewAttendancePostgreSQL(db *gorm.DB) repositories.AttendanceRepository {
	return &AttendancePostgreSQL{baseRepository{db: db}}
}

func (a *AttendancePostgreSQL) ListRecentByStudent(ctx context.Context, tx *gorm.DB, studentID string, limit int) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	query := a.getDB(tx).WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, handleDBError(err, "list recent attendance")
	}
	return records, nil
}

func (a *AttendancePostgreSQL) ListByStudentsOnDate(ctx context.Context, tx *gorm.DB, studentIDs []string, date time.Time) ([]models.AttendanceRecord, error) {
	if len(studentIDs) == 0 {
		return []models.AttendanceRecord{}, nil
	}
	var records []models.AttendanceRecord
	err := a.getDB(tx).WithContext(ctx).
		Where("student_id IN ? AND date = ?", studentIDs, dateOnly(date)).
		Find(&records).Error
	if err != nil {
		return nil, handleDBError(err, "list attendance on date")
	}
	return records, nil
}

func (a *AttendancePostgreSQL) ListByStudentsBetween(ctx context.Context, tx *gorm.DB, studentIDs []string, from, to time.Time) ([]models.AttendanceRecord, error) {
	if len(studentIDs) == 0 {
		return []models.AttendanceRecord{}, nil
	}
	var records []models.AttendanceRecord
	err := a.getDB(tx).WithContext(ctx).
		Where("student_id IN ?", studentIDs).
		Where("date >= ? AND date <= ?", dateOnly(from), dateOnly(to)).
		Order("date ASC").
		Find(&records).Error
	if err != nil {
		return nil, handleDBError(err, "list attendance between dates")
	}
	return records, nil
}

func (a *AttendancePostgreSQL) ReplaceDay(ctx context.Context, tx *gorm.DB, studentIDs []string, date time.Time, records []models.AttendanceRecord) error {
	db := a.getDB(tx).WithContext(ctx)
	day := dateOnly(date)

	if len(studentIDs) > 0 {
		err := db.Where("student_id IN ? AND date = ?", studentIDs, day).
			Delete(&models.AttendanceRecord{}).Error
		if err != nil {
			return handleDBError(err, "delete attendance for day")
		}
	}
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		records[i].Date = day
	}
	if err := db.Create(&records).Error; err != nil {
		return handleDBError(err, "insert attendance for day")
	}
	return nil
}

// ===== FEES =====

type FeePostgreSQL struct {
	baseRepository
}

func NewFeePostgreSQL(db *gorm.DB) repositories.FeeRepository {
	return &FeePostgreSQL{baseRepository{db: db}}
}

func (f *FeePostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]models.Fee, error) {
	var fees []models.Fee
	err := f.getDB(tx).WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("due_date DESC").
		Find(&fees).Error
	if err != nil {
		return nil, handleDBError(err, "list fees")
	}
	return fees, nil
}

// ===== MARKS =====

type MarkPostgreSQL struct {
	baseRepository
}

func NewMarkPostgreSQL(db *gorm.DB) repositories.MarkRepository {
	return &MarkPostgreSQL{baseRepository{db: db}}
}

func (m *MarkPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]models.Mark, error) {
	var marks []models.Mark
	err := m.getDB(tx).WithContext(ctx).
		Table("marks m").
		Select("m.*, s.name AS subject_name").
		Joins("LEFT JOIN subjects s ON s.id = m.subject_id").
		Where("m.student_id = ?", studentID).
		Order("m.created_at DESC").
		Find(&marks).Error
	if err != nil {
		return nil, handleDBError(err, "list marks")
	}
	return marks, nil
}

// ===== REMARKS =====

type RemarkPostgreSQL struct {
	baseRepository
}

func NewRemarkPostgreSQL(db *gorm.DB) repositories.RemarkRepository {
	return &RemarkPostgreSQL{baseRepository{db: db}}
}

func (r *RemarkPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]models.Remark, error) {
	var remarks []models.Remark
	err := r.getDB(tx).WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&remarks).Error
	if err != nil {
		return nil, handleDBError(err, "list remarks")
	}
	return remarks, nil
}

// ===== HOMEWORK =====

type HomeworkPostgreSQL struct {
	baseRepository
}

func NewHomeworkPostgreSQL(db *gorm.DB) repositories.HomeworkRepository {
	return &HomeworkPostgreSQL{baseRepository{db: db}}
}

func (h *HomeworkPostgreSQL) ListByClass(ctx context.Context, tx *gorm.DB, classID string) ([]models.Homework, error) {
	var homework []models.Homework
	err := h.getDB(tx).WithContext(ctx).
		Table("homework h").
		Select("h.*, s.name AS subject_name").
		Joins("LEFT JOIN subjects s ON s.id = h.subject_id").
		Where("h.class_id = ?", classID).
		Order("h.due_date DESC NULLS LAST").
		Find(&homework).Error
	if err != nil {
		return nil, handleDBError(err, "list homework")
	}
	return homework, nil
}
