package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
)

type StudentPostgreSQL struct {
	baseRepository
}

func NewStudentPostgreSQL(db *gorm.DB) repositories.StudentRepository {
	return &StudentPostgreSQL{baseRepository{db: db}}
}

// studentNameOrder is the deterministic tie-break for name searches
const studentNameOrder = "roll_number ASC NULLS LAST, name ASC, id ASC"

func (s *StudentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error) {
	var student models.Student
	err := s.getDB(tx).WithContext(ctx).
		Preload("Class").
		Where("id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, handleDBError(err, "get student by id")
	}
	return &student, nil
}

func (s *StudentPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	var count int64
	err := s.getDB(tx).WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, handleDBError(err, "check student exists")
	}
	return count > 0, nil
}

func (s *StudentPostgreSQL) FindInClassByName(ctx context.Context, tx *gorm.DB, classID, nameQuery string) (*models.Student, error) {
	var student models.Student
	err := s.getDB(tx).WithContext(ctx).
		Preload("Class").
		Where("class_id = ?", classID).
		Where("name ILIKE ?", containsPattern(nameQuery)).
		Order(studentNameOrder).
		Take(&student).Error
	if err != nil {
		return nil, handleDBError(err, "find student in class by name")
	}
	return &student, nil
}

func (s *StudentPostgreSQL) FindByNameAndPhone(ctx context.Context, tx *gorm.DB, name, phone string) (*models.Student, error) {
	var student models.Student
	err := s.getDB(tx).WithContext(ctx).
		Preload("Class").
		Where("name ILIKE ?", escapeLike(name)).
		Where("phone = ?", phone).
		Order(studentNameOrder).
		Take(&student).Error
	if err != nil {
		return nil, handleDBError(err, "find student by name and phone")
	}
	return &student, nil
}

func (s *StudentPostgreSQL) LinkParent(ctx context.Context, tx *gorm.DB, studentID, parentID string) (int64, error) {
	result := s.getDB(tx).WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ? AND parent_user_id IS NULL", studentID).
		Updates(map[string]interface{}{
			"parent_user_id": parentID,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return 0, handleDBError(result.Error, "link parent")
	}
	return result.RowsAffected, nil
}

func (s *StudentPostgreSQL) ListByParent(ctx context.Context, tx *gorm.DB, parentID string) ([]models.Student, error) {
	var students []models.Student
	err := s.getDB(tx).WithContext(ctx).
		Preload("Class").
		Where("parent_user_id = ?", parentID).
		Order("name ASC, id ASC").
		Find(&students).Error
	if err != nil {
		return nil, handleDBError(err, "list students by parent")
	}
	return students, nil
}

func (s *StudentPostgreSQL) ListByClass(ctx context.Context, tx *gorm.DB, classID string) ([]models.Student, error) {
	var students []models.Student
	err := s.getDB(tx).WithContext(ctx).
		Where("class_id = ?", classID).
		Order(studentNameOrder).
		Find(&students).Error
	if err != nil {
		return nil, handleDBError(err, "list students by class")
	}
	return students, nil
}

func (s *StudentPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, students []*models.Student) error {
	if len(students) == 0 {
		return nil
	}
	if err := s.getDB(tx).WithContext(ctx).CreateInBatches(students, 100).Error; err != nil {
		return handleDBError(err, "create students")
	}
	return nil
}
