package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
)

type UserRolePostgreSQL struct {
	baseRepository
}

func NewUserRolePostgreSQL(db *gorm.DB) repositories.UserRoleRepository {
	return &UserRolePostgreSQL{baseRepository{db: db}}
}

func (u *UserRolePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.UserRoleAssignment, error) {
	var assignment models.UserRoleAssignment
	if err := u.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, handleDBError(err, "get user role by id")
	}
	return &assignment, nil
}

func (u *UserRolePostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]models.UserRoleAssignment, error) {
	var assignments []models.UserRoleAssignment
	err := u.getDB(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, handleDBError(err, "list user roles")
	}
	return assignments, nil
}

func (u *UserRolePostgreSQL) ListByRoles(ctx context.Context, tx *gorm.DB, roles ...models.UserRole) ([]models.UserRoleAssignment, error) {
	var assignments []models.UserRoleAssignment
	query := u.getDB(tx).WithContext(ctx).Order("created_at DESC")
	if len(roles) > 0 {
		query = query.Where("role IN ?", roles)
	}
	if err := query.Find(&assignments).Error; err != nil {
		return nil, handleDBError(err, "list user roles by role")
	}
	return assignments, nil
}

func (u *UserRolePostgreSQL) HasRole(ctx context.Context, tx *gorm.DB, userID string, role models.UserRole) (bool, error) {
	var count int64
	err := u.getDB(tx).WithContext(ctx).
		Model(&models.UserRoleAssignment{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, handleDBError(err, "check user role")
	}
	return count > 0, nil
}

func (u *UserRolePostgreSQL) Create(ctx context.Context, tx *gorm.DB, assignment *models.UserRoleAssignment) error {
	if err := u.getDB(tx).WithContext(ctx).Create(assignment).Error; err != nil {
		return handleDBError(err, "create user role")
	}
	return nil
}

func (u *UserRolePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := u.getDB(tx).WithContext(ctx).Where("id = ?", id).Delete(&models.UserRoleAssignment{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete user role")
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
