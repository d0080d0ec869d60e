package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
)

type ClassPostgreSQL struct {
	baseRepository
}

func NewClassPostgreSQL(db *gorm.DB) repositories.ClassRepository {
	return &ClassPostgreSQL{baseRepository{db: db}}
}

func (c *ClassPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Class, error) {
	var class models.Class
	if err := c.getDB(tx).WithContext(ctx).Where("id = ?", id).First(&class).Error; err != nil {
		return nil, handleDBError(err, "get class by id")
	}
	return &class, nil
}

func (c *ClassPostgreSQL) List(ctx context.Context, tx *gorm.DB) ([]models.Class, error) {
	var classes []models.Class
	if err := c.getDB(tx).WithContext(ctx).Order("name ASC, section ASC").Find(&classes).Error; err != nil {
		return nil, handleDBError(err, "list classes")
	}
	return classes, nil
}
