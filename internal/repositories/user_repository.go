package repositories

import (
	"context"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
)

// UserRepository reads identities from the auth provider. The portal does not own user data.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
}
