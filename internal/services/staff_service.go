package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
	"github.com/SAP-F-2025/school-portal-service/internal/validator"
)

type staffService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewStaffService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) StaffService {
	return &staffService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// rolePriority orders roles from strongest to weakest
var rolePriority = []models.UserRole{models.RoleAdmin, models.RoleTeacher, models.RoleParent}

func (s *staffService) ResolveRole(ctx context.Context, userID string, fallback models.UserRole) (models.UserRole, error) {
	assignments, err := s.repo.UserRole().ListByUser(ctx, nil, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user roles: %w", err)
	}

	held := make(map[models.UserRole]bool, len(assignments))
	for _, a := range assignments {
		held[a.Role] = true
	}
	for _, role := range rolePriority {
		if held[role] {
			return role, nil
		}
	}
	return fallback, nil
}

func (s *staffService) AddStaff(ctx context.Context, callerID string, req *models.StaffAddRequest) (*models.StaffMember, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}

	user, err := s.repo.User().GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newServiceError(ErrValidationFailed, msgNoAccountForEmail)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	exists, err := s.repo.UserRole().HasRole(ctx, nil, user.ID, req.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing role: %w", err)
	}
	if exists {
		return nil, newServiceError(ErrConflict, msgRoleExists)
	}

	assignment := &models.UserRoleAssignment{UserID: user.ID, Role: req.Role}
	if err := s.repo.UserRole().Create(ctx, nil, assignment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newServiceError(ErrConflict, msgRoleExists)
		}
		return nil, fmt.Errorf("failed to add staff role: %w", err)
	}

	s.logger.Info("Staff role granted", "user_id", user.ID, "role", req.Role, "granted_by", callerID)

	return &models.StaffMember{
		ID:       assignment.ID,
		UserID:   user.ID,
		Role:     assignment.Role,
		Email:    user.Email,
		FullName: user.FullName,
		AddedAt:  assignment.CreatedAt,
	}, nil
}

func (s *staffService) ListStaff(ctx context.Context, callerID string) ([]models.StaffMember, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	assignments, err := s.repo.UserRole().ListByRoles(ctx, nil, models.RoleAdmin, models.RoleTeacher)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}

	ids := make([]string, 0, len(assignments))
	seen := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}

	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		// Names are decoration; the list itself is still correct
		s.logger.Warn("Failed to resolve staff identities", "error", err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	staff := make([]models.StaffMember, 0, len(assignments))
	for _, a := range assignments {
		member := models.StaffMember{ID: a.ID, UserID: a.UserID, Role: a.Role, AddedAt: a.CreatedAt}
		if u, ok := byID[a.UserID]; ok {
			member.Email = u.Email
			member.FullName = u.FullName
		}
		staff = append(staff, member)
	}
	return staff, nil
}

func (s *staffService) RemoveStaff(ctx context.Context, callerID, roleID string) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}

	assignment, err := s.repo.UserRole().GetByID(ctx, nil, roleID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return newServiceError(ErrNotFound, "Staff role not found")
		}
		return fmt.Errorf("failed to get staff role: %w", err)
	}
	if assignment.UserID == callerID {
		return newServiceError(ErrValidationFailed, msgCannotRemoveYourself)
	}

	if err := s.repo.UserRole().Delete(ctx, nil, roleID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return newServiceError(ErrNotFound, "Staff role not found")
		}
		return fmt.Errorf("failed to remove staff role: %w", err)
	}

	s.logger.Info("Staff role revoked", "user_id", assignment.UserID, "role", assignment.Role, "revoked_by", callerID)
	return nil
}

// requireAdmin trusts portal role rows first and the identity provider otherwise
func (s *staffService) requireAdmin(ctx context.Context, callerID string) error {
	if callerID == "" {
		return newServiceError(ErrUnauthorized, "User not authenticated")
	}

	fallback := models.RoleParent
	if user, err := s.repo.User().GetByID(ctx, callerID); err == nil {
		fallback = user.Role
	}

	role, err := s.ResolveRole(ctx, callerID, fallback)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return newServiceError(ErrForbidden, msgAdminsOnly)
	}
	return nil
}
