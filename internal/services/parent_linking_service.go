package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/cache"
	"github.com/SAP-F-2025/school-portal-service/internal/events"
	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
	"github.com/SAP-F-2025/school-portal-service/internal/validator"
)

type ParentLinkingConfig struct {
	ViewCacheTTL       time.Duration
	AggregationTimeout time.Duration
}

type parentLinkingService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	cache     *cache.CacheManager
	events    events.EventPublisher
	config    ParentLinkingConfig
}

func NewParentLinkingService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator,
	cm *cache.CacheManager, publisher events.EventPublisher, config ParentLinkingConfig) ParentLinkingService {
	if cm == nil {
		cm = cache.NewCacheManager(nil)
	}
	return &parentLinkingService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		cache:     cm,
		events:    publisher,
		config:    config,
	}
}

// ===== LINKING =====

func (s *parentLinkingService) FindAndLink(ctx context.Context, parentID, classID, nameQuery string) (*AggregationResult, error) {
	req := &models.ParentLinkRequest{
		ClassID:     strings.TrimSpace(classID),
		StudentName: strings.TrimSpace(nameQuery),
	}
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}
	if parentID == "" {
		return nil, newServiceError(ErrUnauthorized, "Parent account required")
	}

	student, err := s.repo.Student().FindInClassByName(ctx, nil, req.ClassID, req.StudentName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newServiceError(ErrNotFound, msgStudentNotFound)
		}
		return nil, fmt.Errorf("failed to find student: %w", err)
	}

	affected, err := s.repo.Student().LinkParent(ctx, nil, student.ID, parentID)
	if err != nil {
		s.logger.Error("Failed to link parent", "student_id", student.ID, "parent_id", parentID, "error", err)
		return nil, wrapServiceError(ErrLinkFailed, msgLinkFailed, err)
	}

	if affected == 0 {
		exists, err := s.repo.Student().Exists(ctx, nil, student.ID)
		if err != nil {
			return nil, wrapServiceError(ErrLinkFailed, msgLinkFailed, err)
		}
		if !exists {
			return nil, newServiceError(ErrNotFound, msgStudentNotFound)
		}
		s.logger.Info("Link refused, student already linked", "student_id", student.ID, "parent_id", parentID)
		return nil, newServiceError(ErrAlreadyLinked, msgAlreadyLinked)
	}

	student.ParentUserID = &parentID
	cache.InvalidateStudentCache(ctx, s.cache, student.ID, parentID)

	linked := events.StudentLinkedEvent{StudentID: student.ID, ParentID: parentID, Method: "class_search"}
	if student.ClassID != nil {
		linked.ClassID = *student.ClassID
	}
	events.PublishSafe(ctx, s.events, s.logger, events.TypeStudentLinked, linked)

	s.logger.Info("Parent linked to student", "student_id", student.ID, "parent_id", parentID)

	return s.Aggregate(ctx, *student)
}

func (s *parentLinkingService) ResolveByNameAndPhone(ctx context.Context, name, phone string) (*AggregationResult, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, newServiceError(ErrValidationFailed, msgLoginFieldsRequired)
	}

	student, err := s.repo.Student().FindByNameAndPhone(ctx, nil, name, phone)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newServiceError(ErrNotFound, msgLoginNoMatch)
		}
		return nil, fmt.Errorf("failed to resolve student: %w", err)
	}

	return s.Aggregate(ctx, *student)
}

// ===== PARENT DASHBOARD =====

func (s *parentLinkingService) LinkedChildren(ctx context.Context, parentID string) ([]models.Student, error) {
	var children []models.Student
	err := s.cache.Children.CacheOrExecute(ctx, cache.ChildrenKey(parentID), &children, cache.ChildrenCacheConfig.TTL,
		func() (interface{}, error) {
			students, err := s.repo.Student().ListByParent(ctx, nil, parentID)
			if err != nil {
				return nil, fmt.Errorf("failed to list children: %w", err)
			}
			if students == nil {
				students = []models.Student{}
			}
			return students, nil
		})
	if err != nil {
		return nil, err
	}
	return children, nil
}

func (s *parentLinkingService) ChildView(ctx context.Context, parentID, studentID string) (*AggregationResult, error) {
	student, err := s.repo.Student().GetByID(ctx, nil, studentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newServiceError(ErrNotFound, msgStudentNotFound)
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student.ParentUserID == nil || *student.ParentUserID != parentID {
		return nil, newServiceError(ErrForbidden, "This student is not linked to your account.")
	}
	return s.Aggregate(ctx, *student)
}

// ===== AGGREGATION =====

func (s *parentLinkingService) Aggregate(ctx context.Context, student models.Student) (*AggregationResult, error) {
	var cached models.AggregatedChildView
	if err := s.cache.ChildView.Get(ctx, student.ID, &cached); err == nil {
		return &AggregationResult{View: cached}, nil
	}

	result, err := s.aggregate(ctx, student)
	if err != nil {
		return nil, err
	}

	// Partial views are never cached so the next request retries the failed fetches
	if !result.PartialData() {
		if err := s.cache.ChildView.Set(ctx, student.ID, result.View, s.viewTTL()); err != nil {
			s.logger.Warn("Failed to cache child view", "student_id", student.ID, "error", err)
		}
	}

	return result, nil
}

func (s *parentLinkingService) viewTTL() time.Duration {
	if s.config.ViewCacheTTL > 0 {
		return s.config.ViewCacheTTL
	}
	return cache.ChildViewCacheConfig.TTL
}

// aggregate runs the five fetches concurrently. A failed fetch leaves its
// collection empty and is reported, the others still complete.
func (s *parentLinkingService) aggregate(ctx context.Context, student models.Student) (*AggregationResult, error) {
	if s.config.AggregationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.AggregationTimeout)
		defer cancel()
	}

	view := models.EmptyChildView(student)
	kinds := []models.FetchKind{
		models.FetchAttendance,
		models.FetchFees,
		models.FetchMarks,
		models.FetchRemarks,
		models.FetchHomework,
	}
	fetches := []func(context.Context) error{
		func(ctx context.Context) error {
			rows, err := s.repo.Attendance().ListRecentByStudent(ctx, nil, student.ID, models.AttendanceViewLimit)
			if err == nil && rows != nil {
				view.Attendance = rows
			}
			return err
		},
		func(ctx context.Context) error {
			rows, err := s.repo.Fee().ListByStudent(ctx, nil, student.ID)
			if err == nil && rows != nil {
				view.Fees = rows
			}
			return err
		},
		func(ctx context.Context) error {
			rows, err := s.repo.Mark().ListByStudent(ctx, nil, student.ID)
			if err == nil && rows != nil {
				view.Marks = rows
			}
			return err
		},
		func(ctx context.Context) error {
			rows, err := s.repo.Remark().ListByStudent(ctx, nil, student.ID)
			if err == nil && rows != nil {
				view.Remarks = rows
			}
			return err
		},
		func(ctx context.Context) error {
			// Homework is keyed by class; unassigned students have none
			if student.ClassID == nil || *student.ClassID == "" {
				return nil
			}
			rows, err := s.repo.Homework().ListByClass(ctx, nil, *student.ClassID)
			if err == nil && rows != nil {
				view.Homework = rows
			}
			return err
		},
	}

	failed := make([]error, len(fetches))
	var wg sync.WaitGroup
	wg.Add(len(fetches))
	for i, fetch := range fetches {
		go func(i int, fetch func(context.Context) error) {
			defer wg.Done()
			failed[i] = fetch(ctx)
		}(i, fetch)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &AggregationResult{View: view}
	for i, err := range failed {
		if err != nil {
			s.logger.Warn("Child view fetch failed", "student_id", student.ID, "collection", kinds[i], "error", err)
			result.PartialFailures = append(result.PartialFailures, kinds[i])
		}
	}

	return result, nil
}
