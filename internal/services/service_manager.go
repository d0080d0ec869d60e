package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/cache"
	"github.com/SAP-F-2025/school-portal-service/internal/events"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
	"github.com/SAP-F-2025/school-portal-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	ParentLinking ParentLinkingConfig
	Chat          ChatConfig

	// ChatEnabled is false when no gateway key is configured
	ChatEnabled bool

	DefaultTimeout time.Duration
}

// Dependencies groups the shared infrastructure handed to every service
type Dependencies struct {
	DB        *gorm.DB
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Cache     *cache.CacheManager
	Events    events.EventPublisher

	// RepoManager is checked by HealthCheck and closed by Shutdown when set
	RepoManager repositories.RepositoryManager
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	parentLinkingService ParentLinkingService
	chatService          ChatService
	attendanceService    AttendanceService
	staffService         StaffService
	rosterService        RosterService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NewCacheManager(nil)
	}
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if sm.deps.Repo == nil || sm.deps.Logger == nil || sm.deps.Validator == nil {
		return fmt.Errorf("failed to initialize services: repository, logger and validator are required")
	}

	sm.deps.Logger.Info("Initializing service manager")
	d := sm.deps

	sm.parentLinkingService = NewParentLinkingService(d.Repo, d.DB, d.Logger, d.Validator, d.Cache, d.Events, sm.config.ParentLinking)
	sm.deps.Logger.Info("Parent linking service initialized")

	sm.attendanceService = NewAttendanceService(d.Repo, d.DB, d.Logger, d.Validator, d.Cache, d.Events)
	sm.deps.Logger.Info("Attendance service initialized")

	sm.staffService = NewStaffService(d.Repo, d.DB, d.Logger, d.Validator)
	sm.deps.Logger.Info("Staff service initialized")

	sm.rosterService = NewRosterService(d.Repo, d.DB, d.Logger, d.Validator, d.Cache, d.Events)
	sm.deps.Logger.Info("Roster service initialized")

	if sm.config.ChatEnabled {
		sm.chatService = NewChatService(d.Logger, d.Validator, sm.config.Chat)
		sm.deps.Logger.Info("Chat service initialized", "model", sm.config.Chat.Model)
	} else {
		sm.deps.Logger.Warn("Chat service disabled, no AI gateway key configured")
	}

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) ParentLinking() ParentLinkingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.parentLinkingService
}

// Chat returns nil when the gateway is not configured
func (sm *serviceManager) Chat() ChatService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.chatService
}

func (sm *serviceManager) Attendance() AttendanceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attendanceService
}

func (sm *serviceManager) Staff() StaffService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.staffService
}

func (sm *serviceManager) Roster() RosterService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.rosterService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if sm.config.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sm.config.DefaultTimeout)
		defer cancel()
	}

	if sm.deps.RepoManager != nil {
		if err := sm.deps.RepoManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("repository health check failed: %w", err)
		}
		return nil
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// CacheStats reports key counts per cache namespace
func (sm *serviceManager) CacheStats(ctx context.Context) (map[string]interface{}, error) {
	if sm.deps.RepoManager != nil {
		return sm.deps.RepoManager.CacheStats(ctx)
	}
	if sm.deps.Cache != nil {
		return sm.deps.Cache.Stats(ctx)
	}
	return map[string]interface{}{"cache_enabled": false}, nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.Events != nil {
		if err := sm.deps.Events.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if sm.deps.RepoManager != nil {
		if err := sm.deps.RepoManager.Shutdown(ctx); err != nil {
			sm.deps.Logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}
