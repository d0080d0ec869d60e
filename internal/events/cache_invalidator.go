package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/SAP-F-2025/school-portal-service/internal/cache"
)

// CacheInvalidator drops cached views when other replicas report writes
type CacheInvalidator struct {
	bus    *Bus
	cache  *cache.CacheManager
	logger *slog.Logger
}

func NewCacheInvalidator(bus *Bus, cm *cache.CacheManager, logger *slog.Logger) *CacheInvalidator {
	return &CacheInvalidator{bus: bus, cache: cm, logger: logger}
}

func (ci *CacheInvalidator) Name() string { return "cache-invalidator" }

// Run consumes until ctx is cancelled
func (ci *CacheInvalidator) Run(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{}, ci.bus.Logger)
	if err != nil {
		return fmt.Errorf("failed to create event router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	router.AddNoPublisherHandler("invalidate_on_link", TypeStudentLinked, ci.bus.Subscriber, ci.handle)
	router.AddNoPublisherHandler("invalidate_on_attendance", TypeAttendanceSaved, ci.bus.Subscriber, ci.handle)
	router.AddNoPublisherHandler("invalidate_on_roster", TypeRosterImported, ci.bus.Subscriber, ci.handle)

	return router.Run(ctx)
}

func (ci *CacheInvalidator) handle(msg *message.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Poison message, acking it keeps the topic moving
		ci.logger.Warn("Dropping malformed event", "message_uuid", msg.UUID, "error", err)
		return nil
	}
	if err := ci.Apply(msg.Context(), event); err != nil {
		ci.logger.Warn("Dropping undecodable event", "type", event.Type, "event_id", event.ID, "error", err)
	}
	return nil
}

// Apply performs the invalidation for one event
func (ci *CacheInvalidator) Apply(ctx context.Context, event Event) error {
	switch event.Type {
	case TypeStudentLinked:
		var data StudentLinkedEvent
		if err := event.Decode(&data); err != nil {
			return err
		}
		cache.InvalidateStudentCache(ctx, ci.cache, data.StudentID, data.ParentID)

	case TypeAttendanceSaved:
		var data AttendanceSavedEvent
		if err := event.Decode(&data); err != nil {
			return err
		}
		cache.InvalidateAttendanceCache(ctx, ci.cache, data.ClassID, data.Date, data.StudentIDs)

	case TypeRosterImported:
		var data RosterImportedEvent
		if err := event.Decode(&data); err != nil {
			return err
		}
		cache.SafeInvalidatePattern(ctx, ci.cache.Attendance, cache.AttendanceDayKey(data.ClassID, "*"))

	default:
		ci.logger.DebugContext(ctx, "Ignoring event", "type", event.Type)
		return nil
	}

	ci.logger.DebugContext(ctx, "Cache invalidated", "type", event.Type, "event_id", event.ID)
	return nil
}
