package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// ChildrenKey is the cache key for a parent's linked children list
func ChildrenKey(parentID string) string {
	return parentID + ":children"
}

// AttendanceDayKey is the cache key for one class day
func AttendanceDayKey(classID, date string) string {
	return "class:" + classID + ":day:" + date
}

// InvalidateStudentCache drops the student's aggregated view and, when known,
// the linked children list of its parent
func InvalidateStudentCache(ctx context.Context, cm *CacheManager, studentID, parentID string) {
	SafeDelete(ctx, cm.ChildView, studentID)
	if parentID != "" {
		SafeDelete(ctx, cm.Children, ChildrenKey(parentID))
	}
}

// InvalidateAttendanceCache drops the cached day and the views of every student it touched
func InvalidateAttendanceCache(ctx context.Context, cm *CacheManager, classID, date string, studentIDs []string) {
	SafeDelete(ctx, cm.Attendance, AttendanceDayKey(classID, date))
	SafeDelete(ctx, cm.ChildView, studentIDs...)
}
