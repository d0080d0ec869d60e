package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/services"
	"github.com/SAP-F-2025/school-portal-service/internal/utils"
)

const serviceName = "school-portal-service"

type HandlerManager struct {
	parentHandler     *ParentHandler
	chatHandler       *ChatHandler
	attendanceHandler *AttendanceHandler
	staffHandler      *StaffHandler
	rosterHandler     *RosterHandler
	authMiddleware    *CasdoorAuthMiddleware

	serviceManager    services.ServiceManager
	parentLoginAPIKey string
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	parentLoginAPIKey string,
) *HandlerManager {
	return &HandlerManager{
		parentHandler:     NewParentHandler(serviceManager.ParentLinking(), logger),
		chatHandler:       NewChatHandler(serviceManager.Chat(), logger),
		attendanceHandler: NewAttendanceHandler(serviceManager.Attendance(), logger),
		staffHandler:      NewStaffHandler(serviceManager.Staff(), logger),
		rosterHandler:     NewRosterHandler(serviceManager.Roster(), logger),
		authMiddleware:    authMiddleware,
		serviceManager:    serviceManager,
		parentLoginAPIKey: parentLoginAPIKey,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	v1 := router.Group("/api/v1")

	// Public parent login, guarded by the shared api key only
	v1.POST("/parent/login", APIKeyMiddleware(hm.parentLoginAPIKey), hm.parentHandler.Login)

	authed := v1.Group("")
	authed.Use(hm.authMiddleware.AuthMiddleware())
	{
		authed.POST("/chat", hm.chatHandler.Chat)

		parent := authed.Group("/parent")
		parent.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleParent))
		{
			parent.POST("/link", hm.parentHandler.Link)
			parent.GET("/children", hm.parentHandler.Children)
			parent.GET("/children/:id", hm.parentHandler.ChildView)
		}

		// Class administration - Teachers and Admins only
		classes := authed.Group("/classes/:id")
		classes.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin))
		{
			classes.GET("/attendance", hm.attendanceHandler.GetDay)
			classes.PUT("/attendance", hm.attendanceHandler.SaveDay)
			classes.GET("/attendance/export", hm.attendanceHandler.ExportMonth)

			classes.POST("/roster/import", hm.rosterHandler.ImportStudents)
			classes.GET("/roster/export", hm.rosterHandler.ExportRoster)
		}

		staff := authed.Group("/staff")
		staff.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			staff.GET("", hm.staffHandler.ListStaff)
			staff.POST("", hm.staffHandler.AddStaff)
			staff.DELETE("/:id", hm.staffHandler.RemoveStaff)
		}
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": serviceName,
			"error":   err.Error(),
		})
		return
	}

	// Cache problems degrade the report but never the status
	stats, err := hm.serviceManager.CacheStats(ctx)
	if err != nil {
		stats = map[string]interface{}{"error": err.Error()}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"cache":   stats,
	})
}
