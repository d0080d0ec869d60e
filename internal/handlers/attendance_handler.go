package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/services"
	"github.com/SAP-F-2025/school-portal-service/internal/utils"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type AttendanceHandler struct {
	BaseHandler
	service services.AttendanceService
}

func NewAttendanceHandler(service services.AttendanceService, logger utils.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetDay returns the class roster and the statuses recorded for a day
// @Summary Get attendance for a class day
// @Tags attendance
// @Produce json
// @Param id path string true "Class ID"
// @Param date query string false "Day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} models.AttendanceDayResponse
// @Failure 400 {object} ErrorResponse "Invalid date"
// @Failure 404 {object} ErrorResponse "Class not found"
// @Router /classes/{id}/attendance [get]
func (h *AttendanceHandler) GetDay(c *gin.Context) {
	date, ok := h.parseDay(c, c.Query("date"))
	if !ok {
		return
	}

	day, err := h.service.GetDay(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, day)
}

// SaveDay replaces the statuses of the submitted students for one day
// @Summary Save attendance for a class day
// @Tags attendance
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param request body models.AttendanceSaveRequest true "Day and entries"
// @Success 200 {object} models.AttendanceDayResponse
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 404 {object} ErrorResponse "Class not found"
// @Router /classes/{id}/attendance [put]
func (h *AttendanceHandler) SaveDay(c *gin.Context) {
	h.LogRequest(c, "Saving attendance", "class_id", c.Param("id"))

	markedBy, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req models.AttendanceSaveRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Date == "" {
		req.Date = c.Query("date")
	}

	classID := c.Param("id")
	if err := h.service.SaveDay(c.Request.Context(), markedBy, classID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	date, _ := time.Parse(dateLayout, req.Date)
	day, err := h.service.GetDay(c.Request.Context(), classID, date)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, day)
}

// ExportMonth downloads a month of attendance as a spreadsheet
// @Summary Export monthly attendance
// @Tags attendance
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Class ID"
// @Param month query string false "Month (YYYY-MM), defaults to the current month"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse "Invalid month"
// @Failure 404 {object} ErrorResponse "Class not found"
// @Router /classes/{id}/attendance/export [get]
func (h *AttendanceHandler) ExportMonth(c *gin.Context) {
	month := time.Now().UTC()
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.Parse(monthLayout, raw)
		if err != nil {
			h.respondError(c, http.StatusBadRequest, "invalid_request", "month must be YYYY-MM", nil)
			return
		}
		month = parsed
	}

	classID := c.Param("id")
	data, err := h.service.ExportMonth(c.Request.Context(), classID, month)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("attendance-%s-%s.xlsx", classID, month.Format(monthLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *AttendanceHandler) parseDay(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD", nil)
		return time.Time{}, false
	}
	return date, true
}
