package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/services"
	"github.com/SAP-F-2025/school-portal-service/internal/utils"
)

type StaffHandler struct {
	BaseHandler
	service services.StaffService
}

func NewStaffHandler(service services.StaffService, logger utils.Logger) *StaffHandler {
	return &StaffHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListStaff returns every admin and teacher role assignment
// @Summary List staff
// @Tags staff
// @Produce json
// @Success 200 {array} models.StaffMember
// @Failure 403 {object} ErrorResponse "Admins only"
// @Router /staff [get]
func (h *StaffHandler) ListStaff(c *gin.Context) {
	callerID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	staff, err := h.service.ListStaff(c.Request.Context(), callerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, staff)
}

// AddStaff grants a staff role to an existing account
// @Summary Add staff
// @Tags staff
// @Accept json
// @Produce json
// @Param request body models.StaffAddRequest true "Email and role"
// @Success 201 {object} models.StaffMember
// @Failure 400 {object} ErrorResponse "Validation failed or unknown email"
// @Failure 403 {object} ErrorResponse "Admins only"
// @Failure 409 {object} ErrorResponse "Role already held"
// @Router /staff [post]
func (h *StaffHandler) AddStaff(c *gin.Context) {
	h.LogRequest(c, "Adding staff")

	callerID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req models.StaffAddRequest
	if !h.bindJSON(c, &req) {
		return
	}

	member, err := h.service.AddStaff(c.Request.Context(), callerID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

// RemoveStaff revokes a role assignment
// @Summary Remove staff
// @Tags staff
// @Param id path string true "Role assignment ID"
// @Success 204
// @Failure 400 {object} ErrorResponse "Cannot remove yourself"
// @Failure 403 {object} ErrorResponse "Admins only"
// @Failure 404 {object} ErrorResponse "Role not found"
// @Router /staff/{id} [delete]
func (h *StaffHandler) RemoveStaff(c *gin.Context) {
	h.LogRequest(c, "Removing staff", "role_id", c.Param("id"))

	callerID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.service.RemoveStaff(c.Request.Context(), callerID, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
