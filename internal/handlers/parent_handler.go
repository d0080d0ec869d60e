package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/services"
	"github.com/SAP-F-2025/school-portal-service/internal/utils"
)

// partialDataHeader flags a child view with collections that failed to load
const partialDataHeader = "X-Partial-Data"

type ParentHandler struct {
	BaseHandler
	service services.ParentLinkingService
}

func NewParentHandler(service services.ParentLinkingService, logger utils.Logger) *ParentHandler {
	return &ParentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Login resolves a student by name and phone without linking anything
// @Summary Parent login by student name and phone
// @Tags parent
// @Accept json
// @Produce json
// @Param apikey header string true "Public API key"
// @Param request body models.ParentLoginRequest true "Student name and phone"
// @Success 200 {object} models.ChildViewResponse
// @Failure 400 {object} ErrorResponse "Missing fields"
// @Failure 404 {object} ErrorResponse "No matching student"
// @Router /parent/login [post]
func (h *ParentHandler) Login(c *gin.Context) {
	h.LogRequest(c, "Parent login")

	var req models.ParentLoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.ResolveByNameAndPhone(c.Request.Context(), req.StudentName, req.Phone)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.writeChildView(c, http.StatusOK, result)
}

// Link binds the best matching student in a class to the signed-in parent
// @Summary Link a child to the parent account
// @Tags parent
// @Accept json
// @Produce json
// @Param request body models.ParentLinkRequest true "Class and student name"
// @Success 200 {object} models.ChildViewResponse
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 404 {object} ErrorResponse "Student not found"
// @Failure 409 {object} ErrorResponse "Already linked"
// @Router /parent/link [post]
func (h *ParentHandler) Link(c *gin.Context) {
	h.LogRequest(c, "Linking child")

	parentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req models.ParentLinkRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.FindAndLink(c.Request.Context(), parentID, req.ClassID, req.StudentName)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.writeChildView(c, http.StatusOK, result)
}

// Children lists the students linked to the signed-in parent
// @Summary List linked children
// @Tags parent
// @Produce json
// @Success 200 {array} models.Student
// @Router /parent/children [get]
func (h *ParentHandler) Children(c *gin.Context) {
	parentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	children, err := h.service.LinkedChildren(c.Request.Context(), parentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, children)
}

// ChildView returns the aggregated view of one linked child
// @Summary Get a linked child's records
// @Tags parent
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} models.ChildViewResponse
// @Failure 403 {object} ErrorResponse "Not your child"
// @Failure 404 {object} ErrorResponse "Student not found"
// @Router /parent/children/{id} [get]
func (h *ParentHandler) ChildView(c *gin.Context) {
	parentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.service.ChildView(c.Request.Context(), parentID, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.writeChildView(c, http.StatusOK, result)
}

func (h *ParentHandler) writeChildView(c *gin.Context, status int, result *services.AggregationResult) {
	if result.PartialData() {
		c.Header(partialDataHeader, "true")
		utils.GetLogger(c, h.logger).Warn("Serving partial child view",
			"student_id", result.View.Student.ID, "failed", result.PartialFailures)
	}
	c.JSON(status, result.Response())
}
