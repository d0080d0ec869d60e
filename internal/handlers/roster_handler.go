package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/school-portal-service/internal/services"
	"github.com/SAP-F-2025/school-portal-service/internal/utils"
)

// maxRosterUpload bounds the uploaded workbook size
const maxRosterUpload = 5 << 20

type RosterHandler struct {
	BaseHandler
	service services.RosterService
}

func NewRosterHandler(service services.RosterService, logger utils.Logger) *RosterHandler {
	return &RosterHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ImportStudents adds students to a class from an uploaded xlsx workbook
// @Summary Import class roster
// @Tags roster
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Class ID"
// @Param file formData file true "xlsx workbook: name, roll number, phone, guardian"
// @Success 200 {object} models.RosterImportResult
// @Failure 400 {object} ErrorResponse "Missing or unreadable file"
// @Failure 404 {object} ErrorResponse "Class not found"
// @Router /classes/{id}/roster/import [post]
func (h *RosterHandler) ImportStudents(c *gin.Context) {
	h.LogRequest(c, "Importing roster", "class_id", c.Param("id"))

	importedBy, ok := h.requireUserID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRosterUpload)
	header, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_request", "A workbook must be uploaded in the file field", nil)
		return
	}
	file, err := header.Open()
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_request", "Could not read the uploaded file", nil)
		return
	}
	defer file.Close()

	result, err := h.service.ImportStudents(c.Request.Context(), importedBy, c.Param("id"), file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportRoster downloads the class roster as a spreadsheet
// @Summary Export class roster
// @Tags roster
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Class ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse "Class not found"
// @Router /classes/{id}/roster/export [get]
func (h *RosterHandler) ExportRoster(c *gin.Context) {
	classID := c.Param("id")
	data, err := h.service.ExportRoster(c.Request.Context(), classID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="roster-%s.xlsx"`, classID))
	c.Data(http.StatusOK, xlsxContentType, data)
}
