package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/cache"
	"github.com/SAP-F-2025/school-portal-service/internal/events"
	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
	"github.com/SAP-F-2025/school-portal-service/internal/validator"
)

// Roster sheet columns, in order
const (
	rosterColName = iota
	rosterColRollNumber
	rosterColPhone
	rosterColGuardian
)

var rosterHeader = []interface{}{"Name", "Roll No", "Phone", "Guardian", "Parent Linked"}

type rosterService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	cache     *cache.CacheManager
	events    events.EventPublisher
}

func NewRosterService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator,
	cm *cache.CacheManager, publisher events.EventPublisher) RosterService {
	if cm == nil {
		cm = cache.NewCacheManager(nil)
	}
	return &rosterService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		cache:     cm,
		events:    publisher,
	}
}

// ImportStudents reads the first sheet of an xlsx workbook. Row problems are
// reported in the result and never abort the import.
func (s *rosterService) ImportStudents(ctx context.Context, importedBy, classID string, workbook io.Reader) (*models.RosterImportResult, error) {
	if err := s.requireClass(ctx, classID); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(workbook)
	if err != nil {
		return nil, wrapServiceError(ErrValidationFailed, "Could not read the spreadsheet", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, newServiceError(ErrValidationFailed, "The spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, wrapServiceError(ErrValidationFailed, "Could not read the spreadsheet", err)
	}

	existing, err := s.repo.Student().ListByClass(ctx, nil, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list class students: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, st := range existing {
		known[rosterKey(st.Name, derefString(st.RollNumber))] = true
	}

	result := &models.RosterImportResult{}
	var rowErrs *multierror.Error
	var students []*models.Student

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		line := i + 1

		name := cell(row, rosterColName)
		if name == "" {
			result.Skipped++
			continue
		}
		roll := cell(row, rosterColRollNumber)
		phone := cell(row, rosterColPhone)
		guardian := cell(row, rosterColGuardian)

		if phone != "" && !validator.IsPhone(phone) {
			rowErrs = multierror.Append(rowErrs, fmt.Errorf("row %d: invalid phone number %q", line, phone))
			continue
		}
		key := rosterKey(name, roll)
		if known[key] {
			rowErrs = multierror.Append(rowErrs, fmt.Errorf("row %d: %s is already on the roster", line, name))
			continue
		}
		known[key] = true

		students = append(students, &models.Student{
			Name:         name,
			ClassID:      &classID,
			RollNumber:   optional(roll),
			Phone:        optional(phone),
			GuardianName: optional(guardian),
		})
	}

	if len(students) > 0 {
		err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			return tx.Student().CreateBatch(ctx, nil, students)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to import students: %w", err)
		}
	}

	result.Created = len(students)
	if rowErrs != nil {
		for _, e := range rowErrs.Errors {
			result.Errors = append(result.Errors, e.Error())
		}
	}

	ids := make([]string, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	cache.SafeInvalidatePattern(ctx, s.cache.Attendance, cache.AttendanceDayKey(classID, "*"))
	if len(ids) > 0 {
		events.PublishSafe(ctx, s.events, s.logger, events.TypeRosterImported, events.RosterImportedEvent{
			ClassID:    classID,
			StudentIDs: ids,
			ImportedBy: importedBy,
		})
	}

	s.logger.Info("Roster imported", "class_id", classID, "created", result.Created,
		"skipped", result.Skipped, "errors", len(result.Errors), "imported_by", importedBy)

	return result, nil
}

func (s *rosterService) ExportRoster(ctx context.Context, classID string) ([]byte, error) {
	if err := s.requireClass(ctx, classID); err != nil {
		return nil, err
	}

	students, err := s.repo.Student().ListByClass(ctx, nil, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list class students: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	const sheet = "Roster"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	header := rosterHeader
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, st := range students {
		linked := "No"
		if st.IsLinked() {
			linked = "Yes"
		}
		row := []interface{}{
			st.Name,
			derefString(st.RollNumber),
			derefString(st.Phone),
			derefString(st.GuardianName),
			linked,
		}
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *rosterService) requireClass(ctx context.Context, classID string) error {
	if _, err := s.repo.Class().GetByID(ctx, nil, classID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return newServiceError(ErrNotFound, "Class not found")
		}
		return fmt.Errorf("failed to get class: %w", err)
	}
	return nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func rosterKey(name, roll string) string {
	return strings.ToLower(name) + "\x00" + strings.ToLower(roll)
}
