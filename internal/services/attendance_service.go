package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/cache"
	"github.com/SAP-F-2025/school-portal-service/internal/events"
	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
	"github.com/SAP-F-2025/school-portal-service/internal/validator"
)

const dateLayout = "2006-01-02"

type attendanceService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	cache     *cache.CacheManager
	events    events.EventPublisher
}

func NewAttendanceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator,
	cm *cache.CacheManager, publisher events.EventPublisher) AttendanceService {
	if cm == nil {
		cm = cache.NewCacheManager(nil)
	}
	return &attendanceService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		cache:     cm,
		events:    publisher,
	}
}

func (s *attendanceService) GetDay(ctx context.Context, classID string, date time.Time) (*models.AttendanceDayResponse, error) {
	day := date.Format(dateLayout)

	var resp models.AttendanceDayResponse
	err := s.cache.Attendance.CacheOrExecute(ctx, cache.AttendanceDayKey(classID, day), &resp, cache.AttendanceCacheConfig.TTL,
		func() (interface{}, error) {
			roster, err := s.classRoster(ctx, s.repo, classID)
			if err != nil {
				return nil, err
			}

			records, err := s.repo.Attendance().ListByStudentsOnDate(ctx, nil, studentIDs(roster), date)
			if err != nil {
				return nil, fmt.Errorf("failed to load attendance: %w", err)
			}

			statuses := make(map[string]models.AttendanceStatus, len(records))
			for _, r := range records {
				statuses[r.StudentID] = r.Status
			}

			return &models.AttendanceDayResponse{
				ClassID:  classID,
				Date:     day,
				Students: roster,
				Statuses: statuses,
			}, nil
		})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *attendanceService) SaveDay(ctx context.Context, markedBy, classID string, req *models.AttendanceSaveRequest) error {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return errs
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return validator.ValidationErrors{{Field: "date", Message: "must be a date (YYYY-MM-DD)", Value: req.Date, Rule: "datetime"}}
	}

	var ids []string
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		roster, err := s.classRoster(ctx, tx, classID)
		if err != nil {
			return err
		}
		if errs := s.validator.ValidateAttendanceDay(req.Entries, roster); len(errs) > 0 {
			return errs
		}

		records := make([]models.AttendanceRecord, 0, len(req.Entries))
		for _, e := range req.Entries {
			records = append(records, models.AttendanceRecord{
				StudentID: e.StudentID,
				Status:    e.Status,
				MarkedBy:  &markedBy,
			})
		}

		// Only the submitted students are replaced; unmarked classmates keep their rows
		ids = make([]string, len(req.Entries))
		for i, e := range req.Entries {
			ids[i] = e.StudentID
		}
		if err := tx.Attendance().ReplaceDay(ctx, nil, ids, date, records); err != nil {
			return fmt.Errorf("failed to save attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateAttendanceCache(ctx, s.cache, classID, req.Date, ids)
	events.PublishSafe(ctx, s.events, s.logger, events.TypeAttendanceSaved, events.AttendanceSavedEvent{
		ClassID:    classID,
		Date:       req.Date,
		StudentIDs: ids,
		MarkedBy:   markedBy,
	})

	s.logger.Info("Attendance saved", "class_id", classID, "date", req.Date, "entries", len(ids), "marked_by", markedBy)
	return nil
}

func (s *attendanceService) ExportMonth(ctx context.Context, classID string, month time.Time) ([]byte, error) {
	roster, err := s.classRoster(ctx, s.repo, classID)
	if err != nil {
		return nil, err
	}

	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	records, err := s.repo.Attendance().ListByStudentsBetween(ctx, nil, studentIDs(roster), first, last)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}

	// status by student, then day of month
	grid := make(map[string]map[int]models.AttendanceStatus, len(roster))
	for _, r := range records {
		if grid[r.StudentID] == nil {
			grid[r.StudentID] = make(map[int]models.AttendanceStatus)
		}
		grid[r.StudentID][time.Time(r.Date).Day()] = r.Status
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	sheet := first.Format("Jan 2006")
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{"Roll No", "Name"}
	for d := 1; d <= last.Day(); d++ {
		header = append(header, d)
	}
	header = append(header, "Present")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, student := range roster {
		row := []interface{}{derefString(student.RollNumber), student.Name}
		present := 0
		for d := 1; d <= last.Day(); d++ {
			status, ok := grid[student.ID][d]
			if !ok {
				row = append(row, "")
				continue
			}
			if status == models.AttendancePresent || status == models.AttendanceLate {
				present++
			}
			row = append(row, statusCode(status))
		}
		row = append(row, present)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		lastCell, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(sheet, "A1", lastCell, style)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, XSplit: 2, YSplit: 1, TopLeftCell: "C2", ActivePane: "bottomRight"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *attendanceService) classRoster(ctx context.Context, repo repositories.Repository, classID string) ([]models.Student, error) {
	if _, err := repo.Class().GetByID(ctx, nil, classID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newServiceError(ErrNotFound, "Class not found")
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	roster, err := repo.Student().ListByClass(ctx, nil, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list class students: %w", err)
	}
	if roster == nil {
		roster = []models.Student{}
	}
	return roster, nil
}

func studentIDs(students []models.Student) []string {
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	return ids
}

func statusCode(status models.AttendanceStatus) string {
	switch status {
	case models.AttendancePresent:
		return "P"
	case models.AttendanceAbsent:
		return "A"
	case models.AttendanceLate:
		return "L"
	case models.AttendanceHalfDay:
		return "H"
	default:
		return string(status)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
