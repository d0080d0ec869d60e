package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/services"
	"github.com/SAP-F-2025/school-portal-service/internal/utils"
)

const testAPIKey = "public-anon-key"

// Bearer tokens accepted by stubParser
const (
	parentToken  = "token-parent"
	teacherToken = "token-teacher"
	adminToken   = "token-admin"
)

type stubParser struct{}

func (stubParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	users := map[string]casdoorsdk.User{
		parentToken:  {Id: "parent-1", Email: "parent@school.test", Type: "normal-user"},
		teacherToken: {Id: "teacher-1", Email: "teacher@school.test", Type: "normal-user"},
		adminToken:   {Id: "admin-1", Email: "admin@school.test", Type: "normal-user"},
	}
	u, ok := users[token]
	if !ok {
		return nil, errors.New("token signature is invalid")
	}
	return &casdoorsdk.Claims{User: u}, nil
}

// stubRoles mirrors portal role rows
type stubRoles map[string]models.UserRole

func (r stubRoles) ResolveRole(ctx context.Context, userID string, fallback models.UserRole) (models.UserRole, error) {
	if role, ok := r[userID]; ok {
		return role, nil
	}
	return fallback, nil
}

// ===== SERVICES =====

type fakeParentService struct {
	resolve    func(name, phone string) (*services.AggregationResult, error)
	link       func(parentID, classID, name string) (*services.AggregationResult, error)
	children   func(parentID string) ([]models.Student, error)
	childView  func(parentID, studentID string) (*services.AggregationResult, error)
	lastParent string
}

func (f *fakeParentService) FindAndLink(ctx context.Context, parentID, classID, nameQuery string) (*services.AggregationResult, error) {
	f.lastParent = parentID
	return f.link(parentID, classID, nameQuery)
}

func (f *fakeParentService) ResolveByNameAndPhone(ctx context.Context, name, phone string) (*services.AggregationResult, error) {
	return f.resolve(name, phone)
}

func (f *fakeParentService) LinkedChildren(ctx context.Context, parentID string) ([]models.Student, error) {
	f.lastParent = parentID
	return f.children(parentID)
}

func (f *fakeParentService) ChildView(ctx context.Context, parentID, studentID string) (*services.AggregationResult, error) {
	return f.childView(parentID, studentID)
}

func (f *fakeParentService) Aggregate(ctx context.Context, student models.Student) (*services.AggregationResult, error) {
	return &services.AggregationResult{View: models.EmptyChildView(student)}, nil
}

type fakeChatService struct {
	stream func(ctx context.Context, messages []models.ChatMessage, emit func(string) error) error
}

func (f *fakeChatService) Stream(ctx context.Context, messages []models.ChatMessage, emit func(string) error) error {
	return f.stream(ctx, messages, emit)
}

type fakeAttendanceService struct {
	saved    *models.AttendanceSaveRequest
	markedBy string
	saveErr  error
	export   []byte
	month    time.Time
}

func (f *fakeAttendanceService) GetDay(ctx context.Context, classID string, date time.Time) (*models.AttendanceDayResponse, error) {
	if classID == "missing" {
		return nil, &services.ServiceError{Kind: services.ErrNotFound, Message: "Class not found"}
	}
	return &models.AttendanceDayResponse{
		ClassID:  classID,
		Date:     date.Format(dateLayout),
		Students: []models.Student{},
		Statuses: map[string]models.AttendanceStatus{},
	}, nil
}

func (f *fakeAttendanceService) SaveDay(ctx context.Context, markedBy, classID string, req *models.AttendanceSaveRequest) error {
	f.saved = req
	f.markedBy = markedBy
	return f.saveErr
}

func (f *fakeAttendanceService) ExportMonth(ctx context.Context, classID string, month time.Time) ([]byte, error) {
	f.month = month
	return f.export, nil
}

type fakeStaffService struct {
	added   *models.StaffAddRequest
	addErr  error
	removed string
}

func (f *fakeStaffService) AddStaff(ctx context.Context, callerID string, req *models.StaffAddRequest) (*models.StaffMember, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = req
	return &models.StaffMember{ID: "role-9", UserID: "user-9", Role: req.Role, Email: req.Email}, nil
}

func (f *fakeStaffService) ListStaff(ctx context.Context, callerID string) ([]models.StaffMember, error) {
	return []models.StaffMember{{ID: "role-1", UserID: callerID, Role: models.RoleAdmin}}, nil
}

func (f *fakeStaffService) RemoveStaff(ctx context.Context, callerID, roleID string) error {
	f.removed = roleID
	return nil
}

func (f *fakeStaffService) ResolveRole(ctx context.Context, userID string, fallback models.UserRole) (models.UserRole, error) {
	return fallback, nil
}

type fakeRosterService struct {
	uploaded string
}

func (f *fakeRosterService) ImportStudents(ctx context.Context, importedBy, classID string, workbook io.Reader) (*models.RosterImportResult, error) {
	raw, err := io.ReadAll(workbook)
	if err != nil {
		return nil, err
	}
	f.uploaded = string(raw)
	return &models.RosterImportResult{Created: 2, Skipped: 1, Errors: []string{"row 4: invalid phone number"}}, nil
}

func (f *fakeRosterService) ExportRoster(ctx context.Context, classID string) ([]byte, error) {
	return []byte("xlsx-bytes"), nil
}

type fakeServiceManager struct {
	parent     services.ParentLinkingService
	chat       services.ChatService
	attendance services.AttendanceService
	staff      services.StaffService
	roster     services.RosterService
	healthErr  error
	cacheStats map[string]interface{}
}

func (m *fakeServiceManager) Initialize(ctx context.Context) error         { return nil }
func (m *fakeServiceManager) ParentLinking() services.ParentLinkingService { return m.parent }
func (m *fakeServiceManager) Chat() services.ChatService                   { return m.chat }
func (m *fakeServiceManager) Attendance() services.AttendanceService       { return m.attendance }
func (m *fakeServiceManager) Staff() services.StaffService                 { return m.staff }
func (m *fakeServiceManager) Roster() services.RosterService               { return m.roster }
func (m *fakeServiceManager) HealthCheck(ctx context.Context) error        { return m.healthErr }
func (m *fakeServiceManager) Shutdown(ctx context.Context) error           { return nil }
func (m *fakeServiceManager) CacheStats(ctx context.Context) (map[string]interface{}, error) {
	return m.cacheStats, nil
}

// ===== ROUTER =====

type testServer struct {
	router     *gin.Engine
	parent     *fakeParentService
	attendance *fakeAttendanceService
	staff      *fakeStaffService
	roster     *fakeRosterService
	manager    *fakeServiceManager
}

func newTestServer(t *testing.T, chat services.ChatService) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := &testServer{
		parent:     &fakeParentService{},
		attendance: &fakeAttendanceService{},
		staff:      &fakeStaffService{},
		roster:     &fakeRosterService{},
	}
	ts.manager = &fakeServiceManager{
		parent:     ts.parent,
		chat:       chat,
		attendance: ts.attendance,
		staff:      ts.staff,
		roster:     ts.roster,
	}

	auth := NewCasdoorAuthMiddlewareWithParser(stubParser{}, nil, stubRoles{
		"teacher-1": models.RoleTeacher,
		"admin-1":   models.RoleAdmin,
	}, logger)

	ts.router = gin.New()
	SetupMiddleware(ts.router, logger)
	NewHandlerManager(ts.manager, logger, auth, testAPIKey).SetupRoutes(ts.router)
	return ts
}

func (ts *testServer) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func sampleResult(failures ...models.FetchKind) *services.AggregationResult {
	return &services.AggregationResult{
		View:            models.EmptyChildView(models.Student{ID: "stu-1", Name: "Aarav Sharma"}),
		PartialFailures: failures,
	}
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body %s", w.Code, want, w.Body.String())
	}
}
