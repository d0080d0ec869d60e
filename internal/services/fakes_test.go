package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/school-portal-service/internal/cache"
	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories"
)

// Operation names understood by fakeRepository.failures and delays
const (
	opFindStudent  = "student.find"
	opLinkParent   = "student.link"
	opCreateBatch  = "student.create_batch"
	opAttendance   = "attendance.recent"
	opReplaceDay   = "attendance.replace_day"
	opFees         = "fees"
	opMarks        = "marks"
	opRemarks      = "remarks"
	opHomework     = "homework"
	opUserLookup   = "user.lookup"
	opRoleCreate   = "user_role.create"
	opRoleList     = "user_role.list"
	opWithTx       = "tx"
	opGetStudent   = "student.get"
)

// fakeRepository is an in-memory repositories.Repository for service tests
type fakeRepository struct {
	mu sync.Mutex

	classes    map[string]models.Class
	students   map[string]*models.Student
	attendance []models.AttendanceRecord
	fees       map[string][]models.Fee
	marks      map[string][]models.Mark
	remarks    map[string][]models.Remark
	homework   map[string][]models.Homework
	roles      []models.UserRoleAssignment
	users      map[string]*models.User

	failures map[string]error
	delays   map[string]time.Duration
	calls    map[string]int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		classes:  make(map[string]models.Class),
		students: make(map[string]*models.Student),
		fees:     make(map[string][]models.Fee),
		marks:    make(map[string][]models.Mark),
		remarks:  make(map[string][]models.Remark),
		homework: make(map[string][]models.Homework),
		users:    make(map[string]*models.User),
		failures: make(map[string]error),
		delays:   make(map[string]time.Duration),
		calls:    make(map[string]int),
	}
}

func (f *fakeRepository) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

func (f *fakeRepository) delayOn(op string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[op] = d
}

func (f *fakeRepository) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// step records the call, waits out any injected delay and returns any injected error
func (f *fakeRepository) step(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	d := f.delays[op]
	err := f.failures[op]
	f.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeRepository) addClass(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes[id] = models.Class{ID: id, Name: name}
}

func (f *fakeRepository) addStudent(s models.Student) *models.Student {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	stored := s
	f.students[s.ID] = &stored
	return &stored
}

func (f *fakeRepository) student(id string) *models.Student {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (f *fakeRepository) addUser(u models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = &u
}

func (f *fakeRepository) addRole(userID string, role models.UserRole) models.UserRoleAssignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := models.UserRoleAssignment{ID: uuid.NewString(), UserID: userID, Role: role, CreatedAt: time.Now()}
	f.roles = append(f.roles, a)
	return a
}

func (f *fakeRepository) Class() repositories.ClassRepository           { return fakeClasses{f} }
func (f *fakeRepository) Student() repositories.StudentRepository       { return fakeStudents{f} }
func (f *fakeRepository) Attendance() repositories.AttendanceRepository { return fakeAttendance{f} }
func (f *fakeRepository) Fee() repositories.FeeRepository               { return fakeFees{f} }
func (f *fakeRepository) Mark() repositories.MarkRepository             { return fakeMarks{f} }
func (f *fakeRepository) Remark() repositories.RemarkRepository         { return fakeRemarks{f} }
func (f *fakeRepository) Homework() repositories.HomeworkRepository     { return fakeHomework{f} }
func (f *fakeRepository) UserRole() repositories.UserRoleRepository     { return fakeUserRoles{f} }
func (f *fakeRepository) User() repositories.UserRepository             { return fakeUsers{f} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if err := f.step(ctx, opWithTx); err != nil {
		return err
	}
	return fn(f)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== CLASSES =====

type fakeClasses struct{ f *fakeRepository }

func (r fakeClasses) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Class, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	c, ok := r.f.classes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r fakeClasses) List(ctx context.Context, tx *gorm.DB) ([]models.Class, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	out := make([]models.Class, 0, len(r.f.classes))
	for _, c := range r.f.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ===== STUDENTS =====

type fakeStudents struct{ f *fakeRepository }

func (r fakeStudents) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error) {
	if err := r.f.step(ctx, opGetStudent); err != nil {
		return nil, err
	}
	if s := r.f.student(id); s != nil {
		loaded := r.withClass(*s)
		return &loaded, nil
	}
	return nil, repositories.ErrNotFound
}

func (r fakeStudents) Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	return r.f.student(id) != nil, nil
}

func (r fakeStudents) FindInClassByName(ctx context.Context, tx *gorm.DB, classID, nameQuery string) (*models.Student, error) {
	if err := r.f.step(ctx, opFindStudent); err != nil {
		return nil, err
	}
	matches := r.filter(func(s *models.Student) bool {
		return s.ClassID != nil && *s.ClassID == classID &&
			strings.Contains(strings.ToLower(s.Name), strings.ToLower(nameQuery))
	})
	if len(matches) == 0 {
		return nil, repositories.ErrNotFound
	}
	loaded := r.withClass(matches[0])
	return &loaded, nil
}

func (r fakeStudents) FindByNameAndPhone(ctx context.Context, tx *gorm.DB, name, phone string) (*models.Student, error) {
	if err := r.f.step(ctx, opFindStudent); err != nil {
		return nil, err
	}
	matches := r.filter(func(s *models.Student) bool {
		return strings.EqualFold(s.Name, name) && s.Phone != nil && *s.Phone == phone
	})
	if len(matches) == 0 {
		return nil, repositories.ErrNotFound
	}
	loaded := r.withClass(matches[0])
	return &loaded, nil
}

func (r fakeStudents) LinkParent(ctx context.Context, tx *gorm.DB, studentID, parentID string) (int64, error) {
	if err := r.f.step(ctx, opLinkParent); err != nil {
		return 0, err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	s, ok := r.f.students[studentID]
	if !ok || s.ParentUserID != nil {
		return 0, nil
	}
	pid := parentID
	s.ParentUserID = &pid
	return 1, nil
}

func (r fakeStudents) ListByParent(ctx context.Context, tx *gorm.DB, parentID string) ([]models.Student, error) {
	students := r.filter(func(s *models.Student) bool {
		return s.ParentUserID != nil && *s.ParentUserID == parentID
	})
	for i := range students {
		students[i] = r.withClass(students[i])
	}
	return students, nil
}

// withClass attaches the class row the way Preload("Class") does
func (r fakeStudents) withClass(s models.Student) models.Student {
	if s.ClassID == nil {
		return s
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if class, ok := r.f.classes[*s.ClassID]; ok {
		s.Class = &class
	}
	return s
}

func (r fakeStudents) ListByClass(ctx context.Context, tx *gorm.DB, classID string) ([]models.Student, error) {
	return r.filter(func(s *models.Student) bool {
		return s.ClassID != nil && *s.ClassID == classID
	}), nil
}

func (r fakeStudents) CreateBatch(ctx context.Context, tx *gorm.DB, students []*models.Student) error {
	if err := r.f.step(ctx, opCreateBatch); err != nil {
		return err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, s := range students {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		cp := *s
		r.f.students[s.ID] = &cp
	}
	return nil
}

// filter returns matching students ordered the way the SQL repository orders them
func (r fakeStudents) filter(match func(*models.Student) bool) []models.Student {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []models.Student
	for _, s := range r.f.students {
		if match(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.RollNumber != nil && b.RollNumber == nil:
			return true
		case a.RollNumber == nil && b.RollNumber != nil:
			return false
		case a.RollNumber != nil && *a.RollNumber != *b.RollNumber:
			return *a.RollNumber < *b.RollNumber
		case a.Name != b.Name:
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out
}

// ===== ATTENDANCE =====

type fakeAttendance struct{ f *fakeRepository }

func (r fakeAttendance) ListRecentByStudent(ctx context.Context, tx *gorm.DB, studentID string, limit int) ([]models.AttendanceRecord, error) {
	if err := r.f.step(ctx, opAttendance); err != nil {
		return nil, err
	}
	out := r.filter(func(a models.AttendanceRecord) bool { return a.StudentID == studentID })
	sort.Slice(out, func(i, j int) bool { return time.Time(out[i].Date).After(time.Time(out[j].Date)) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeAttendance) ListByStudentsOnDate(ctx context.Context, tx *gorm.DB, studentIDs []string, date time.Time) ([]models.AttendanceRecord, error) {
	ids := toSet(studentIDs)
	day := date.Format(dateLayout)
	return r.filter(func(a models.AttendanceRecord) bool {
		return ids[a.StudentID] && time.Time(a.Date).Format(dateLayout) == day
	}), nil
}

func (r fakeAttendance) ListByStudentsBetween(ctx context.Context, tx *gorm.DB, studentIDs []string, from, to time.Time) ([]models.AttendanceRecord, error) {
	ids := toSet(studentIDs)
	lo, hi := from.Format(dateLayout), to.Format(dateLayout)
	return r.filter(func(a models.AttendanceRecord) bool {
		d := time.Time(a.Date).Format(dateLayout)
		return ids[a.StudentID] && d >= lo && d <= hi
	}), nil
}

func (r fakeAttendance) ReplaceDay(ctx context.Context, tx *gorm.DB, studentIDs []string, date time.Time, records []models.AttendanceRecord) error {
	if err := r.f.step(ctx, opReplaceDay); err != nil {
		return err
	}
	ids := toSet(studentIDs)
	day := date.Format(dateLayout)

	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	kept := r.f.attendance[:0]
	for _, a := range r.f.attendance {
		if ids[a.StudentID] && time.Time(a.Date).Format(dateLayout) == day {
			continue
		}
		kept = append(kept, a)
	}
	for _, rec := range records {
		rec.ID = uuid.NewString()
		rec.Date = testDate(day)
		kept = append(kept, rec)
	}
	r.f.attendance = kept
	return nil
}

func (r fakeAttendance) filter(match func(models.AttendanceRecord) bool) []models.AttendanceRecord {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []models.AttendanceRecord
	for _, a := range r.f.attendance {
		if match(a) {
			out = append(out, a)
		}
	}
	return out
}

// ===== STUDENT RECORDS =====

type fakeFees struct{ f *fakeRepository }

func (r fakeFees) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]models.Fee, error) {
	if err := r.f.step(ctx, opFees); err != nil {
		return nil, err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return append([]models.Fee(nil), r.f.fees[studentID]...), nil
}

type fakeMarks struct{ f *fakeRepository }

func (r fakeMarks) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]models.Mark, error) {
	if err := r.f.step(ctx, opMarks); err != nil {
		return nil, err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return append([]models.Mark(nil), r.f.marks[studentID]...), nil
}

type fakeRemarks struct{ f *fakeRepository }

func (r fakeRemarks) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]models.Remark, error) {
	if err := r.f.step(ctx, opRemarks); err != nil {
		return nil, err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return append([]models.Remark(nil), r.f.remarks[studentID]...), nil
}

type fakeHomework struct{ f *fakeRepository }

func (r fakeHomework) ListByClass(ctx context.Context, tx *gorm.DB, classID string) ([]models.Homework, error) {
	if err := r.f.step(ctx, opHomework); err != nil {
		return nil, err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return append([]models.Homework(nil), r.f.homework[classID]...), nil
}

// ===== ACCESS CONTROL =====

type fakeUserRoles struct{ f *fakeRepository }

func (r fakeUserRoles) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.UserRoleAssignment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, a := range r.f.roles {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r fakeUserRoles) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]models.UserRoleAssignment, error) {
	if err := r.f.step(ctx, opRoleList); err != nil {
		return nil, err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []models.UserRoleAssignment
	for _, a := range r.f.roles {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r fakeUserRoles) ListByRoles(ctx context.Context, tx *gorm.DB, roles ...models.UserRole) ([]models.UserRoleAssignment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	wanted := make(map[models.UserRole]bool, len(roles))
	for _, role := range roles {
		wanted[role] = true
	}
	var out []models.UserRoleAssignment
	for _, a := range r.f.roles {
		if wanted[a.Role] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r fakeUserRoles) HasRole(ctx context.Context, tx *gorm.DB, userID string, role models.UserRole) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, a := range r.f.roles {
		if a.UserID == userID && a.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeUserRoles) Create(ctx context.Context, tx *gorm.DB, assignment *models.UserRoleAssignment) error {
	if err := r.f.step(ctx, opRoleCreate); err != nil {
		return err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = time.Now()
	r.f.roles = append(r.f.roles, *assignment)
	return nil
}

func (r fakeUserRoles) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for i, a := range r.f.roles {
		if a.ID == id {
			r.f.roles = append(r.f.roles[:i], r.f.roles[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

// ===== IDENTITIES =====

type fakeUsers struct{ f *fakeRepository }

func (r fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := r.f.step(ctx, opUserLookup); err != nil {
		return nil, err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if u, ok := r.f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := r.f.step(ctx, opUserLookup); err != nil {
		return nil, err
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, u := range r.f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r fakeUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.User
	for _, id := range ids {
		if u, ok := r.f.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ===== HELPERS =====

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func testDate(day string) datatypes.Date {
	t, err := time.Parse(dateLayout, day)
	if err != nil {
		panic(err)
	}
	return datatypes.Date(t)
}

func strPtr(s string) *string { return &s }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T) (*cache.CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewCacheManager(client), mr
}
