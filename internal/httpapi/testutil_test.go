package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"academy/internal/apperr"
	"academy/internal/attendance"
	"academy/internal/auth"
	"academy/internal/config"
	"academy/internal/course"
	"academy/internal/enrollment"
	"academy/internal/user"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testCfg = config.App{
	JWTIssuer: "academy-test",
	JWTSecret: "test-secret",
	TokenTTL:  time.Hour,
}

// memStore is a shared in-memory database for handler tests; the fake
// repositories below give the same cross-entity view the SQL ones do.
type memStore struct {
	mu         sync.Mutex
	seq        int
	users      map[string]user.User
	courses    map[string]course.Course
	roster     map[string]map[string]bool
	requests   map[string]enrollment.Request
	decided    map[string]bool
	attendance map[string]attendance.Record
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[string]user.User),
		courses:    make(map[string]course.Course),
		roster:     make(map[string]map[string]bool),
		requests:   make(map[string]enrollment.Request),
		decided:    make(map[string]bool),
		attendance: make(map[string]attendance.Record),
	}
}

// tick hands out strictly increasing timestamps so newest-first ordering is
// deterministic. Callers must hold mu.
func (m *memStore) tick() time.Time {
	m.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(_ context.Context, usr user.User) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == usr.Email {
			return user.User{}, apperr.New(apperr.Conflict, "email already exists")
		}
	}
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	usr.CreatedAt = r.s.tick()
	r.s.users[usr.ID] = usr
	return usr, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, usr := range r.s.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, apperr.New(apperr.NotFound, "user not found")
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	usr, ok := r.s.users[id]
	if !ok {
		return user.User{}, apperr.New(apperr.NotFound, "user not found")
	}
	return usr, nil
}

func (r *memUserRepo) ListByRole(_ context.Context, role user.Role) ([]user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var users []user.User
	for _, usr := range r.s.users {
		if usr.Role == role {
			users = append(users, usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (r *memUserRepo) PromoteToTeacher(_ context.Context, studentID, courseID string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	usr, ok := r.s.users[studentID]
	if !ok {
		return user.User{}, apperr.New(apperr.NotFound, "student not found")
	}
	crs, ok := r.s.courses[courseID]
	if !ok {
		return user.User{}, apperr.New(apperr.NotFound, "course not found")
	}
	usr.Role = user.RoleTeacher
	r.s.users[studentID] = usr
	tid := studentID
	crs.TeacherID = &tid
	r.s.courses[courseID] = crs
	return usr, nil
}

type memCourseRepo struct{ s *memStore }

func (r *memCourseRepo) Create(_ context.Context, c course.Course) (course.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = r.s.tick()
	r.s.courses[c.ID] = c
	return c, nil
}

func (r *memCourseRepo) GetByID(_ context.Context, id string) (course.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	crs, ok := r.s.courses[id]
	if !ok {
		return course.Course{}, apperr.New(apperr.NotFound, "course not found")
	}
	return r.withTeacherName(crs), nil
}

func (r *memCourseRepo) Update(_ context.Context, id string, c course.Course) (course.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	crs, ok := r.s.courses[id]
	if !ok {
		return course.Course{}, apperr.New(apperr.NotFound, "course not found")
	}
	crs.Name, crs.Duration, crs.Description = c.Name, c.Duration, c.Description
	crs.StartDate, crs.EndDate = c.StartDate, c.EndDate
	r.s.courses[id] = crs
	return crs, nil
}

func (r *memCourseRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[id]; !ok {
		return apperr.New(apperr.NotFound, "course not found")
	}
	delete(r.s.courses, id)
	delete(r.s.roster, id)
	return nil
}

func (r *memCourseRepo) ListAll(_ context.Context) ([]course.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var courses []course.Course
	for _, crs := range r.s.courses {
		if crs.TeacherID != nil {
			courses = append(courses, r.withTeacherName(crs))
		}
	}
	return courses, nil
}

func (r *memCourseRepo) ListUnassigned(_ context.Context) ([]course.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var courses []course.Course
	for _, crs := range r.s.courses {
		if crs.TeacherID == nil {
			courses = append(courses, crs)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (r *memCourseRepo) ListByTeacher(_ context.Context, teacherID string) ([]course.TeacherCourse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var courses []course.TeacherCourse
	for _, crs := range r.s.courses {
		if crs.TeacherID == nil || *crs.TeacherID != teacherID {
			continue
		}
		tc := course.TeacherCourse{Course: crs, Students: []course.RosterEntry{}}
		for studentID := range r.s.roster[crs.ID] {
			tc.Students = append(tc.Students, course.RosterEntry{
				ID:   studentID,
				Name: r.s.users[studentID].Name,
			})
		}
		sort.Slice(tc.Students, func(i, j int) bool { return tc.Students[i].Name < tc.Students[j].Name })
		tc.EnrolledStudentsCount = len(tc.Students)
		courses = append(courses, tc)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (r *memCourseRepo) ListEnrolledByStudent(_ context.Context, studentID string) ([]course.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var courses []course.Course
	for courseID, students := range r.s.roster {
		if students[studentID] {
			crs := r.s.courses[courseID]
			if crs.TeacherID != nil {
				courses = append(courses, r.withTeacherName(crs))
			}
		}
	}
	return courses, nil
}

func (r *memCourseRepo) AssignTeacher(_ context.Context, courseID, teacherID string) (course.Course, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	crs, ok := r.s.courses[courseID]
	if !ok {
		return course.Course{}, apperr.New(apperr.NotFound, "course not found")
	}
	tid := teacherID
	crs.TeacherID = &tid
	r.s.courses[courseID] = crs
	return crs, nil
}

func (r *memCourseRepo) AddStudent(_ context.Context, courseID, studentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.addToRoster(courseID, studentID)
	return nil
}

func (r *memCourseRepo) RemoveStudent(_ context.Context, courseID, studentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.roster[courseID], studentID)
	return nil
}

func (r *memCourseRepo) IsEnrolled(_ context.Context, courseID, studentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.roster[courseID][studentID], nil
}

func (r *memCourseRepo) withTeacherName(crs course.Course) course.Course {
	if crs.TeacherID != nil {
		if teacher, ok := r.s.users[*crs.TeacherID]; ok {
			name := teacher.Name
			crs.TeacherName = &name
		}
	}
	return crs
}

func (m *memStore) addToRoster(courseID, studentID string) {
	if m.roster[courseID] == nil {
		m.roster[courseID] = make(map[string]bool)
	}
	m.roster[courseID][studentID] = true
}

type memEnrollmentRepo struct{ s *memStore }

func (r *memEnrollmentRepo) Create(_ context.Context, req enrollment.Request) (enrollment.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.CreatedAt = r.s.tick()
	req.UpdatedAt = req.CreatedAt
	r.s.requests[req.ID] = req
	return req, nil
}

func (r *memEnrollmentRepo) ListAll(_ context.Context) ([]enrollment.Request, error) {
	return r.list(func(enrollment.Request) bool { return true }), nil
}

func (r *memEnrollmentRepo) ListForTeacher(_ context.Context, teacherID string) ([]enrollment.Request, error) {
	return r.list(func(req enrollment.Request) bool { return req.TeacherID == teacherID }), nil
}

func (r *memEnrollmentRepo) ListForStudent(_ context.Context, studentID string) ([]enrollment.Request, error) {
	return r.list(func(req enrollment.Request) bool { return req.StudentID == studentID }), nil
}

func (r *memEnrollmentRepo) list(keep func(enrollment.Request) bool) []enrollment.Request {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var reqs []enrollment.Request
	for _, req := range r.s.requests {
		if keep(req) {
			req.TeacherName = r.s.users[req.TeacherID].Name
			req.CourseName = r.s.courses[req.CourseID].Name
			req.StudentName = r.s.users[req.StudentID].Name
			reqs = append(reqs, req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs
}

func (r *memEnrollmentRepo) GetForTeacher(_ context.Context, id, teacherID string) (enrollment.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok || req.TeacherID != teacherID {
		return enrollment.Request{}, apperr.New(apperr.NotFound, "enrollment request not found or not authorized")
	}
	return req, nil
}

func (r *memEnrollmentRepo) HasOpen(_ context.Context, courseID, studentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.requests {
		if req.CourseID == courseID && req.StudentID == studentID &&
			(req.IsApproved || !r.s.decided[req.ID]) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memEnrollmentRepo) SetApproval(_ context.Context, id string, approved bool) (enrollment.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return enrollment.Request{}, apperr.New(apperr.NotFound, "enrollment request not found")
	}
	req.IsApproved = approved
	req.UpdatedAt = r.s.tick()
	r.s.requests[id] = req
	r.s.decided[id] = true
	if approved {
		r.s.addToRoster(req.CourseID, req.StudentID)
	} else {
		delete(r.s.roster[req.CourseID], req.StudentID)
	}
	return req, nil
}

type memAttendanceRepo struct{ s *memStore }

func attKey(courseID, studentID string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", courseID, studentID, date.Format("2006-01-02"))
}

func (r *memAttendanceRepo) Upsert(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := attKey(rec.CourseID, rec.StudentID, rec.Date)
	if existing, ok := r.s.attendance[key]; ok {
		existing.Status = rec.Status
		existing.CreatedAt = r.s.tick()
		r.s.attendance[key] = existing
		return existing, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = r.s.tick()
	r.s.attendance[key] = rec
	return rec, nil
}

func (r *memAttendanceRepo) ListForStudent(_ context.Context, studentID string) ([]attendance.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var recs []attendance.Record
	for _, rec := range r.s.attendance {
		if rec.StudentID == studentID {
			crs := r.s.courses[rec.CourseID]
			rec.CourseName = crs.Name
			if crs.TeacherID != nil {
				rec.TeacherName = r.s.users[*crs.TeacherID].Name
			}
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date.After(recs[j].Date) })
	return recs, nil
}

func (r *memAttendanceRepo) ListForCourse(_ context.Context, courseID string) ([]attendance.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var recs []attendance.Record
	for _, rec := range r.s.attendance {
		if rec.CourseID == courseID {
			rec.StudentName = r.s.users[rec.StudentID].Name
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date.After(recs[j].Date) })
	return recs, nil
}

func (r *memAttendanceRepo) ListForCourseOnDate(_ context.Context, courseID string, date time.Time) ([]attendance.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var recs []attendance.Record
	for _, rec := range r.s.attendance {
		if rec.CourseID == courseID && rec.Date.Equal(date) {
			rec.StudentName = r.s.users[rec.StudentID].Name
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].StudentName < recs[j].StudentName })
	return recs, nil
}

func (r *memAttendanceRepo) Stats(_ context.Context, studentID, courseID string) (attendance.Stats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var st attendance.Stats
	for _, rec := range r.s.attendance {
		if rec.StudentID == studentID && rec.CourseID == courseID {
			st.TotalSessions++
			if rec.Status == attendance.Present {
				st.PresentCount++
			} else {
				st.AbsentCount++
			}
		}
	}
	if st.TotalSessions > 0 {
		pct := float64(st.PresentCount) / float64(st.TotalSessions) * 100
		st.AttendancePercentage = math.Round(pct*100) / 100
	}
	return st, nil
}

// newTestAPI builds a full router over the in-memory store.
func newTestAPI(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	s := newMemStore()
	users := user.NewService(&memUserRepo{s}, bcrypt.MinCost)
	courses := course.NewService(&memCourseRepo{s})
	enrollments := enrollment.NewService(&memEnrollmentRepo{s})
	att := attendance.NewService(&memAttendanceRepo{s})

	r := gin.New()
	New(testCfg, users, courses, enrollments, att).Routes(r)
	return r, s
}

// seedUser inserts a user directly and returns it with a bearer token.
func seedUser(t *testing.T, s *memStore, name, email string, role user.Role) (user.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	usr, err := (&memUserRepo{s}).Create(context.Background(), user.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
	require.NoError(t, err)
	token, _, err := auth.Issue(usr.ID, usr.Role, testCfg.JWTIssuer, testCfg.JWTSecret, testCfg.TokenTTL)
	require.NoError(t, err)
	return usr, token
}

// tokenFor issues a bearer token for an existing user.
func tokenFor(t *testing.T, usr user.User) string {
	t.Helper()
	token, _, err := auth.Issue(usr.ID, usr.Role, testCfg.JWTIssuer, testCfg.JWTSecret, testCfg.TokenTTL)
	require.NoError(t, err)
	return token
}

// seedCourse inserts a course directly; teacherID may be empty.
func seedCourse(t *testing.T, s *memStore, name, teacherID string) course.Course {
	t.Helper()
	crs := course.Course{
		Name:      name,
		Duration:  60,
		StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC),
	}
	if teacherID != "" {
		crs.TeacherID = &teacherID
	}
	created, err := (&memCourseRepo{s}).Create(context.Background(), crs)
	require.NoError(t, err)
	return created
}

type responseEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// doJSON performs a request and decodes the response envelope.
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (int, responseEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env responseEnvelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env responseEnvelope, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}
