package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
	"academy/internal/course"
	"academy/internal/user"
)

type courseRequest struct {
	Name        string `json:"name" binding:"required"`
	Duration    int    `json:"duration" binding:"required,gt=0"`
	Description string `json:"description"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	Teacher     string `json:"teacher"`
}

func (req courseRequest) toCourse() (course.Course, error) {
	start, ok := parseDate(req.StartDate)
	if !ok {
		return course.Course{}, apperr.New(apperr.Validation, "start_date must be YYYY-MM-DD")
	}
	end, ok := parseDate(req.EndDate)
	if !ok {
		return course.Course{}, apperr.New(apperr.Validation, "end_date must be YYYY-MM-DD")
	}
	crs := course.Course{
		Name:        req.Name,
		Duration:    req.Duration,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
	}
	if req.Teacher != "" {
		crs.TeacherID = &req.Teacher
	}
	return crs, nil
}

func (a *API) adminCreateCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	crs, err := req.toCourse()
	if err != nil {
		respondError(c, err, "failed to create course")
		return
	}
	created, err := a.courses.Create(c.Request.Context(), crs)
	if err != nil {
		respondError(c, err, "failed to create course")
		return
	}
	respond(c, http.StatusCreated, created, "course created successfully")
}

func (a *API) adminUpdateCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	crs, err := req.toCourse()
	if err != nil {
		respondError(c, err, "failed to update course")
		return
	}
	updated, err := a.courses.Update(c.Request.Context(), c.Param("id"), crs)
	if err != nil {
		respondError(c, err, "failed to update course")
		return
	}
	respond(c, http.StatusOK, updated, "course updated successfully")
}

func (a *API) adminDeleteCourse(c *gin.Context) {
	if err := a.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "failed to delete course")
		return
	}
	respond(c, http.StatusOK, nil, "course deleted successfully")
}

type promoteStudentRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	CourseID  string `json:"course_id" binding:"required"`
}

// promoteStudent flips a student to teacher and assigns them a teacherless
// course. Eligibility is checked here; the two writes run in one transaction
// inside the user repository.
func (a *API) promoteStudent(c *gin.Context) {
	var req promoteStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ctx := c.Request.Context()

	student, err := a.users.GetByID(ctx, req.StudentID)
	if err != nil {
		respondError(c, err, "failed to promote student")
		return
	}
	if student.Role != user.RoleStudent {
		respondError(c, apperr.New(apperr.Validation, "user is not a student"), "failed to promote student")
		return
	}

	crs, err := a.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		respondError(c, err, "failed to promote student")
		return
	}
	if crs.TeacherID != nil {
		respondError(c, apperr.New(apperr.Conflict, "course already has a teacher assigned"), "failed to promote student")
		return
	}

	promoted, err := a.users.PromoteToTeacher(ctx, req.StudentID, req.CourseID)
	if err != nil {
		respondError(c, err, "failed to promote student")
		return
	}
	updatedCourse, err := a.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		respondError(c, err, "failed to promote student")
		return
	}

	respond(c, http.StatusOK, gin.H{"user": promoted, "course": updatedCourse},
		"student successfully promoted to teacher and assigned to course")
}

type assignCourseRequest struct {
	CourseID  string `json:"course_id" binding:"required"`
	TeacherID string `json:"teacher_id" binding:"required"`
}

func (a *API) assignCourse(c *gin.Context) {
	var req assignCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ctx := c.Request.Context()

	crs, err := a.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		respondError(c, err, "failed to assign course")
		return
	}
	if crs.TeacherID != nil {
		respondError(c, apperr.New(apperr.Conflict, "course already has a teacher assigned"), "failed to assign course")
		return
	}

	teacher, err := a.users.GetByID(ctx, req.TeacherID)
	if err != nil {
		respondError(c, err, "failed to assign course")
		return
	}
	if teacher.Role != user.RoleTeacher {
		respondError(c, apperr.New(apperr.Validation, "user is not a teacher"), "failed to assign course")
		return
	}

	updated, err := a.courses.AssignTeacher(ctx, req.CourseID, req.TeacherID)
	if err != nil {
		respondError(c, err, "failed to assign course")
		return
	}
	respond(c, http.StatusOK, updated, "course successfully assigned to teacher")
}

func (a *API) listStudents(c *gin.Context) {
	a.listUsersByRole(c, user.RoleStudent, "students retrieved successfully")
}

func (a *API) listTeachers(c *gin.Context) {
	a.listUsersByRole(c, user.RoleTeacher, "teachers retrieved successfully")
}

func (a *API) listUsersByRole(c *gin.Context, role user.Role, message string) {
	users, err := a.users.ListByRole(c.Request.Context(), role)
	if err != nil {
		respondError(c, err, "failed to retrieve users")
		return
	}
	if users == nil {
		users = []user.User{}
	}
	respond(c, http.StatusOK, users, message)
}

func (a *API) listUnassignedCourses(c *gin.Context) {
	courses, err := a.courses.GetWithoutTeacher(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to retrieve unassigned courses")
		return
	}
	if courses == nil {
		courses = []course.Course{}
	}
	respond(c, http.StatusOK, courses, "unassigned courses retrieved successfully")
}
