package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
	"academy/internal/attendance"
	"academy/internal/auth"
)

type markAttendanceRequest struct {
	CourseID  string `json:"course_id" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// requireCourseOwner loads a course and rejects callers who are not its
// teacher, regardless of whether they teach other courses.
func (a *API) requireCourseOwner(c *gin.Context, courseID string) bool {
	id, _ := auth.IdentityFrom(c)
	crs, err := a.courses.GetByID(c.Request.Context(), courseID)
	if err != nil {
		respondError(c, err, "failed to retrieve course")
		return false
	}
	if crs.TeacherID == nil || *crs.TeacherID != id.UserID {
		respondError(c, apperr.New(apperr.Forbidden, "not your course"), "failed to retrieve course")
		return false
	}
	return true
}

func (a *API) markAttendance(c *gin.Context) {
	var req markAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if !a.requireCourseOwner(c, req.CourseID) {
		return
	}

	date, ok := parseDate(req.Date)
	if !ok {
		respondError(c, apperr.New(apperr.Validation, "date must be YYYY-MM-DD"), "failed to mark attendance")
		return
	}
	status, err := attendance.ParseStatus(req.Status)
	if err != nil {
		respondError(c, err, "failed to mark attendance")
		return
	}

	ctx := c.Request.Context()
	enrolled, err := a.courses.IsEnrolled(ctx, req.CourseID, req.StudentID)
	if err != nil {
		respondError(c, err, "failed to mark attendance")
		return
	}
	if !enrolled {
		respondError(c, apperr.New(apperr.Validation, "student is not enrolled in this course"), "failed to mark attendance")
		return
	}

	rec, err := a.attendance.Mark(ctx, req.CourseID, req.StudentID, date, status)
	if err != nil {
		respondError(c, err, "failed to mark attendance")
		return
	}
	respond(c, http.StatusCreated, rec, "attendance marked successfully")
}

func (a *API) courseAttendance(c *gin.Context) {
	courseID := c.Param("courseId")
	if !a.requireCourseOwner(c, courseID) {
		return
	}
	recs, err := a.attendance.ForCourse(c.Request.Context(), courseID)
	if err != nil {
		respondError(c, err, "failed to retrieve course attendance")
		return
	}
	respondRecords(c, recs, "course attendance retrieved successfully")
}

func (a *API) courseAttendanceByDate(c *gin.Context) {
	courseID := c.Param("courseId")
	if !a.requireCourseOwner(c, courseID) {
		return
	}
	date, ok := parseDate(c.Param("date"))
	if !ok {
		respondError(c, apperr.New(apperr.Validation, "date must be YYYY-MM-DD"), "failed to retrieve attendance")
		return
	}
	recs, err := a.attendance.ForCourseOnDate(c.Request.Context(), courseID, date)
	if err != nil {
		respondError(c, err, "failed to retrieve date attendance")
		return
	}
	respondRecords(c, recs, "date attendance retrieved successfully")
}

func (a *API) myAttendance(c *gin.Context) {
	id, _ := auth.IdentityFrom(c)
	recs, err := a.attendance.ForStudent(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err, "failed to retrieve attendance")
		return
	}
	respondRecords(c, recs, "attendance retrieved successfully")
}

func (a *API) attendanceStats(c *gin.Context) {
	id, _ := auth.IdentityFrom(c)
	stats, err := a.attendance.StatsFor(c.Request.Context(), id.UserID, c.Param("courseId"))
	if err != nil {
		respondError(c, err, "failed to retrieve attendance statistics")
		return
	}
	respond(c, http.StatusOK, stats, "attendance statistics retrieved successfully")
}

func respondRecords(c *gin.Context, recs []attendance.Record, message string) {
	if recs == nil {
		recs = []attendance.Record{}
	}
	respond(c, http.StatusOK, recs, message)
}
