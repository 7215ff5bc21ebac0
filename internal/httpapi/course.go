package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/course"
)

func (a *API) listCourses(c *gin.Context) {
	courses, err := a.courses.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to retrieve courses")
		return
	}
	if courses == nil {
		courses = []course.Course{}
	}
	respond(c, http.StatusOK, courses, "courses retrieved successfully")
}

func (a *API) getCourse(c *gin.Context) {
	crs, err := a.courses.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to retrieve course")
		return
	}
	respond(c, http.StatusOK, crs, "course retrieved successfully")
}

func (a *API) enrolledCourses(c *gin.Context, studentID string) {
	courses, err := a.courses.GetEnrolled(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err, "failed to retrieve enrolled courses")
		return
	}
	if courses == nil {
		courses = []course.Course{}
	}
	respond(c, http.StatusOK, courses, "enrolled courses retrieved successfully")
}

func (a *API) teacherCourses(c *gin.Context, teacherID string) {
	courses, err := a.courses.GetByTeacher(c.Request.Context(), teacherID)
	if err != nil {
		respondError(c, err, "failed to retrieve teacher courses")
		return
	}
	if courses == nil {
		courses = []course.TeacherCourse{}
	}
	for i := range courses {
		if courses[i].Students == nil {
			courses[i].Students = []course.RosterEntry{}
		}
	}
	respond(c, http.StatusOK, courses, "teacher courses retrieved successfully")
}
