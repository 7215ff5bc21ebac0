// Package httpapi binds HTTP input to the domain services and enforces
// per-request ownership rules.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"academy/internal/attendance"
	"academy/internal/auth"
	"academy/internal/config"
	"academy/internal/course"
	"academy/internal/enrollment"
	"academy/internal/user"
)

const dateLayout = "2006-01-02"

// API holds the services the controllers delegate to.
type API struct {
	cfg         config.App
	users       *user.Service
	courses     *course.Service
	enrollments *enrollment.Service
	attendance  *attendance.Service
}

// New wires the controllers to their services.
func New(cfg config.App, users *user.Service, courses *course.Service,
	enrollments *enrollment.Service, att *attendance.Service) *API {
	return &API{
		cfg:         cfg,
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		attendance:  att,
	}
}

// Routes mounts all routes on the engine.
func (a *API) Routes(r *gin.Engine) {
	authed := auth.Authenticate(a.cfg.JWTSecret, a.cfg.JWTIssuer)

	ag := r.Group("/auth")
	ag.POST("/register", a.register)
	ag.POST("/login", a.login)
	ag.POST("/logout", a.logout)

	admin := r.Group("/admin", authed, auth.RequireRole(user.RoleAdmin))
	admin.POST("/courses", a.adminCreateCourse)
	admin.PUT("/courses/:id", a.adminUpdateCourse)
	admin.DELETE("/courses/:id", a.adminDeleteCourse)
	admin.POST("/promote-student", a.promoteStudent)
	admin.POST("/assign-course", a.assignCourse)
	admin.GET("/students", a.listStudents)
	admin.GET("/teachers", a.listTeachers)
	admin.GET("/unassigned-courses", a.listUnassignedCourses)

	courses := r.Group("/courses")
	courses.GET("", a.listCourses)
	courses.GET("/:id", a.getCourse)
	// The router cannot mix static segments with :id at this level, so
	// /courses/enrolled/my and /courses/teacher/my dispatch on the param.
	courses.GET("/:id/my", authed, a.myCourses)

	enr := r.Group("/enrollments", authed)
	enr.POST("/request", auth.RequireRole(user.RoleStudent), a.requestEnrollment)
	enr.GET("/my-requests", auth.RequireRole(user.RoleStudent), a.myEnrollmentRequests)
	enr.GET("/teacher/requests", auth.RequireRole(user.RoleTeacher), a.teacherEnrollmentRequests)
	enr.PUT("/approve/:id", auth.RequireRole(user.RoleTeacher), a.approveEnrollment)
	enr.GET("/all", auth.RequireRole(user.RoleAdmin), a.allEnrollmentRequests)

	att := r.Group("/attendance", authed)
	att.POST("/mark", auth.RequireRole(user.RoleTeacher), a.markAttendance)
	att.GET("/course/:courseId", auth.RequireRole(user.RoleTeacher), a.courseAttendance)
	att.GET("/course/:courseId/date/:date", auth.RequireRole(user.RoleTeacher), a.courseAttendanceByDate)
	att.GET("/my-attendance", auth.RequireRole(user.RoleStudent), a.myAttendance)
	att.GET("/stats/:courseId", auth.RequireRole(user.RoleStudent), a.attendanceStats)
}

// myCourses serves both /courses/enrolled/my and /courses/teacher/my.
func (a *API) myCourses(c *gin.Context) {
	id, _ := auth.IdentityFrom(c)
	switch c.Param("id") {
	case "enrolled":
		if id.Role != user.RoleStudent {
			c.JSON(http.StatusForbidden, envelope{Success: false, Message: "forbidden: insufficient role"})
			return
		}
		a.enrolledCourses(c, id.UserID)
	case "teacher":
		if id.Role != user.RoleTeacher {
			c.JSON(http.StatusForbidden, envelope{Success: false, Message: "forbidden: insufficient role"})
			return
		}
		a.teacherCourses(c, id.UserID)
	default:
		c.JSON(http.StatusNotFound, envelope{Success: false, Message: "not found"})
	}
}

func parseDate(raw string) (time.Time, bool) {
	d, err := time.Parse(dateLayout, raw)
	return d, err == nil
}
