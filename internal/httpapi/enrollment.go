package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/apperr"
	"academy/internal/auth"
	"academy/internal/enrollment"
)

type enrollmentRequestBody struct {
	CourseID string `json:"course_id" binding:"required"`
}

func (a *API) requestEnrollment(c *gin.Context) {
	var req enrollmentRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	id, _ := auth.IdentityFrom(c)
	ctx := c.Request.Context()

	crs, err := a.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		respondError(c, err, "failed to send enrollment request")
		return
	}
	if crs.TeacherID == nil {
		respondError(c, apperr.New(apperr.Validation, "course has no teacher to review the request"), "failed to send enrollment request")
		return
	}

	enrolled, err := a.courses.IsEnrolled(ctx, req.CourseID, id.UserID)
	if err != nil {
		respondError(c, err, "failed to send enrollment request")
		return
	}
	if enrolled {
		respondError(c, apperr.New(apperr.Conflict, "student is already enrolled in this course"), "failed to send enrollment request")
		return
	}

	created, err := a.enrollments.CreateRequest(ctx, *crs.TeacherID, req.CourseID, id.UserID)
	if err != nil {
		respondError(c, err, "failed to send enrollment request")
		return
	}
	respond(c, http.StatusCreated, created, "enrollment request sent successfully")
}

func (a *API) myEnrollmentRequests(c *gin.Context) {
	id, _ := auth.IdentityFrom(c)
	reqs, err := a.enrollments.ListForStudent(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err, "failed to retrieve enrollment requests")
		return
	}
	respondRequests(c, reqs, "student enrollment requests retrieved successfully")
}

func (a *API) teacherEnrollmentRequests(c *gin.Context) {
	id, _ := auth.IdentityFrom(c)
	reqs, err := a.enrollments.ListForTeacher(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err, "failed to retrieve enrollment requests")
		return
	}
	respondRequests(c, reqs, "teacher enrollment requests retrieved successfully")
}

func (a *API) allEnrollmentRequests(c *gin.Context) {
	reqs, err := a.enrollments.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to retrieve enrollment requests")
		return
	}
	respondRequests(c, reqs, "enrollment requests retrieved successfully")
}

type approvalBody struct {
	IsApproved *bool `json:"is_approved" binding:"required"`
}

// approveEnrollment sets the approval flag. Ownership is a direct filtered
// lookup on (request id, caller id); the roster mutation happens inside the
// same transaction as the flag update.
func (a *API) approveEnrollment(c *gin.Context) {
	var body approvalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}
	id, _ := auth.IdentityFrom(c)
	ctx := c.Request.Context()

	if _, err := a.enrollments.GetForTeacher(ctx, c.Param("id"), id.UserID); err != nil {
		respondError(c, err, "failed to update enrollment status")
		return
	}

	updated, err := a.enrollments.SetApproval(ctx, c.Param("id"), *body.IsApproved)
	if err != nil {
		respondError(c, err, "failed to update enrollment status")
		return
	}

	message := "enrollment request rejected successfully"
	if updated.IsApproved {
		message = "enrollment request approved successfully"
	}
	respond(c, http.StatusOK, updated, message)
}

func respondRequests(c *gin.Context, reqs []enrollment.Request, message string) {
	if reqs == nil {
		reqs = []enrollment.Request{}
	}
	respond(c, http.StatusOK, reqs, message)
}
