package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/auth"
	"academy/internal/user"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string    `json:"token"`
	Role  user.Role `json:"role"`
}

func (a *API) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	role, err := user.ParseRole(req.Role)
	if err != nil {
		respondError(c, err, "failed to register")
		return
	}

	usr, err := a.users.Register(c.Request.Context(), req.Name, req.Email, req.Password, role)
	if err != nil {
		respondError(c, err, "failed to register")
		return
	}

	token, _, err := auth.Issue(usr.ID, usr.Role, a.cfg.JWTIssuer, a.cfg.JWTSecret, a.cfg.TokenTTL)
	if err != nil {
		respondError(c, err, "failed to generate token")
		return
	}
	respond(c, http.StatusCreated, tokenResponse{Token: token, Role: usr.Role}, "registered successfully")
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	usr, err := a.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "failed to log in")
		return
	}

	token, _, err := auth.Issue(usr.ID, usr.Role, a.cfg.JWTIssuer, a.cfg.JWTSecret, a.cfg.TokenTTL)
	if err != nil {
		respondError(c, err, "failed to generate token")
		return
	}
	respond(c, http.StatusOK, tokenResponse{Token: token, Role: usr.Role}, "logged in successfully")
}

// logout clears any client-held session cookie. Tokens are not revoked
// server-side; they simply expire.
func (a *API) logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", a.cfg.Env == "production", true)
	respond(c, http.StatusOK, nil, "logged out successfully")
}
