package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/caselog-api/internal/middleware"
	"github.com/noah-isme/caselog-api/internal/models"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
	"github.com/noah-isme/caselog-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	CheckSession(req models.SessionCheckRequest) models.SessionCheckResponse
}

type userLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	users   userLookup
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, users userLookup) *AuthHandler {
	return &AuthHandler{service: svc, users: users}
}

// Login godoc
// @Summary Authenticate administrator
// @Description Exchange username and password for a session token and bearer token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validationError(err, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Session godoc
// @Summary Check session
// @Description Report whether a stored session token/username pair is still valid
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SessionCheckRequest true "Stored session"
// @Success 200 {object} response.Envelope
// @Router /auth/session [post]
func (h *AuthHandler) Session(c *gin.Context) {
	var req models.SessionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.JSON(c, http.StatusOK, models.SessionCheckResponse{Valid: false})
		return
	}
	res := h.service.CheckSession(req)
	if !res.Valid {
		response.JSON(c, http.StatusOK, res, map[string]interface{}{"redirect": middleware.LoginPath})
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Me godoc
// @Summary Current administrator
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	user, err := h.users.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}
