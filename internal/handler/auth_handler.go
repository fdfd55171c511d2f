package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-admin-panel/internal/middleware"
	"github.com/noah-isme/sma-admin-panel/internal/models"
	"github.com/noah-isme/sma-admin-panel/internal/service"
	appErrors "github.com/noah-isme/sma-admin-panel/pkg/errors"
	"github.com/noah-isme/sma-admin-panel/pkg/response"
)

type authenticator interface {
	Login(ctx context.Context, carrier service.SessionCarrier, username, password string) (*models.AuthResult, error)
	Verify(ctx context.Context, carrier service.SessionCarrier) (*models.IdentitySnapshot, error)
	Logout(ctx context.Context, carrier service.SessionCarrier) error
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service   authenticator
	carriers  middleware.CarrierLoader
	validator *validator.Validate
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authenticator, carriers middleware.CarrierLoader, validate *validator.Validate) *AuthHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AuthHandler{service: svc, carriers: carriers, validator: validate}
}

// Login godoc
// @Summary Sign in
// @Description Verify username and password and start a session carried by a signed cookie
// @Tags Authentication
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope{data=models.IdentitySnapshot}
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	result, err := h.service.Login(c.Request.Context(), h.carriers(c), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := result.Err(); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result.Identity)
}

// Session godoc
// @Summary Current session
// @Description Return the signed-in identity while its session is live
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope{data=models.IdentitySnapshot}
// @Failure 401 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	identity, err := h.service.Verify(c.Request.Context(), h.carriers(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if identity == nil {
		response.Error(c, appErrors.ErrSessionExpired)
		return
	}
	response.JSON(c, http.StatusOK, identity)
}

// Logout godoc
// @Summary Sign out
// @Description End the current session and clear the session cookie
// @Tags Authentication
// @Success 204
// @Failure 503 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), h.carriers(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
