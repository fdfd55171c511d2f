package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admin-panel/internal/models"
	"github.com/noah-isme/sma-admin-panel/internal/service"
	appErrors "github.com/noah-isme/sma-admin-panel/pkg/errors"
	"github.com/noah-isme/sma-admin-panel/pkg/export"
	"github.com/noah-isme/sma-admin-panel/pkg/response"
)

type userRoster interface {
	ListAll(ctx context.Context) ([]models.User, error)
	Export(ctx context.Context, format export.Format) (*service.ExportFile, error)
}

// UserHandler exposes the user roster to administrators.
type UserHandler struct {
	service userRoster
}

// NewUserHandler constructs a user handler.
func NewUserHandler(svc userRoster) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description List all users ordered by last name, then first name
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope{data=[]models.User}
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, map[string]interface{}{"total_count": len(users)})
}

// Export godoc
// @Summary Export users
// @Description Download the user roster as CSV or PDF
// @Tags Users
// @Produce text/csv,application/pdf
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/export [get]
func (h *UserHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	file, err := h.service.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
