package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-admin-panel/internal/models"
	appErrors "github.com/noah-isme/sma-admin-panel/pkg/errors"
	"github.com/noah-isme/sma-admin-panel/pkg/export"
)

type userLister interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

// ExportFile is a rendered roster ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// UserService serves the administrator's user roster.
type UserService struct {
	repo   userLister
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userLister, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, logger: logger, now: time.Now}
}

// ListAll returns every user ordered by last name then first name.
func (s *UserService) ListAll(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, appErrors.WrapAs(appErrors.ErrStorageUnavailable, err)
	}
	return users, nil
}

// Export renders the roster in format. Password hashes are never included.
func (s *UserService) Export(ctx context.Context, format export.Format) (*ExportFile, error) {
	users, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title: "User Roster",
		Columns: []export.Column{
			{Title: "ID", Weight: 0.5},
			{Title: "Username"},
			{Title: "First Name"},
			{Title: "Last Name"},
			{Title: "Email", Weight: 2},
			{Title: "Role"},
			{Title: "Active", Weight: 0.6},
			{Title: "Created At", Weight: 1.4},
		},
		Rows: make([][]string, 0, len(users)),
	}
	for _, u := range users {
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.Username,
			u.FirstName,
			u.LastName,
			u.Email,
			u.Role(),
			strconv.FormatBool(u.IsActive),
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	body, err := export.Render(format, table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("users-%s.%s", s.now().UTC().Format("20060102"), format.Extension()),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}
