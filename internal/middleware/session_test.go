package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admin-panel/internal/models"
	"github.com/noah-isme/sma-admin-panel/internal/service"
	appErrors "github.com/noah-isme/sma-admin-panel/pkg/errors"
)

type stubVerifier struct {
	identity *models.IdentitySnapshot
	err      error
}

func (s stubVerifier) Verify(ctx context.Context, carrier service.SessionCarrier) (*models.IdentitySnapshot, error) {
	return s.identity, s.err
}

func noCarrier(c *gin.Context) service.SessionCarrier { return nil }

func role(name string) *string { return &name }

func newRouter(verifier stubVerifier, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := []gin.HandlerFunc{RequireSession(verifier, noCarrier, "/login")}
	if len(roles) > 0 {
		chain = append(chain, RequireRoles(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		identity := IdentityFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID})
	})
	r.GET("/protected", chain...)
	return r
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestRequireSessionAllowsLiveIdentity(t *testing.T) {
	r := newRouter(stubVerifier{identity: &models.IdentitySnapshot{UserID: 7, RoleName: role("admin")}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())
}

func TestRequireSessionMissingForAPIClient(t *testing.T) {
	r := newRouter(stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrSessionExpired.Code, errorCode(t, w))
}

func TestRequireSessionRedirectsBrowser(t *testing.T) {
	r := newRouter(stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequireSessionStorageFailure(t *testing.T) {
	r := newRouter(stubVerifier{err: appErrors.WrapAs(appErrors.ErrStorageUnavailable, assert.AnError)})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, appErrors.ErrStorageUnavailable.Code, errorCode(t, w))
	assert.False(t, strings.Contains(w.Body.String(), assert.AnError.Error()))
}

func TestRequireRoles(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		r := newRouter(stubVerifier{identity: &models.IdentitySnapshot{UserID: 1, RoleName: role("admin")}}, models.RoleAdmin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		r := newRouter(stubVerifier{identity: &models.IdentitySnapshot{UserID: 2, RoleName: role("teacher")}}, models.RoleAdmin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no role", func(t *testing.T) {
		r := newRouter(stubVerifier{identity: &models.IdentitySnapshot{UserID: 3}}, models.RoleAdmin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRequireRolesWithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
