package main

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admin-panel/pkg/config"
	"github.com/noah-isme/sma-admin-panel/pkg/password"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "seed", "purge-sessions"}, names)
}

func TestServeFlagsDefaultOn(t *testing.T) {
	cmd := NewServeCmd()

	migrate, err := cmd.Flags().GetBool("migrate")
	require.NoError(t, err)
	seed, err := cmd.Flags().GetBool("seed")
	require.NoError(t, err)
	assert.True(t, migrate)
	assert.True(t, seed)
}

var testParams = password.Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1}

func testConfig() *config.Config {
	return &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api/v1",
		LoginPath: "/login",
		Database:  config.DatabaseConfig{URL: "postgres://test", QueryTimeout: time.Second},
		Session: config.SessionConfig{
			Store:         config.SessionStorePostgres,
			Key:           strings.Repeat("k", 40),
			TTL:           time.Hour,
			CookieName:    "webapp_session",
			CookieMaxAge:  24 * time.Hour,
			PurgeSchedule: "@hourly",
		},
		Hash: config.HashConfig{Workers: 2, MemoryKiB: testParams.MemoryKiB, Iterations: testParams.Iterations, Parallelism: uint32(testParams.Parallelism)},
		Seed: config.SeedConfig{AdminPassword: "changeme-now"},
	}
}

func newTestApp(t *testing.T) (*app, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rawDB.Close() })

	a, err := buildApp(testConfig(), zap.NewNop(), sqlx.NewDb(rawDB, "postgres"), nil)
	require.NoError(t, err)
	return a, mock
}

func TestRouterHealth(t *testing.T) {
	a, _ := newTestApp(t)
	r := newRouter(a)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterUsersRequiresSession(t *testing.T) {
	a, mock := newTestApp(t)
	r := newRouter(a)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_EXPIRED_OR_MISSING")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouterUsersRedirectsBrowsers(t *testing.T) {
	a, _ := newTestApp(t)
	r := newRouter(a)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func userColumns() []string {
	return []string{"id", "username", "password_hash", "first_name", "last_name", "email", "role_id", "role_name", "is_active", "created_at", "last_updated"}
}

func TestRouterLoginThenListUsers(t *testing.T) {
	a, mock := newTestApp(t)
	r := newRouter(a)

	hash, err := password.NewArgon2idHasher(testParams).Hash("s3cret")
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.username = $1")).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(int64(1), "admin", hash, "Ada", "Admin", "admin@example.com", int64(1), "admin", true, now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_sessions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	login := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"admin","password":"s3cret"}`))
	login.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, login)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM user_sessions")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY u.last_name, u.first_name")).
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(int64(1), "admin", hash, "Ada", "Admin", "admin@example.com", int64(1), "admin", true, now, now))

	list := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	list.Header.Set("Accept", "application/json")
	for _, c := range cookies {
		list.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, list)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"admin"`)
	assert.NotContains(t, w.Body.String(), hash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouterLoginUnknownUser(t *testing.T) {
	a, mock := newTestApp(t)
	r := newRouter(a)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.username = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userColumns()))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"ghost","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
	assert.Empty(t, w.Result().Cookies())
	assert.NoError(t, mock.ExpectationsWereMet())
}
