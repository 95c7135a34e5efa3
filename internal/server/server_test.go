package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/caselog-api/internal/service"
	"github.com/noah-isme/caselog-api/pkg/config"
)

func newTestRouter(t *testing.T) (*gin.Engine, *config.Config, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api/v1",
		Session:   config.SessionConfig{Secret: config.DefaultSessionSecret},
		JWT:       config.JWTConfig{Secret: "test", Issuer: "caselog-test"},
		Export:    config.ExportConfig{StorageDir: t.TempDir(), SignedURLSecret: "s"},
	}
	r, err := NewRouter(Dependencies{Config: cfg, DB: sqlx.NewDb(db, "sqlmock")})
	require.NoError(t, err)
	return r, cfg, mock
}

func TestRouterPublicRoutes(t *testing.T) {
	r, _, mock := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	mock.ExpectPing()
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reference", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "caselog_http_requests_total")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouterDashboardRequiresBearer(t *testing.T) {
	r, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterSessionCheck(t *testing.T) {
	r, cfg, _ := newTestRouter(t)
	token, err := service.NewSessionTokenCodec(cfg.Session.Secret, 0).Issue("admin")
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"token": token, "username": "admin"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"valid":true}}`, rec.Body.String())
}
