package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/caselog-api/internal/middleware"
	"github.com/noah-isme/caselog-api/internal/models"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

type fakeAuth struct {
	resp  *models.LoginResponse
	err   error
	valid bool
	got   models.LoginRequest
}

func (f *fakeAuth) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.got = req
	return f.resp, f.err
}

func (f *fakeAuth) CheckSession(models.SessionCheckRequest) models.SessionCheckResponse {
	return models.SessionCheckResponse{Valid: f.valid}
}

type fakeUsers struct{ user *models.User }

func (f fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, appErrors.ErrNotFound
	}
	return f.user, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	auth := &fakeAuth{resp: &models.LoginResponse{Token: "tok", Username: "admin"}}
	h := NewAuthHandler(auth, fakeUsers{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(t, map[string]string{"username": "admin", "password": "pw"}))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("User-Agent", "test-agent")

	h.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test-agent", auth.got.UserAgent)
	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, "tok", res.Token)
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{err: appErrors.ErrInvalidCredentials}, fakeUsers{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{"))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", jsonBody(t, map[string]string{"username": "admin", "password": "bad"}))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, decode(t, rec).Error.Code)
}

func TestAuthHandlerSessionRedirectsWhenInvalid(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{valid: false}, fakeUsers{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/session", jsonBody(t, models.SessionCheckRequest{Token: "t", Username: "u"}))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Session(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.JSONEq(t, `{"valid":false}`, string(env.Data))
	assert.Equal(t, middleware.LoginPath, env.Meta["redirect"])
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{}, fakeUsers{user: &models.User{ID: "u1", Username: "admin"}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Username: "admin"})
	h.Me(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeForms struct {
	record *models.CaseRecord
	err    error
	got    models.CaseForm
}

func (f *fakeForms) Submit(_ context.Context, form models.CaseForm) (*models.CaseRecord, error) {
	f.got = form
	return f.record, f.err
}

type fakeCaseReader struct{}

func (fakeCaseReader) Get(_ context.Context, id string) (*models.CaseRecord, error) {
	if id == "c1" {
		return &models.CaseRecord{ID: "c1", RescuerName: "Omar"}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
}

func TestCaseHandlerSubmit(t *testing.T) {
	forms := &fakeForms{record: &models.CaseRecord{ID: "new"}}
	h := NewCaseHandler(forms, fakeCaseReader{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/cases", jsonBody(t, map[string]string{
		"rescuerName": "Omar",
		"rescuerRank": "مسعف",
		"trainer":     "سليمان سعيد",
		"date":        "2024-03-01",
		"caseCode":    "red",
		"caseDetails": "broken arm",
	}))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Omar", forms.got.RescuerName)
	assert.Equal(t, "2024-03-01", forms.got.Date.String())
}

func TestCaseHandlerSubmitFailure(t *testing.T) {
	h := NewCaseHandler(&fakeForms{err: appErrors.Clone(appErrors.ErrValidation, "يرجى ملء جميع الحقول")}, fakeCaseReader{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/cases", jsonBody(t, map[string]string{"rescuerName": "Omar"}))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "يرجى ملء جميع الحقول", decode(t, rec).Error.Message)
}

func TestCaseHandlerGetAndReference(t *testing.T) {
	router := gin.New()
	h := NewCaseHandler(&fakeForms{}, fakeCaseReader{})
	router.GET("/cases/:id", h.Get)
	router.GET("/reference", h.Reference)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cases/c1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cases/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reference", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var ref models.ReferenceData
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &ref))
	assert.Len(t, ref.Ranks, 3)
	assert.Len(t, ref.Trainers, 16)
	assert.Equal(t, []models.Severity{models.SeverityRed, models.SeverityYellow}, ref.Severities)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestMetricsHandlerReady(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, stubPinger{}).Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, stubPinger{err: errors.New("refused")}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil, nil).Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakeOpener struct {
	path string
	name string
	err  error
}

func (f fakeOpener) Open(string) (*os.File, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	file, err := os.Open(f.path)
	return file, f.name, err
}

func TestExportHandlerDownload(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(p, []byte("a,b\n"), 0o600))

	router := gin.New()
	router.GET("/export/:token", NewExportHandler(fakeOpener{path: p, name: "حالات_الطوارئ_2024-03-02.csv"}).Download)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/tok", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a,b\n", rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename*=UTF-8''")

	router = gin.New()
	router.GET("/export/:token", NewExportHandler(fakeOpener{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")}).Download)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/tok", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
