package local

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/auth/repository"
	"github.com/smallbiznis/invoicer/internal/auth/service"
	"github.com/smallbiznis/invoicer/internal/auth/session"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.Account{}, &authdomain.Session{}))

	repo, sessionRepo := repository.New(conn)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := service.New(service.Params{
		Log:         zap.NewNop(),
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       node,
		Clock:       clock.SystemClock{},
	})

	r := gin.New()
	RegisterRoutes(r, NewHandler(svc, session.NewManager(config.Config{}), zap.NewNop()))
	return r
}

func do(r http.Handler, method, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginMeLogout(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodPost, "/api/auth/register", registerRequest{Name: "Acme", Email: "owner@acme.test", Password: "very-secret"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "owner@acme.test", created.Account.Email)
	require.NotEmpty(t, created.Token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.InDelta(t, (7 * 24 * time.Hour).Seconds(), float64(cookies[0].MaxAge), 5)

	rec = do(r, http.MethodGet, "/api/auth/me", nil, func(req *http.Request) { req.AddCookie(cookies[0]) })
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Acme"`)

	rec = do(r, http.MethodGet, "/api/auth/me", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+created.Token)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodPost, "/api/auth/logout", nil, func(req *http.Request) { req.AddCookie(cookies[0]) })
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(r, http.MethodGet, "/api/auth/me", nil, func(req *http.Request) { req.AddCookie(cookies[0]) })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterConflictsAndLoginFailures(t *testing.T) {
	r := newTestRouter(t)

	body := registerRequest{Email: "owner@acme.test", Password: "very-secret"}
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/auth/register", body, nil).Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/api/auth/register", body, nil).Code)

	rec := do(r, http.MethodPost, "/api/auth/register", registerRequest{Email: "x@acme.test", Password: "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_password")

	rec = do(r, http.MethodPost, "/api/auth/login", loginRequest{Email: "owner@acme.test", Password: "wrong-secret"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_credentials")

	rec = do(r, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
