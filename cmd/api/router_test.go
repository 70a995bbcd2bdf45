package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-leads/internal/infra/blob"
	"github.com/xavierca1/ligue-leads/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/infra/memory"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	leads := memory.NewLeadRepo()

	store, err := blob.NewFileStore(t.TempDir())
	require.NoError(t, err)
	signer, err := blob.NewSigner("download-secret", "http://localhost")
	require.NoError(t, err)

	limiter := handlers.NewRateLimiter(0, time.Minute)
	t.Cleanup(limiter.Stop)

	return newRouter(routerDeps{
		Logger:         logger,
		AllowedOrigins: []string{"https://form.example"},
		Auth:           middleware.BearerAuth(logger, middleware.NewHMACVerifier("operator-secret", "")),
		Leads: handlers.NewLeadHandler(
			usecase.NewCaptureLeadUseCase(leads, blob.NewArchiver(store), logger),
			usecase.NewManageLeadsUseCase(leads, logger), limiter, logger),
		Exports: handlers.NewExportHandler(
			usecase.NewExportLeadsUseCase(leads, store, signer, logger), signer, store, logger),
		Conferences: handlers.NewConferenceHandler(
			usecase.NewConferenceUseCase(memory.NewConferenceRepo(), nil, logger), logger),
		Health: handlers.NewHealthHandler("test", nil),
	})
}

func operatorToken(t *testing.T) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("operator-secret"))
	require.NoError(t, err)
	return s
}

func TestRouterProtectsOperatorRoutes(t *testing.T) {
	router := testRouter(t)

	for _, rt := range []struct{ method, path string }{
		{http.MethodGet, "/leads?conferenceId=expo"},
		{http.MethodGet, "/leads/x?conferenceId=expo"},
		{http.MethodPatch, "/leads/x?conferenceId=expo"},
		{http.MethodDelete, "/leads/x?conferenceId=expo"},
		{http.MethodPost, "/export"},
		{http.MethodPost, "/conference"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(rt.method, rt.path, strings.NewReader("{}")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", rt.method, rt.path)
	}

	req := httptest.NewRequest(http.MethodGet, "/leads?conferenceId=expo", nil)
	req.Header.Set("Authorization", "Bearer "+operatorToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"leads":[],"nextKey":null,"count":0}`, rec.Body.String())
}

func TestRouterPublicRoutes(t *testing.T) {
	router := testRouter(t)

	body := `{"conferenceId":"expo","firstName":"Ada","lastName":"L","email":"ada@example.com","company":"X","consentContact":"true"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leads_captured_total")
}

func TestRouterCORSPreflight(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/leads/abc", nil)
	req.Header.Set("Origin", "https://form.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://form.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	assert.Less(t, rec.Code, 300)
}
