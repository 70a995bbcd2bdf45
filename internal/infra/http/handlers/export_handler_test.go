package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/blob"
	"github.com/xavierca1/ligue-leads/internal/infra/memory"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func newExportRouter(t *testing.T) (http.Handler, *memory.LeadRepo) {
	t.Helper()
	repo := memory.NewLeadRepo()
	store, err := blob.NewFileStore(t.TempDir())
	require.NoError(t, err)
	signer, err := blob.NewSigner("download-secret", "https://leads.example")
	require.NoError(t, err)

	logger := testLogger()
	h := NewExportHandler(usecase.NewExportLeadsUseCase(repo, store, signer, logger), signer, store, logger)

	r := chi.NewRouter()
	r.Post("/export", h.Export)
	r.Get("/exports/download", h.Download)
	return r, repo
}

func TestExportAndDownload(t *testing.T) {
	router, repo := newExportRouter(t)
	now := entity.NormalizeTimestamp(time.Now())
	for i, status := range []entity.Status{entity.StatusNew, entity.StatusQualified, entity.StatusQualified} {
		require.NoError(t, repo.Create(context.Background(), &entity.Lead{
			ConferenceID: "expo",
			LeadID:       string(rune('a' + i)),
			FirstName:    "Lead",
			Status:       status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}))
	}

	rec, body := do(t, router, http.MethodPost, "/export", map[string]any{
		"format":  "csv",
		"filters": map[string]any{"status": "qualified"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, float64(3600), body["expiresIn"])

	link, err := url.Parse(body["downloadUrl"].(string))
	require.NoError(t, err)
	assert.Equal(t, "leads.example", link.Host)

	dl := httptest.NewRecorder()
	router.ServeHTTP(dl, httptest.NewRequest(http.MethodGet, link.RequestURI(), nil))
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "text/csv", dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), body["fileName"].(string))

	rows, err := csv.NewReader(dl.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExportEmptyAndUnknownFormat(t *testing.T) {
	router, repo := newExportRouter(t)

	rec, body := do(t, router, http.MethodPost, "/export", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No leads found matching filters", body["message"])
	assert.Equal(t, float64(0), body["count"])

	now := entity.NormalizeTimestamp(time.Now())
	require.NoError(t, repo.Create(context.Background(), &entity.Lead{
		ConferenceID: "expo", LeadID: "a", Status: entity.StatusNew, CreatedAt: now, UpdatedAt: now,
	}))

	rec, body = do(t, router, http.MethodPost, "/export", map[string]any{"format": "pdf"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
	assert.True(t, strings.HasSuffix(body["fileName"].(string), ".json"))

	link, err := url.Parse(body["downloadUrl"].(string))
	require.NoError(t, err)
	dl := httptest.NewRecorder()
	router.ServeHTTP(dl, httptest.NewRequest(http.MethodGet, link.RequestURI(), nil))
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "application/json", dl.Header().Get("Content-Type"))
}

func TestDownloadRejectsBadTokens(t *testing.T) {
	router, _ := newExportRouter(t)

	rec, body := do(t, router, http.MethodGet, "/exports/download?token=nope", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	signer, err := blob.NewSigner("download-secret", "https://leads.example")
	require.NoError(t, err)

	token, err := signer.Sign("raw/2025/01/01/expo/a.json", time.Hour)
	require.NoError(t, err)
	rec, _ = do(t, router, http.MethodGet, "/exports/download?token="+url.QueryEscape(token), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	token, err = signer.Sign("exports/missing.csv", time.Hour)
	require.NoError(t, err)
	rec, _ = do(t, router, http.MethodGet, "/exports/download?token="+url.QueryEscape(token), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler("test", map[string]Checker{
		"database": CheckFunc(func(context.Context) error { return nil }),
		"rabbitmq": nil,
	})
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.Checks["blob"] = CheckFunc(func(context.Context) error { return errors.New("read-only") })
	rec = httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy: read-only")
}
