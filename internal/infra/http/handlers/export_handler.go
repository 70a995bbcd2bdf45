package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/xavierca1/ligue-leads/internal/infra/blob"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type linkVerifier interface {
	Verify(token string) (string, error)
}

type objectOpener interface {
	Open(key string) (io.ReadCloser, *blob.ObjectInfo, error)
}

type ExportHandler struct {
	export   *usecase.ExportLeadsUseCase
	verifier linkVerifier
	store    objectOpener
	logger   *slog.Logger
}

func NewExportHandler(export *usecase.ExportLeadsUseCase, verifier linkVerifier, store objectOpener, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{export: export, verifier: verifier, store: store, logger: logger}
}

// Export handles POST /export {format, filters}.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var in usecase.ExportInput
	if err := decodeBody(w, r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeBadRequest, "Invalid JSON")
		return
	}

	out, err := h.export.Execute(r.Context(), in)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	if out.Count > 0 {
		middleware.RecordExport(usecase.NormalizeFormat(in.Format))
	}
	writeJSON(w, http.StatusOK, out)
}

// Download handles GET /exports/download?token=. The token is the only
// credential; it grants one export key.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	key, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		writeErrorResponse(w, http.StatusUnauthorized, usecase.CodeUnauthorized, "Invalid or expired download link")
		return
	}
	if !strings.HasPrefix(key, "exports/") {
		writeErrorResponse(w, http.StatusNotFound, usecase.CodeNotFound, "Export not found")
		return
	}

	rc, info, err := h.store.Open(key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeErrorResponse(w, http.StatusNotFound, usecase.CodeNotFound, "Export not found")
			return
		}
		writeUsecaseError(w, h.logger, err)
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("export download interrupted", "key", key, "error", err)
	}
}
