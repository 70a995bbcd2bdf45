package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type ConferenceHandler struct {
	uc     *usecase.ConferenceUseCase
	logger *slog.Logger
}

func NewConferenceHandler(uc *usecase.ConferenceUseCase, logger *slog.Logger) *ConferenceHandler {
	return &ConferenceHandler{uc: uc, logger: logger}
}

// Get handles GET /conference/{id}; public, used by the form to render itself.
func (h *ConferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.uc.GetPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ConferenceHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in usecase.UpsertConferenceInput
	if err := decodeBody(w, r, &in); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeBadRequest, "Invalid JSON")
		return
	}
	out, err := h.uc.Upsert(r.Context(), in)
	if err != nil {
		writeUsecaseError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
