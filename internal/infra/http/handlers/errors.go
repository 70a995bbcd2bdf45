package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeUsecaseError maps the use-case taxonomy onto HTTP. Technical details
// go to the log only.
func writeUsecaseError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		writeErrorResponse(w, statusForCode(de.Code), de.Code, de.Message)
		return
	}

	logger.Error("request failed", "error", err)
	writeErrorResponse(w, http.StatusInternalServerError, usecase.CodeInternal, "Internal server error")
}

func statusForCode(code string) int {
	switch code {
	case usecase.CodeBadRequest:
		return http.StatusBadRequest
	case usecase.CodeUnauthorized:
		return http.StatusUnauthorized
	case usecase.CodeNotFound:
		return http.StatusNotFound
	case usecase.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
