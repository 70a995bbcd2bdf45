package usecase

import (
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError is a failure the caller caused and can act on.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

func BadRequest(format string, args ...any) *DomainError {
	return &DomainError{Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFound(message string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: message}
}

// TechnicalError wraps an unexpected failure; its cause is logged, never shown.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func internal(message string, err error) *TechnicalError {
	return &TechnicalError{Code: CodeInternal, Message: message, Err: err}
}

// storeError translates repository sentinels into the use-case taxonomy.
func storeError(err error, notFoundMessage string) error {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return NotFound(notFoundMessage)
	case errors.Is(err, entity.ErrInvalidCursor):
		return BadRequest("Invalid lastKey")
	case errors.Is(err, entity.ErrConflict):
		return &DomainError{Code: CodeConflict, Message: "Record already exists"}
	default:
		return internal("store failure", err)
	}
}
