package entity

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrConflict      = errors.New("record already exists")
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)
