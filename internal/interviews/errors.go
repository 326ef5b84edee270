package interviews

import "errors"

var (
	ErrNotFound     = errors.New("interview session not found")
	ErrValidation   = errors.New("validation error")
	ErrInvalidState = errors.New("invalid session state")
)
