package domain

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrFetch          = errors.New("fetch failed")
	ErrProcessing     = errors.New("processing failed")
	ErrNotFound       = errors.New("not found")
)
