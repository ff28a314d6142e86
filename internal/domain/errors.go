package domain

import "errors"

var (
	ErrNotFound        = errors.New("target not found")
	ErrInvalidURL      = errors.New("invalid target url")
	ErrInvalidInterval = errors.New("unsupported check interval")
)
