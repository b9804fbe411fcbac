package services

import (
	"errors"

	"kpidash/internal/analytics"
)

// Dashboard service errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("session limit reached")

	// Dataset errors
	ErrNoDataset       = errors.New("no dataset loaded")
	ErrUploadTooLarge  = errors.New("upload exceeds the size limit")
	ErrInvalidFileType = errors.New("invalid file type")

	// Interaction errors
	ErrInvalidClick  = analytics.ErrInvalidClick
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidExport = errors.New("invalid export request")

	// General errors
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
