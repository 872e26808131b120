// internal/core/domain/errors.go
package domain

import "errors"

// Errores de dominio comunes.
var (
	// Descriptor errors
	ErrEmptyDescriptorID  = errors.New("descriptor id cannot be empty")
	ErrInvalidID          = errors.New("descriptor id is not a safe identifier")
	ErrEmptyDescriptorURL = errors.New("descriptor url cannot be empty")
	ErrInvalidURL         = errors.New("invalid descriptor url")
	ErrInvalidSubpath     = errors.New("invalid extracted subpath")
	ErrInvalidTarget      = errors.New("invalid target directory")
	ErrDuplicateID        = errors.New("duplicate descriptor id")

	// Stage errors
	ErrInvalidStage      = errors.New("invalid pipeline stage")
	ErrInvalidTransition = errors.New("invalid stage transition")

	// Run errors
	ErrNoDescriptors = errors.New("no descriptors provided")
	ErrRunCanceled   = errors.New("run was canceled")
)
