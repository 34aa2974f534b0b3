package service

import (
	"errors"
	"fmt"
)

// Roots of the error taxonomy. Handlers map these to 400, 404 and 500.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")
)

// ValidationError is bad caller input. Code is stable and safe to return to clients.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Is lets errors.Is(err, ErrValidation) match every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// InternalError wraps a storage or cache failure with the failing operation.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}

func internalError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *InternalError
	if errors.As(err, &existing) {
		return err
	}
	return &InternalError{Op: op, Err: err}
}

var (
	ErrMissingFields       = validationError("missing_fields", "hotspot_name and device_identifier are required")
	ErrHotspotNameInvalid  = validationError("invalid_hotspot_name", "hotspot_name is missing or too long")
	ErrContentKindInvalid  = validationError("invalid_kind", "unknown content kind")
	ErrContentTitleMissing = validationError("title_required", "title is required")
	ErrContentImageMissing = validationError("image_required", "image_path is required")
	ErrComponentInvalid    = validationError("invalid_component", "left_panel_component must be slideshow, fullbg or cardgallery")
	ErrIconTooLong         = validationError("invalid_icon", "icon must be at most 10 characters")
	ErrLandingURLInvalid   = validationError("invalid_url", "url must be an absolute http(s) URL of at most 500 characters")
	ErrRefreshInvalid      = validationError("invalid_refresh_interval", "refresh interval must be one of 5, 10, 15, 30, 60")
	ErrWindowInvalid       = validationError("invalid_window", "window end must be after start")
	ErrHotspotExists       = validationError("hotspot_exists", "a hotspot with this name already exists")
	ErrDateInvalid         = validationError("invalid_date", "date must be YYYY-MM-DD")
)

var (
	ErrTemplateNotFound = fmt.Errorf("template %w", ErrNotFound)
	ErrContentNotFound  = fmt.Errorf("content item %w", ErrNotFound)
	ErrLandingNotFound  = fmt.Errorf("landing url %w", ErrNotFound)
	ErrHotspotNotFound  = fmt.Errorf("hotspot %w", ErrNotFound)
)
