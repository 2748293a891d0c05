package schema

import (
	"errors"
	"fmt"
)

// ErrPersistence indicates an infrastructure/repository failure on a write or read path.
// Use cases wrap it as fmt.Errorf("%w: %v", ErrPersistence, err).
var ErrPersistence = errors.New("persistence error")

// ErrNotFound is returned by repositories when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is wrapped by domain errors that deny a caller access, such as
// posting to a conversation the user is not part of.
var ErrForbidden = errors.New("forbidden")

// ValidationError reports bad caller input. It is rejected synchronously and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// NewValidationError builds a *ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err (or anything it wraps) is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransportError wraps a pub/sub or network failure. Presence and typing
// updates that hit one are dropped by their callers.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ChannelDeliveryError is a push/email/app provider failure for a single channel.
type ChannelDeliveryError struct {
	Channel Channel
	Err     error
}

func (e *ChannelDeliveryError) Error() string {
	return fmt.Sprintf("deliver %s: %v", e.Channel, e.Err)
}

func (e *ChannelDeliveryError) Unwrap() error { return e.Err }

// TemplateResolutionWarning describes a non-fatal template problem: an uncatalogued
// trigger, a missing active template or missing payload variables. It is logged, never returned.
type TemplateResolutionWarning struct {
	Trigger string
	Channel Channel
	Missing []string
	Reason  string
}

func (w TemplateResolutionWarning) String() string {
	return fmt.Sprintf("template %s/%s: %s %v", w.Trigger, w.Channel, w.Reason, w.Missing)
}
