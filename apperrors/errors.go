// Package apperrors holds the error taxonomy shared by services and HTTP handlers.
// Services wrap these sentinels with context (fmt.Errorf("...: %w", ErrX)) and the
// request boundary classifies them with errors.Is.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSlotIneligible    = errors.New("slot is not eligible")
	ErrCapacityExceeded  = errors.New("slot capacity exceeded")
	ErrConflict          = errors.New("conflict with current state")
	ErrTicketLocked      = &lockedError{"ticket already requested; order items are frozen"}
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrBusy              = errors.New("slot is busy, try again")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

// lockedError is a conflict that callers may want to tell apart from a stale status.
type lockedError struct{ msg string }

func (e *lockedError) Error() string { return e.msg }

func (e *lockedError) Is(target error) bool { return target == ErrConflict }

// Code returns the machine readable code sent to clients in the error envelope.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSlotIneligible):
		return "slot_ineligible"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrTicketLocked):
		return "ticket_locked"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error to the status code used at the request boundary.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case "not_found":
		return http.StatusNotFound
	case "slot_ineligible":
		return http.StatusUnprocessableEntity
	case "capacity_exceeded", "conflict", "ticket_locked", "invalid_transition":
		return http.StatusConflict
	case "busy":
		return http.StatusServiceUnavailable
	case "invalid_input":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the same request may succeed later without changes.
func Retryable(err error) bool {
	return errors.Is(err, ErrBusy)
}
