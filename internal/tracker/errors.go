package tracker

import "errors"

// Validation failures surfaced by run commands. Every command either fully
// applies or is rejected with one of these before any mutation.
var (
	ErrInvalidStop      = errors.New("stop is not on this route")
	ErrUnknownStudent   = errors.New("student is not on this route's roster")
	ErrRouteNotFound    = errors.New("route not found")
	ErrRunNotFound      = errors.New("run not found")
	ErrOtpMismatch      = errors.New("verification code does not match")
	ErrAlreadyResolved  = errors.New("student is already checked in or marked absent")
	ErrInvalidDelay     = errors.New("delay must be a positive number of minutes")
	ErrInvalidMode      = errors.New("mode must be pickup or drop")
	ErrModeChangeUnsafe = errors.New("run already has resolved check-ins")
)
