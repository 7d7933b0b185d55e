package services

import "errors"

// Every rejection in this package leaves state unchanged and maps onto one of
// these sentinels. Countdown expiry is not an error, it is a normal session
// transition.
var (
	// ErrAuthFailure covers both an unknown username and a wrong pin.
	ErrAuthFailure = errors.New("invalid credentials")

	// ErrValidation marks a rejected transfer or loan; wrap it with the
	// specific precondition that failed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is a normal negative lookup result, not an exception.
	ErrNotFound = errors.New("account not found")

	// ErrNoSession is returned when an operation arrives without a matching
	// active session.
	ErrNoSession = errors.New("no active session")
)
