package manager

import "errors"

// Sentinel errors returned by Manager operations. Wrap with %w so
// callers can match via errors.Is.
var (
	// ErrNotFound indicates the named controller is not loaded.
	ErrNotFound = errors.New("manager: controller not found")

	// ErrAlreadyLoaded indicates a load collided with an existing name.
	ErrAlreadyLoaded = errors.New("manager: controller already loaded")

	// ErrInvalidState indicates the operation is not legal from the
	// controller's current lifecycle state.
	ErrInvalidState = errors.New("manager: operation invalid for controller state")

	// ErrCleanupRefused indicates a controller declined the cleanup
	// pre-flight check; no teardown callback was invoked.
	ErrCleanupRefused = errors.New("manager: controller refused cleanup")

	// ErrFinalized indicates the controller has reached its terminal
	// state and accepts no further operations.
	ErrFinalized = errors.New("manager: controller finalized")

	// ErrValidation indicates a strict switch request named a controller
	// that is unknown or not in the required state. Nothing was mutated.
	ErrValidation = errors.New("manager: switch validation failed")

	// ErrSwitchPending indicates another switch request is already
	// accepted and waiting for the loop.
	ErrSwitchPending = errors.New("manager: a switch is already pending")

	// ErrSwitchTimeout indicates the caller stopped waiting before the
	// loop consumed the plan. The plan itself is still applied.
	ErrSwitchTimeout = errors.New("manager: timed out waiting for switch")

	// ErrStopped indicates the manager shut down while a request was in
	// flight.
	ErrStopped = errors.New("manager: stopped")
)
