package controller

import "errors"

// Domain errors for controller instantiation.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, controller.ErrUnknownType) {
//	    // handle unknown type name
//	}
var (
	// ErrUnknownType is returned when a type name has no registered
	// constructor.
	ErrUnknownType = errors.New("controller: unknown type")

	// ErrInitFailed is returned when a controller's constructor reports
	// failure. The controller is never registered.
	ErrInitFailed = errors.New("controller: initialization failed")
)
