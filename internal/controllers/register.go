package controllers

import "github.com/motive-automation/motive-core/internal/controller"

// Built-in controller type names.
const (
	TypePID       = "motive/pid"
	TypeHeartbeat = "motive/heartbeat"
)

// RegisterBuiltins registers every built-in controller type with the
// factory.
func RegisterBuiltins(f *controller.Factory) {
	f.Register(TypePID, func(opts controller.Options) (controller.Controller, error) {
		return NewPID(opts)
	})
	f.Register(TypeHeartbeat, func(opts controller.Options) (controller.Controller, error) {
		return NewHeartbeat(opts)
	})
}
