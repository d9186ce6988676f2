// Package controllertest provides a deterministic controller double
// with failure injection for manager and transport tests.
//
// The double counts every callback invocation and can be told to fail
// or refuse any of them, which is how tests exercise initialization
// failure, cleanup refusal, and per-controller update errors without
// real control hardware.
package controllertest

import (
	"context"
	"errors"
	"sync"

	"github.com/motive-automation/motive-core/internal/controller"
)

// Type names registered by RegisterTypes.
const (
	// TypeName instantiates a working double.
	TypeName = "test/controller"

	// FailedInitTypeName always fails instantiation; the manager must
	// never register a controller of this type.
	FailedInitTypeName = "test/failed_init"
)

// ErrInjected is the error returned by every injected failure.
var ErrInjected = errors.New("controllertest: injected failure")

// Controller is a test double implementing controller.Controller.
//
// All fields are safe for concurrent use; mutate the Fail*/Refuse*
// flags through their setters when the loop may be running.
type Controller struct {
	mu sync.Mutex

	failConfigure  bool
	refuseCleanup  bool
	failCleanup    bool
	failActivate   bool
	failDeactivate bool
	failUpdate     bool

	configureCalls  int
	cleanupCalls    int
	activateCalls   int
	deactivateCalls int
	updateCalls     int
	lastTick        uint64

	updateRate int
}

// New builds a double from options, honouring the update_rate option
// the way a real controller would.
func New(opts controller.Options) *Controller {
	return &Controller{
		updateRate: opts.Int(controller.OptionUpdateRate, 0),
	}
}

// RegisterTypes registers the double's type names with a factory.
func RegisterTypes(f *controller.Factory) {
	f.Register(TypeName, func(opts controller.Options) (controller.Controller, error) {
		return New(opts), nil
	})
	f.Register(FailedInitTypeName, func(controller.Options) (controller.Controller, error) {
		return nil, ErrInjected
	})
}

// Configure implements controller.Controller.
func (c *Controller) Configure(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configureCalls++
	if c.failConfigure {
		return ErrInjected
	}
	return nil
}

// CleanupReady implements controller.Controller.
func (c *Controller) CleanupReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.refuseCleanup
}

// Cleanup implements controller.Controller.
func (c *Controller) Cleanup(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupCalls++
	if c.failCleanup {
		return ErrInjected
	}
	return nil
}

// Activate implements controller.Controller.
func (c *Controller) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activateCalls++
	if c.failActivate {
		return ErrInjected
	}
	return nil
}

// Deactivate implements controller.Controller.
func (c *Controller) Deactivate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deactivateCalls++
	if c.failDeactivate {
		return ErrInjected
	}
	return nil
}

// Update implements controller.Controller.
func (c *Controller) Update(_ context.Context, tick uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateCalls++
	c.lastTick = tick
	if c.failUpdate {
		return ErrInjected
	}
	return nil
}

// UpdateRate implements controller.Controller.
func (c *Controller) UpdateRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateRate
}

// SetFailConfigure injects a Configure failure.
func (c *Controller) SetFailConfigure(fail bool) { c.set(&c.failConfigure, fail) }

// SetRefuseCleanup makes CleanupReady report refusal.
func (c *Controller) SetRefuseCleanup(refuse bool) { c.set(&c.refuseCleanup, refuse) }

// SetFailCleanup injects a Cleanup failure.
func (c *Controller) SetFailCleanup(fail bool) { c.set(&c.failCleanup, fail) }

// SetFailActivate injects an Activate failure.
func (c *Controller) SetFailActivate(fail bool) { c.set(&c.failActivate, fail) }

// SetFailDeactivate injects a Deactivate failure.
func (c *Controller) SetFailDeactivate(fail bool) { c.set(&c.failDeactivate, fail) }

// SetFailUpdate injects an Update failure.
func (c *Controller) SetFailUpdate(fail bool) { c.set(&c.failUpdate, fail) }

func (c *Controller) set(field *bool, v bool) {
	c.mu.Lock()
	*field = v
	c.mu.Unlock()
}

// ConfigureCalls returns how many times Configure ran.
func (c *Controller) ConfigureCalls() int { return c.count(&c.configureCalls) }

// CleanupCalls returns how many times Cleanup ran.
func (c *Controller) CleanupCalls() int { return c.count(&c.cleanupCalls) }

// ActivateCalls returns how many times Activate ran.
func (c *Controller) ActivateCalls() int { return c.count(&c.activateCalls) }

// DeactivateCalls returns how many times Deactivate ran.
func (c *Controller) DeactivateCalls() int { return c.count(&c.deactivateCalls) }

// UpdateCalls returns how many times Update ran.
func (c *Controller) UpdateCalls() int { return c.count(&c.updateCalls) }

// LastTick returns the tick passed to the most recent Update.
func (c *Controller) LastTick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTick
}

func (c *Controller) count(field *int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *field
}
