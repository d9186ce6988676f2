package controller

import "context"

// Controller is the capability interface the manager requires from
// every controller implementation.
//
// The manager tracks lifecycle state externally (in its registry);
// implementations only provide the transition callbacks and must not
// assume anything about when they are called beyond the lifecycle
// contract documented in the package comment.
//
// Thread Safety: the manager serialises all calls to a single instance,
// but Configure/Cleanup run on control-plane goroutines while
// Activate/Deactivate/Update run on the loop goroutine. Implementations
// that share state between the two paths must guard it themselves.
type Controller interface {
	// Configure acquires the controller's resources and reads its
	// options. Called from Unconfigured (initial configuration) and
	// after a successful Cleanup (reconfiguration). An error leaves the
	// controller without resources.
	Configure(ctx context.Context) error

	// CleanupReady reports whether the controller can release its
	// resources right now. The manager queries this before invoking
	// Cleanup so that a refusal causes zero side effects.
	CleanupReady() bool

	// Cleanup releases the resources acquired by Configure. Invoked at
	// most once per reconfiguration, and only after CleanupReady
	// returned true.
	Cleanup(ctx context.Context) error

	// Activate transitions the controller into the updated set. Runs on
	// the real-time loop goroutine and must return within the tick
	// budget.
	Activate() error

	// Deactivate removes the controller from the updated set. Runs on
	// the real-time loop goroutine and must return within the tick
	// budget.
	Deactivate() error

	// Update executes one control cycle. tick is the loop's monotonic
	// tick counter. Errors are isolated per controller: they are
	// reported but never abort the tick or other controllers.
	Update(ctx context.Context, tick uint64) error

	// UpdateRate returns the controller's own update rate in Hz, read
	// back after a successful Configure. Zero means "inherit the loop
	// rate".
	UpdateRate() int
}
