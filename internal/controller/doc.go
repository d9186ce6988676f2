// Package controller defines the capability interface every managed
// controller must implement, the lifecycle states a controller moves
// through, and the type-name factory used to instantiate controllers.
//
// A controller is a pluggable unit of control logic (a PID loop, a
// trajectory follower, a safety interlock) that the manager ticks from
// its real-time update loop. Controllers are passive: they never spawn
// their own goroutines for control work and they never talk to the
// manager directly. The manager owns every instance exclusively through
// its registry.
//
// # Lifecycle
//
//	Unconfigured ──configure──▶ Inactive ──activate──▶ Active
//	     ▲                        │  ▲                   │
//	     └───(cleanup+configure)──┘  └────deactivate─────┘
//
//	any state ──finalize──▶ Finalized (terminal)
//
// Activate and Deactivate are only ever reached through the manager's
// switch protocol; they are invoked on the real-time loop goroutine and
// must complete within the tick budget. Configure and Cleanup run on
// control-plane goroutines and may block.
//
// # Usage
//
//	factory := controller.NewFactory()
//	factory.Register("motive/pid", func(opts controller.Options) (controller.Controller, error) {
//	    return pid.New(opts)
//	})
//
//	ctrl, err := factory.New("motive/pid", controller.Options{"update_rate": 50})
package controller
