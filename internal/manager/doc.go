// Package manager orchestrates controllers inside a periodic real-time
// update loop while letting non-real-time callers load, configure and
// atomically swap controllers without stalling the loop.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                           Manager                             │
//	│                                                               │
//	│  ┌────────────┐   ┌───────────────────┐   ┌───────────────┐   │
//	│  │  registry  │   │ switchCoordinator │   │  update loop  │   │
//	│  │ (records)  │◀──│ (single pending   │──▶│ (one tick =   │   │
//	│  │            │   │  plan + waiters)  │   │  apply + run) │   │
//	│  └────────────┘   └───────────────────┘   └───────────────┘   │
//	└───────────────────────────────────────────────────────────────┘
//
// Two execution contexts exist: the single loop goroutine, and any
// number of control-plane goroutines (HTTP handlers, MQTT command
// consumers, tests). Load, unload and configure run synchronously on
// the caller's goroutine, taking the registry lock only for short,
// bounded sections — never across a controller callback. Switching is
// tick-gated: an accepted request becomes the single pending plan and
// the caller blocks until the loop consumes it at the start of a tick.
//
// # Switch protocol
//
// Validation happens synchronously with zero mutation. Under Strict
// strictness any unknown name, any start-list controller that is not
// inactive, or any stop-list controller that is not active rejects the
// whole request. BestEffort and Unspecified drop invalid entries and
// apply the remainder. Within a tick, stops are applied before starts
// so an outgoing and an incoming controller never contend for the same
// resource mid-tick; a controller named in both lists is restarted in
// place. A second switch arriving while one is pending is rejected
// with ErrSwitchPending. A caller that abandons its wait (timeout or
// context cancellation) does not retract the accepted plan.
package manager
