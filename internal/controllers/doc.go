// Package controllers provides the built-in controller types shipped
// with Motive Core.
//
// Two types are registered by RegisterBuiltins:
//
//   - "motive/pid": a PID regulator. Gains, setpoint, and output clamp
//     come from options; measurement and output are exchanged through
//     SetMeasurement/Output so transports can wire it to real signals.
//   - "motive/heartbeat": a liveness controller that counts its own
//     update cycles. Useful for verifying loop rate and decimation on a
//     live deployment.
//
// Both types follow the lifecycle contract in the controller package:
// Configure reads options and acquires state, Cleanup releases it,
// Activate/Deactivate/Update run on the loop goroutine.
package controllers
