// Package mqtt wraps paho.mqtt.golang for Motive Core's control plane.
//
// Supervisory systems drive controllers by publishing commands to
// motive/command/+ and read retained controller state from
// motive/controller/{name}/state; lifecycle and switch events fan out
// on motive/event/*. The client arms a Last Will so the broker
// announces an unexpected disconnect on motive/system/status, tracks
// subscriptions across reconnects, and recovers handler panics so a
// malformed command cannot take down the message router.
package mqtt
