// Package commands exposes the controller manager over MQTT.
//
// Commands arrive as JSON on motive/command/{action} where action is one
// of load, unload, configure, finalize, switch, or list. Every command
// carries a request_id; the response is published to
// motive/command/response/{request_id}.
//
// The Consumer also satisfies manager.EventSink: lifecycle transitions
// and switch executions fan out on motive/event/transition and
// motive/event/switch, and each controller's current state is kept on a
// retained topic (motive/controller/{name}/state) so late subscribers
// see the live picture immediately.
package commands
