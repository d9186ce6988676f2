package mqtt

import "fmt"

// Topic prefixes for the Motive MQTT control plane.
//
// All topics live under the flat scheme: motive/{category}/...
const (
	// TopicPrefix is the base for all Motive topics.
	TopicPrefix = "motive"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "motive/system"

	// TopicPrefixController is the base for per-controller topics.
	TopicPrefixController = "motive/controller"

	// TopicPrefixCommand is the base for inbound command topics.
	TopicPrefixCommand = "motive/command"

	// TopicPrefixEvent is the base for event fan-out topics.
	TopicPrefixEvent = "motive/event"
)

// Topics provides builders for Motive MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.ControllerState("pid_left")
//	// Returns: "motive/controller/pid_left/state"
type Topics struct{}

// ControllerState returns the retained state topic for one controller.
//
// Example: motive/controller/pid_left/state
func (Topics) ControllerState(name string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixController, name)
}

// Controllers returns the retained topic carrying the full controller
// listing.
//
// Example: motive/controllers
func (Topics) Controllers() string {
	return fmt.Sprintf("%s/controllers", TopicPrefix)
}

// Command returns the topic commands arrive on for a given action.
// Actions: load, unload, configure, switch, finalize, list.
//
// Example: motive/command/switch
func (Topics) Command(action string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixCommand, action)
}

// CommandResponse returns the topic a command response is published to.
//
// Example: motive/command/response/req-abc123
func (Topics) CommandResponse(requestID string) string {
	return fmt.Sprintf("%s/response/%s", TopicPrefixCommand, requestID)
}

// EventTransition returns the topic for controller lifecycle events.
//
// Example: motive/event/transition
func (Topics) EventTransition() string {
	return fmt.Sprintf("%s/transition", TopicPrefixEvent)
}

// EventSwitch returns the topic for switch execution events.
//
// Example: motive/event/switch
func (Topics) EventSwitch() string {
	return fmt.Sprintf("%s/switch", TopicPrefixEvent)
}

// SystemStatus returns the system status topic, also used for the LWT.
//
// Example: motive/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllCommands returns a pattern matching every command topic, excluding
// responses (which sit one level deeper).
//
// Pattern: motive/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/+", TopicPrefixCommand)
}

// AllControllerStates returns a pattern matching all controller state
// topics.
//
// Pattern: motive/controller/+/state
func (Topics) AllControllerStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixController)
}

// AllTopics returns a pattern matching all Motive topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: motive/#
func (Topics) AllTopics() string {
	return "motive/#"
}
