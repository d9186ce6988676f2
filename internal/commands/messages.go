package commands

import (
	"time"

	"github.com/motive-automation/motive-core/internal/controller"
)

// Command actions accepted on motive/command/{action}.
const (
	ActionLoad      = "load"
	ActionUnload    = "unload"
	ActionConfigure = "configure"
	ActionFinalize  = "finalize"
	ActionSwitch    = "switch"
	ActionList      = "list"
)

// Response error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeValidation  = "validation_failed"
	ErrCodeTimeout     = "timeout"
	ErrCodeUnknownType = "unknown_type"
	ErrCodeUnavailable = "unavailable"
	ErrCodeInternal    = "internal_error"
)

// CommandMessage is the JSON payload of an inbound command. Fields are
// action-specific; unused fields are ignored.
type CommandMessage struct {
	RequestID string `json:"request_id"`

	// load, unload, configure, finalize
	Controller string             `json:"controller,omitempty"`
	Type       string             `json:"type,omitempty"`
	Options    controller.Options `json:"options,omitempty"`
	Configure  bool               `json:"configure,omitempty"`

	// switch
	Start      []string `json:"start,omitempty"`
	Stop       []string `json:"stop,omitempty"`
	Strictness string   `json:"strictness,omitempty"`
	TimeoutMS  int      `json:"timeout_ms,omitempty"`
}

// ResponseMessage is published to motive/command/response/{request_id}.
type ResponseMessage struct {
	RequestID string         `json:"request_id"`
	Action    string         `json:"action"`
	Success   bool           `json:"success"`
	Timestamp time.Time      `json:"timestamp"`
	Data      any            `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ControllerState is the payload of the retained per-controller state
// topic motive/controller/{name}/state.
type ControllerState struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	State        string    `json:"state"`
	UpdateRateHz int       `json:"update_rate_hz"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TransitionEventMessage is published to motive/event/transition.
type TransitionEventMessage struct {
	ID         string    `json:"id"`
	Controller string    `json:"controller"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

// SwitchEventMessage is published to motive/event/switch.
type SwitchEventMessage struct {
	ID         string   `json:"id"`
	Started    []string `json:"started"`
	Stopped    []string `json:"stopped"`
	Strictness string   `json:"strictness"`
	Error      string   `json:"error,omitempty"`
	DurationUS int64    `json:"duration_us"`
	At         string   `json:"at"`
}

func newResponse(requestID, action string) ResponseMessage {
	return ResponseMessage{
		RequestID: requestID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

func (r ResponseMessage) ok(data any) ResponseMessage {
	r.Success = true
	r.Data = data
	return r
}

func (r ResponseMessage) fail(code, message string) ResponseMessage {
	r.Success = false
	r.Error = &ResponseError{Code: code, Message: message}
	return r
}
