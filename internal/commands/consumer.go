package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/motive-automation/motive-core/internal/controller"
	"github.com/motive-automation/motive-core/internal/infrastructure/logging"
	"github.com/motive-automation/motive-core/internal/infrastructure/mqtt"
	"github.com/motive-automation/motive-core/internal/manager"
)

// defaultCommandTimeout bounds command execution when the message does
// not carry its own timeout.
const defaultCommandTimeout = 5 * time.Second

// Broker is the MQTT surface the consumer needs. Satisfied by
// *mqtt.Client; narrowed for testing.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Options configures a Consumer.
type Options struct {
	Broker  Broker
	Manager *manager.Manager
	Logger  *logging.Logger

	// QoS for subscriptions and published responses/events. Default 1.
	QoS byte

	// CommandTimeout bounds execution of a single command. Switch
	// commands with an explicit timeout_ms use that instead.
	CommandTimeout time.Duration
}

// Consumer subscribes to the command topics and drives the manager. It
// also implements manager.EventSink for event fan-out.
type Consumer struct {
	broker  Broker
	manager *manager.Manager
	logger  *logging.Logger
	topics  mqtt.Topics
	qos     byte
	timeout time.Duration

	closeOnce sync.Once
}

// NewConsumer creates a consumer. Call Start to begin receiving commands.
func NewConsumer(opts Options) (*Consumer, error) {
	if opts.Broker == nil {
		return nil, fmt.Errorf("broker is required")
	}
	if opts.Manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	qos := opts.QoS
	if qos == 0 {
		qos = 1
	}
	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	return &Consumer{
		broker:  opts.Broker,
		manager: opts.Manager,
		logger:  opts.Logger,
		qos:     qos,
		timeout: timeout,
	}, nil
}

// Start subscribes to the command topic pattern and publishes the
// initial retained controller listing.
func (c *Consumer) Start() error {
	if err := c.broker.Subscribe(c.topics.AllCommands(), c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	c.logger.Info("command consumer started", "topic", c.topics.AllCommands())

	c.publishListing()
	return nil
}

// Close unsubscribes from the command topics. Safe to call more than once.
func (c *Consumer) Close() {
	c.closeOnce.Do(func() {
		if err := c.broker.Unsubscribe(c.topics.AllCommands()); err != nil {
			c.logger.Warn("failed to unsubscribe from commands", "error", err)
		}
	})
}

// handleMessage dispatches one inbound command. Runs on the MQTT
// client's handler goroutine.
func (c *Consumer) handleMessage(topic string, payload []byte) error {
	action := topic[strings.LastIndex(topic, "/")+1:]

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		c.logger.Warn("dropping malformed command", "topic", topic, "error", err)
		return nil
	}
	if cmd.RequestID == "" {
		// Without a request ID there is nowhere to send the response.
		c.logger.Warn("dropping command without request_id", "action", action)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.commandTimeout(action, cmd))
	defer cancel()

	var resp ResponseMessage
	switch action {
	case ActionLoad:
		resp = c.handleLoad(ctx, cmd)
	case ActionUnload:
		resp = c.handleUnload(ctx, cmd)
	case ActionConfigure:
		resp = c.handleConfigure(ctx, cmd)
	case ActionFinalize:
		resp = c.handleFinalize(ctx, cmd)
	case ActionSwitch:
		resp = c.handleSwitch(ctx, cmd)
	case ActionList:
		resp = c.handleList(cmd)
	default:
		resp = newResponse(cmd.RequestID, action).
			fail(ErrCodeBadRequest, "unknown action: "+action)
	}

	c.publishResponse(resp)
	return nil
}

// commandTimeout picks the context deadline for a command. Switch
// commands with an explicit timeout get headroom so the manager's own
// timeout fires first and reports ErrSwitchTimeout.
func (c *Consumer) commandTimeout(action string, cmd CommandMessage) time.Duration {
	if action == ActionSwitch && cmd.TimeoutMS > 0 {
		return time.Duration(cmd.TimeoutMS)*time.Millisecond + time.Second
	}
	return c.timeout
}

func (c *Consumer) handleLoad(ctx context.Context, cmd CommandMessage) ResponseMessage {
	resp := newResponse(cmd.RequestID, ActionLoad)
	if cmd.Controller == "" {
		return resp.fail(ErrCodeBadRequest, "controller is required")
	}
	if cmd.Type == "" {
		return resp.fail(ErrCodeBadRequest, "type is required")
	}

	if err := c.manager.LoadController(ctx, cmd.Controller, cmd.Type, cmd.Options); err != nil {
		return resp.fail(errorCode(err), err.Error())
	}

	if cmd.Configure {
		if err := c.manager.ConfigureController(ctx, cmd.Controller); err != nil {
			// Loaded but unconfigured; report the configure failure.
			return resp.fail(errorCode(err), fmt.Sprintf("loaded but configure failed: %v", err))
		}
	}

	c.publishListing()
	return resp.ok(c.recordData(cmd.Controller))
}

func (c *Consumer) handleUnload(ctx context.Context, cmd CommandMessage) ResponseMessage {
	resp := newResponse(cmd.RequestID, ActionUnload)
	if cmd.Controller == "" {
		return resp.fail(ErrCodeBadRequest, "controller is required")
	}

	if err := c.manager.UnloadController(ctx, cmd.Controller); err != nil {
		return resp.fail(errorCode(err), err.Error())
	}

	// Clear the retained state topic for the unloaded controller.
	if err := c.broker.Publish(c.topics.ControllerState(cmd.Controller), nil, c.qos, true); err != nil {
		c.logger.Warn("failed to clear retained state", "controller", cmd.Controller, "error", err)
	}

	c.publishListing()
	return resp.ok(nil)
}

func (c *Consumer) handleConfigure(ctx context.Context, cmd CommandMessage) ResponseMessage {
	resp := newResponse(cmd.RequestID, ActionConfigure)
	if cmd.Controller == "" {
		return resp.fail(ErrCodeBadRequest, "controller is required")
	}

	if err := c.manager.ConfigureController(ctx, cmd.Controller); err != nil {
		return resp.fail(errorCode(err), err.Error())
	}
	return resp.ok(c.recordData(cmd.Controller))
}

func (c *Consumer) handleFinalize(ctx context.Context, cmd CommandMessage) ResponseMessage {
	resp := newResponse(cmd.RequestID, ActionFinalize)
	if cmd.Controller == "" {
		return resp.fail(ErrCodeBadRequest, "controller is required")
	}

	if err := c.manager.FinalizeController(ctx, cmd.Controller); err != nil {
		return resp.fail(errorCode(err), err.Error())
	}
	return resp.ok(c.recordData(cmd.Controller))
}

func (c *Consumer) handleSwitch(ctx context.Context, cmd CommandMessage) ResponseMessage {
	resp := newResponse(cmd.RequestID, ActionSwitch)

	strictness, err := manager.ParseStrictness(cmd.Strictness)
	if err != nil {
		return resp.fail(ErrCodeBadRequest, err.Error())
	}
	if cmd.TimeoutMS < 0 {
		return resp.fail(ErrCodeBadRequest, "timeout_ms must not be negative")
	}

	req := manager.SwitchRequest{
		Start:      cmd.Start,
		Stop:       cmd.Stop,
		Strictness: strictness,
		Timeout:    time.Duration(cmd.TimeoutMS) * time.Millisecond,
	}
	if err := c.manager.SwitchControllers(ctx, req); err != nil {
		return resp.fail(errorCode(err), err.Error())
	}

	return resp.ok(map[string]any{
		"start":      nonNilList(cmd.Start),
		"stop":       nonNilList(cmd.Stop),
		"strictness": strictness.String(),
	})
}

func (c *Consumer) handleList(cmd CommandMessage) ResponseMessage {
	resp := newResponse(cmd.RequestID, ActionList)
	records := c.manager.LoadedControllers()

	states := make([]ControllerState, 0, len(records))
	for _, rec := range records {
		states = append(states, toControllerState(rec))
	}
	return resp.ok(map[string]any{
		"controllers": states,
		"count":       len(states),
	})
}

// ─── Event fan-out ──────────────────────────────────────────────────────────

// ControllerTransition implements manager.EventSink. Publishes the
// transition event and refreshes the controller's retained state topic.
func (c *Consumer) ControllerTransition(ev manager.TransitionEvent) {
	c.publishJSON(c.topics.EventTransition(), TransitionEventMessage{
		ID:         ev.ID,
		Controller: ev.Controller,
		From:       ev.From.String(),
		To:         ev.To.String(),
		Reason:     ev.Reason,
		At:         ev.At.UTC(),
	}, false)

	c.publishState(ev.Controller)
}

// SwitchApplied implements manager.EventSink.
func (c *Consumer) SwitchApplied(ev manager.SwitchEvent) {
	c.publishJSON(c.topics.EventSwitch(), SwitchEventMessage{
		ID:         ev.ID,
		Started:    nonNilList(ev.Started),
		Stopped:    nonNilList(ev.Stopped),
		Strictness: ev.Strictness,
		Error:      ev.Error,
		DurationUS: ev.Duration.Microseconds(),
		At:         ev.At.UTC().Format(time.RFC3339Nano),
	}, false)
}

// publishState refreshes the retained state topic for one controller.
// Clears the topic if the controller is no longer loaded.
func (c *Consumer) publishState(name string) {
	rec, err := c.manager.Controller(name)
	if err != nil {
		if err := c.broker.Publish(c.topics.ControllerState(name), nil, c.qos, true); err != nil {
			c.logger.Warn("failed to clear retained state", "controller", name, "error", err)
		}
		return
	}
	c.publishJSON(c.topics.ControllerState(name), toControllerState(rec), true)
}

// publishListing refreshes the retained controller listing topic.
func (c *Consumer) publishListing() {
	records := c.manager.LoadedControllers()
	states := make([]ControllerState, 0, len(records))
	for _, rec := range records {
		states = append(states, toControllerState(rec))
	}
	c.publishJSON(c.topics.Controllers(), map[string]any{
		"controllers": states,
		"count":       len(states),
	}, true)
}

func (c *Consumer) publishResponse(resp ResponseMessage) {
	c.publishJSON(c.topics.CommandResponse(resp.RequestID), resp, false)
}

func (c *Consumer) publishJSON(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to marshal payload", "topic", topic, "error", err)
		return
	}
	if err := c.broker.Publish(topic, payload, c.qos, retained); err != nil {
		c.logger.Warn("publish failed", "topic", topic, "error", err)
	}
}

// recordData returns the controller's current record for a response, or
// nil if it has been unloaded in the meantime.
func (c *Consumer) recordData(name string) any {
	rec, err := c.manager.Controller(name)
	if err != nil {
		return nil
	}
	return toControllerState(rec)
}

func toControllerState(rec manager.Record) ControllerState {
	return ControllerState{
		Name:         rec.Name,
		Type:         rec.Type,
		State:        rec.State.String(),
		UpdateRateHz: rec.UpdateRate,
		UpdatedAt:    time.Now().UTC(),
	}
}

// errorCode maps manager errors to wire error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, manager.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, manager.ErrAlreadyLoaded),
		errors.Is(err, manager.ErrInvalidState),
		errors.Is(err, manager.ErrFinalized),
		errors.Is(err, manager.ErrCleanupRefused),
		errors.Is(err, manager.ErrSwitchPending):
		return ErrCodeConflict
	case errors.Is(err, manager.ErrValidation):
		return ErrCodeValidation
	case errors.Is(err, manager.ErrSwitchTimeout):
		return ErrCodeTimeout
	case errors.Is(err, manager.ErrStopped):
		return ErrCodeUnavailable
	case errors.Is(err, controller.ErrUnknownType):
		return ErrCodeUnknownType
	default:
		return ErrCodeInternal
	}
}

func nonNilList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
