package manager

import (
	"context"
	"time"

	"github.com/motive-automation/motive-core/internal/controller"
)

// TransitionEvent describes one lifecycle state change.
type TransitionEvent struct {
	ID         string           `json:"id"`
	Controller string           `json:"controller"`
	From       controller.State `json:"from"`
	To         controller.State `json:"to"`
	Reason     string           `json:"reason"`
	At         time.Time        `json:"at"`
}

// SwitchEvent describes one applied switch plan.
type SwitchEvent struct {
	ID         string        `json:"id"`
	Started    []string      `json:"started"`
	Stopped    []string      `json:"stopped"`
	Strictness string        `json:"strictness"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	At         time.Time     `json:"at"`
}

// EventSink receives manager events for fan-out to transports.
// Delivery happens on the manager's dispatch goroutine, never on the
// loop goroutine, so implementations may do network I/O.
type EventSink interface {
	ControllerTransition(ev TransitionEvent)
	SwitchApplied(ev SwitchEvent)
}

// Recorder persists manager events. Called on the dispatch goroutine
// with a bounded context.
type Recorder interface {
	RecordTransition(ctx context.Context, ev TransitionEvent) error
	RecordSwitch(ctx context.Context, ev SwitchEvent) error
}

// Telemetry receives per-tick measurements. TickDuration is called on
// the loop goroutine every cycle and must not block; implementations
// buffer and flush on their own goroutines.
type Telemetry interface {
	TickDuration(tick uint64, d time.Duration)
	UpdateError(tick uint64, name string)
}

// Logger is the minimal logging surface the manager needs. Satisfied
// by the logging package; tests leave it nil for the no-op default.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// event is the internal union carried on the dispatch channel.
type event struct {
	transition *TransitionEvent
	sw         *SwitchEvent
}

const (
	eventBuffer     = 256
	recorderTimeout = 5 * time.Second
)

// emit queues an event for asynchronous delivery. The loop and the
// control plane both call this; a full buffer drops the event rather
// than block a tick.
func (m *Manager) emit(ev event) {
	if m.sink == nil && m.recorder == nil {
		return
	}
	select {
	case m.events <- ev:
	default:
		m.logger.Warn("event buffer full, dropping event")
	}
}

func (m *Manager) emitTransition(name string, from, to controller.State, reason string) {
	m.emit(event{transition: &TransitionEvent{
		ID:         m.newID(),
		Controller: name,
		From:       from,
		To:         to,
		Reason:     reason,
		At:         time.Now().UTC(),
	}})
}

// dispatchEvents drains the event channel until shutdown, delivering
// to the sink and recorder away from the loop goroutine.
func (m *Manager) dispatchEvents(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			m.flushEvents()
			return
		case ev := <-m.events:
			m.deliver(ev)
		}
	}
}

// flushEvents synchronously delivers everything queued so far.
func (m *Manager) flushEvents() {
	for {
		select {
		case ev := <-m.events:
			m.deliver(ev)
		default:
			return
		}
	}
}

func (m *Manager) deliver(ev event) {
	switch {
	case ev.transition != nil:
		if m.sink != nil {
			m.sink.ControllerTransition(*ev.transition)
		}
		if m.recorder != nil {
			ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
			if err := m.recorder.RecordTransition(ctx, *ev.transition); err != nil {
				m.logger.Error("failed to record transition",
					"controller", ev.transition.Controller, "error", err)
			}
			cancel()
		}
	case ev.sw != nil:
		if m.sink != nil {
			m.sink.SwitchApplied(*ev.sw)
		}
		if m.recorder != nil {
			ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
			if err := m.recorder.RecordSwitch(ctx, *ev.sw); err != nil {
				m.logger.Error("failed to record switch", "switch", ev.sw.ID, "error", err)
			}
			cancel()
		}
	}
}
