package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/motive-automation/motive-core/internal/controller"
)

// runLoop is the real-time side of the manager: a fixed-rate ticker
// that applies at most one switch plan per tick and then updates every
// active controller. It is the only goroutine that activates or
// deactivates controllers.
func (m *Manager) runLoop(ctx context.Context) {
	defer m.wg.Done()

	interval := time.Second / time.Duration(m.cfg.UpdateRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Unblock any caller still waiting on an unconsumed plan.
			if plan := m.switches.take(); plan != nil {
				plan.resolve(fmt.Errorf("%w: switch %s not applied", ErrStopped, plan.id))
			}
			return
		case <-ticker.C:
			m.tickOnce(ctx)
		}
	}
}

// tickOnce runs one update cycle. Tests call it directly for
// deterministic tick control.
func (m *Manager) tickOnce(ctx context.Context) {
	started := time.Now()
	m.tick++

	if plan := m.switches.take(); plan != nil {
		m.applySwitch(plan)
	}
	m.updateActive(ctx)

	if m.telemetry != nil {
		m.telemetry.TickDuration(m.tick, time.Since(started))
	}
}

// applySwitch deactivates the plan's stop list, then activates its
// start list, all within the current tick. Per-controller failures are
// collected and handed back to the waiting caller; they never abort
// the rest of the plan or the tick.
func (m *Manager) applySwitch(plan *switchPlan) {
	started := time.Now()
	var errs []error
	var stopped, activated []string

	for _, name := range plan.stop {
		rec, ok := m.registry.get(name)
		if !ok {
			errs = append(errs, fmt.Errorf("stop %q: %w", name, ErrNotFound))
			continue
		}
		if st, _ := m.registry.state(name); st != controller.StateActive {
			errs = append(errs, fmt.Errorf("stop %q: %w: state %s", name, ErrInvalidState, st))
			continue
		}
		if err := rec.ctrl.Deactivate(); err != nil {
			m.logger.Error("controller deactivate failed", "controller", name, "error", err)
			errs = append(errs, fmt.Errorf("stop %q: %w", name, err))
			continue
		}
		m.registry.setState(name, controller.StateInactive)
		m.emitTransition(name, controller.StateActive, controller.StateInactive, "switch")
		stopped = append(stopped, name)
	}

	for _, name := range plan.start {
		rec, ok := m.registry.get(name)
		if !ok {
			errs = append(errs, fmt.Errorf("start %q: %w", name, ErrNotFound))
			continue
		}
		if st, _ := m.registry.state(name); st != controller.StateInactive {
			errs = append(errs, fmt.Errorf("start %q: %w: state %s", name, ErrInvalidState, st))
			continue
		}
		if err := rec.ctrl.Activate(); err != nil {
			m.logger.Error("controller activate failed", "controller", name, "error", err)
			errs = append(errs, fmt.Errorf("start %q: %w", name, err))
			continue
		}
		m.registry.setState(name, controller.StateActive)
		m.emitTransition(name, controller.StateInactive, controller.StateActive, "switch")
		activated = append(activated, name)
	}

	err := errors.Join(errs...)
	ev := &SwitchEvent{
		ID:         plan.id,
		Started:    activated,
		Stopped:    stopped,
		Strictness: plan.strictness.String(),
		Duration:   time.Since(started),
		At:         time.Now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	m.emit(event{sw: ev})

	m.logger.Info("switch applied",
		"switch", plan.id, "started", activated, "stopped", stopped, "errors", len(errs))
	plan.resolve(err)
}

// updateActive runs Update on every active controller due this tick.
// A controller whose rate divides the loop rate runs every divisor-th
// tick. Update errors are isolated: logged, counted, and the cycle
// moves on to the next controller.
func (m *Manager) updateActive(ctx context.Context) {
	for _, entry := range m.registry.active() {
		if m.tick%uint64(entry.divisor) != 0 {
			continue
		}
		if err := entry.ctrl.Update(ctx, m.tick); err != nil {
			m.logger.Error("controller update failed",
				"controller", entry.name, "tick", m.tick, "error", err)
			if m.telemetry != nil {
				m.telemetry.UpdateError(m.tick, entry.name)
			}
		}
	}
}
