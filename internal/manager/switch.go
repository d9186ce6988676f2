package manager

import (
	"fmt"
	"sync"
	"time"

	"github.com/motive-automation/motive-core/internal/controller"
)

// Strictness selects how a switch request treats invalid entries.
type Strictness int

const (
	// StrictnessUnspecified is treated leniently, like BestEffort.
	StrictnessUnspecified Strictness = iota

	// StrictnessBestEffort drops unknown or wrong-state entries and
	// applies whatever remains.
	StrictnessBestEffort

	// StrictnessStrict rejects the whole request if any entry is
	// unknown or in the wrong state. Rejection mutates nothing.
	StrictnessStrict
)

// String returns the lowercase wire name of the strictness level.
func (s Strictness) String() string {
	switch s {
	case StrictnessBestEffort:
		return "best_effort"
	case StrictnessStrict:
		return "strict"
	default:
		return "unspecified"
	}
}

// ParseStrictness maps a wire name onto a Strictness level. The empty
// string parses as unspecified.
func ParseStrictness(s string) (Strictness, error) {
	switch s {
	case "", "unspecified":
		return StrictnessUnspecified, nil
	case "best_effort":
		return StrictnessBestEffort, nil
	case "strict":
		return StrictnessStrict, nil
	default:
		return StrictnessUnspecified, fmt.Errorf("unknown strictness %q", s)
	}
}

// SwitchRequest asks the manager to stop and start controllers within
// a single update cycle. Stops apply before starts.
type SwitchRequest struct {
	// Start names controllers to activate. They must be inactive, or
	// active and also named in Stop (an in-place restart).
	Start []string

	// Stop names controllers to deactivate. They must be active.
	Stop []string

	// Strictness selects lenient or all-or-nothing validation.
	Strictness Strictness

	// Timeout bounds how long the caller waits for the loop to apply
	// the plan. Zero waits until the request context is cancelled.
	Timeout time.Duration
}

// switchPlan is a validated request waiting for, or being applied by,
// the loop. done closes once application finishes; err is written
// before done closes and read only after.
type switchPlan struct {
	id         string
	start      []string
	stop       []string
	strictness Strictness
	acceptedAt time.Time

	done chan struct{}
	err  error
}

func (p *switchPlan) resolve(err error) {
	p.err = err
	close(p.done)
}

// switchCoordinator serializes switch plans: at most one may be
// accepted and unconsumed at any time.
type switchCoordinator struct {
	mu      sync.Mutex
	pending *switchPlan
}

func (c *switchCoordinator) submit(p *switchPlan) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		return ErrSwitchPending
	}
	c.pending = p
	return nil
}

// take hands the pending plan to the loop, clearing the slot so the
// next request can be accepted while this one applies.
func (c *switchCoordinator) take() *switchPlan {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pending
	c.pending = nil
	return p
}

// validateSwitch checks a request against current controller states
// without mutating anything. It returns the start and stop lists that
// survive validation; under Strict any invalid entry fails the whole
// request instead.
func (m *Manager) validateSwitch(req SwitchRequest) (start, stop []string, err error) {
	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()

	strict := req.Strictness == StrictnessStrict

	stopSet := make(map[string]bool, len(req.Stop))
	for _, name := range req.Stop {
		rec, ok := m.registry.records[name]
		if !ok {
			if strict {
				return nil, nil, fmt.Errorf("%w: cannot stop unknown controller %q", ErrValidation, name)
			}
			m.logger.Warn("dropping unknown controller from stop list", "controller", name)
			continue
		}
		if rec.state != controller.StateActive {
			if strict {
				return nil, nil, fmt.Errorf("%w: cannot stop controller %q in state %s", ErrValidation, name, rec.state)
			}
			m.logger.Warn("dropping non-active controller from stop list",
				"controller", name, "state", rec.state.String())
			continue
		}
		stop = append(stop, name)
		stopSet[name] = true
	}

	for _, name := range req.Start {
		rec, ok := m.registry.records[name]
		if !ok {
			if strict {
				return nil, nil, fmt.Errorf("%w: cannot start unknown controller %q", ErrValidation, name)
			}
			m.logger.Warn("dropping unknown controller from start list", "controller", name)
			continue
		}
		startable := rec.state == controller.StateInactive ||
			(rec.state == controller.StateActive && stopSet[name])
		if !startable {
			if strict {
				return nil, nil, fmt.Errorf("%w: cannot start controller %q in state %s", ErrValidation, name, rec.state)
			}
			m.logger.Warn("dropping non-startable controller from start list",
				"controller", name, "state", rec.state.String())
			continue
		}
		start = append(start, name)
	}

	return start, stop, nil
}
