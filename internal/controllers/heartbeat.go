package controllers

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/motive-automation/motive-core/internal/controller"
)

// Heartbeat counts its own update cycles. Deploying one at a known
// update_rate and watching Ticks climb verifies the loop and the
// decimation logic on a live system.
type Heartbeat struct {
	opts controller.Options

	rate       atomic.Int64
	ticks      atomic.Uint64
	lastTick   atomic.Uint64
	configured atomic.Bool
}

// NewHeartbeat constructs a heartbeat controller.
func NewHeartbeat(opts controller.Options) (*Heartbeat, error) {
	if opts == nil {
		opts = controller.Options{}
	}
	return &Heartbeat{opts: opts}, nil
}

// Configure reads the update rate.
func (h *Heartbeat) Configure(_ context.Context) error {
	rate := h.opts.Int(controller.OptionUpdateRate, 0)
	if rate < 0 {
		return fmt.Errorf("update_rate must not be negative: %d", rate)
	}
	h.rate.Store(int64(rate))
	h.configured.Store(true)
	return nil
}

// CleanupReady always reports true.
func (h *Heartbeat) CleanupReady() bool { return true }

// Cleanup resets the counters.
func (h *Heartbeat) Cleanup(_ context.Context) error {
	h.ticks.Store(0)
	h.lastTick.Store(0)
	h.configured.Store(false)
	return nil
}

// Activate resets the cycle counter for a fresh run.
func (h *Heartbeat) Activate() error {
	h.ticks.Store(0)
	return nil
}

// Deactivate keeps the counters readable after deactivation.
func (h *Heartbeat) Deactivate() error { return nil }

// Update counts one cycle.
func (h *Heartbeat) Update(_ context.Context, tick uint64) error {
	h.ticks.Add(1)
	h.lastTick.Store(tick)
	return nil
}

// UpdateRate returns the configured update rate.
func (h *Heartbeat) UpdateRate() int { return int(h.rate.Load()) }

// Ticks returns the number of update cycles since activation.
func (h *Heartbeat) Ticks() uint64 { return h.ticks.Load() }

// LastTick returns the loop tick of the most recent update.
func (h *Heartbeat) LastTick() uint64 { return h.lastTick.Load() }
