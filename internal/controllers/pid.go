package controllers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/motive-automation/motive-core/internal/controller"
)

// PID option keys.
const (
	OptionKP       = "kp"
	OptionKI       = "ki"
	OptionKD       = "kd"
	OptionSetpoint = "setpoint"
	OptionOutMin   = "output_min"
	OptionOutMax   = "output_max"
)

// PID is a proportional-integral-derivative regulator.
//
// The measurement is fed in with SetMeasurement and the computed output
// read back with Output; the controller itself performs no I/O. The
// integral term uses conditional integration as anti-windup: when the
// output is saturated and the error would push it further, integration
// is suspended.
type PID struct {
	opts controller.Options

	mu sync.Mutex

	// Gains and limits, set by Configure.
	kp, ki, kd     float64
	setpoint       float64
	outMin, outMax float64
	rate           int

	// Regulator state.
	measurement float64
	integral    float64
	lastError   float64
	lastUpdate  time.Time
	output      float64
	configured  bool
}

// NewPID constructs a PID controller. Option values are validated in
// Configure, not here, so a bad setpoint does not prevent loading.
func NewPID(opts controller.Options) (*PID, error) {
	if opts == nil {
		opts = controller.Options{}
	}
	return &PID{opts: opts}, nil
}

// Configure reads gains, setpoint, and output limits from the options.
func (p *PID) Configure(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	kp := p.opts.Float(OptionKP, 1.0)
	ki := p.opts.Float(OptionKI, 0)
	kd := p.opts.Float(OptionKD, 0)
	if kp < 0 || ki < 0 || kd < 0 {
		return fmt.Errorf("pid gains must not be negative (kp=%v ki=%v kd=%v)", kp, ki, kd)
	}

	outMin := p.opts.Float(OptionOutMin, -1.0)
	outMax := p.opts.Float(OptionOutMax, 1.0)
	if outMin >= outMax {
		return fmt.Errorf("output_min %v must be below output_max %v", outMin, outMax)
	}

	rate := p.opts.Int(controller.OptionUpdateRate, 0)
	if rate < 0 {
		return fmt.Errorf("update_rate must not be negative: %d", rate)
	}

	p.kp, p.ki, p.kd = kp, ki, kd
	p.setpoint = p.opts.Float(OptionSetpoint, 0)
	p.outMin, p.outMax = outMin, outMax
	p.rate = rate
	p.configured = true
	return nil
}

// CleanupReady always reports true; the regulator holds no external
// resources.
func (p *PID) CleanupReady() bool { return true }

// Cleanup resets the regulator state so a reconfiguration starts fresh.
func (p *PID) Cleanup(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.integral = 0
	p.lastError = 0
	p.lastUpdate = time.Time{}
	p.output = 0
	p.configured = false
	return nil
}

// Activate clears the integrator so a stale wind-up from a previous
// activation cannot kick the output.
func (p *PID) Activate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.integral = 0
	p.lastError = 0
	p.lastUpdate = time.Time{}
	return nil
}

// Deactivate holds the last output.
func (p *PID) Deactivate() error { return nil }

// Update runs one regulation cycle. The first cycle after activation
// only primes the derivative; dt is measured wall time between cycles.
func (p *PID) Update(_ context.Context, _ uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	err := p.setpoint - p.measurement

	if p.lastUpdate.IsZero() {
		p.lastUpdate = now
		p.lastError = err
		p.output = clamp(p.kp*err, p.outMin, p.outMax)
		return nil
	}

	dt := now.Sub(p.lastUpdate).Seconds()
	p.lastUpdate = now
	if dt <= 0 {
		return nil
	}

	derivative := (err - p.lastError) / dt
	p.lastError = err

	raw := p.kp*err + p.ki*(p.integral+err*dt) + p.kd*derivative
	saturatedHigh := raw > p.outMax && err > 0
	saturatedLow := raw < p.outMin && err < 0
	if !saturatedHigh && !saturatedLow {
		p.integral += err * dt
	}

	p.output = clamp(p.kp*err+p.ki*p.integral+p.kd*derivative, p.outMin, p.outMax)
	return nil
}

// UpdateRate returns the configured update rate, zero meaning "inherit
// the loop rate".
func (p *PID) UpdateRate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// SetMeasurement feeds the current process variable.
func (p *PID) SetMeasurement(v float64) {
	p.mu.Lock()
	p.measurement = v
	p.mu.Unlock()
}

// SetSetpoint changes the target value.
func (p *PID) SetSetpoint(v float64) {
	p.mu.Lock()
	p.setpoint = v
	p.mu.Unlock()
}

// Output returns the last computed control output.
func (p *PID) Output() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
