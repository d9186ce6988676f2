package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/motive-automation/motive-core/internal/controller"
)

// Config holds the manager's loop settings.
type Config struct {
	// UpdateRate is the loop frequency in Hz. Controllers default to
	// this rate unless they report a lower one after configuration.
	UpdateRate int
}

// Deps bundles the manager's collaborators. Factory is required;
// everything else may be nil.
type Deps struct {
	Factory   *controller.Factory
	Logger    Logger
	Sink      EventSink
	Recorder  Recorder
	Telemetry Telemetry
}

// Manager owns the controller registry, the switch coordinator and the
// real-time update loop. See the package documentation for the
// threading model.
type Manager struct {
	cfg       Config
	factory   *controller.Factory
	logger    Logger
	sink      EventSink
	recorder  Recorder
	telemetry Telemetry

	registry *registry
	switches switchCoordinator
	events   chan event

	// tick is touched only on the loop goroutine.
	tick uint64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a stopped manager. Call Start to begin the update loop.
func New(cfg Config, deps Deps) (*Manager, error) {
	if deps.Factory == nil {
		return nil, fmt.Errorf("manager: factory is required")
	}
	if cfg.UpdateRate <= 0 {
		return nil, fmt.Errorf("manager: update rate must be positive, got %d", cfg.UpdateRate)
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Manager{
		cfg:       cfg,
		factory:   deps.Factory,
		logger:    logger,
		sink:      deps.Sink,
		recorder:  deps.Recorder,
		telemetry: deps.Telemetry,
		registry:  newRegistry(),
		events:    make(chan event, eventBuffer),
	}, nil
}

// Start launches the update loop and the event dispatcher. The given
// context bounds the lifetime of both; Stop cancels it early.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("manager: already started")
	}
	m.running = true

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(2)
	go m.runLoop(runCtx)
	go m.dispatchEvents(runCtx)

	m.logger.Info("manager started", "update_rate_hz", m.cfg.UpdateRate)
	return nil
}

// Stop cancels the loop and dispatcher and waits for both to exit. Any
// pending switch resolves with ErrStopped so its caller unblocks.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("manager stopped")
}

// LoadController instantiates a controller of typeName and registers
// it under name in the unconfigured state. The constructor runs on the
// caller's goroutine, outside any lock.
func (m *Manager) LoadController(_ context.Context, name, typeName string, opts controller.Options) error {
	if name == "" {
		return fmt.Errorf("manager: controller name must not be empty")
	}
	if _, exists := m.registry.get(name); exists {
		return fmt.Errorf("%w: %q", ErrAlreadyLoaded, name)
	}

	ctrl, err := m.factory.New(typeName, opts)
	if err != nil {
		m.logger.Error("failed to load controller", "controller", name, "type", typeName, "error", err)
		return err
	}

	rec := &record{
		name:       name,
		typeName:   typeName,
		state:      controller.StateUnconfigured,
		updateRate: m.cfg.UpdateRate,
		divisor:    1,
		ctrl:       ctrl,
	}
	if err := m.registry.add(rec); err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}

	m.logger.Info("controller loaded", "controller", name, "type", typeName)
	return nil
}

// UnloadController removes a controller that is not active. Active
// controllers must be stopped through a switch first.
func (m *Manager) UnloadController(_ context.Context, name string) error {
	st, ok := m.registry.state(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if st == controller.StateActive {
		return fmt.Errorf("%w: cannot unload active controller %q", ErrInvalidState, name)
	}

	m.registry.remove(name)
	m.logger.Info("controller unloaded", "controller", name, "state", st.String())
	return nil
}

// ConfigureController drives a controller to the inactive state.
//
// From unconfigured it runs the controller's Configure callback. From
// inactive it first asks CleanupReady; refusal returns
// ErrCleanupRefused with no teardown performed, otherwise Cleanup then
// Configure run in order. Callbacks execute on the caller's goroutine,
// never under the registry lock and never on the loop goroutine.
func (m *Manager) ConfigureController(ctx context.Context, name string) error {
	rec, ok := m.registry.get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	st, _ := m.registry.state(name)
	switch st {
	case controller.StateActive:
		return fmt.Errorf("%w: cannot configure active controller %q", ErrInvalidState, name)
	case controller.StateFinalized:
		return fmt.Errorf("%w: %q", ErrFinalized, name)
	case controller.StateInactive:
		if !rec.ctrl.CleanupReady() {
			m.logger.Warn("controller refused cleanup", "controller", name)
			return fmt.Errorf("%w: %q", ErrCleanupRefused, name)
		}
		if err := rec.ctrl.Cleanup(ctx); err != nil {
			m.logger.Error("controller cleanup failed", "controller", name, "error", err)
			return fmt.Errorf("cleaning up controller %q: %w", name, err)
		}
		if err := rec.ctrl.Configure(ctx); err != nil {
			// A torn-down controller that fails to configure is back
			// where it started: unconfigured.
			m.registry.setState(name, controller.StateUnconfigured)
			m.emitTransition(name, controller.StateInactive, controller.StateUnconfigured, "reconfigure")
			m.logger.Error("controller reconfigure failed", "controller", name, "error", err)
			return fmt.Errorf("%w: %q: %w", controller.ErrInitFailed, name, err)
		}
		m.applyUpdateRate(name, rec.ctrl)
		m.emitTransition(name, controller.StateInactive, controller.StateInactive, "reconfigure")
		m.logger.Info("controller reconfigured", "controller", name)
		return nil
	case controller.StateUnconfigured:
		if err := rec.ctrl.Configure(ctx); err != nil {
			m.logger.Error("controller configure failed", "controller", name, "error", err)
			return fmt.Errorf("%w: %q: %w", controller.ErrInitFailed, name, err)
		}
		m.registry.setState(name, controller.StateInactive)
		m.applyUpdateRate(name, rec.ctrl)
		m.emitTransition(name, controller.StateUnconfigured, controller.StateInactive, "configure")
		m.logger.Info("controller configured", "controller", name)
		return nil
	default:
		return fmt.Errorf("%w: %q in state %s", ErrInvalidState, name, st)
	}
}

// applyUpdateRate reads the controller's own rate back after a
// successful configure and derives the loop-tick divisor. A rate at or
// above the loop rate updates every tick; the reported rate is kept
// as-is for introspection.
func (m *Manager) applyUpdateRate(name string, ctrl controller.Controller) {
	rate := ctrl.UpdateRate()
	if rate <= 0 {
		m.registry.setRate(name, m.cfg.UpdateRate, 1)
		return
	}
	divisor := 1
	if rate < m.cfg.UpdateRate {
		divisor = m.cfg.UpdateRate / rate
	}
	m.registry.setRate(name, rate, divisor)
}

// FinalizeController moves a controller to the terminal state. No
// callbacks run; the controller simply stops being eligible for any
// further operation until unloaded.
func (m *Manager) FinalizeController(_ context.Context, name string) error {
	st, ok := m.registry.state(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if st == controller.StateFinalized {
		return fmt.Errorf("%w: %q", ErrFinalized, name)
	}

	m.registry.setState(name, controller.StateFinalized)
	m.emitTransition(name, st, controller.StateFinalized, "finalize")
	m.logger.Warn("controller finalized", "controller", name, "from", st.String())
	return nil
}

// SwitchControllers validates a switch request and, if anything
// survives validation, blocks until the update loop applies it within
// a single tick. The returned error aggregates per-controller
// activation and deactivation failures.
//
// An empty request, or a lenient request whose entries were all
// dropped, returns nil immediately without touching the loop.
func (m *Manager) SwitchControllers(ctx context.Context, req SwitchRequest) error {
	start, stop, err := m.validateSwitch(req)
	if err != nil {
		m.logger.Warn("switch request rejected", "error", err)
		return err
	}
	if len(start) == 0 && len(stop) == 0 {
		return nil
	}

	plan := &switchPlan{
		id:         m.newID(),
		start:      start,
		stop:       stop,
		strictness: req.Strictness,
		acceptedAt: time.Now().UTC(),
		done:       make(chan struct{}),
	}
	if err := m.switches.submit(plan); err != nil {
		return err
	}

	m.logger.Debug("switch accepted, waiting for update cycle",
		"switch", plan.id, "start", start, "stop", stop)

	var timeout <-chan time.Time
	if req.Timeout > 0 {
		timer := time.NewTimer(req.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-plan.done:
		return plan.err
	case <-timeout:
		return fmt.Errorf("%w after %v", ErrSwitchTimeout, req.Timeout)
	case <-ctx.Done():
		return fmt.Errorf("abandoned switch wait: %w", ctx.Err())
	}
}

// LoadedControllers lists every loaded controller in load order.
func (m *Manager) LoadedControllers() []Record {
	return m.registry.list()
}

// Controller returns the snapshot for one controller.
func (m *Manager) Controller(name string) (Record, error) {
	rec, ok := m.registry.get(name)
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	m.registry.mu.RLock()
	defer m.registry.mu.RUnlock()
	return Record{
		Name:       rec.name,
		Type:       rec.typeName,
		State:      rec.state,
		UpdateRate: rec.updateRate,
	}, nil
}

// State reports a controller's current lifecycle state.
func (m *Manager) State(name string) (controller.State, error) {
	st, ok := m.registry.state(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return st, nil
}

// UpdateRate reports a controller's effective update rate in Hz.
func (m *Manager) UpdateRate(name string) (int, error) {
	rec, err := m.Controller(name)
	if err != nil {
		return 0, err
	}
	return rec.UpdateRate, nil
}

// LoopRate reports the loop frequency in Hz.
func (m *Manager) LoopRate() int {
	return m.cfg.UpdateRate
}

func (m *Manager) newID() string {
	return uuid.New().String()
}
