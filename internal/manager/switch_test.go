package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/motive-automation/motive-core/internal/controller"
	"github.com/motive-automation/motive-core/internal/controller/controllertest"
)

func TestSwitchEmptyRequestSucceedsImmediately(t *testing.T) {
	m := newTestManager(t, 100)

	// No loop is running; an empty request must not wait for one.
	err := m.SwitchControllers(context.Background(), SwitchRequest{
		Strictness: StrictnessStrict,
	})
	if err != nil {
		t.Errorf("empty strict switch error = %v, want nil", err)
	}
}

func TestSwitchStrictRejectsUnknownWithoutMutation(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "known", nil)
	mustConfigure(t, m, "known")

	err := m.SwitchControllers(context.Background(), SwitchRequest{
		Start:      []string{"known", "ghost"},
		Strictness: StrictnessStrict,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	// The valid entry must not have been touched.
	mustState(t, m, "known", controller.StateInactive)
	if got := double(t, m, "known").ActivateCalls(); got != 0 {
		t.Errorf("ActivateCalls = %d, want 0 after strict rejection", got)
	}
}

func TestSwitchStrictRejectsUnconfiguredStart(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "raw", nil)

	err := m.SwitchControllers(context.Background(), SwitchRequest{
		Start:      []string{"raw"},
		Strictness: StrictnessStrict,
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	mustState(t, m, "raw", controller.StateUnconfigured)
}

func TestSwitchStrictRejectsStopOfInactive(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "idle", nil)
	mustConfigure(t, m, "idle")

	err := m.SwitchControllers(context.Background(), SwitchRequest{
		Stop:       []string{"idle"},
		Strictness: StrictnessStrict,
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestSwitchBestEffortDropsInvalidEntries(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "good", nil)
	mustLoad(t, m, "raw", nil)
	mustConfigure(t, m, "good")

	done := make(chan error, 1)
	go func() {
		done <- m.SwitchControllers(context.Background(), SwitchRequest{
			Start:      []string{"good", "raw", "ghost"},
			Strictness: StrictnessBestEffort,
		})
	}()
	waitForPending(t, m)
	m.tickOnce(context.Background())

	if err := <-done; err != nil {
		t.Fatalf("best-effort switch error = %v, want nil", err)
	}
	mustState(t, m, "good", controller.StateActive)
	mustState(t, m, "raw", controller.StateUnconfigured)
}

func TestSwitchBestEffortAllDroppedSucceedsImmediately(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "raw", nil)

	// Everything drops out, so there is no plan and no wait.
	err := m.SwitchControllers(context.Background(), SwitchRequest{
		Start:      []string{"raw", "ghost"},
		Strictness: StrictnessBestEffort,
	})
	if err != nil {
		t.Errorf("error = %v, want nil", err)
	}
	mustState(t, m, "raw", controller.StateUnconfigured)
}

func TestSwitchUnspecifiedBehavesLeniently(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "good", nil)
	mustConfigure(t, m, "good")

	done := make(chan error, 1)
	go func() {
		done <- m.SwitchControllers(context.Background(), SwitchRequest{
			Start: []string{"good", "ghost"},
		})
	}()
	waitForPending(t, m)
	m.tickOnce(context.Background())

	if err := <-done; err != nil {
		t.Fatalf("unspecified switch error = %v, want nil", err)
	}
	mustState(t, m, "good", controller.StateActive)
}

func TestSwitchBlocksUntilUpdateCycle(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "ctrl1", nil)
	mustConfigure(t, m, "ctrl1")

	done := make(chan error, 1)
	go func() {
		done <- m.SwitchControllers(context.Background(), SwitchRequest{
			Start:      []string{"ctrl1"},
			Strictness: StrictnessStrict,
		})
	}()
	waitForPending(t, m)

	select {
	case err := <-done:
		t.Fatalf("switch returned %v before any update cycle ran", err)
	case <-time.After(50 * time.Millisecond):
	}
	mustState(t, m, "ctrl1", controller.StateInactive)

	m.tickOnce(context.Background())

	if err := <-done; err != nil {
		t.Fatalf("switch error = %v, want nil", err)
	}
	mustState(t, m, "ctrl1", controller.StateActive)
}

func TestSwitchAppliesStopsAndStartsInOneCycle(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "outgoing", nil)
	mustLoad(t, m, "incoming", nil)
	mustConfigure(t, m, "outgoing")
	mustConfigure(t, m, "incoming")
	mustActivate(t, m, "outgoing")

	done := make(chan error, 1)
	go func() {
		done <- m.SwitchControllers(context.Background(), SwitchRequest{
			Start:      []string{"incoming"},
			Stop:       []string{"outgoing"},
			Strictness: StrictnessStrict,
		})
	}()
	waitForPending(t, m)
	m.tickOnce(context.Background())

	if err := <-done; err != nil {
		t.Fatalf("switch error = %v, want nil", err)
	}
	mustState(t, m, "outgoing", controller.StateInactive)
	mustState(t, m, "incoming", controller.StateActive)

	// The incoming controller's first update ran on the same tick the
	// switch applied in.
	if got := double(t, m, "incoming").UpdateCalls(); got != 1 {
		t.Errorf("incoming UpdateCalls = %d, want 1", got)
	}
	if got := double(t, m, "outgoing").DeactivateCalls(); got != 1 {
		t.Errorf("outgoing DeactivateCalls = %d, want 1", got)
	}
}

func TestSwitchRestartInPlace(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "ctrl1", nil)
	mustConfigure(t, m, "ctrl1")
	mustActivate(t, m, "ctrl1")

	done := make(chan error, 1)
	go func() {
		done <- m.SwitchControllers(context.Background(), SwitchRequest{
			Start:      []string{"ctrl1"},
			Stop:       []string{"ctrl1"},
			Strictness: StrictnessStrict,
		})
	}()
	waitForPending(t, m)
	m.tickOnce(context.Background())

	if err := <-done; err != nil {
		t.Fatalf("restart switch error = %v, want nil", err)
	}
	mustState(t, m, "ctrl1", controller.StateActive)

	tc := double(t, m, "ctrl1")
	if got := tc.DeactivateCalls(); got != 1 {
		t.Errorf("DeactivateCalls = %d, want 1", got)
	}
	if got := tc.ActivateCalls(); got != 2 {
		t.Errorf("ActivateCalls = %d, want 2", got)
	}
}

func TestSecondSwitchRejectedWhilePending(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "ctrl1", nil)
	mustLoad(t, m, "ctrl2", nil)
	mustConfigure(t, m, "ctrl1")
	mustConfigure(t, m, "ctrl2")

	done := make(chan error, 1)
	go func() {
		done <- m.SwitchControllers(context.Background(), SwitchRequest{
			Start:      []string{"ctrl1"},
			Strictness: StrictnessStrict,
		})
	}()
	waitForPending(t, m)

	err := m.SwitchControllers(context.Background(), SwitchRequest{
		Start:      []string{"ctrl2"},
		Strictness: StrictnessStrict,
	})
	if !errors.Is(err, ErrSwitchPending) {
		t.Errorf("second switch error = %v, want ErrSwitchPending", err)
	}

	m.tickOnce(context.Background())
	if err := <-done; err != nil {
		t.Fatalf("first switch error = %v, want nil", err)
	}
}

func TestSwitchTimeoutDoesNotRetractPlan(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "ctrl1", nil)
	mustConfigure(t, m, "ctrl1")

	err := m.SwitchControllers(context.Background(), SwitchRequest{
		Start:      []string{"ctrl1"},
		Strictness: StrictnessStrict,
		Timeout:    20 * time.Millisecond,
	})
	if !errors.Is(err, ErrSwitchTimeout) {
		t.Fatalf("error = %v, want ErrSwitchTimeout", err)
	}

	// The abandoned plan still applies on the next cycle.
	m.tickOnce(context.Background())
	mustState(t, m, "ctrl1", controller.StateActive)
}

func TestSwitchActivationFailureReportedToCaller(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "ctrl1", nil)
	mustConfigure(t, m, "ctrl1")
	double(t, m, "ctrl1").SetFailActivate(true)

	done := make(chan error, 1)
	go func() {
		done <- m.SwitchControllers(context.Background(), SwitchRequest{
			Start:      []string{"ctrl1"},
			Strictness: StrictnessStrict,
		})
	}()
	waitForPending(t, m)
	m.tickOnce(context.Background())

	err := <-done
	if !errors.Is(err, controllertest.ErrInjected) {
		t.Fatalf("error = %v, want wrapped ErrInjected", err)
	}
	mustState(t, m, "ctrl1", controller.StateInactive)
}

func TestSwitchDeactivationFailureLeavesControllerActive(t *testing.T) {
	m := newTestManager(t, 100)
	mustLoad(t, m, "ctrl1", nil)
	mustConfigure(t, m, "ctrl1")
	mustActivate(t, m, "ctrl1")
	double(t, m, "ctrl1").SetFailDeactivate(true)

	done := make(chan error, 1)
	go func() {
		done <- m.SwitchControllers(context.Background(), SwitchRequest{
			Stop:       []string{"ctrl1"},
			Strictness: StrictnessStrict,
		})
	}()
	waitForPending(t, m)
	m.tickOnce(context.Background())

	if err := <-done; !errors.Is(err, controllertest.ErrInjected) {
		t.Fatalf("error = %v, want wrapped ErrInjected", err)
	}
	mustState(t, m, "ctrl1", controller.StateActive)
}

func TestParseStrictness(t *testing.T) {
	tests := []struct {
		in      string
		want    Strictness
		wantErr bool
	}{
		{"", StrictnessUnspecified, false},
		{"unspecified", StrictnessUnspecified, false},
		{"best_effort", StrictnessBestEffort, false},
		{"strict", StrictnessStrict, false},
		{"bogus", StrictnessUnspecified, true},
	}

	for _, tt := range tests {
		got, err := ParseStrictness(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrictness(%q) error = %v, wantErr %t", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseStrictness(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
