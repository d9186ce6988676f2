package controller

import (
	"errors"
	"testing"
)

type nopController struct{ Controller }

func TestFactoryNew(t *testing.T) {
	f := NewFactory()
	f.Register("test/ok", func(Options) (Controller, error) {
		return nopController{}, nil
	})
	f.Register("test/fail", func(Options) (Controller, error) {
		return nil, errors.New("boom")
	})

	if _, err := f.New("test/ok", nil); err != nil {
		t.Fatalf("New(test/ok) returned error: %v", err)
	}

	if _, err := f.New("test/missing", nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("New(test/missing) error = %v, want ErrUnknownType", err)
	}

	if _, err := f.New("test/fail", nil); !errors.Is(err, ErrInitFailed) {
		t.Errorf("New(test/fail) error = %v, want ErrInitFailed", err)
	}
}

func TestFactoryRegisterReplaces(t *testing.T) {
	f := NewFactory()
	f.Register("test/ok", func(Options) (Controller, error) {
		return nil, errors.New("first")
	})
	f.Register("test/ok", func(Options) (Controller, error) {
		return nopController{}, nil
	})

	if _, err := f.New("test/ok", nil); err != nil {
		t.Fatalf("replaced constructor still failing: %v", err)
	}

	if got := len(f.Types()); got != 1 {
		t.Errorf("Types() length = %d, want 1", got)
	}
}

func TestOptionsInt(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"absent", Options{}, 100},
		{"int", Options{"update_rate": 50}, 50},
		{"float64 from JSON", Options{"update_rate": float64(25)}, 25},
		{"wrong type", Options{"update_rate": "fast"}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Int(OptionUpdateRate, 100); got != tt.want {
				t.Errorf("Int() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOptionsFloat(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want float64
	}{
		{"absent", Options{}, 1.5},
		{"float64", Options{"kp": 0.25}, 0.25},
		{"int", Options{"kp": 2}, 2.0},
		{"wrong type", Options{"kp": "high"}, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Float("kp", 1.5); got != tt.want {
				t.Errorf("Float() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUnconfigured, "unconfigured"},
		{StateInactive, "inactive"},
		{StateActive, "active"},
		{StateFinalized, "finalized"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
