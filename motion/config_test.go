package motion

import (
	"errors"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"Default", func(*Config) {}, true},
		{"ZeroMaxSpeed", func(c *Config) { c.MaxSpeed = 0 }, false},
		{"NegativeAccel", func(c *Config) { c.AccelRate = -1 }, false},
		{"ZeroTick", func(c *Config) { c.TickInterval = 0 }, false},
		{"SyncFasterThanTick", func(c *Config) { c.SyncInterval = time.Millisecond }, false},
		{"NegativeThreshold", func(c *Config) { c.SyncThreshold = -1 }, false},
		{"ZeroStopSpeed", func(c *Config) { c.StopSpeed = 0 }, false},
		{"ReversalLowAboveHigh", func(c *Config) { c.ReversalLowSpeed = 600 }, false},
		{"ReversalSafeAboveLow", func(c *Config) { c.ReversalSafeSpeed = 300 }, false},
		{"EStopShorterThanTick", func(c *Config) { c.EmergencyStopTimeout = time.Millisecond }, false},
		{"NegativeHold", func(c *Config) { c.DirectionHold = -time.Millisecond }, false},
		{"PulseTooNarrow", func(c *Config) { c.MaxSpeed = 200000 }, false},
		{"NoPulseLimit", func(c *Config) { c.MaxSpeed = 200000; c.MinPulseWidth = 0 }, false},
		{"PulseWidthBelowDriverMinimum", func(c *Config) { c.MinPulseWidth = time.Microsecond }, false},
		{"WiderPulse", func(c *Config) { c.MaxSpeed = 10000; c.MinPulseWidth = 50 * time.Microsecond }, true},
		{"PulseTooNarrowForWiderMinimum", func(c *Config) { c.MinPulseWidth = 50 * time.Microsecond }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.AccelStep() != 80 {
		t.Errorf("expected accel step 80, got %f", cfg.AccelStep())
	}
	if halfPeriod(cfg.MaxSpeed) != 25*time.Microsecond {
		t.Errorf("expected 25µs half period at max speed, got %s", halfPeriod(cfg.MaxSpeed))
	}
	if halfPeriod(1000) != 500*time.Microsecond {
		t.Errorf("expected 500µs, got %s", halfPeriod(1000))
	}
}

func TestNormalizeBoost(t *testing.T) {
	tests := []struct {
		name     string
		in       BoostConfig
		expected BoostConfig
	}{
		{"InRange", BoostConfig{2, time.Second, true}, BoostConfig{2, time.Second, true}},
		{"Low", BoostConfig{0, 0, true}, BoostConfig{MinBoostMultiplier, MinBoostDuration, true}},
		{"High", BoostConfig{100, time.Minute, false}, BoostConfig{MaxBoostMultiplier, MaxBoostDuration, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestMillis(t *testing.T) {
	tests := []struct {
		in       float64
		expected time.Duration
	}{
		{800, 800 * time.Millisecond},
		{0.5, 500 * time.Microsecond},
		{-1, 0},
	}

	for _, tt := range tests {
		if got := Millis(tt.in); got != tt.expected {
			t.Errorf("Millis(%f): expected %s, got %s", tt.in, tt.expected, got)
		}
	}
}
