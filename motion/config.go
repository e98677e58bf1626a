package motion

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Defaults match the DQ860HA driver at 8x microstepping
const (
	DefaultMaxSpeed             = 20000.0 // steps/s
	DefaultAccelRate            = 8000.0  // steps/s^2
	DefaultTickInterval         = 10 * time.Millisecond
	DefaultSyncInterval         = time.Second
	DefaultSyncThreshold        = 100 // steps
	DefaultReversalHighSpeed    = 500.0
	DefaultReversalLowSpeed     = 300.0
	DefaultReversalSafeSpeed    = 200.0
	DefaultStopSpeed            = 1.0
	DefaultEmergencyStopTimeout = 500 * time.Millisecond
	DefaultMinPulseWidth        = 5 * time.Microsecond

	DefaultBoostMultiplier = 1.5
	DefaultBoostDuration   = 800 * time.Millisecond
)

// Boost option bounds. Out-of-range values are clamped to these
const (
	MinBoostMultiplier = 1.0
	MaxBoostMultiplier = 4.0
	MinBoostDuration   = 10 * time.Millisecond
	MaxBoostDuration   = 10 * time.Second
)

// ErrInvalidConfig is returned by Validate and New for unusable settings
var ErrInvalidConfig = errors.New("invalid motion config")

// BoostConfig is shared by both motors
type BoostConfig struct {
	Multiplier float64       `koanf:"multiplier" yaml:"multiplier"`
	Duration   time.Duration `koanf:"duration" yaml:"duration"`
	Enabled    bool          `koanf:"enabled" yaml:"enabled"`
}

// Normalize clamps the multiplier and duration into their documented bounds
func (b BoostConfig) Normalize() BoostConfig {
	b.Multiplier = clamp(b.Multiplier, MinBoostMultiplier, MaxBoostMultiplier)
	if math.IsNaN(b.Multiplier) {
		b.Multiplier = MinBoostMultiplier
	}
	if b.Duration < MinBoostDuration {
		b.Duration = MinBoostDuration
	}
	if b.Duration > MaxBoostDuration {
		b.Duration = MaxBoostDuration
	}
	return b
}

// BoostOption enumerates the BoostConfig fields that can be changed at runtime
type BoostOption int

const (
	BoostMultiplier BoostOption = iota
	BoostDuration
	BoostEnabled
)

func (o BoostOption) String() string {
	switch o {
	case BoostMultiplier:
		return "MULT"
	case BoostDuration:
		return "DURATION"
	case BoostEnabled:
		return "BOOSTEN"
	default:
		return "UNKNOWN"
	}
}

// Config has the tuning values for the motion kernel
type Config struct {
	// MaxSpeed is the absolute speed ceiling in steps/s, including boost
	MaxSpeed float64 `koanf:"max_speed" yaml:"max_speed"`
	// AccelRate limits the speed change in steps/s^2
	AccelRate float64 `koanf:"accel_rate" yaml:"accel_rate"`

	TickInterval  time.Duration `koanf:"tick_interval" yaml:"tick_interval"`
	SyncInterval  time.Duration `koanf:"sync_interval" yaml:"sync_interval"`
	SyncThreshold int64         `koanf:"sync_threshold" yaml:"sync_threshold"`

	// A direction change requested above ReversalHighSpeed slows to ReversalSafeSpeed
	// and is committed once the speed is at or below ReversalLowSpeed
	ReversalHighSpeed float64       `koanf:"reversal_high_speed" yaml:"reversal_high_speed"`
	ReversalLowSpeed  float64       `koanf:"reversal_low_speed" yaml:"reversal_low_speed"`
	ReversalSafeSpeed float64       `koanf:"reversal_safe_speed" yaml:"reversal_safe_speed"`
	DirectionHold     time.Duration `koanf:"direction_hold" yaml:"direction_hold"`

	// StopSpeed is the speed below which a motor is considered stopped and the pulser is disabled
	StopSpeed            float64       `koanf:"stop_speed" yaml:"stop_speed"`
	EmergencyStopTimeout time.Duration `koanf:"emergency_stop_timeout" yaml:"emergency_stop_timeout"`
	MinPulseWidth        time.Duration `koanf:"min_pulse_width" yaml:"min_pulse_width"`

	Boost BoostConfig `koanf:"boost" yaml:"boost"`
}

// DefaultConfig returns the tuning used by the firmware
func DefaultConfig() Config {
	return Config{
		MaxSpeed:             DefaultMaxSpeed,
		AccelRate:            DefaultAccelRate,
		TickInterval:         DefaultTickInterval,
		SyncInterval:         DefaultSyncInterval,
		SyncThreshold:        DefaultSyncThreshold,
		ReversalHighSpeed:    DefaultReversalHighSpeed,
		ReversalLowSpeed:     DefaultReversalLowSpeed,
		ReversalSafeSpeed:    DefaultReversalSafeSpeed,
		StopSpeed:            DefaultStopSpeed,
		EmergencyStopTimeout: DefaultEmergencyStopTimeout,
		MinPulseWidth:        DefaultMinPulseWidth,
		Boost: BoostConfig{
			Multiplier: DefaultBoostMultiplier,
			Duration:   DefaultBoostDuration,
			Enabled:    true,
		},
	}
}

// AccelStep is the largest speed change allowed in one control tick
func (c Config) AccelStep() float64 {
	return c.AccelRate * c.TickInterval.Seconds()
}

// Validate checks that the values are usable together
func (c Config) Validate() error {
	switch {
	case c.MaxSpeed <= 0:
		return fmt.Errorf("%w: max_speed must be positive", ErrInvalidConfig)
	case c.AccelRate <= 0:
		return fmt.Errorf("%w: accel_rate must be positive", ErrInvalidConfig)
	case c.TickInterval <= 0:
		return fmt.Errorf("%w: tick_interval must be positive", ErrInvalidConfig)
	case c.SyncInterval < c.TickInterval:
		return fmt.Errorf("%w: sync_interval must be at least tick_interval", ErrInvalidConfig)
	case c.SyncThreshold < 0:
		return fmt.Errorf("%w: sync_threshold must not be negative", ErrInvalidConfig)
	case c.StopSpeed <= 0:
		return fmt.Errorf("%w: stop_speed must be positive", ErrInvalidConfig)
	case c.ReversalLowSpeed >= c.ReversalHighSpeed:
		return fmt.Errorf("%w: reversal_low_speed must be below reversal_high_speed", ErrInvalidConfig)
	case c.ReversalSafeSpeed >= c.ReversalLowSpeed:
		return fmt.Errorf("%w: reversal_safe_speed must be below reversal_low_speed", ErrInvalidConfig)
	case c.EmergencyStopTimeout < c.TickInterval:
		return fmt.Errorf("%w: emergency_stop_timeout must be at least tick_interval", ErrInvalidConfig)
	case c.DirectionHold < 0:
		return fmt.Errorf("%w: direction_hold must not be negative", ErrInvalidConfig)
	case c.MinPulseWidth < DefaultMinPulseWidth:
		return fmt.Errorf("%w: min_pulse_width must be at least %s", ErrInvalidConfig, DefaultMinPulseWidth)
	}

	// the step pin is high for half of each step period
	if halfPeriod(c.MaxSpeed) < c.MinPulseWidth {
		return fmt.Errorf("%w: max_speed %.0f leaves a step pulse shorter than %s", ErrInvalidConfig, c.MaxSpeed, c.MinPulseWidth)
	}

	return nil
}

// halfPeriod is the step timer interval for a speed: it fires twice per step
func halfPeriod(speed float64) time.Duration {
	return time.Duration(float64(time.Second) / (2 * speed))
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
