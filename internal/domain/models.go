package domain

import (
	"errors"
	"fmt"
	"time"
)

// Bounds for per-wheel settings. Past MaxFullRotations the float64 end
// angle can no longer carry the drawn extra degrees exactly.
const (
	MaxFullRotations = 1000
	MinDurationMS    = 800
	MaxDurationMS    = 8000
)

// RandomSource abstracts random number generation so spins can be made
// deterministic in tests.
type RandomSource interface {
	// Next returns an integer uniformly distributed in [0, maxExclusive).
	Next(maxExclusive int) (int, error)
}

// SpinConfig is fixed for the duration of a single spin.
type SpinConfig struct {
	MinFullRotations       int  `json:"min_full_rotations"`
	PreventImmediateRepeat bool `json:"prevent_immediate_repeat"`
}

// SpinOutcome is the physical (angle) and logical (index) result of a spin.
type SpinOutcome struct {
	EndAngle      float64 `json:"end_angle"`
	SelectedIndex int     `json:"selected_index"`
}

// Settings are the per-wheel spin parameters. DurationMS is passed through
// to the renderer untouched.
type Settings struct {
	SpinConfig
	PointerOffsetDeg float64 `json:"pointer_offset_deg"`
	DurationMS       int     `json:"duration_ms"`
}

// Validate reports every out-of-range field, wrapped in ErrInvalidConfig.
func (s Settings) Validate() error {
	var errs []error
	if s.MinFullRotations < 0 || s.MinFullRotations > MaxFullRotations {
		errs = append(errs, fmt.Errorf("min_full_rotations must be between 0 and %d, got %d", MaxFullRotations, s.MinFullRotations))
	}
	if !finite(s.PointerOffsetDeg) {
		errs = append(errs, errors.New("pointer_offset_deg must be a finite number"))
	}
	if s.DurationMS < MinDurationMS || s.DurationMS > MaxDurationMS {
		errs = append(errs, fmt.Errorf("duration_ms must be between %d and %d, got %d", MinDurationMS, MaxDurationMS, s.DurationMS))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// HistoryEntry records one completed spin.
type HistoryEntry struct {
	ID       string    `json:"id"`
	WheelID  string    `json:"wheel_id"`
	Item     string    `json:"item"`
	Index    int       `json:"index"`
	EndAngle float64   `json:"end_angle"`
	SpunAt   time.Time `json:"spun_at"`
}

// Preset is a named starter item list.
type Preset struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Items []string `json:"items"`
}
