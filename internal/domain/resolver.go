package domain

import (
	"fmt"
	"math"
)

// DefaultMaxAttempts bounds the redraws made to avoid repeating the
// previous selection.
const DefaultMaxAttempts = 10

// AngleToIndex maps a cumulative wheel rotation to the slice under the
// pointer. Slices are laid out clockwise from the top; rotating the wheel
// clockwise by θ brings the slice at (360-θ) under a top pointer.
// pointerOffsetDeg relabels other mounts (180 for a bottom pointer).
// Boundaries belong to the slice that starts there.
func AngleToIndex(itemCount int, endAngleDeg, pointerOffsetDeg float64) int {
	if itemCount <= 0 || !finite(endAngleDeg) || !finite(pointerOffsetDeg) {
		return 0
	}
	adjusted := normalizeDeg(normalizeDeg(endAngleDeg) + pointerOffsetDeg)
	pos := normalizeDeg(360 - adjusted)
	// pos*n/360 rather than pos/(360/n) keeps integer boundaries exact.
	idx := int(math.Floor(pos * float64(itemCount) / 360))
	return idx % itemCount
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func normalizeDeg(deg float64) float64 {
	d := math.Mod(math.Mod(deg, 360)+360, 360)
	if d == 360 {
		return 0
	}
	return d
}

// Resolver plans spins. It keeps no wheel state: every call receives the
// latest angle and last index and returns a fresh outcome.
type Resolver struct {
	src           RandomSource
	pointerOffset float64
	maxAttempts   int
}

type ResolverOption func(*Resolver)

// WithMaxAttempts overrides DefaultMaxAttempts. Values below 1 are ignored.
func WithMaxAttempts(n int) ResolverOption {
	return func(r *Resolver) {
		if n >= 1 {
			r.maxAttempts = n
		}
	}
}

func NewResolver(src RandomSource, pointerOffsetDeg float64, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		src:           src,
		pointerOffset: pointerOffsetDeg,
		maxAttempts:   DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PlanSpin draws extra degrees on top of the full rotations and maps the
// resulting angle to an index. With repeat prevention on, a draw landing on
// lastIndex is retried up to the attempt bound, after which the last
// candidate is accepted.
func (r *Resolver) PlanSpin(itemCount int, currentAngle float64, cfg SpinConfig, lastIndex *int) (SpinOutcome, error) {
	if itemCount < 2 {
		return SpinOutcome{}, ErrInsufficientItems
	}
	if cfg.MinFullRotations < 0 || cfg.MinFullRotations > MaxFullRotations {
		return SpinOutcome{}, fmt.Errorf("%w: min full rotations must be in [0, %d], got %d", ErrInvalidConfig, MaxFullRotations, cfg.MinFullRotations)
	}
	if !finite(currentAngle) || !finite(r.pointerOffset) {
		return SpinOutcome{}, fmt.Errorf("%w: angles must be finite", ErrInvalidConfig)
	}

	base := currentAngle + 360*float64(cfg.MinFullRotations)

	var out SpinOutcome
	for range r.maxAttempts {
		extra, err := r.src.Next(360)
		if err != nil {
			return SpinOutcome{}, fmt.Errorf("draw spin degrees: %w", err)
		}
		end := base + float64(extra)
		out = SpinOutcome{
			EndAngle:      end,
			SelectedIndex: AngleToIndex(itemCount, end, r.pointerOffset),
		}
		if !cfg.PreventImmediateRepeat || lastIndex == nil || out.SelectedIndex != *lastIndex {
			return out, nil
		}
	}
	return out, nil
}
