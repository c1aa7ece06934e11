package domain_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/randomtoy/wheel-go/internal/domain"
)

// sequenceSource returns values from a pre-set sequence.
type sequenceSource struct {
	values []int
	idx    int
}

func (s *sequenceSource) Next(n int) (int, error) {
	v := s.values[s.idx%len(s.values)] % n
	s.idx++
	return v, nil
}

type failingSource struct{ err error }

func (s failingSource) Next(int) (int, error) { return 0, s.err }

func intPtr(v int) *int { return &v }

func TestAngleToIndex_Boundaries(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		angle  float64
		offset float64
		want   int
	}{
		{"zero is slice 0", 6, 0, 0, 0},
		{"just before first boundary", 6, 59.9, 0, 5},
		{"first boundary wraps to last slice", 6, 60, 0, 5},
		{"just after first boundary", 6, 60.1, 0, 4},
		{"300 degrees brings slice 1", 6, 300, 0, 1},
		{"full rotation returns to slice 0", 6, 360, 0, 0},
		{"several rotations plus ten", 6, 1810, 0, 5},
		{"negative angle", 6, -10, 0, 0},
		{"bottom pointer at rest", 6, 0, 180, 3},
		{"quarter turn with four items", 4, 90, 0, 3},
		{"single item", 1, 123.4, 0, 0},
		{"NaN angle", 6, math.NaN(), 0, 0},
		{"infinite angle", 6, math.Inf(1), 0, 0},
		{"NaN offset", 6, 10, math.NaN(), 0},
		{"infinite offset", 6, 10, math.Inf(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.AngleToIndex(tt.n, tt.angle, tt.offset)
			if got != tt.want {
				t.Errorf("AngleToIndex(%d, %v, %v) = %d, want %d", tt.n, tt.angle, tt.offset, got, tt.want)
			}
		})
	}
}

func TestAngleToIndex_ExactSliceStarts(t *testing.T) {
	// Rotating by 360-k*width puts the start of slice k under the pointer.
	// Only counts dividing 360 have boundaries representable exactly.
	for n := 2; n <= 360; n++ {
		if 360%n != 0 {
			continue
		}
		width := 360 / n
		for k := range n {
			angle := float64((360 - k*width) % 360)
			if got := domain.AngleToIndex(n, angle, 0); got != k {
				t.Errorf("n=%d k=%d angle=%v: got %d", n, k, angle, got)
			}
		}
	}
}

func TestAngleToIndex_PointerOffsetEquivalence(t *testing.T) {
	seed := uint64(20261017)
	rng := rand.New(rand.NewPCG(seed, seed))
	for i := range 5000 {
		n := 1 + rng.IntN(50)
		// half-degree steps keep the arithmetic exact
		theta := float64(rng.IntN(2_000_000))/2 - 500_000
		bottom := domain.AngleToIndex(n, theta, 180)
		top := domain.AngleToIndex(n, theta+180, 0)
		if bottom != top {
			t.Fatalf("case %d (seed %d): n=%d theta=%v: offset 180 gave %d, theta+180 gave %d", i, seed, n, theta, bottom, top)
		}
	}
}

func TestAngleToIndex_InRange(t *testing.T) {
	seed := uint64(7)
	rng := rand.New(rand.NewPCG(seed, seed))
	for range 5000 {
		n := 1 + rng.IntN(100)
		theta := (rng.Float64() - 0.5) * 1e6
		offset := rng.Float64() * 360
		got := domain.AngleToIndex(n, theta, offset)
		if got < 0 || got >= n {
			t.Fatalf("n=%d theta=%v offset=%v: index %d out of range", n, theta, offset, got)
		}
	}
}

func TestPlanSpin_Scenario(t *testing.T) {
	items := []string{"A", "B", "C", "D", "E", "F"}
	r := domain.NewResolver(&sequenceSource{values: []int{10}}, 0)

	out, err := r.PlanSpin(len(items), 0, domain.SpinConfig{MinFullRotations: 5}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.EndAngle != 1810 {
		t.Errorf("expected end angle 1810, got %v", out.EndAngle)
	}
	if out.SelectedIndex != 5 || items[out.SelectedIndex] != "F" {
		t.Errorf("expected index 5 (F), got %d", out.SelectedIndex)
	}
}

func TestPlanSpin_Deterministic(t *testing.T) {
	cfg := domain.SpinConfig{MinFullRotations: 3, PreventImmediateRepeat: true}
	var first domain.SpinOutcome
	for i := range 5 {
		r := domain.NewResolver(&sequenceSource{values: []int{217}}, 180)
		out, err := r.PlanSpin(7, 725.5, cfg, intPtr(2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if i == 0 {
			first = out
			continue
		}
		if out != first {
			t.Errorf("call %d: got %+v, want %+v", i, out, first)
		}
	}
}

func TestPlanSpin_AvoidsImmediateRepeat(t *testing.T) {
	// With two items and a top pointer, 0° lands on slice 0 and 180° on slice 1.
	src := &sequenceSource{values: []int{0, 180}}
	r := domain.NewResolver(src, 0)

	out, err := r.PlanSpin(2, 0, domain.SpinConfig{MinFullRotations: 1, PreventImmediateRepeat: true}, intPtr(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SelectedIndex != 1 {
		t.Errorf("expected index 1, got %d", out.SelectedIndex)
	}
	if out.EndAngle != 540 {
		t.Errorf("expected end angle 540, got %v", out.EndAngle)
	}
	if src.idx != 2 {
		t.Errorf("expected 2 draws, got %d", src.idx)
	}
}

func TestPlanSpin_AlternatingSourceNeverRepeats(t *testing.T) {
	src := &sequenceSource{values: []int{0, 180}}
	r := domain.NewResolver(src, 0)
	cfg := domain.SpinConfig{MinFullRotations: 5, PreventImmediateRepeat: true}

	angle := 0.0
	var last *int
	for i := range 200 {
		out, err := r.PlanSpin(2, angle, cfg, last)
		if err != nil {
			t.Fatalf("spin %d: unexpected error: %v", i, err)
		}
		if last != nil && out.SelectedIndex == *last {
			t.Fatalf("spin %d: repeated index %d", i, out.SelectedIndex)
		}
		angle = out.EndAngle
		last = intPtr(out.SelectedIndex)
	}
}

func TestPlanSpin_RetryExhaustionAcceptsRepeat(t *testing.T) {
	tests := []struct {
		name  string
		opts  []domain.ResolverOption
		draws int
	}{
		{"default bound", nil, domain.DefaultMaxAttempts},
		{"custom bound", []domain.ResolverOption{domain.WithMaxAttempts(3)}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &sequenceSource{values: []int{0}}
			r := domain.NewResolver(src, 0, tt.opts...)

			out, err := r.PlanSpin(2, 0, domain.SpinConfig{PreventImmediateRepeat: true}, intPtr(0))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.SelectedIndex != 0 {
				t.Errorf("expected repeated index 0, got %d", out.SelectedIndex)
			}
			if src.idx != tt.draws {
				t.Errorf("expected %d draws, got %d", tt.draws, src.idx)
			}
		})
	}
}

func TestPlanSpin_RepeatAllowedWhenDisabled(t *testing.T) {
	src := &sequenceSource{values: []int{0, 180}}
	r := domain.NewResolver(src, 0)

	out, err := r.PlanSpin(2, 0, domain.SpinConfig{}, intPtr(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SelectedIndex != 0 || src.idx != 1 {
		t.Errorf("expected first draw accepted, got index %d after %d draws", out.SelectedIndex, src.idx)
	}
}

func TestPlanSpin_InsufficientItems(t *testing.T) {
	r := domain.NewResolver(&sequenceSource{values: []int{0}}, 0)
	for _, n := range []int{-1, 0, 1} {
		_, err := r.PlanSpin(n, 0, domain.SpinConfig{}, nil)
		if !errors.Is(err, domain.ErrInsufficientItems) {
			t.Errorf("n=%d: expected ErrInsufficientItems, got %v", n, err)
		}
	}
}

func TestPlanSpin_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		angle  float64
		offset float64
		cfg    domain.SpinConfig
	}{
		{"negative rotations", 0, 0, domain.SpinConfig{MinFullRotations: -1}},
		{"rotations above cap", 0, 0, domain.SpinConfig{MinFullRotations: domain.MaxFullRotations + 1}},
		{"huge rotations", 0, 0, domain.SpinConfig{MinFullRotations: 1e15}},
		{"NaN offset", 0, math.NaN(), domain.SpinConfig{}},
		{"infinite offset", 0, math.Inf(1), domain.SpinConfig{}},
		{"NaN current angle", math.NaN(), 0, domain.SpinConfig{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &sequenceSource{values: []int{0}}
			r := domain.NewResolver(src, tt.offset)
			_, err := r.PlanSpin(3, tt.angle, tt.cfg, nil)
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if src.idx != 0 {
				t.Errorf("expected no draws, got %d", src.idx)
			}
		})
	}
}

func TestPlanSpin_UniformAtRotationCap(t *testing.T) {
	// Every extra degree must survive the addition to the largest base.
	const n = 6
	cfg := domain.SpinConfig{MinFullRotations: domain.MaxFullRotations}
	counts := make([]int, n)
	for extra := range 360 {
		r := domain.NewResolver(&sequenceSource{values: []int{extra}}, 0)
		out, err := r.PlanSpin(n, 123456.5, cfg, nil)
		if err != nil {
			t.Fatalf("extra=%d: unexpected error: %v", extra, err)
		}
		want := 123456.5 + 360*domain.MaxFullRotations + float64(extra)
		if out.EndAngle != want {
			t.Fatalf("extra=%d: end angle %v, want %v", extra, out.EndAngle, want)
		}
		counts[out.SelectedIndex]++
	}
	for i, c := range counts {
		if c != 360/n {
			t.Errorf("index %d selected %d times, want %d", i, c, 360/n)
		}
	}
}

func TestPlanSpin_EntropyFailurePropagates(t *testing.T) {
	r := domain.NewResolver(failingSource{err: domain.ErrEntropyUnavailable}, 0)
	_, err := r.PlanSpin(3, 0, domain.SpinConfig{}, nil)
	if !errors.Is(err, domain.ErrEntropyUnavailable) {
		t.Errorf("expected ErrEntropyUnavailable, got %v", err)
	}
}
