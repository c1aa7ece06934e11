package domain_test

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/randomtoy/wheel-go/internal/domain"
)

var t0 = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func testWheel(items ...string) *domain.Wheel {
	return &domain.Wheel{
		ID:    "w1",
		Items: items,
		Settings: domain.Settings{
			SpinConfig: domain.SpinConfig{MinFullRotations: 5, PreventImmediateRepeat: true},
			DurationMS: 4000,
		},
	}
}

func TestWheel_SpinLifecycle(t *testing.T) {
	w := testWheel("A", "B", "C", "D", "E", "F")
	r := domain.NewResolver(&sequenceSource{values: []int{10}}, 0)

	out, err := w.BeginSpin(r, t0)
	if err != nil {
		t.Fatalf("begin: unexpected error: %v", err)
	}
	if !w.Spinning() {
		t.Fatal("expected wheel to be spinning")
	}
	if w.CurrentAngle != 0 || w.LastIndex != nil {
		t.Errorf("state committed before completion: angle=%v last=%v", w.CurrentAngle, w.LastIndex)
	}

	done, item, err := w.CompleteSpin(t0.Add(4 * time.Second))
	if err != nil {
		t.Fatalf("complete: unexpected error: %v", err)
	}
	if done != out {
		t.Errorf("completed outcome %+v differs from planned %+v", done, out)
	}
	if item != "F" {
		t.Errorf("expected F, got %s", item)
	}
	if w.Spinning() {
		t.Error("expected wheel to be idle")
	}
	if w.CurrentAngle != 1810 {
		t.Errorf("expected angle 1810, got %v", w.CurrentAngle)
	}
	if w.LastIndex == nil || *w.LastIndex != 5 {
		t.Errorf("expected last index 5, got %v", w.LastIndex)
	}
}

func TestWheel_SingleFlight(t *testing.T) {
	w := testWheel("A", "B", "C")
	r := domain.NewResolver(&sequenceSource{values: []int{10, 200}}, 0)

	first, err := w.BeginSpin(r, t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.BeginSpin(r, t0.Add(time.Second)); !errors.Is(err, domain.ErrAlreadySpinning) {
		t.Fatalf("expected ErrAlreadySpinning, got %v", err)
	}
	if *w.Pending != first {
		t.Errorf("pending outcome overwritten: %+v", *w.Pending)
	}
	if !w.SpinStartedAt.Equal(t0) {
		t.Errorf("spin start overwritten: %v", w.SpinStartedAt)
	}
}

func TestWheel_CompleteWhenIdle(t *testing.T) {
	w := testWheel("A", "B")
	if _, _, err := w.CompleteSpin(t0); !errors.Is(err, domain.ErrNotSpinning) {
		t.Errorf("expected ErrNotSpinning, got %v", err)
	}
}

func TestWheel_InsufficientItemsStaysIdle(t *testing.T) {
	w := testWheel("only")
	r := domain.NewResolver(&sequenceSource{values: []int{0}}, 0)
	if _, err := w.BeginSpin(r, t0); !errors.Is(err, domain.ErrInsufficientItems) {
		t.Fatalf("expected ErrInsufficientItems, got %v", err)
	}
	if w.Spinning() {
		t.Error("wheel must stay idle")
	}
}

func TestWheel_SetItems(t *testing.T) {
	w := testWheel("A", "B")
	w.LastIndex = intPtr(1)

	if err := w.SetItems([]string{"X", "Y", "Z"}, t0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.LastIndex != nil {
		t.Error("expected last index reset")
	}

	r := domain.NewResolver(&sequenceSource{values: []int{0}}, 0)
	if _, err := w.BeginSpin(r, t0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.SetItems([]string{"Q", "R"}, t0); !errors.Is(err, domain.ErrAlreadySpinning) {
		t.Errorf("expected ErrAlreadySpinning, got %v", err)
	}
	if !reflect.DeepEqual(w.Items, []string{"X", "Y", "Z"}) {
		t.Errorf("items changed while spinning: %v", w.Items)
	}
}

func TestWheel_SpinDeadline(t *testing.T) {
	w := testWheel("A", "B")
	w.SpinStartedAt = t0
	got := w.SpinDeadline(time.Second)
	if want := t0.Add(5 * time.Second); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestWheel_SpinToken(t *testing.T) {
	w := testWheel("A", "B")
	if tok := w.SpinToken(); tok != "" {
		t.Errorf("expected empty token while idle, got %q", tok)
	}

	if _, err := w.BeginSpin(domain.NewResolver(&sequenceSource{values: []int{0}}, 0), t0); err != nil {
		t.Fatalf("begin: %v", err)
	}
	first := w.SpinToken()
	if first == "" {
		t.Fatal("expected a token while spinning")
	}
	if _, _, err := w.CompleteSpin(t0.Add(time.Second)); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := w.BeginSpin(domain.NewResolver(&sequenceSource{values: []int{0}}, 0), t0.Add(10*time.Second)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if w.SpinToken() == first {
		t.Errorf("expected a fresh token for the next spin, got %q again", first)
	}
}

func TestSettings_Validate(t *testing.T) {
	valid := testWheel().Settings
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*domain.Settings)
	}{
		{"negative rotations", func(s *domain.Settings) { s.MinFullRotations = -1 }},
		{"rotations above cap", func(s *domain.Settings) { s.MinFullRotations = domain.MaxFullRotations + 1 }},
		{"NaN offset", func(s *domain.Settings) { s.PointerOffsetDeg = math.NaN() }},
		{"infinite offset", func(s *domain.Settings) { s.PointerOffsetDeg = math.Inf(1) }},
		{"duration too short", func(s *domain.Settings) { s.DurationMS = domain.MinDurationMS - 1 }},
		{"duration too long", func(s *domain.Settings) { s.DurationMS = domain.MaxDurationMS + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			if err := s.Validate(); !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNormalizeItems(t *testing.T) {
	got := domain.NormalizeItems([]string{"  Pizza ", "", "\t", "Burger", " ☕ Coffee"})
	want := []string{"Pizza", "Burger", "☕ Coffee"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
