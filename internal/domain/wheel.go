package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Wheel owns the mutable spin state of one wheel instance. A non-nil
// Pending means the wheel is Spinning: an outcome has been planned and
// handed to the renderer but its completion has not been acknowledged.
type Wheel struct {
	ID            string       `json:"id"`
	Items         []string     `json:"items"`
	CurrentAngle  float64      `json:"current_angle"`
	LastIndex     *int         `json:"last_index,omitempty"`
	Settings      Settings     `json:"settings"`
	Pending       *SpinOutcome `json:"pending,omitempty"`
	SpinStartedAt time.Time    `json:"spin_started_at,omitzero"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (w *Wheel) Spinning() bool { return w.Pending != nil }

// BeginSpin moves the wheel from Idle to Spinning.
func (w *Wheel) BeginSpin(r *Resolver, now time.Time) (SpinOutcome, error) {
	if w.Spinning() {
		return SpinOutcome{}, ErrAlreadySpinning
	}
	out, err := r.PlanSpin(len(w.Items), w.CurrentAngle, w.Settings.SpinConfig, w.LastIndex)
	if err != nil {
		return SpinOutcome{}, err
	}
	w.Pending = &out
	w.SpinStartedAt = now
	w.UpdatedAt = now
	return out, nil
}

// CompleteSpin moves the wheel from Spinning back to Idle, committing the
// pending outcome as the new angle and last index. It returns the outcome
// and the selected item.
func (w *Wheel) CompleteSpin(now time.Time) (SpinOutcome, string, error) {
	if !w.Spinning() {
		return SpinOutcome{}, "", ErrNotSpinning
	}
	out := *w.Pending
	if out.SelectedIndex < 0 || out.SelectedIndex >= len(w.Items) {
		return SpinOutcome{}, "", fmt.Errorf("pending index %d out of range for %d items", out.SelectedIndex, len(w.Items))
	}
	idx := out.SelectedIndex
	w.CurrentAngle = out.EndAngle
	w.LastIndex = &idx
	w.Pending = nil
	w.SpinStartedAt = time.Time{}
	w.UpdatedAt = now
	return out, w.Items[idx], nil
}

// SpinToken identifies the pending spin so a late acknowledgement of an
// earlier spin cannot complete a newer one. Empty while idle. Millisecond
// precision survives every store.
func (w *Wheel) SpinToken() string {
	if !w.Spinning() {
		return ""
	}
	return strconv.FormatInt(w.SpinStartedAt.UnixMilli(), 10)
}

// SpinDeadline is when a pending spin's animation should have finished,
// padded by grace.
func (w *Wheel) SpinDeadline(grace time.Duration) time.Time {
	return w.SpinStartedAt.Add(time.Duration(w.Settings.DurationMS)*time.Millisecond + grace)
}

// SetItems replaces the item list and forgets the last selection.
func (w *Wheel) SetItems(items []string, now time.Time) error {
	if w.Spinning() {
		return ErrAlreadySpinning
	}
	w.Items = items
	w.LastIndex = nil
	w.UpdatedAt = now
	return nil
}

// NormalizeItems trims every entry and drops the empty ones.
func NormalizeItems(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
