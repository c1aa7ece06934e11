package ports

import (
	"context"

	"github.com/randomtoy/wheel-go/internal/domain"
)

// WheelStore persists wheel state between requests.
type WheelStore interface {
	CreateWheel(ctx context.Context, w domain.Wheel) error
	// GetWheel returns domain.ErrWheelNotFound for unknown IDs.
	GetWheel(ctx context.Context, id string) (domain.Wheel, error)
	SaveWheel(ctx context.Context, w domain.Wheel) error
}

// HistoryStore records completed spins.
type HistoryStore interface {
	AppendHistory(ctx context.Context, e domain.HistoryEntry) error
	// ListHistory returns at most limit entries, newest first.
	ListHistory(ctx context.Context, wheelID string, limit int) ([]domain.HistoryEntry, error)
	ClearHistory(ctx context.Context, wheelID string) error
}

// TxManager runs fn atomically against the stores. The signature matches
// trm.Manager so the Postgres transaction manager plugs in directly.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// PresetStore provides the built-in starter item lists.
type PresetStore interface {
	ListPresets(ctx context.Context) ([]domain.Preset, error)
	// GetPreset returns domain.ErrPresetNotFound for unknown IDs.
	GetPreset(ctx context.Context, id string) (domain.Preset, error)
}
