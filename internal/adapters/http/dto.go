package http

import (
	"time"

	"github.com/randomtoy/wheel-go/internal/app"
	"github.com/randomtoy/wheel-go/internal/domain"
)

// SettingsRequest changes only the fields present in the body. On create it
// overlays the service defaults, on update the wheel's current settings.
type SettingsRequest struct {
	PointerOffsetDeg       *float64 `json:"pointer_offset_deg"`
	MinFullRotations       *int     `json:"min_full_rotations"`
	PreventImmediateRepeat *bool    `json:"prevent_immediate_repeat"`
	DurationMS             *int     `json:"duration_ms"`
}

type CreateWheelRequest struct {
	Items    []string         `json:"items"`
	Preset   string           `json:"preset"`
	Settings *SettingsRequest `json:"settings"`
}

// CompleteRequest echoes the token returned by the spin being acknowledged.
type CompleteRequest struct {
	SpinToken string `json:"spin_token"`
}

type FromURLRequest struct {
	URL string `json:"url"`
}

type ItemsRequest struct {
	Items []string `json:"items"`
}

// WheelResponse is the JSON shape of a wheel. The pending outcome is not
// exposed; Spinning tells the renderer a spin is in flight.
type WheelResponse struct {
	ID           string          `json:"id"`
	Items        []string        `json:"items"`
	Slices       []domain.Slice  `json:"slices"`
	CurrentAngle float64         `json:"current_angle"`
	LastIndex    *int            `json:"last_index,omitempty"`
	Settings     domain.Settings `json:"settings"`
	Spinning     bool            `json:"spinning"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type SpinResponse struct {
	WheelID       string               `json:"wheel_id"`
	SpinToken     string               `json:"spin_token"`
	StartAngle    float64              `json:"start_angle"`
	EndAngle      float64              `json:"end_angle"`
	SelectedIndex int                  `json:"selected_index"`
	DurationMS    int                  `json:"duration_ms"`
	AutoCompleted *domain.HistoryEntry `json:"auto_completed,omitempty"`
}

type CompleteResponse struct {
	Item     string              `json:"item"`
	Index    int                 `json:"index"`
	EndAngle float64             `json:"end_angle"`
	Message  string              `json:"message"`
	Fact     string              `json:"fact"`
	Entry    domain.HistoryEntry `json:"entry"`
	Meta     MetaResp            `json:"meta"`
}

type MetaResp struct {
	Model     string `json:"model,omitempty"`
	RequestID string `json:"request_id"`
	Lang      string `json:"lang"`
}

type HistoryResponse struct {
	Entries []domain.HistoryEntry `json:"entries"`
}

type PresetsResponse struct {
	Presets []domain.Preset `json:"presets"`
}

type ShareResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func toWheelResponse(w domain.Wheel) WheelResponse {
	return WheelResponse{
		ID:           w.ID,
		Items:        w.Items,
		Slices:       domain.Slices(w.Items),
		CurrentAngle: w.CurrentAngle,
		LastIndex:    w.LastIndex,
		Settings:     w.Settings,
		Spinning:     w.Spinning(),
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

func (r *SettingsRequest) patch() app.SettingsPatch {
	if r == nil {
		return app.SettingsPatch{}
	}
	return app.SettingsPatch{
		PointerOffsetDeg:       r.PointerOffsetDeg,
		MinFullRotations:       r.MinFullRotations,
		PreventImmediateRepeat: r.PreventImmediateRepeat,
		DurationMS:             r.DurationMS,
	}
}
