package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/randomtoy/wheel-go/internal/domain"
	"github.com/randomtoy/wheel-go/internal/itemsio"
	"github.com/randomtoy/wheel-go/internal/ports"
	"github.com/randomtoy/wheel-go/internal/share"
)

// Options tune the service. Zero values fall back to the defaults below.
type Options struct {
	Defaults      domain.Settings
	MaxItems      int
	MaxItemLength int
	HistoryLimit  int

	// DefaultPreset fills wheels created without items or a preset.
	DefaultPreset string

	// StaleGrace is added to a spin's animation duration before an
	// unacknowledged spin is completed on the renderer's behalf.
	StaleGrace time.Duration

	Now   func() time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.MaxItems <= 0 {
		o.MaxItems = 100
	}
	if o.MaxItemLength <= 0 {
		o.MaxItemLength = 80
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 50
	}
	if o.Defaults.DurationMS == 0 {
		o.Defaults.DurationMS = 4000
	}
	if o.StaleGrace <= 0 {
		o.StaleGrace = 5 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// CreateWheelRequest is the application-level input (no HTTP types).
// A non-empty Preset takes precedence over Items. Settings overlay the
// configured defaults.
type CreateWheelRequest struct {
	Items    []string
	Preset   string
	Settings SettingsPatch
}

// SettingsPatch changes only its non-nil fields.
type SettingsPatch struct {
	PointerOffsetDeg       *float64
	MinFullRotations       *int
	PreventImmediateRepeat *bool
	DurationMS             *int
}

func (p SettingsPatch) Apply(base domain.Settings) domain.Settings {
	if p.PointerOffsetDeg != nil {
		base.PointerOffsetDeg = *p.PointerOffsetDeg
	}
	if p.MinFullRotations != nil {
		base.MinFullRotations = *p.MinFullRotations
	}
	if p.PreventImmediateRepeat != nil {
		base.PreventImmediateRepeat = *p.PreventImmediateRepeat
	}
	if p.DurationMS != nil {
		base.DurationMS = *p.DurationMS
	}
	return base
}

// SpinResponse is what the renderer needs to animate a spin.
type SpinResponse struct {
	WheelID    string
	SpinToken  string
	StartAngle float64
	Outcome    domain.SpinOutcome
	DurationMS int

	// AutoCompleted is set when a stale spin had to be completed first.
	AutoCompleted *domain.HistoryEntry
}

// CompleteResponse reveals the result of an acknowledged spin.
type CompleteResponse struct {
	Outcome domain.SpinOutcome
	Item    string
	Entry   domain.HistoryEntry

	// Fact is empty when no fact teller is configured or it failed.
	Fact      string
	FactModel string
}

// Deps are the collaborators of WheelService. Facts may be nil.
type Deps struct {
	Wheels  ports.WheelStore
	History ports.HistoryStore
	Tx      ports.TxManager
	Presets ports.PresetStore
	Random  domain.RandomSource
	Facts   ports.FactTeller
	Logger  *slog.Logger
}

// WheelService owns wheel instances on behalf of renderers.
type WheelService struct {
	wheels  ports.WheelStore
	history ports.HistoryStore
	tx      ports.TxManager
	presets ports.PresetStore
	src     domain.RandomSource
	facts   ports.FactTeller
	opts    Options
	logger  *slog.Logger
	locks   *keyedMutex
}

func NewWheelService(deps Deps, opts Options) *WheelService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WheelService{
		wheels:  deps.Wheels,
		history: deps.History,
		tx:      deps.Tx,
		presets: deps.Presets,
		src:     deps.Random,
		facts:   deps.Facts,
		opts:    opts.withDefaults(),
		logger:  logger,
		locks:   newKeyedMutex(),
	}
}

func (s *WheelService) CreateWheel(ctx context.Context, req CreateWheelRequest) (domain.Wheel, error) {
	raw := req.Items
	preset := req.Preset
	if preset == "" && len(domain.NormalizeItems(raw)) == 0 {
		preset = s.opts.DefaultPreset
	}
	if preset != "" {
		p, err := s.presets.GetPreset(ctx, preset)
		if err != nil {
			return domain.Wheel{}, fmt.Errorf("get preset: %w", err)
		}
		raw = p.Items
	}
	items, err := s.validateItems(raw)
	if err != nil {
		return domain.Wheel{}, err
	}
	settings := req.Settings.Apply(s.opts.Defaults)
	if err := settings.Validate(); err != nil {
		return domain.Wheel{}, err
	}

	now := s.opts.Now()
	w := domain.Wheel{
		ID:        s.opts.NewID(),
		Items:     items,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.wheels.CreateWheel(ctx, w); err != nil {
		return domain.Wheel{}, fmt.Errorf("create wheel: %w", err)
	}
	return w, nil
}

func (s *WheelService) Presets(ctx context.Context) ([]domain.Preset, error) {
	list, err := s.presets.ListPresets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return list, nil
}

func (s *WheelService) GetWheel(ctx context.Context, id string) (domain.Wheel, error) {
	w, err := s.wheels.GetWheel(ctx, id)
	if err != nil {
		return domain.Wheel{}, fmt.Errorf("get wheel: %w", err)
	}
	return w, nil
}

// UpdateItems replaces the item list. The last selection is forgotten
// because its index no longer refers to the same item.
func (s *WheelService) UpdateItems(ctx context.Context, id string, raw []string) (domain.Wheel, error) {
	items, err := s.validateItems(raw)
	if err != nil {
		return domain.Wheel{}, err
	}
	return s.mutate(ctx, id, func(w *domain.Wheel, now time.Time) error {
		return w.SetItems(items, now)
	})
}

// UpdateSettings overlays patch on the wheel's current settings.
func (s *WheelService) UpdateSettings(ctx context.Context, id string, patch SettingsPatch) (domain.Wheel, error) {
	return s.mutate(ctx, id, func(w *domain.Wheel, now time.Time) error {
		if w.Spinning() {
			return domain.ErrAlreadySpinning
		}
		settings := patch.Apply(w.Settings)
		if err := settings.Validate(); err != nil {
			return err
		}
		w.Settings = settings
		w.UpdatedAt = now
		return nil
	})
}

func (s *WheelService) mutate(ctx context.Context, id string, fn func(w *domain.Wheel, now time.Time) error) (domain.Wheel, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	w, err := s.wheels.GetWheel(ctx, id)
	if err != nil {
		return domain.Wheel{}, fmt.Errorf("get wheel: %w", err)
	}
	if err := fn(&w, s.opts.Now()); err != nil {
		return domain.Wheel{}, err
	}
	if err := s.wheels.SaveWheel(ctx, w); err != nil {
		return domain.Wheel{}, fmt.Errorf("save wheel: %w", err)
	}
	return w, nil
}

// Spin plans the next spin and moves the wheel to Spinning. Only one spin
// per wheel can be in flight; a spin whose completion was never
// acknowledged is completed with its original outcome once its animation
// deadline has passed.
func (s *WheelService) Spin(ctx context.Context, id string) (SpinResponse, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	w, err := s.wheels.GetWheel(ctx, id)
	if err != nil {
		return SpinResponse{}, fmt.Errorf("get wheel: %w", err)
	}

	now := s.opts.Now()
	var stale *domain.HistoryEntry
	if w.Spinning() && now.After(w.SpinDeadline(s.opts.StaleGrace)) {
		entry, err := s.completeLocked(&w, now)
		if err != nil {
			return SpinResponse{}, fmt.Errorf("complete stale spin: %w", err)
		}
		s.logger.WarnContext(ctx, "completed stale spin", "wheel_id", id, "item", entry.Item, "index", entry.Index)
		stale = &entry
	}

	start := w.CurrentAngle
	out, err := w.BeginSpin(domain.NewResolver(s.src, w.Settings.PointerOffsetDeg), now)
	if err != nil {
		if stale != nil {
			if serr := s.commit(ctx, w, stale); serr != nil {
				return SpinResponse{}, fmt.Errorf("save stale spin: %w", serr)
			}
		}
		return SpinResponse{}, fmt.Errorf("begin spin: %w", err)
	}

	if err := s.commit(ctx, w, stale); err != nil {
		return SpinResponse{}, err
	}

	s.logger.DebugContext(ctx, "spin planned",
		"wheel_id", id,
		"end_angle", out.EndAngle,
		"selected_index", out.SelectedIndex,
	)

	return SpinResponse{
		WheelID:       id,
		SpinToken:     w.SpinToken(),
		StartAngle:    start,
		Outcome:       out,
		DurationMS:    w.Settings.DurationMS,
		AutoCompleted: stale,
	}, nil
}

// CompleteSpin acknowledges that the renderer finished animating the spin
// identified by token and reveals the selected item. lang selects the fact
// language.
func (s *WheelService) CompleteSpin(ctx context.Context, id, token, lang string) (CompleteResponse, error) {
	resp, err := s.completeSpin(ctx, id, token)
	if err != nil {
		return CompleteResponse{}, err
	}

	if s.facts != nil {
		fact, err := s.facts.TellFact(ctx, ports.FactInput{Item: resp.Item, Lang: lang})
		if err != nil {
			s.logger.WarnContext(ctx, "fun fact unavailable", "wheel_id", id, "error", err)
		} else {
			resp.Fact = fact.Fact
			resp.FactModel = fact.Model
		}
	}
	return resp, nil
}

func (s *WheelService) completeSpin(ctx context.Context, id, token string) (CompleteResponse, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	w, err := s.wheels.GetWheel(ctx, id)
	if err != nil {
		return CompleteResponse{}, fmt.Errorf("get wheel: %w", err)
	}
	if w.Spinning() && token != w.SpinToken() {
		return CompleteResponse{}, fmt.Errorf("%w: got %q", domain.ErrSpinMismatch, token)
	}
	entry, err := s.completeLocked(&w, s.opts.Now())
	if err != nil {
		return CompleteResponse{}, err
	}
	if err := s.commit(ctx, w, &entry); err != nil {
		return CompleteResponse{}, err
	}
	return CompleteResponse{
		Outcome: domain.SpinOutcome{EndAngle: entry.EndAngle, SelectedIndex: entry.Index},
		Item:    entry.Item,
		Entry:   entry,
	}, nil
}

func (s *WheelService) completeLocked(w *domain.Wheel, now time.Time) (domain.HistoryEntry, error) {
	out, item, err := w.CompleteSpin(now)
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("complete spin: %w", err)
	}
	return domain.HistoryEntry{
		ID:       s.opts.NewID(),
		WheelID:  w.ID,
		Item:     item,
		Index:    out.SelectedIndex,
		EndAngle: out.EndAngle,
		SpunAt:   now,
	}, nil
}

// commit saves the wheel and, when given, its history entry atomically.
func (s *WheelService) commit(ctx context.Context, w domain.Wheel, entry *domain.HistoryEntry) error {
	return s.tx.Do(ctx, func(txCtx context.Context) error {
		if entry != nil {
			if err := s.history.AppendHistory(txCtx, *entry); err != nil {
				return fmt.Errorf("append history: %w", err)
			}
		}
		if err := s.wheels.SaveWheel(txCtx, w); err != nil {
			return fmt.Errorf("save wheel: %w", err)
		}
		return nil
	})
}

// History lists completed spins, newest first. limit <= 0 means the
// configured default; larger values are capped to it.
func (s *WheelService) History(ctx context.Context, id string, limit int) ([]domain.HistoryEntry, error) {
	if _, err := s.GetWheel(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.opts.HistoryLimit {
		limit = s.opts.HistoryLimit
	}
	entries, err := s.history.ListHistory(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func (s *WheelService) ClearHistory(ctx context.Context, id string) error {
	if _, err := s.GetWheel(ctx, id); err != nil {
		return err
	}
	if err := s.history.ClearHistory(ctx, id); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// ShareURL returns base with the wheel's items encoded into it.
func (s *WheelService) ShareURL(ctx context.Context, id, base string) (string, error) {
	w, err := s.GetWheel(ctx, id)
	if err != nil {
		return "", err
	}
	link, err := share.Encode(base, w.Items)
	if err != nil {
		return "", fmt.Errorf("encode share url: %w", err)
	}
	return link, nil
}

func (s *WheelService) CreateFromShareURL(ctx context.Context, rawURL string) (domain.Wheel, error) {
	items, err := share.Decode(rawURL)
	if err != nil {
		return domain.Wheel{}, fmt.Errorf("decode share url: %w", err)
	}
	return s.CreateWheel(ctx, CreateWheelRequest{Items: items})
}

func (s *WheelService) Export(ctx context.Context, id string, f itemsio.Format, w io.Writer) error {
	wheel, err := s.GetWheel(ctx, id)
	if err != nil {
		return err
	}
	if err := itemsio.Export(w, f, itemsio.Document{Items: wheel.Items}); err != nil {
		return fmt.Errorf("export items: %w", err)
	}
	return nil
}

// Import replaces the wheel's items with the uploaded list.
func (s *WheelService) Import(ctx context.Context, id string, f itemsio.Format, r io.Reader) (domain.Wheel, error) {
	doc, err := itemsio.Import(r, f)
	if err != nil {
		return domain.Wheel{}, fmt.Errorf("import items: %w", err)
	}
	return s.UpdateItems(ctx, id, doc.Items)
}

func (s *WheelService) validateItems(raw []string) ([]string, error) {
	items := domain.NormalizeItems(raw)
	if len(items) > s.opts.MaxItems {
		return nil, fmt.Errorf("%w: at most %d items allowed, got %d", domain.ErrInvalidItems, s.opts.MaxItems, len(items))
	}
	for _, it := range items {
		if utf8.RuneCountInString(it) > s.opts.MaxItemLength {
			return nil, fmt.Errorf("%w: item %q longer than %d characters", domain.ErrInvalidItems, it, s.opts.MaxItemLength)
		}
	}
	return items, nil
}
