package presets

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/randomtoy/wheel-go/internal/domain"
)

//go:embed data/*.json
var presetFS embed.FS

// DefaultID is the preset a new wheel starts with when no items are given.
const DefaultID = "treats"

// registry maps preset IDs to their JSON filenames inside data/.
var registry = map[string]string{
	"treats":  "data/treats.json",
	"yes_no":  "data/yes_no.json",
	"weekday": "data/weekday.json",
}

// EmbeddedStore loads presets from embedded JSON files.
type EmbeddedStore struct {
	once    sync.Once
	presets map[string]domain.Preset
	err     error
}

func NewEmbeddedStore() *EmbeddedStore {
	return &EmbeddedStore{}
}

func (s *EmbeddedStore) init() {
	s.presets = make(map[string]domain.Preset, len(registry))
	for id, filename := range registry {
		raw, err := presetFS.ReadFile(filename)
		if err != nil {
			s.err = fmt.Errorf("read embedded preset %s: %w", id, err)
			return
		}
		var p domain.Preset
		if err := json.Unmarshal(raw, &p); err != nil {
			s.err = fmt.Errorf("parse embedded preset %s: %w", id, err)
			return
		}
		p.ID = id
		s.presets[id] = p
	}
}

func (s *EmbeddedStore) GetPreset(_ context.Context, id string) (domain.Preset, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return domain.Preset{}, s.err
	}
	p, ok := s.presets[id]
	if !ok {
		return domain.Preset{}, domain.ErrPresetNotFound
	}
	return p, nil
}

func (s *EmbeddedStore) ListPresets(_ context.Context) ([]domain.Preset, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Preset, 0, len(s.presets))
	for _, p := range s.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
