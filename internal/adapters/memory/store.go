// Package memory keeps wheels and history in process memory. State is lost
// on restart.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/randomtoy/wheel-go/internal/domain"
)

// Store implements ports.WheelStore, ports.HistoryStore and ports.TxManager.
type Store struct {
	mu      sync.RWMutex
	wheels  map[string]domain.Wheel
	history map[string][]domain.HistoryEntry
}

func NewStore() *Store {
	return &Store{
		wheels:  make(map[string]domain.Wheel),
		history: make(map[string][]domain.HistoryEntry),
	}
}

type txKey struct{}

// tx buffers writes made inside Do so they apply all at once or not at all.
type tx struct {
	ops []func(s *Store) error
}

// Do runs fn and applies the writes it made only if fn succeeds.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return fn(ctx)
	}
	t := &tx{}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wheels := maps.Clone(s.wheels)
	history := make(map[string][]domain.HistoryEntry, len(s.history))
	for k, v := range s.history {
		history[k] = slices.Clone(v)
	}
	for _, op := range t.ops {
		if err := op(s); err != nil {
			s.wheels, s.history = wheels, history
			return err
		}
	}
	return nil
}

// write runs op now, or defers it to commit when ctx carries a transaction.
func (s *Store) write(ctx context.Context, op func(s *Store) error) error {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		t.ops = append(t.ops, op)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return op(s)
}

func (s *Store) CreateWheel(ctx context.Context, w domain.Wheel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w = cloneWheel(w)
	return s.write(ctx, func(s *Store) error {
		s.wheels[w.ID] = w
		return nil
	})
}

func (s *Store) GetWheel(ctx context.Context, id string) (domain.Wheel, error) {
	if err := ctx.Err(); err != nil {
		return domain.Wheel{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wheels[id]
	if !ok {
		return domain.Wheel{}, domain.ErrWheelNotFound
	}
	return cloneWheel(w), nil
}

func (s *Store) SaveWheel(ctx context.Context, w domain.Wheel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w = cloneWheel(w)
	return s.write(ctx, func(s *Store) error {
		if _, ok := s.wheels[w.ID]; !ok {
			return domain.ErrWheelNotFound
		}
		s.wheels[w.ID] = w
		return nil
	})
}

func (s *Store) AppendHistory(ctx context.Context, e domain.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(ctx, func(s *Store) error {
		s.history[e.WheelID] = append(s.history[e.WheelID], e)
		return nil
	})
}

func (s *Store) ListHistory(ctx context.Context, wheelID string, limit int) ([]domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[wheelID]
	out := make([]domain.HistoryEntry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (s *Store) ClearHistory(ctx context.Context, wheelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(ctx, func(s *Store) error {
		delete(s.history, wheelID)
		return nil
	})
}

func cloneWheel(w domain.Wheel) domain.Wheel {
	w.Items = slices.Clone(w.Items)
	if w.LastIndex != nil {
		v := *w.LastIndex
		w.LastIndex = &v
	}
	if w.Pending != nil {
		v := *w.Pending
		w.Pending = &v
	}
	return w
}
