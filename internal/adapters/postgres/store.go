// Package postgres persists wheels and spin history in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/randomtoy/wheel-go/internal/adapters/postgres/migrations"
	"github.com/randomtoy/wheel-go/internal/domain"
)

const (
	tableWheels  = "wheels"
	tableHistory = "spin_history"

	colID              = "id"
	colItems           = "items"
	colCurrentAngle    = "current_angle"
	colLastIndex       = "last_index"
	colSettings        = "settings"
	colPendingEndAngle = "pending_end_angle"
	colPendingIndex    = "pending_index"
	colSpinStartedAt   = "spin_started_at"
	colCreatedAt       = "created_at"
	colUpdatedAt       = "updated_at"

	colSeq      = "seq"
	colWheelID  = "wheel_id"
	colItem     = "item"
	colIdx      = "idx"
	colEndAngle = "end_angle"
	colSpunAt   = "spun_at"
)

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	wheelColumns = []string{
		colID, colItems, colCurrentAngle, colLastIndex, colSettings,
		colPendingEndAngle, colPendingIndex, colSpinStartedAt,
		colCreatedAt, colUpdatedAt,
	}

	errWheelExists = errors.New("wheel already exists")
)

// Store implements ports.WheelStore and ports.HistoryStore. Queries join
// the transaction started by the Manager when one is in the context.
type Store struct {
	pool   *pgxpool.Pool
	getter *trmpgx.CtxGetter
}

// Open connects to dsn and applies embedded migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate(ctx, pool, migrations.FS); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{pool: pool, getter: trmpgx.DefaultCtxGetter}, nil
}

// Manager returns a transaction manager bound to the store's pool.
func (s *Store) Manager() (*manager.Manager, error) {
	m, err := manager.New(trmpgx.NewDefaultFactory(s.pool))
	if err != nil {
		return nil, fmt.Errorf("create tx manager: %w", err)
	}
	return m, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) conn(ctx context.Context) trmpgx.Tr {
	return s.getter.DefaultTrOrDB(ctx, s.pool)
}

func migrate(ctx context.Context, pool *pgxpool.Pool, migrationFS fs.FS) error {
	names, err := fs.Glob(migrationFS, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
	}
	return nil
}

func wheelValues(w domain.Wheel) (items, settings []byte, err error) {
	if items, err = json.Marshal(w.Items); err != nil {
		return nil, nil, fmt.Errorf("encode items: %w", err)
	}
	if settings, err = json.Marshal(w.Settings); err != nil {
		return nil, nil, fmt.Errorf("encode settings: %w", err)
	}
	return items, settings, nil
}

// pendingValues returns the nullable pending-spin columns.
func pendingValues(w domain.Wheel) (endAngle *float64, idx *int, startedAt *time.Time) {
	if w.Pending == nil {
		return nil, nil, nil
	}
	e, i, t := w.Pending.EndAngle, w.Pending.SelectedIndex, w.SpinStartedAt.UTC()
	return &e, &i, &t
}

func (s *Store) CreateWheel(ctx context.Context, w domain.Wheel) error {
	items, settings, err := wheelValues(w)
	if err != nil {
		return err
	}
	endAngle, idx, startedAt := pendingValues(w)

	query, args, err := psql.Insert(tableWheels).
		Columns(wheelColumns...).
		Values(w.ID, items, w.CurrentAngle, w.LastIndex, settings,
			endAngle, idx, startedAt, w.CreatedAt.UTC(), w.UpdatedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert wheel: %w", err)
	}
	if _, err := s.conn(ctx).Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", errWheelExists, w.ID)
		}
		return fmt.Errorf("insert wheel: %w", err)
	}
	return nil
}

func (s *Store) GetWheel(ctx context.Context, id string) (domain.Wheel, error) {
	query, args, err := psql.Select(wheelColumns...).
		From(tableWheels).
		Where(sq.Eq{colID: id}).
		ToSql()
	if err != nil {
		return domain.Wheel{}, fmt.Errorf("build select wheel: %w", err)
	}

	var (
		w                  domain.Wheel
		items, settings    []byte
		pendingEnd         *float64
		pendingIdx         *int
		startedAt          *time.Time
		createdAt, updated time.Time
	)
	err = s.conn(ctx).QueryRow(ctx, query, args...).Scan(
		&w.ID, &items, &w.CurrentAngle, &w.LastIndex, &settings,
		&pendingEnd, &pendingIdx, &startedAt, &createdAt, &updated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Wheel{}, domain.ErrWheelNotFound
		}
		return domain.Wheel{}, fmt.Errorf("get wheel: %w", err)
	}

	if err := json.Unmarshal(items, &w.Items); err != nil {
		return domain.Wheel{}, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(settings, &w.Settings); err != nil {
		return domain.Wheel{}, fmt.Errorf("decode settings: %w", err)
	}
	if pendingEnd != nil && pendingIdx != nil {
		w.Pending = &domain.SpinOutcome{EndAngle: *pendingEnd, SelectedIndex: *pendingIdx}
		if startedAt != nil {
			w.SpinStartedAt = startedAt.UTC()
		}
	}
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updated.UTC()
	return w, nil
}

func (s *Store) SaveWheel(ctx context.Context, w domain.Wheel) error {
	items, settings, err := wheelValues(w)
	if err != nil {
		return err
	}
	endAngle, idx, startedAt := pendingValues(w)

	query, args, err := psql.Update(tableWheels).
		Set(colItems, items).
		Set(colCurrentAngle, w.CurrentAngle).
		Set(colLastIndex, w.LastIndex).
		Set(colSettings, settings).
		Set(colPendingEndAngle, endAngle).
		Set(colPendingIndex, idx).
		Set(colSpinStartedAt, startedAt).
		Set(colUpdatedAt, w.UpdatedAt.UTC()).
		Where(sq.Eq{colID: w.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update wheel: %w", err)
	}
	tag, err := s.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update wheel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWheelNotFound
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, e domain.HistoryEntry) error {
	query, args, err := psql.Insert(tableHistory).
		Columns(colID, colWheelID, colItem, colIdx, colEndAngle, colSpunAt).
		Values(e.ID, e.WheelID, e.Item, e.Index, e.EndAngle, e.SpunAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history: %w", err)
	}
	if _, err := s.conn(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, wheelID string, limit int) ([]domain.HistoryEntry, error) {
	query, args, err := psql.Select(colID, colWheelID, colItem, colIdx, colEndAngle, colSpunAt).
		From(tableHistory).
		Where(sq.Eq{colWheelID: wheelID}).
		OrderBy(colSpunAt+" DESC", colSeq+" DESC").
		Limit(uint64(max(limit, 0))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list history: %w", err)
	}

	rows, err := s.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.ID, &e.WheelID, &e.Item, &e.Index, &e.EndAngle, &e.SpunAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.SpunAt = e.SpunAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func (s *Store) ClearHistory(ctx context.Context, wheelID string) error {
	query, args, err := psql.Delete(tableHistory).
		Where(sq.Eq{colWheelID: wheelID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear history: %w", err)
	}
	if _, err := s.conn(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
