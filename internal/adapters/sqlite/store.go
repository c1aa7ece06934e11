// Package sqlite persists wheels and spin history in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/randomtoy/wheel-go/internal/adapters/sqlite/migrations"
	"github.com/randomtoy/wheel-go/internal/domain"
)

var errWheelExists = errors.New("wheel already exists")

// Store implements ports.WheelStore, ports.HistoryStore and
// ports.TxManager.
type Store struct {
	db *sql.DB
}

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; transactions stay on their own connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Do runs fn in a transaction. Nested calls join the outer transaction.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// wheelRow is the column form of a domain.Wheel.
type wheelRow struct {
	items, settings    string
	lastIndex          sql.NullInt64
	pendingEndAngle    sql.NullFloat64
	pendingIndex       sql.NullInt64
	spinStartedAt      sql.NullInt64
	createdAt, updated int64
}

func encodeWheel(w domain.Wheel) (wheelRow, error) {
	items, err := json.Marshal(w.Items)
	if err != nil {
		return wheelRow{}, fmt.Errorf("encode items: %w", err)
	}
	settings, err := json.Marshal(w.Settings)
	if err != nil {
		return wheelRow{}, fmt.Errorf("encode settings: %w", err)
	}
	r := wheelRow{
		items:     string(items),
		settings:  string(settings),
		createdAt: toMillis(w.CreatedAt),
		updated:   toMillis(w.UpdatedAt),
	}
	if w.LastIndex != nil {
		r.lastIndex = sql.NullInt64{Int64: int64(*w.LastIndex), Valid: true}
	}
	if w.Pending != nil {
		r.pendingEndAngle = sql.NullFloat64{Float64: w.Pending.EndAngle, Valid: true}
		r.pendingIndex = sql.NullInt64{Int64: int64(w.Pending.SelectedIndex), Valid: true}
		r.spinStartedAt = sql.NullInt64{Int64: toMillis(w.SpinStartedAt), Valid: true}
	}
	return r, nil
}

func (s *Store) CreateWheel(ctx context.Context, w domain.Wheel) error {
	r, err := encodeWheel(w)
	if err != nil {
		return err
	}
	_, err = s.q(ctx).ExecContext(ctx,
		`INSERT INTO wheels (
		   id, items, current_angle, last_index, settings,
		   pending_end_angle, pending_index, spin_started_at,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, r.items, w.CurrentAngle, r.lastIndex, r.settings,
		r.pendingEndAngle, r.pendingIndex, r.spinStartedAt,
		r.createdAt, r.updated,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", errWheelExists, w.ID)
		}
		return fmt.Errorf("insert wheel: %w", err)
	}
	return nil
}

func (s *Store) GetWheel(ctx context.Context, id string) (domain.Wheel, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, items, current_angle, last_index, settings,
		        pending_end_angle, pending_index, spin_started_at,
		        created_at, updated_at
		   FROM wheels
		  WHERE id = ?`,
		id,
	)

	var (
		w domain.Wheel
		r wheelRow
	)
	err := row.Scan(
		&w.ID, &r.items, &w.CurrentAngle, &r.lastIndex, &r.settings,
		&r.pendingEndAngle, &r.pendingIndex, &r.spinStartedAt,
		&r.createdAt, &r.updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Wheel{}, domain.ErrWheelNotFound
		}
		return domain.Wheel{}, fmt.Errorf("get wheel: %w", err)
	}

	if err := json.Unmarshal([]byte(r.items), &w.Items); err != nil {
		return domain.Wheel{}, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal([]byte(r.settings), &w.Settings); err != nil {
		return domain.Wheel{}, fmt.Errorf("decode settings: %w", err)
	}
	if r.lastIndex.Valid {
		idx := int(r.lastIndex.Int64)
		w.LastIndex = &idx
	}
	if r.pendingEndAngle.Valid && r.pendingIndex.Valid {
		w.Pending = &domain.SpinOutcome{
			EndAngle:      r.pendingEndAngle.Float64,
			SelectedIndex: int(r.pendingIndex.Int64),
		}
		if r.spinStartedAt.Valid {
			w.SpinStartedAt = fromMillis(r.spinStartedAt.Int64)
		}
	}
	w.CreatedAt = fromMillis(r.createdAt)
	w.UpdatedAt = fromMillis(r.updated)
	return w, nil
}

func (s *Store) SaveWheel(ctx context.Context, w domain.Wheel) error {
	r, err := encodeWheel(w)
	if err != nil {
		return err
	}
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE wheels
		    SET items = ?, current_angle = ?, last_index = ?, settings = ?,
		        pending_end_angle = ?, pending_index = ?, spin_started_at = ?,
		        updated_at = ?
		  WHERE id = ?`,
		r.items, w.CurrentAngle, r.lastIndex, r.settings,
		r.pendingEndAngle, r.pendingIndex, r.spinStartedAt,
		r.updated, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update wheel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update wheel rows: %w", err)
	}
	if n == 0 {
		return domain.ErrWheelNotFound
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, e domain.HistoryEntry) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO spin_history (id, wheel_id, item, idx, end_angle, spun_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.WheelID, e.Item, e.Index, e.EndAngle, toMillis(e.SpunAt),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, wheelID string, limit int) ([]domain.HistoryEntry, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id, wheel_id, item, idx, end_angle, spun_at
		   FROM spin_history
		  WHERE wheel_id = ?
		  ORDER BY spun_at DESC, rowid DESC
		  LIMIT ?`,
		wheelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		var (
			e      domain.HistoryEntry
			spunAt int64
		)
		if err := rows.Scan(&e.ID, &e.WheelID, &e.Item, &e.Index, &e.EndAngle, &spunAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.SpunAt = fromMillis(spunAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func (s *Store) ClearHistory(ctx context.Context, wheelID string) error {
	if _, err := s.q(ctx).ExecContext(ctx, `DELETE FROM spin_history WHERE wheel_id = ?`, wheelID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
