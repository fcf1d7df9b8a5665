package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"

	_ "modernc.org/sqlite"
)

// ErrStateNotFound is returned when a named state blob has never been stored.
var ErrStateNotFound = errors.New("state not found")

// SQLiteRepository keeps a local mirror of the spreadsheet ledger plus
// small named state blobs for the trip UI. The spreadsheet stays the
// source of truth; the mirror serves reads when the sheet is unreachable.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceSnapshot atomically swaps the mirrored ledger for the given records.
func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, records []core.ExpenseRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_snapshot`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_snapshot (
			row_index, date, item, payer,
			amount_twd, amount_jpy, note, split_mode,
			split_xiang_twd, split_xiang_jpy, split_qian_twd, split_qian_jpy,
			synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if !rec.Persisted() {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			rec.RowIndex, rec.Date, rec.Item, string(rec.Payer),
			rec.AmountTWD, rec.AmountJPY, rec.Note, string(rec.SplitMode),
			rec.SplitXiangTWD, rec.SplitXiangJPY, rec.SplitQianTWD, rec.SplitQianJPY,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot row %d: %w", rec.RowIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the mirrored ledger, newest date first.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT row_index, date, item, payer,
		       amount_twd, amount_jpy, note, split_mode,
		       split_xiang_twd, split_xiang_jpy, split_qian_twd, split_qian_jpy
		FROM ledger_snapshot
		ORDER BY date DESC, row_index DESC`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var records []core.ExpenseRecord
	for rows.Next() {
		var rec core.ExpenseRecord
		var payer, splitMode string
		err := rows.Scan(
			&rec.RowIndex, &rec.Date, &rec.Item, &payer,
			&rec.AmountTWD, &rec.AmountJPY, &rec.Note, &splitMode,
			&rec.SplitXiangTWD, &rec.SplitXiangJPY, &rec.SplitQianTWD, &rec.SplitQianJPY,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		rec.Payer = core.Party(payer)
		rec.SplitMode = core.SplitMode(splitMode)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return records, nil
}

// SnapshotCount returns the number of mirrored records.
func (r *SQLiteRepository) SnapshotCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_snapshot`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count snapshot rows: %w", err)
	}
	return count, nil
}

// GetState returns the stored value for a named state blob.
func (r *SQLiteRepository) GetState(ctx context.Context, name string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM trip_state WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrStateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", name, err)
	}
	return value, nil
}

// PutState stores or replaces a named state blob.
func (r *SQLiteRepository) PutState(ctx context.Context, name, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trip_state (name, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value)
	if err != nil {
		return fmt.Errorf("put state %s: %w", name, err)
	}
	return nil
}

// ListStateNames returns the names of all stored state blobs.
func (r *SQLiteRepository) ListStateNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM trip_state ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list state names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan state name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
