package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ingredient_rows (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	quantity TEXT NOT NULL DEFAULT '',
	unit TEXT NOT NULL DEFAULT '',
	expires_at TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
)`

// SQLiteSheet stores rows in a SQLite table; the autoincrement seq column
// keeps store order stable.
type SQLiteSheet struct {
	db *sql.DB
}

// OpenSQLiteSheet opens (or creates) the database at path. ":memory:" is
// accepted; the pool is pinned to one connection so every call sees the
// same in-memory database.
func OpenSQLiteSheet(path string) (*SQLiteSheet, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	sheet, err := NewSQLiteSheet(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return sheet, nil
}

func NewSQLiteSheet(db *sql.DB) (*SQLiteSheet, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteSheet{db: db}, nil
}

func (s *SQLiteSheet) Close() error {
	return s.db.Close()
}

func (s *SQLiteSheet) AppendRow(ctx context.Context, row Row) error {
	row = normalize(row)
	args := make([]any, NumColumns)
	for i, v := range row {
		args[i] = v
	}
	query := fmt.Sprintf("INSERT INTO ingredient_rows (%s) VALUES (?%s)",
		strings.Join(columnNames[:], ", "), strings.Repeat(", ?", NumColumns-1))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

func (s *SQLiteSheet) ReadAll(ctx context.Context) ([]Row, error) {
	query := fmt.Sprintf("SELECT %s FROM ingredient_rows ORDER BY seq", strings.Join(columnNames[:], ", "))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row := make(Row, NumColumns)
		dest := make([]any, NumColumns)
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLiteSheet) UpdateCell(ctx context.Context, row, col int, value string) error {
	if err := checkColumn(col); err != nil {
		return err
	}
	seq, err := s.seqAt(ctx, row)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE ingredient_rows SET %s = ? WHERE seq = ?", columnNames[col])
	if _, err := s.db.ExecContext(ctx, query, value, seq); err != nil {
		return fmt.Errorf("failed to update cell: %w", err)
	}
	return nil
}

func (s *SQLiteSheet) DeleteRow(ctx context.Context, row int) error {
	seq, err := s.seqAt(ctx, row)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM ingredient_rows WHERE seq = ?", seq); err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	return nil
}

func (s *SQLiteSheet) seqAt(ctx context.Context, row int) (int64, error) {
	if row < 0 {
		return 0, fmt.Errorf("row %d: %w", row, ErrRowOutOfRange)
	}
	var seq int64
	err := s.db.QueryRowContext(ctx, "SELECT seq FROM ingredient_rows ORDER BY seq LIMIT 1 OFFSET ?", row).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("row %d: %w", row, ErrRowOutOfRange)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to locate row: %w", err)
	}
	return seq, nil
}
