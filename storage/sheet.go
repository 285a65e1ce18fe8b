package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Column positions of the persisted record layout.
const (
	ColID = iota
	ColName
	ColQuantity
	ColUnit
	ColExpiresAt
	ColLocation
	ColNotes
	ColCreatedAt
	ColUpdatedAt

	NumColumns
)

// Header is the header row written by the tabular backends.
var Header = Row{"ID", "Name", "Quantity", "Unit", "ExpiresAt", "Location", "Notes", "CreatedAt", "UpdatedAt"}

// columnNames are the SQL column names, indexed by column position.
var columnNames = [NumColumns]string{
	"record_id", "name", "quantity", "unit", "expires_at", "location", "notes", "created_at", "updated_at",
}

var (
	ErrRowOutOfRange    = errors.New("row out of range")
	ErrColumnOutOfRange = errors.New("column out of range")
)

// Row is one data row with cells in column order.
type Row []string

// Sheet is a keyed, appendable table. Row indices are 0-based positions of
// data rows (the header is never addressed) in store order; deleting a row
// shifts every later row up by one.
type Sheet interface {
	AppendRow(ctx context.Context, row Row) error
	ReadAll(ctx context.Context) ([]Row, error)
	UpdateCell(ctx context.Context, row, col int, value string) error
	DeleteRow(ctx context.Context, row int) error
}

// normalize pads or truncates a row to exactly NumColumns cells.
func normalize(row Row) Row {
	out := make(Row, NumColumns)
	copy(out, row)
	return out
}

func checkColumn(col int) error {
	if col < 0 || col >= NumColumns {
		return fmt.Errorf("column %d: %w", col, ErrColumnOutOfRange)
	}
	return nil
}

func updateRows(rows []Row, row, col int, value string) error {
	if err := checkColumn(col); err != nil {
		return err
	}
	if row < 0 || row >= len(rows) {
		return fmt.Errorf("row %d: %w", row, ErrRowOutOfRange)
	}
	rows[row][col] = value
	return nil
}

func deleteRow(rows []Row, row int) ([]Row, error) {
	if row < 0 || row >= len(rows) {
		return nil, fmt.Errorf("row %d: %w", row, ErrRowOutOfRange)
	}
	return append(rows[:row], rows[row+1:]...), nil
}

// MemorySheet is an in-process Sheet, used for tests and the "memory" backend.
type MemorySheet struct {
	mu   sync.Mutex
	rows []Row
	err  error
}

func NewMemorySheet(rows ...Row) *MemorySheet {
	m := &MemorySheet{}
	for _, r := range rows {
		m.rows = append(m.rows, normalize(r))
	}
	return m
}

// Fail makes every subsequent call return err. Passing nil restores the sheet.
func (m *MemorySheet) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemorySheet) AppendRow(ctx context.Context, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, normalize(row))
	return nil
}

func (m *MemorySheet) ReadAll(ctx context.Context) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Row, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, append(Row(nil), r...))
	}
	return out, nil
}

func (m *MemorySheet) UpdateCell(ctx context.Context, row, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	return updateRows(m.rows, row, col, value)
}

func (m *MemorySheet) DeleteRow(ctx context.Context, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rows, err := deleteRow(m.rows, row)
	if err != nil {
		return err
	}
	m.rows = rows
	return nil
}
