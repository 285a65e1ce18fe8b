package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pantrybot/storage"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date format used for every date field.
const DateLayout = "2006-01-02"

// Record is one ingredient in the inventory.
type Record struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit,omitempty"`
	ExpiresAt string          `json:"expires_at,omitempty"`
	Location  string          `json:"location,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// Fields are the caller-supplied values of a new record. A nil Quantity
// defaults to 1.
type Fields struct {
	Name      string
	Quantity  *decimal.Decimal
	Unit      string
	ExpiresAt string
	Location  string
	Notes     string
}

// Changes lists the fields to overwrite; nil fields are left untouched.
// An empty string clears an optional field.
type Changes struct {
	Name      *string
	Quantity  *decimal.Decimal
	Unit      *string
	ExpiresAt *string
	Location  *string
	Notes     *string
}

func (c Changes) empty() bool {
	return c.Name == nil && c.Quantity == nil && c.Unit == nil &&
		c.ExpiresAt == nil && c.Location == nil && c.Notes == nil
}

// ParseDate parses an ISO calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func validateDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := ParseDate(s); err != nil {
		return fmt.Errorf("%w: expires_at %q is not an ISO date (YYYY-MM-DD)", ErrInvalidArgument, s)
	}
	return nil
}

func (f Fields) validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if f.Quantity != nil && !f.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidArgument, f.Quantity)
	}
	return validateDate(f.ExpiresAt)
}

func (c Changes) validate() error {
	if c.empty() {
		return fmt.Errorf("%w: no fields to update", ErrInvalidArgument)
	}
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidArgument)
	}
	if c.Quantity != nil && c.Quantity.IsNegative() {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidArgument)
	}
	if c.ExpiresAt != nil {
		return validateDate(*c.ExpiresAt)
	}
	return nil
}

// cells returns the column writes c implies, in column order.
func (c Changes) cells() []cell {
	var out []cell
	add := func(col int, v *string) {
		if v != nil {
			out = append(out, cell{col, strings.TrimSpace(*v)})
		}
	}
	add(storage.ColName, c.Name)
	if c.Quantity != nil {
		out = append(out, cell{storage.ColQuantity, c.Quantity.String()})
	}
	add(storage.ColUnit, c.Unit)
	add(storage.ColExpiresAt, c.ExpiresAt)
	add(storage.ColLocation, c.Location)
	add(storage.ColNotes, c.Notes)
	return out
}

type cell struct {
	col   int
	value string
}

func (r *Record) set(col int, value string) {
	switch col {
	case storage.ColName:
		r.Name = value
	case storage.ColQuantity:
		r.Quantity = decimal.RequireFromString(value)
	case storage.ColUnit:
		r.Unit = value
	case storage.ColExpiresAt:
		r.ExpiresAt = value
	case storage.ColLocation:
		r.Location = value
	case storage.ColNotes:
		r.Notes = value
	case storage.ColUpdatedAt:
		r.UpdatedAt = value
	}
}

func encodeRecord(r Record) storage.Row {
	row := make(storage.Row, storage.NumColumns)
	row[storage.ColID] = strconv.Itoa(r.ID)
	row[storage.ColName] = r.Name
	row[storage.ColQuantity] = r.Quantity.String()
	row[storage.ColUnit] = r.Unit
	row[storage.ColExpiresAt] = r.ExpiresAt
	row[storage.ColLocation] = r.Location
	row[storage.ColNotes] = r.Notes
	row[storage.ColCreatedAt] = r.CreatedAt
	row[storage.ColUpdatedAt] = r.UpdatedAt
	return row
}

func decodeRecord(row storage.Row) (Record, error) {
	if len(row) < storage.NumColumns {
		padded := make(storage.Row, storage.NumColumns)
		copy(padded, row)
		row = padded
	}
	id, err := strconv.Atoi(strings.TrimSpace(row[storage.ColID]))
	if err != nil || id <= 0 {
		return Record{}, fmt.Errorf("invalid id %q", row[storage.ColID])
	}
	qty := decimal.Zero
	if s := strings.TrimSpace(row[storage.ColQuantity]); s != "" {
		qty, err = decimal.NewFromString(s)
		if err != nil {
			return Record{}, fmt.Errorf("invalid quantity %q for id %d", s, id)
		}
	}
	return Record{
		ID:        id,
		Name:      row[storage.ColName],
		Quantity:  qty,
		Unit:      row[storage.ColUnit],
		ExpiresAt: row[storage.ColExpiresAt],
		Location:  row[storage.ColLocation],
		Notes:     row[storage.ColNotes],
		CreatedAt: row[storage.ColCreatedAt],
		UpdatedAt: row[storage.ColUpdatedAt],
	}, nil
}
