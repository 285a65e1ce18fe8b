// Package inventory is the ingredient record store together with the
// identifier resolver, quantity ledger and expiry evaluator built on it.
package inventory

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"pantrybot"
	"pantrybot/storage"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 24 * time.Hour
)

// Store owns the ingredient table. Every operation runs inside the store's
// critical section, so ID allocation and read-then-write sequences never
// interleave. Successful reads and writes refresh a snapshot that List
// serves, flagged as degraded, while the backend is unreachable.
type Store struct {
	sheet    storage.Sheet
	now      func() time.Time
	timeout  time.Duration
	cacheTTL time.Duration
	tracer   trace.Tracer

	mu        sync.Mutex
	highWater int
	snapshot  []Record
	snapAt    time.Time
	hasSnap   bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTimeout bounds each backend call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithCacheTTL sets how old a snapshot may be and still be served.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Store) { s.cacheTTL = d }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) { s.tracer = tracer }
}

func NewStore(sheet storage.Sheet, opts ...Option) *Store {
	s := &Store{
		sheet:    sheet,
		now:      time.Now,
		timeout:  DefaultTimeout,
		cacheTTL: DefaultCacheTTL,
		tracer:   otel.Tracer(pantrybot.TracerNameStore),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) today() string {
	return s.now().Format(DateLayout)
}

// Listing is the result of List. Degraded is set when the backend could not
// be read and a snapshot taken at AsOf was served instead.
type Listing struct {
	Records  []Record  `json:"records"`
	Degraded bool      `json:"degraded"`
	AsOf     time.Time `json:"as_of,omitzero"`
}

// Create allocates the next ID, stamps both dates with today and appends
// the record.
func (s *Store) Create(ctx context.Context, f Fields) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "Store.Create")
	defer span.End()

	if err := f.validate(); err != nil {
		return Record{}, spanError(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return Record{}, spanError(span, err)
	}

	qty := decimal.NewFromInt(1)
	if f.Quantity != nil {
		qty = *f.Quantity
	}
	today := s.today()
	rec := Record{
		ID:        s.highWater + 1,
		Name:      strings.TrimSpace(f.Name),
		Quantity:  qty,
		Unit:      strings.TrimSpace(f.Unit),
		ExpiresAt: strings.TrimSpace(f.ExpiresAt),
		Location:  strings.TrimSpace(f.Location),
		Notes:     strings.TrimSpace(f.Notes),
		CreatedAt: today,
		UpdatedAt: today,
	}

	err = s.exec(ctx, func(ctx context.Context) error {
		return s.sheet.AppendRow(ctx, encodeRecord(rec))
	})
	if err != nil {
		return Record{}, spanError(span, unavailable("append row", err))
	}
	s.highWater = rec.ID
	t.entries = append(t.entries, entry{row: t.rows, rec: rec})
	t.rows++
	s.remember(t.records())

	span.SetAttributes(attribute.Int("ingredient.id", rec.ID))
	slog.Info("STORE: Created ingredient", "id", rec.ID, "name", rec.Name, "quantity", rec.Quantity.String())
	return rec, nil
}

// List returns every record in store order. When the backend fails and a
// snapshot younger than the cache TTL exists, the snapshot is returned with
// Degraded set instead of an error.
func (s *Store) List(ctx context.Context) (Listing, error) {
	ctx, span := s.tracer.Start(ctx, "Store.List")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err == nil {
		return Listing{Records: t.records()}, nil
	}
	if snap, at, ok := s.cached(); ok {
		slog.Warn("STORE: Backend unavailable, serving cached snapshot", "as_of", at, "error", err)
		span.SetAttributes(attribute.Bool("inventory.degraded", true))
		return Listing{Records: snap, Degraded: true, AsOf: at}, nil
	}
	return Listing{}, spanError(span, err)
}

func (s *Store) FindByID(ctx context.Context, id int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	i, ok := t.byID(id)
	if !ok {
		return Record{}, &NotFoundError{Token: strconv.Itoa(id)}
	}
	return t.entries[i].rec, nil
}

// FindByName returns the first record in store order whose name matches
// exactly. Later records sharing the name are not addressable by name.
func (s *Store) FindByName(ctx context.Context, name string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	i, ok := t.byName(name)
	if !ok {
		return Record{}, &NotFoundError{Token: name}
	}
	return t.entries[i].rec, nil
}

// Update overwrites the fields present in c and refreshes UpdatedAt. A
// change setting quantity to zero deletes the record; the returned Record
// then carries a zero Quantity.
func (s *Store) Update(ctx context.Context, id int, c Changes) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "Store.Update", trace.WithAttributes(attribute.Int("ingredient.id", id)))
	defer span.End()

	if err := c.validate(); err != nil {
		return Record{}, spanError(span, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return Record{}, spanError(span, err)
	}
	i, ok := t.byID(id)
	if !ok {
		return Record{}, spanError(span, &NotFoundError{Token: strconv.Itoa(id)})
	}
	rec, err := s.apply(ctx, t, i, c)
	return rec, spanError(span, err)
}

// Delete removes the record and returns it as it was.
func (s *Store) Delete(ctx context.Context, id int) (Record, error) {
	ctx, span := s.tracer.Start(ctx, "Store.Delete", trace.WithAttributes(attribute.Int("ingredient.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return Record{}, spanError(span, err)
	}
	i, ok := t.byID(id)
	if !ok {
		return Record{}, spanError(span, &NotFoundError{Token: strconv.Itoa(id)})
	}
	rec, err := s.remove(ctx, t, i)
	return rec, spanError(span, err)
}

// SetQuantity writes q, or deletes the record when q <= 0.
func (s *Store) SetQuantity(ctx context.Context, id int, q decimal.Decimal) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	i, ok := t.byID(id)
	if !ok {
		return Record{}, &NotFoundError{Token: strconv.Itoa(id)}
	}
	return s.setQuantity(ctx, t, i, q)
}

// Names returns the record names in store order. It is used as routing
// context and falls back to the snapshot like List does.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	listing, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(listing.Records))
	for _, r := range listing.Records {
		if !slices.Contains(names, r.Name) {
			names = append(names, r.Name)
		}
	}
	return names, nil
}

// The helpers below expect s.mu to be held.

func (s *Store) setQuantity(ctx context.Context, t *table, i int, q decimal.Decimal) (Record, error) {
	if !q.IsPositive() {
		rec, err := s.remove(ctx, t, i)
		if err != nil {
			return Record{}, err
		}
		rec.Quantity = decimal.Zero
		return rec, nil
	}
	return s.apply(ctx, t, i, Changes{Quantity: &q})
}

func (s *Store) apply(ctx context.Context, t *table, i int, c Changes) (Record, error) {
	if c.Quantity != nil && c.Quantity.IsZero() {
		rec, err := s.remove(ctx, t, i)
		if err != nil {
			return Record{}, err
		}
		rec.Quantity = decimal.Zero
		return rec, nil
	}

	e := t.entries[i]
	rec := e.rec
	before := encodeRecord(e.rec)
	writes := append(c.cells(), cell{storage.ColUpdatedAt, s.today()})
	for n, w := range writes {
		err := s.exec(ctx, func(ctx context.Context) error {
			return s.sheet.UpdateCell(ctx, e.row, w.col, w.value)
		})
		if err != nil {
			s.rollback(ctx, e, before, writes[:n])
			return Record{}, unavailable("update cell", err)
		}
		rec.set(w.col, w.value)
	}
	t.entries[i].rec = rec
	s.remember(t.records())

	slog.Info("STORE: Updated ingredient", "id", rec.ID, "fields", len(writes)-1)
	return rec, nil
}

// rollback restores the cells already written by a failed update, newest
// first. The snapshot is kept only if every cell was restored.
func (s *Store) rollback(ctx context.Context, e entry, before storage.Row, written []cell) {
	for n := len(written) - 1; n >= 0; n-- {
		w := written[n]
		err := s.exec(ctx, func(ctx context.Context) error {
			return s.sheet.UpdateCell(ctx, e.row, w.col, before[w.col])
		})
		if err != nil {
			slog.Error("STORE: Failed to restore cell after partial update", "id", e.rec.ID, "column", w.col, "error", err)
			s.invalidate()
			return
		}
	}
	if len(written) > 0 {
		slog.Warn("STORE: Rolled back partial update", "id", e.rec.ID, "cells", len(written))
	}
}

func (s *Store) remove(ctx context.Context, t *table, i int) (Record, error) {
	e := t.entries[i]
	err := s.exec(ctx, func(ctx context.Context) error {
		return s.sheet.DeleteRow(ctx, e.row)
	})
	if err != nil {
		return Record{}, unavailable("delete row", err)
	}
	t.drop(i)
	s.remember(t.records())

	slog.Info("STORE: Deleted ingredient", "id", e.rec.ID, "name", e.rec.Name)
	return e.rec, nil
}

// load reads and decodes the whole table. Rows that cannot be decoded are
// skipped with a warning; blank rows are skipped silently.
func (s *Store) load(ctx context.Context) (*table, error) {
	var rows []storage.Row
	err := s.exec(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.sheet.ReadAll(ctx)
		return err
	})
	if err != nil {
		return nil, unavailable("read rows", err)
	}

	t := &table{rows: len(rows)}
	for i, row := range rows {
		if blank(row) {
			continue
		}
		rec, err := decodeRecord(row)
		if err != nil {
			slog.Warn("STORE: Skipping undecodable row", "row", i, "error", err)
			continue
		}
		t.entries = append(t.entries, entry{row: i, rec: rec})
	}
	if m := t.maxID(); m > s.highWater {
		s.highWater = m
	}
	s.remember(t.records())
	return t, nil
}

func (s *Store) exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (s *Store) remember(records []Record) {
	s.snapshot = records
	s.snapAt = s.now()
	s.hasSnap = true
}

// invalidate drops the snapshot after a write whose outcome is unknown.
func (s *Store) invalidate() {
	s.snapshot = nil
	s.hasSnap = false
}

func (s *Store) cached() ([]Record, time.Time, bool) {
	if !s.hasSnap {
		return nil, time.Time{}, false
	}
	if s.cacheTTL > 0 && s.now().Sub(s.snapAt) > s.cacheTTL {
		return nil, time.Time{}, false
	}
	return slices.Clone(s.snapshot), s.snapAt, true
}

func blank(row storage.Row) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func spanError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// table is a decoded view of the sheet. entry.row is the record's data row
// index in the sheet, which differs from its position in entries when
// undecodable rows were skipped.
type table struct {
	entries []entry
	rows    int
}

type entry struct {
	row int
	rec Record
}

func (t *table) records() []Record {
	out := make([]Record, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.rec
	}
	return out
}

func (t *table) maxID() int {
	m := 0
	for _, e := range t.entries {
		m = max(m, e.rec.ID)
	}
	return m
}

func (t *table) byID(id int) (int, bool) {
	for i, e := range t.entries {
		if e.rec.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (t *table) byName(name string) (int, bool) {
	for i, e := range t.entries {
		if e.rec.Name == name {
			return i, true
		}
	}
	return -1, false
}

// drop removes entry i and shifts the sheet rows that followed it.
func (t *table) drop(i int) {
	removed := t.entries[i].row
	t.entries = slices.Delete(t.entries, i, i+1)
	for j := range t.entries {
		if t.entries[j].row > removed {
			t.entries[j].row--
		}
	}
	t.rows--
}
