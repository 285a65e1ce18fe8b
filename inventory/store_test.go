package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pantrybot/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 9, 12, 9, 30, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, rows ...storage.Row) (*Store, *storage.MemorySheet, *clock) {
	t.Helper()
	sheet := storage.NewMemorySheet(rows...)
	clk := &clock{t: day}
	return NewStore(sheet, WithClock(clk.now)), sheet, clk
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func TestStore_CreateAndList(t *testing.T) {
	ctx := context.Background()
	store, sheet, _ := newTestStore(t)

	rec, err := store.Create(ctx, Fields{
		Name:      "Milk",
		Quantity:  ptr(qty("500")),
		Unit:      "ml",
		ExpiresAt: "2025-09-15",
		Location:  "Fridge",
	})
	require.NoError(t, err)

	want := Record{
		ID:        1,
		Name:      "Milk",
		Quantity:  qty("500"),
		Unit:      "ml",
		ExpiresAt: "2025-09-15",
		Location:  "Fridge",
		CreatedAt: "2025-09-12",
		UpdatedAt: "2025-09-12",
	}
	assert.Equal(t, want, rec)

	listing, err := store.List(ctx)
	require.NoError(t, err)
	assert.False(t, listing.Degraded)
	require.Len(t, listing.Records, 1)
	assert.True(t, want.Quantity.Equal(listing.Records[0].Quantity))
	assert.Equal(t, want.Name, listing.Records[0].Name)

	rows, err := sheet.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.Row{"1", "Milk", "500", "ml", "2025-09-15", "Fridge", "", "2025-09-12", "2025-09-12"}, rows[0])
}

func TestStore_CreateDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		fields  Fields
		wantErr error
		wantQty string
	}{
		{name: "quantity defaults to one", fields: Fields{Name: "Egg"}, wantQty: "1"},
		{name: "fractional quantity", fields: Fields{Name: "Flour", Quantity: ptr(qty("0.25"))}, wantQty: "0.25"},
		{name: "missing name", fields: Fields{Name: "  "}, wantErr: ErrInvalidArgument},
		{name: "negative quantity", fields: Fields{Name: "Egg", Quantity: ptr(qty("-2"))}, wantErr: ErrInvalidArgument},
		{name: "explicit zero quantity", fields: Fields{Name: "Egg", Quantity: ptr(decimal.Zero)}, wantErr: ErrInvalidArgument},
		{name: "malformed expiry", fields: Fields{Name: "Egg", ExpiresAt: "next week"}, wantErr: ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, _ := newTestStore(t)
			rec, err := store.Create(ctx, tt.fields)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQty, rec.Quantity.String())
		})
	}
}

func TestStore_IDsNeverRepeat(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	var ids []int
	create := func(name string) {
		rec, err := store.Create(ctx, Fields{Name: name})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	create("a")
	create("b")
	create("c")
	_, err := store.Delete(ctx, 3)
	require.NoError(t, err)
	create("d")
	_, err = store.Delete(ctx, 1)
	require.NoError(t, err)
	create("e")
	_, err = store.Delete(ctx, 5)
	require.NoError(t, err)
	_, err = store.Delete(ctx, 4)
	require.NoError(t, err)
	create("f")

	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1], "ids %v", ids)
	}
}

func TestStore_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	store, sheet, _ := newTestStore(t)

	const workers = 50
	var wg sync.WaitGroup
	ids := make(chan int, workers)
	for n := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := store.Create(ctx, Fields{Name: fmt.Sprintf("item-%d", n)})
			assert.NoError(t, err)
			ids <- rec.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int]bool{}
	for id := range ids {
		assert.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)

	rows, err := sheet.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, workers)
	for id := 1; id <= workers; id++ {
		assert.True(t, seen[id], "id %d missing", id)
	}
}

func TestStore_AllocatesFromExistingRows(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t,
		storage.Row{"4", "Rice", "1000", "g"},
		storage.Row{"9", "Tofu", "1", "block"},
	)

	rec, err := store.Create(ctx, Fields{Name: "Natto"})
	require.NoError(t, err)
	assert.Equal(t, 10, rec.ID)
}

func TestStore_FindByName(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t,
		storage.Row{"1", "Milk", "500"},
		storage.Row{"2", "Milk", "200"},
		storage.Row{"3", "milk", "100"},
	)

	rec, err := store.FindByName(ctx, "Milk")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ID, "first match in store order")

	rec, err = store.FindByName(ctx, "milk")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.ID, "case-sensitive")

	_, err = store.FindByName(ctx, "MILK")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrites only present fields", func(t *testing.T) {
		store, _, clk := newTestStore(t, storage.Row{"1", "Milk", "500", "ml", "2025-09-15", "Fridge", "", "2025-09-01", "2025-09-01"})
		clk.advance(48 * time.Hour)

		rec, err := store.Update(ctx, 1, Changes{Quantity: ptr(qty("1000")), Location: ptr("Door")})
		require.NoError(t, err)
		assert.Equal(t, "1000", rec.Quantity.String())
		assert.Equal(t, "Door", rec.Location)
		assert.Equal(t, "ml", rec.Unit)
		assert.Equal(t, "2025-09-01", rec.CreatedAt)
		assert.Equal(t, "2025-09-14", rec.UpdatedAt)

		got, err := store.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("clears optional field", func(t *testing.T) {
		store, _, _ := newTestStore(t, storage.Row{"1", "Milk", "500", "ml", "2025-09-15"})
		rec, err := store.Update(ctx, 1, Changes{ExpiresAt: ptr("")})
		require.NoError(t, err)
		assert.Empty(t, rec.ExpiresAt)
	})

	t.Run("zero quantity removes record", func(t *testing.T) {
		store, _, _ := newTestStore(t, storage.Row{"1", "Milk", "500"})
		rec, err := store.Update(ctx, 1, Changes{Quantity: ptr(decimal.Zero)})
		require.NoError(t, err)
		assert.True(t, rec.Quantity.IsZero())

		_, err = store.FindByID(ctx, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("errors", func(t *testing.T) {
		store, _, _ := newTestStore(t, storage.Row{"1", "Milk", "500"})

		_, err := store.Update(ctx, 2, Changes{Unit: ptr("l")})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.Update(ctx, 1, Changes{})
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = store.Update(ctx, 1, Changes{Quantity: ptr(qty("-1"))})
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = store.Update(ctx, 1, Changes{Name: ptr("")})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestStore_SetQuantity(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t, storage.Row{"1", "Milk", "500"}, storage.Row{"2", "Egg", "6"})

	rec, err := store.SetQuantity(ctx, 1, qty("250"))
	require.NoError(t, err)
	assert.Equal(t, "250", rec.Quantity.String())

	_, err = store.SetQuantity(ctx, 2, qty("-3"))
	require.NoError(t, err)
	_, err = store.FindByID(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SkipsUndecodableRows(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t,
		storage.Row{"1", "Milk", "500"},
		storage.Row{"oops", "Ghost", "1"},
		storage.Row{},
		storage.Row{"3", "Egg", "lots"},
		storage.Row{"4", "Rice", "1000", "g"},
	)

	listing, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listing.Records, 2)
	assert.Equal(t, "Rice", listing.Records[1].Name)

	// Writes target the right sheet row despite the skipped rows.
	_, err = store.Update(ctx, 4, Changes{Unit: ptr("kg")})
	require.NoError(t, err)
	_, err = store.Delete(ctx, 1)
	require.NoError(t, err)
	rec, err := store.FindByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "kg", rec.Unit)
}

func TestStore_DegradedMode(t *testing.T) {
	ctx := context.Background()
	outage := errors.New("connection refused")

	t.Run("serves cached snapshot for reads", func(t *testing.T) {
		store, sheet, clk := newTestStore(t, storage.Row{"1", "Milk", "500"})
		_, err := store.List(ctx)
		require.NoError(t, err)

		sheet.Fail(outage)
		clk.advance(time.Hour)

		listing, err := store.List(ctx)
		require.NoError(t, err)
		assert.True(t, listing.Degraded)
		assert.Equal(t, day, listing.AsOf)
		require.Len(t, listing.Records, 1)
		assert.Equal(t, "Milk", listing.Records[0].Name)
	})

	t.Run("rejects writes", func(t *testing.T) {
		store, sheet, _ := newTestStore(t, storage.Row{"1", "Milk", "500"})
		_, err := store.List(ctx)
		require.NoError(t, err)

		sheet.Fail(outage)
		_, err = store.Create(ctx, Fields{Name: "Egg"})
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.ErrorIs(t, err, outage)

		_, err = NewLedger(store).Reduce(ctx, "Milk", qty("1"))
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("stale snapshot is not served", func(t *testing.T) {
		store, sheet, clk := newTestStore(t, storage.Row{"1", "Milk", "500"})
		_, err := store.List(ctx)
		require.NoError(t, err)

		sheet.Fail(outage)
		clk.advance(DefaultCacheTTL + time.Minute)

		_, err = store.List(ctx)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("no snapshot", func(t *testing.T) {
		store, sheet, _ := newTestStore(t)
		sheet.Fail(outage)

		_, err := store.List(ctx)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})
}

func TestStore_Names(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t,
		storage.Row{"1", "Banana", "10"},
		storage.Row{"2", "Milk", "500"},
		storage.Row{"3", "Banana", "2"},
	)

	names, err := store.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Banana", "Milk"}, names)
}
