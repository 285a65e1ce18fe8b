package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pantrybot/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	ref := time.Date(2025, 9, 12, 23, 59, 0, 0, time.UTC)
	records := []Record{
		{ID: 1, Name: "Milk", ExpiresAt: "2025-09-11"},
		{ID: 2, Name: "Rice"},
		{ID: 3, Name: "Yogurt", ExpiresAt: "2025-09-15"},
		{ID: 4, Name: "Cheese", ExpiresAt: "2025-09-16"},
		{ID: 5, Name: "Bread", ExpiresAt: "12/09/2025"},
		{ID: 6, Name: "Tofu", ExpiresAt: "2025-09-12"},
		{ID: 7, Name: "Natto", ExpiresAt: "2025-09-11"},
	}

	tests := []struct {
		name      string
		threshold int
		wantIDs   []int
		wantDays  []int
	}{
		{name: "default threshold", threshold: 3, wantIDs: []int{1, 7, 6, 3}, wantDays: []int{-1, -1, 0, 3}},
		{name: "zero threshold", threshold: 0, wantIDs: []int{1, 7, 6}, wantDays: []int{-1, -1, 0}},
		{name: "wide threshold", threshold: 30, wantIDs: []int{1, 7, 6, 3, 4}, wantDays: []int{-1, -1, 0, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := Evaluate(records, ref, tt.threshold)
			var ids, days []int
			for _, it := range items {
				ids = append(ids, it.Record.ID)
				days = append(days, it.DaysLeft)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantDays, days)
		})
	}
}

func TestEvaluate_ExpiredIncludedUntrackedExcluded(t *testing.T) {
	ref := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	items := Evaluate([]Record{
		{ID: 1, Name: "Old", ExpiresAt: ref.AddDate(0, 0, -1).Format(DateLayout)},
		{ID: 2, Name: "Untracked"},
	}, ref, 3)

	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Record.ID)
	assert.True(t, items[0].Expired())
}

func TestDaysLeft(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	ref := time.Date(2025, 3, 1, 1, 0, 0, 0, tokyo)
	exp, err := ParseDate("2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, 2, DaysLeft(ref, exp))

	exp, err = ParseDate("2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, -60, DaysLeft(ref, exp))
}

func TestStore_CheckExpiring(t *testing.T) {
	ctx := context.Background()
	store, sheet, _ := newTestStore(t,
		storage.Row{"1", "Milk", "500", "ml", "2025-09-13"},
		storage.Row{"2", "Rice", "1000", "g"},
	)

	report, err := store.CheckExpiring(ctx, day, DefaultThresholdDays)
	require.NoError(t, err)
	assert.Equal(t, "2025-09-12", report.ReferenceDate)
	assert.False(t, report.Degraded)
	require.Len(t, report.Items, 1)
	assert.Equal(t, 1, report.Items[0].DaysLeft)

	_, err = store.CheckExpiring(ctx, day, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	sheet.Fail(errors.New("down"))
	report, err = store.CheckExpiring(ctx, day, DefaultThresholdDays)
	require.NoError(t, err)
	assert.True(t, report.Degraded)
	assert.Len(t, report.Items, 1)
}
