package inventory

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

const DefaultThresholdDays = 3

type ExpiringItem struct {
	Record   Record `json:"record"`
	DaysLeft int    `json:"days_left"`
}

// Expired reports whether the expiry date is already behind the reference
// date.
func (i ExpiringItem) Expired() bool {
	return i.DaysLeft < 0
}

type ExpiryReport struct {
	ReferenceDate string         `json:"reference_date"`
	ThresholdDays int            `json:"threshold_days"`
	Items         []ExpiringItem `json:"items"`
	Degraded      bool           `json:"degraded"`
}

// DaysLeft counts calendar days from ref to expires. Only the year, month
// and day of ref in its own location are used.
func DaysLeft(ref, expires time.Time) int {
	r := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(expires.Year(), expires.Month(), expires.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(r).Hours() / 24)
}

// Evaluate returns the records with an expiry date no more than threshold
// days after ref, already expired ones included, ordered by days left and
// then by ID. Records without an expiry date are ignored and records with a
// malformed one are skipped.
func Evaluate(records []Record, ref time.Time, thresholdDays int) []ExpiringItem {
	items := []ExpiringItem{}
	for _, r := range records {
		if r.ExpiresAt == "" {
			continue
		}
		exp, err := ParseDate(r.ExpiresAt)
		if err != nil {
			slog.Warn("STORE: Skipping malformed expiry date", "id", r.ID, "expires_at", r.ExpiresAt, "error", err)
			continue
		}
		if left := DaysLeft(ref, exp); left <= thresholdDays {
			items = append(items, ExpiringItem{Record: r, DaysLeft: left})
		}
	}
	slices.SortStableFunc(items, func(a, b ExpiringItem) int {
		return cmp.Or(cmp.Compare(a.DaysLeft, b.DaysLeft), cmp.Compare(a.Record.ID, b.Record.ID))
	})
	return items
}

// CheckExpiring evaluates every record against ref. It reads through List,
// so a degraded listing yields a degraded report.
func (s *Store) CheckExpiring(ctx context.Context, ref time.Time, thresholdDays int) (ExpiryReport, error) {
	if thresholdDays < 0 {
		return ExpiryReport{}, fmt.Errorf("%w: threshold days must not be negative, got %d", ErrInvalidArgument, thresholdDays)
	}
	listing, err := s.List(ctx)
	if err != nil {
		return ExpiryReport{}, err
	}
	return ExpiryReport{
		ReferenceDate: ref.Format(DateLayout),
		ThresholdDays: thresholdDays,
		Items:         Evaluate(listing.Records, ref, thresholdDays),
		Degraded:      listing.Degraded,
	}, nil
}
