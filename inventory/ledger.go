package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Reduction describes a completed reduce. Record holds the state after the
// change; when Removed is set the record no longer exists and Record.Quantity
// is zero.
type Reduction struct {
	Record   Record
	Previous decimal.Decimal
	Delta    decimal.Decimal
	Removed  bool
}

// Ledger applies quantity deltas to records.
type Ledger struct {
	store *Store
}

func NewLedger(store *Store) *Ledger {
	return &Ledger{store: store}
}

// Reduce subtracts delta from the record named by token. A result below zero
// fails with InsufficientQuantityError and writes nothing; a result of
// exactly zero deletes the record.
func (l *Ledger) Reduce(ctx context.Context, token string, delta decimal.Decimal) (Reduction, error) {
	s := l.store
	ctx, span := s.tracer.Start(ctx, "Ledger.Reduce", trace.WithAttributes(
		attribute.String("ingredient.token", token),
		attribute.String("ingredient.delta", delta.String()),
	))
	defer span.End()

	if !delta.IsPositive() {
		return Reduction{}, spanError(span, fmt.Errorf("%w: amount to reduce must be positive, got %s", ErrInvalidArgument, delta))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return Reduction{}, spanError(span, err)
	}
	i, err := t.resolve(token)
	if err != nil {
		return Reduction{}, spanError(span, err)
	}

	before := t.entries[i].rec
	remaining := before.Quantity.Sub(delta)
	if remaining.IsNegative() {
		return Reduction{}, spanError(span, &InsufficientQuantityError{
			Name:      before.Name,
			Unit:      before.Unit,
			Current:   before.Quantity,
			Requested: delta,
		})
	}

	after, err := s.setQuantity(ctx, t, i, remaining)
	if err != nil {
		return Reduction{}, spanError(span, err)
	}

	slog.Info("STORE: Reduced ingredient", "id", before.ID, "from", before.Quantity.String(), "by", delta.String(), "removed", remaining.IsZero())
	return Reduction{
		Record:   after,
		Previous: before.Quantity,
		Delta:    delta,
		Removed:  remaining.IsZero(),
	}, nil
}
