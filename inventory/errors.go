package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrStorageUnavailable   = errors.New("storage unavailable")
)

// NotFoundError reports an identifier token that resolved to no record.
type NotFoundError struct {
	Token string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ingredient %q not found", e.Token)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientQuantityError reports a reduction larger than the stock.
type InsufficientQuantityError struct {
	Name      string
	Unit      string
	Current   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("cannot reduce %s by %s: only %s left", e.Name, e.Requested, e.Current)
}

func (e *InsufficientQuantityError) Is(target error) bool { return target == ErrInsufficientQuantity }

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
