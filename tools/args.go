package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidInput = errors.New("invalid tool input")

const dateLayout = "2006-01-02"

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// stringArg returns the trimmed string at key. Absent and null values report
// ok=false.
func stringArg(input map[string]any, key string) (string, bool, error) {
	v, ok := input[key]
	if !ok || v == nil {
		return "", false, nil
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true, nil
	case float64, json.Number, int:
		return fmt.Sprint(s), true, nil
	}
	return "", false, invalid("%s must be a string", key)
}

func requiredString(input map[string]any, key string) (string, error) {
	s, ok, err := stringArg(input, key)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", invalid("%s is required", key)
	}
	return s, nil
}

// identifierArg accepts the record identifier as a string or a JSON number.
// Integral numbers are rendered without a fraction so they resolve as IDs.
func identifierArg(input map[string]any) (string, error) {
	v, ok := input["identifier"]
	if !ok || v == nil {
		return "", invalid("identifier is required")
	}
	var id string
	switch x := v.(type) {
	case string:
		id = strings.TrimSpace(x)
	case float64:
		if x != math.Trunc(x) {
			return "", invalid("identifier %v is not a whole number", x)
		}
		id = strconv.FormatInt(int64(x), 10)
	case json.Number:
		id = x.String()
	default:
		return "", invalid("identifier must be a string or integer")
	}
	if id == "" {
		return "", invalid("identifier is required")
	}
	return id, nil
}

// numberArg parses a JSON number, or a string holding one.
func numberArg(input map[string]any, key string) (decimal.Decimal, bool, error) {
	v, ok := input[key]
	if !ok || v == nil {
		return decimal.Zero, false, nil
	}
	switch x := v.(type) {
	case float64:
		// Parsing the shortest text form keeps 500.0 identical to 500.
		d, err := decimal.NewFromString(strconv.FormatFloat(x, 'f', -1, 64))
		if err != nil {
			return decimal.Zero, false, invalid("%s must be a finite number", key)
		}
		return d, true, nil
	case int:
		return decimal.NewFromInt(int64(x)), true, nil
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, false, invalid("%s must be a number", key)
		}
		return d, true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, false, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false, invalid("%s must be a number, got %q", key, x)
		}
		return d, true, nil
	}
	return decimal.Zero, false, invalid("%s must be a number", key)
}

func intArg(input map[string]any, key string) (int, bool, error) {
	d, ok, err := numberArg(input, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, false, invalid("%s must be a whole number", key)
	}
	return int(d.IntPart()), true, nil
}

// dateArg returns the ISO date at key. Relative expressions must already be
// resolved by the model; anything else is rejected.
func dateArg(input map[string]any, key string) (string, bool, error) {
	s, ok, err := stringArg(input, key)
	if err != nil || !ok || s == "" {
		return "", ok, err
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", false, invalid("%s must be an ISO date (YYYY-MM-DD), got %q", key, s)
	}
	return s, true, nil
}
