package record

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnparseableAmount marks a monetary field that is not a number.
var ErrUnparseableAmount = errors.New("unparseable amount")

// AmountError carries the raw text of a monetary field that failed to parse.
type AmountError struct {
	Raw string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnparseableAmount, e.Raw)
}

func (e *AmountError) Unwrap() error {
	return ErrUnparseableAmount
}

// ParseAmount converts a monetary field to a float. A blank field is zero.
// Infinities and NaN are rejected so they cannot poison running totals.
func ParseAmount(raw string) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}

	amount, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return 0, &AmountError{Raw: raw}
	}
	return amount, nil
}

// ParseRequiredAmount is ParseAmount for fields that must hold a value. A
// blank field is an AmountError.
func ParseRequiredAmount(raw string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, &AmountError{Raw: raw}
	}
	return ParseAmount(raw)
}
