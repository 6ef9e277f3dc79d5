// Package money converts between display amounts such as "1.5" and the
// integer base units the ledger stores, e.g. SOL and lamports.
package money

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals keeps one whole display unit representable in 64 bits.
const MaxDecimals = 19

// maxScale is the largest power of ten below 2^64.
const maxScale = 19

var (
	ErrInvalidAmount  = errors.New("amount is not a decimal number")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrTooPrecise     = errors.New("amount has more precision than the smallest unit")
	ErrOutOfRange     = errors.New("amount exceeds the 64-bit base unit range")
)

// Converter scales amounts by a fixed number of decimal places.
type Converter struct {
	decimals int32
}

func NewConverter(decimals int32) (Converter, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return Converter{}, fmt.Errorf("decimals must be between 0 and %d, got %d", MaxDecimals, decimals)
	}
	return Converter{decimals: decimals}, nil
}

func (c Converter) Decimals() int32 { return c.decimals }

// Parse converts a display amount to base units.
func (c Converter) Parse(amount string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.Sign() < 0 {
		return 0, ErrNegativeAmount
	}
	if d.IsZero() {
		return 0, nil
	}

	// Check the scale before touching the coefficient: an input such as
	// "1e10000000" would otherwise be expanded to a ten million digit integer.
	exp := int64(d.Exponent()) + int64(c.decimals)
	if exp > maxScale {
		return 0, ErrOutOfRange
	}
	if exp < 0 && -exp > int64(len(d.Coefficient().String())) {
		return 0, ErrTooPrecise
	}

	scaled := d.Shift(c.decimals)
	if !scaled.IsInteger() {
		return 0, ErrTooPrecise
	}
	units := scaled.BigInt()
	if !units.IsUint64() {
		return 0, ErrOutOfRange
	}
	return units.Uint64(), nil
}

// Format renders base units as a display amount without trailing zeros.
func (c Converter) Format(units uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -c.decimals).String()
}
