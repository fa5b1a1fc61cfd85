package utils

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// MaxAmountBits is the widest base-unit amount the engine accepts.
const MaxAmountBits = 128

var (
	errNotNumeric   = errors.New("amount is not numeric")
	errNotPositive  = errors.New("amount must be positive")
	errTooLarge     = errors.New("amount exceeds 128 bits")
	errBadPrecision = errors.New("decimals out of range")
)

// ToBaseUnits converts a human decimal amount into integer base units: round(amount * 10^decimals).
// Rounding is half away from zero.
func ToBaseUnits(amount string, decimals int) (*uint256.Int, error) {
	if decimals < 0 || decimals > 36 {
		return nil, fmt.Errorf("%w: %d", errBadPrecision, decimals)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errNotNumeric, amount)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("%w: %q", errNotPositive, amount)
	}

	scaled := d.Shift(int32(decimals)).Round(0)
	if !scaled.IsPositive() {
		return nil, fmt.Errorf("%w: %q rounds to zero at %d decimals", errNotPositive, amount, decimals)
	}
	bi := scaled.BigInt()
	if bi.BitLen() > MaxAmountBits {
		return nil, fmt.Errorf("%w: %q", errTooLarge, amount)
	}
	v, overflow := uint256.FromBig(bi)
	if overflow {
		return nil, fmt.Errorf("%w: %q", errTooLarge, amount)
	}
	return v, nil
}

// FormatBaseUnits converts base units back into a human readable decimal string.
// Example: amount=1234500, decimals=6 => "1.2345"
func FormatBaseUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, int32(-decimals)).String()
}
