package amount

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxDecimals bounds the precision accepted from token metadata.
const MaxDecimals = 77

// DefaultDecimals is the precision of native ether amounts.
const DefaultDecimals = 18

var ErrInvalidDecimals = errors.New("invalid decimals")

// Normalize converts a raw integer token amount into raw / 10^decimals.
func Normalize(raw *big.Int, decimals int) (decimal.Decimal, error) {
	if err := checkDecimals(decimals); err != nil {
		return decimal.Decimal{}, err
	}
	if raw == nil {
		return decimal.Decimal{}, fmt.Errorf("raw amount is nil")
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)), nil
}

// Denormalize scales a normalized amount back to its raw integer form.
func Denormalize(value decimal.Decimal, decimals int) (*big.Int, error) {
	if err := checkDecimals(decimals); err != nil {
		return nil, err
	}
	scaled := value.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimals", value.String(), decimals)
	}
	return scaled.BigInt(), nil
}

func checkDecimals(decimals int) error {
	if decimals < 0 || decimals > MaxDecimals {
		return fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}
	return nil
}
