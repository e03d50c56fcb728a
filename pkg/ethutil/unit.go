package ethutil

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// maxUint256Digits is the number of decimal digits of the largest uint256.
const maxUint256Digits = 78

var (
	ErrFractionalUnit   = errors.New("amount has more decimal places than the token supports")
	ErrAmountOutOfRange = errors.New("amount does not fit in a uint256")
)

// CheckAmountRange rejects amounts whose smallest-unit value cannot be a uint256. It only looks
// at the exponent and the coefficient length, so it never expands a value like 1e20000000.
func CheckAmountRange(amount decimal.Decimal, decimals int32) error {
	exp := int64(amount.Exponent())
	if exp > maxUint256Digits || exp < -maxUint256Digits {
		return ErrAmountOutOfRange
	}

	if int64(amount.NumDigits())+exp+int64(decimals) > maxUint256Digits {
		return ErrAmountOutOfRange
	}

	return nil
}

// ToSmallestUnit converts a human readable token amount into its integer representation for a
// token with the given decimals, e.g. 1.5 with 18 decimals is 1500000000000000000.
func ToSmallestUnit(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if err := CheckAmountRange(amount, decimals); err != nil {
		return nil, err
	}

	shifted := amount.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, ErrFractionalUnit
	}

	value := shifted.BigInt()
	if value.BitLen() > 256 {
		return nil, ErrAmountOutOfRange
	}

	return value, nil
}
