package math

import (
	"errors"
	"math"
)

var (
	ErrOverflowInt64  = errors.New("int64 overflow")
	ErrOverflowUint64 = errors.New("uint64 overflow")
)

// SafeAdd adds two int64 numbers. If there is an overflow, the function will
// return -1, true.
func SafeAdd(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return -1, true
	} else if b < 0 && a < math.MinInt64-b {
		return -1, true
	}
	return a + b, false
}

// SafeMul multiplies two int64 numbers. It returns true if the resulting
// value overflows.
func SafeMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}

	absOfB := b
	if b < 0 {
		absOfB = -b
	}

	absOfA := a
	if a < 0 {
		absOfA = -a
	}

	if absOfA > math.MaxInt64/absOfB {
		return 0, true
	}

	return a * b, false
}

// SafeConvertInt64 takes a uint64 and checks if it fits into an int64.
func SafeConvertInt64(a uint64) (int64, error) {
	if a > math.MaxInt64 {
		return 0, ErrOverflowInt64
	}
	return int64(a), nil
}

// SafeConvertUint64 takes an int64 and checks that it is not negative.
func SafeConvertUint64(a int64) (uint64, error) {
	if a < 0 {
		return 0, ErrOverflowUint64
	}
	return uint64(a), nil
}
