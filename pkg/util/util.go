package util

import (
	"strconv"

	"github.com/pkg/errors"
)

const MAX_UINT8 = 255

func IsUint8(num int) bool {
	return num >= 0 && num <= MAX_UINT8
}

// ParseByte parses a decimal or 0x-prefixed byte value.
func ParseByte(s string) (byte, error) {
	num, err := strconv.ParseInt(s, 0, 0)
	if err != nil {
		return 0, errors.Errorf("%q is not a number", s)
	}
	if !IsUint8(int(num)) {
		return 0, errors.Errorf("input %v is out of range", num)
	}
	return byte(num), nil
}

// ParseCount parses a non-negative count argument.
func ParseCount(s string) (int, error) {
	num, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Errorf("%q is not a number", s)
	}
	if num < 0 {
		return 0, errors.Errorf("input %v must not be negative", num)
	}
	return num, nil
}
