// Package overflow provides add and multiply primitives over fixed-width
// unsigned integers that report overflow instead of wrapping.
package overflow

import "errors"

// ErrOverflow is returned when the mathematical result does not fit in the operand width.
var ErrOverflow = errors.New("arithmetic overflow")

// Add32 returns a + b.
func Add32(a, b uint32) (uint32, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Add64 returns a + b.
func Add64(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Mul32 returns a * b.
func Mul32(a, b uint32) (uint32, error) {
	if b == 0 {
		return 0, nil
	}
	product := a * b
	if product/b != a {
		return 0, ErrOverflow
	}
	return product, nil
}

// Mul64 returns a * b.
func Mul64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, nil
	}
	product := a * b
	if product/b != a {
		return 0, ErrOverflow
	}
	return product, nil
}

// ErrOutOfBounds is returned by the range helpers when a range ends past its bound.
var ErrOutOfBounds = errors.New("range out of bounds")

// End32 returns off+size after checking it neither overflows nor exceeds bound.
func End32(off, size, bound uint32) (uint32, error) {
	end, err := Add32(off, size)
	if err != nil {
		return 0, err
	}
	if end > bound {
		return 0, ErrOutOfBounds
	}
	return end, nil
}

// End64 is End32 for 64-bit ranges.
func End64(off, size, bound uint64) (uint64, error) {
	end, err := Add64(off, size)
	if err != nil {
		return 0, err
	}
	if end > bound {
		return 0, ErrOutOfBounds
	}
	return end, nil
}
