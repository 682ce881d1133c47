// SPDX-License-Identifier: MIT
//
// Package bitint provides the power-of-two helpers used when validating
// transform sizes. All functions are allocation free and constant time.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Sizes below one
// yield 1.
//
// Subtracting one first keeps exact powers of two unchanged:
//
//	size  size-1  bits.Len  result
//	8     0111    3         8
//	9     1000    4         16
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of two <= size, or 0 when size is
// not positive.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
