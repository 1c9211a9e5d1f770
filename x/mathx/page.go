package mathx

import "golang.org/x/exp/constraints"

// IsPow2 reports whether n is a non-zero power of two.
func IsPow2[T constraints.Unsigned](n T) bool {
	return n != 0 && n&(n-1) == 0
}

// PageBase returns off rounded down to its page start. size must be a power
// of two.
func PageBase[T constraints.Unsigned](off, size T) T {
	return off &^ (size - 1)
}

// PageRemaining returns the bytes from off to the end of its page. size must
// be a power of two.
func PageRemaining[T constraints.Unsigned](off, size T) T {
	return size - off&(size-1)
}
