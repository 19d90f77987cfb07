package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// GrowCapacity returns the smallest power of two that is >= need, starting from at least minimum.
// Used to size GPU buffers that grow with their contents so reallocations stay logarithmic.
//
// Parameters:
//   - need: the required element count
//   - minimum: the smallest capacity to return
//
// Returns:
//   - int: the grown capacity
func GrowCapacity(need, minimum int) int {
	c := max(minimum, 1)
	for c < need {
		c <<= 1
	}
	return c
}
