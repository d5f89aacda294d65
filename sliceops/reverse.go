package sliceops

// Reverse returns a reversed copy of in. HCI carries multi-byte
// identifiers such as BD_ADDR least significant byte first.
func Reverse[T any](in []T) []T {
	a := make([]T, 0, len(in))
	a = append(a, in...)
	for i := len(a)/2 - 1; i >= 0; i-- {
		opp := len(a) - 1 - i
		a[i], a[opp] = a[opp], a[i]
	}

	return a
}
