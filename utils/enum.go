package utils

// CycleEnum steps through the values 0..count-1, wrapping at both ends
func CycleEnum[T ~int](current T, direction int, count T) T {
	if count <= 0 {
		return current
	}
	return ((current+T(direction))%count + count) % count
}
