package index

import "fmt"

// DistanceType selects the distance strategy used by an index.
// The strategy is chosen once at construction, never per call.
type DistanceType int

const (
	// DistanceTypeSquaredL2 is squared Euclidean distance. Lower is closer.
	DistanceTypeSquaredL2 DistanceType = iota + 1
)

// DistanceFunc computes the distance between two equal-length vectors.
type DistanceFunc func(a, b []float32) float32

// distanceFuncFor resolves a DistanceType to its implementation.
func distanceFuncFor(dt DistanceType) (DistanceFunc, error) {
	switch dt {
	case DistanceTypeSquaredL2:
		return SquaredL2, nil
	default:
		return nil, fmt.Errorf("unknown distance type %d", dt)
	}
}

// SquaredL2 computes squared Euclidean distance. The square root is
// never taken: it preserves ordering and the score mapping is defined
// on the squared value.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Score converts a distance into a similarity score in (0, 1].
// It is strictly decreasing in distance; a distance of 0 scores 1.0.
func Score(distance float32) float32 {
	return 1 / (1 + distance)
}
