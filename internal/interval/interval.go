// Package interval implements closed ranges over ordered values.
//
// Both ends are inclusive, so two intervals that merely touch
// (a.End == b.Start) overlap. Callers modelling occupancy that ends
// exclusively use OverlapsHalfOpen instead.
package interval

import "fmt"

// Ordered is satisfied by values that can be compared to one another,
// such as time.Time and clock.TimeOfDay.
type Ordered[T any] interface {
	Compare(T) int
}

// Interval is the closed range [Start, End].
type Interval[T Ordered[T]] struct {
	Start T
	End   T
}

// New returns the interval [start, end]. Callers are expected to pass start <= end.
func New[T Ordered[T]](start, end T) Interval[T] {
	return Interval[T]{Start: start, End: end}
}

// Contains reports whether point lies within the interval, ends included.
func (i Interval[T]) Contains(point T) bool {
	return i.Start.Compare(point) <= 0 && point.Compare(i.End) <= 0
}

// Overlaps reports whether the two intervals share at least one point.
func (i Interval[T]) Overlaps(other Interval[T]) bool {
	return !(i.End.Compare(other.Start) < 0 || i.Start.Compare(other.End) > 0)
}

// OverlapsHalfOpen treats both intervals as [Start, End) and reports whether
// they intersect. Back-to-back intervals do not overlap under this rule.
func (i Interval[T]) OverlapsHalfOpen(other Interval[T]) bool {
	return i.Start.Compare(other.End) < 0 && other.Start.Compare(i.End) < 0
}

// ContainsAny reports whether any of the intervals contains point.
func ContainsAny[T Ordered[T]](intervals []Interval[T], point T) bool {
	for _, i := range intervals {
		if i.Contains(point) {
			return true
		}
	}
	return false
}

func (i Interval[T]) String() string {
	return fmt.Sprintf("%v..%v", i.Start, i.End)
}
