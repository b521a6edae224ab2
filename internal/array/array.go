// Package array provides a bounded, append-only container used by kernels
// that emit a variable number of results, such as feature detectors.
package array

import "fmt"

// Array is a fixed-capacity list. Pushing past capacity does not grow it;
// instead the array records the overflow by holding NumValues() ==
// MaxSize()+1 until it is cleared or resized.
//
// Array is not safe for concurrent use: kernels writing one are not
// parallelisable.
type Array[T any] struct {
	values    []T
	numValues int
}

// New returns an empty array that can hold maxSize values.
func New[T any](maxSize int) *Array[T] {
	if maxSize < 0 {
		panic(fmt.Sprintf("array: negative capacity %d", maxSize))
	}
	return &Array[T]{values: make([]T, maxSize)}
}

// MaxSize returns the capacity.
func (a *Array[T]) MaxSize() int {
	return len(a.values)
}

// NumValues returns the number of values pushed, or MaxSize()+1 after an
// overflow.
func (a *Array[T]) NumValues() int {
	return a.numValues
}

// Len returns the number of stored values, at most MaxSize().
func (a *Array[T]) Len() int {
	return min(a.numValues, len(a.values))
}

// Overflow reports whether a push was rejected since the last Clear or
// Resize.
func (a *Array[T]) Overflow() bool {
	return a.numValues > len(a.values)
}

// PushBack appends v. It returns false and marks the array as overflowed
// when it is full.
func (a *Array[T]) PushBack(v T) bool {
	if a.numValues >= len(a.values) {
		a.numValues = len(a.values) + 1
		return false
	}
	a.values[a.numValues] = v
	a.numValues++
	return true
}

// Clear empties the array and resets the overflow flag.
func (a *Array[T]) Clear() {
	a.numValues = 0
}

// Resize sets the number of values to n, which must not exceed MaxSize().
func (a *Array[T]) Resize(n int) {
	if n < 0 || n > len(a.values) {
		panic(fmt.Sprintf("array: resize to %d, capacity %d", n, len(a.values)))
	}
	a.numValues = n
}

// At returns the value at index i. Indices up to MaxSize()-1 are accepted
// even past NumValues; they address the backing storage.
func (a *Array[T]) At(i int) T {
	if i < 0 || i >= len(a.values) {
		panic(fmt.Sprintf("array: index %d out of range [0,%d)", i, len(a.values)))
	}
	return a.values[i]
}

// Set stores v at index i, which must be below MaxSize().
func (a *Array[T]) Set(i int, v T) {
	if i < 0 || i >= len(a.values) {
		panic(fmt.Sprintf("array: index %d out of range [0,%d)", i, len(a.values)))
	}
	a.values[i] = v
}

// Buffer returns the backing storage, MaxSize() long.
func (a *Array[T]) Buffer() []T {
	return a.values
}

// Values returns the stored values.
func (a *Array[T]) Values() []T {
	return a.values[:a.Len()]
}
