// Package window holds the fixed-capacity rolling windows that feed the live
// charts, and the index join that reshapes a finished report's parallel
// arrays into per-instant rows.
package window

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// DefaultCapacity is the number of points a live chart shows.
const DefaultCapacity = 10

// ErrLengthMismatch is returned by [Zip] when the parallel arrays differ in length.
var ErrLengthMismatch = errors.New("window: parallel arrays differ in length")

// Point is one charted sample. Timestamp is an integer instant: wall-clock
// milliseconds for live windows, rounded seconds for report series.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Window is a bounded FIFO ring buffer. Pushing onto a full window evicts the
// oldest entry. The zero value is unusable; create windows with [New].
//
// Window is not safe for concurrent use. The live panel owns each window from
// a single goroutine and publishes copies via [Window.Items].
type Window[T any] struct {
	data []T
	size int
	pos  int
	full bool
}

// New returns an empty window holding at most capacity items. A non-positive
// capacity falls back to [DefaultCapacity].
func New[T any](capacity int) *Window[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window[T]{
		data: make([]T, capacity),
		size: capacity,
	}
}

// Push appends v at the tail, evicting the head when the window is full.
func (w *Window[T]) Push(v T) {
	w.data[w.pos] = v
	w.pos++
	if w.pos >= w.size {
		w.pos = 0
		w.full = true
	}
}

// Len returns the number of items held.
func (w *Window[T]) Len() int {
	if w.full {
		return w.size
	}
	return w.pos
}

// Cap returns the window capacity.
func (w *Window[T]) Cap() int {
	return w.size
}

// Items returns a copy of the held items, oldest first.
func (w *Window[T]) Items() []T {
	out := make([]T, 0, w.Len())
	if w.full {
		out = append(out, w.data[w.pos:]...)
	}
	return append(out, w.data[:w.pos]...)
}

// All iterates over the held items, oldest first.
func (w *Window[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if w.full {
			for _, v := range w.data[w.pos:] {
				if !yield(v) {
					return
				}
			}
		}
		for _, v := range w.data[:w.pos] {
			if !yield(v) {
				return
			}
		}
	}
}

// Points iterates over a slice of points. It lets published window copies
// and report projections feed the same consumers.
func Points(ps []Point) iter.Seq[Point] {
	return func(yield func(Point) bool) {
		for _, p := range ps {
			if !yield(p) {
				return
			}
		}
	}
}

// Row is one instant of a set of parallel series joined by index.
type Row struct {
	Timestamp int64
	Values    []float64
}

// Zip joins timestamps with the given columns by index. Timestamps are rounded
// half away from zero. Every column must have the same length as timestamps.
func Zip(timestamps []float64, columns ...[]float64) ([]Row, error) {
	for i, col := range columns {
		if len(col) != len(timestamps) {
			return nil, fmt.Errorf("%w: column %d has %d values, want %d", ErrLengthMismatch, i, len(col), len(timestamps))
		}
	}
	rows := make([]Row, len(timestamps))
	for i, ts := range timestamps {
		vals := make([]float64, len(columns))
		for j, col := range columns {
			vals[j] = col[i]
		}
		rows[i] = Row{Timestamp: int64(math.Round(ts)), Values: vals}
	}
	return rows, nil
}
