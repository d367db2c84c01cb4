// Package groundsense detects scoop-tip ground contact by watching for a
// divergence in the tip's velocity trend as the arm descends.
package groundsense

// SlidingWindow maintains a fixed-size FIFO window over a stream of samples
// and summarizes it with a pluggable method (mean, stddev, ...).
type SlidingWindow[T any] struct {
	samples []T
	size    int
	method  func([]T) T
}

// NewSlidingWindow creates a window of the given size.
func NewSlidingWindow[T any](size int, method func([]T) T) *SlidingWindow[T] {
	return &SlidingWindow[T]{
		samples: make([]T, 0, size),
		size:    size,
		method:  method,
	}
}

// Append adds a sample, evicting the oldest once the window is full.
func (w *SlidingWindow[T]) Append(v T) {
	if len(w.samples) >= w.size {
		copy(w.samples, w.samples[1:])
		w.samples[len(w.samples)-1] = v
		return
	}
	w.samples = append(w.samples, v)
}

// Valid indicates the window has filled and its value is established.
func (w *SlidingWindow[T]) Valid() bool {
	return len(w.samples) == w.size
}

// Value summarizes the current window with the configured method.
func (w *SlidingWindow[T]) Value() T {
	return w.method(w.samples)
}

// Reset discards all samples.
func (w *SlidingWindow[T]) Reset() {
	w.samples = w.samples[:0]
}
