//go:build debug

package channel

// New creates a channel. Debug builds get an unbuffered channel (size is
// ignored) so backpressure bugs surface immediately.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
