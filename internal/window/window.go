package window

import (
	"errors"
	"fmt"
	"io"

	"github.com/dshills/textscan/pkg/types"
)

// DefaultCapacity is the window size used when none is given
const DefaultCapacity = 1024

// Reader pulls fixed-size byte windows from a source until it is exhausted.
// The returned slice is reused by the next call to Next.
type Reader struct {
	src     io.Reader
	buf     []byte
	read    int64
	windows int
	done    bool
}

// NewReader creates a window reader over r. A capacity <= 0 selects DefaultCapacity.
func NewReader(r io.Reader, capacity int) *Reader {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Reader{
		src: r,
		buf: make([]byte, capacity),
	}
}

// Next returns the next window. Every window except the last one is filled to
// capacity, so window boundaries fall on multiples of the capacity. At the end
// of the source Next returns an empty window and io.EOF.
func (r *Reader) Next() ([]byte, error) {
	if r.done {
		return r.buf[:0], io.EOF
	}

	clear(r.buf)
	n, err := io.ReadFull(r.src, r.buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		r.done = true
		return r.buf[:0], io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		r.done = true
	default:
		return r.buf[:0], fmt.Errorf("%w: window %d: %w", types.ErrSourceRead, r.windows, err)
	}

	r.read += int64(n)
	r.windows++
	return r.buf[:n], nil
}

// Capacity returns the fixed window capacity
func (r *Reader) Capacity() int {
	return len(r.buf)
}

// BytesRead returns the number of bytes handed out so far
func (r *Reader) BytesRead() int64 {
	return r.read
}

// Windows returns the number of non-empty windows handed out so far
func (r *Reader) Windows() int {
	return r.windows
}
