package window

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/textscan/pkg/types"
)

func drain(t *testing.T, r *Reader) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		w, err := r.Next()
		if errors.Is(err, io.EOF) {
			assert.Empty(t, w)
			return out
		}
		require.NoError(t, err)
		out = append(out, append([]byte(nil), w...))
	}
}

func TestNewReader_DefaultCapacity(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), 0)
	assert.Equal(t, DefaultCapacity, r.Capacity())

	r = NewReader(bytes.NewReader(nil), -5)
	assert.Equal(t, DefaultCapacity, r.Capacity())
}

func TestNext_SplitsIntoFixedWindows(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefghij"), 25) // 250 bytes
	r := NewReader(bytes.NewReader(data), 100)

	windows := drain(t, r)
	require.Len(t, windows, 3)
	assert.Len(t, windows[0], 100)
	assert.Len(t, windows[1], 100)
	assert.Len(t, windows[2], 50)
	assert.Equal(t, data, bytes.Join(windows, nil))
	assert.Equal(t, int64(250), r.BytesRead())
	assert.Equal(t, 3, r.Windows())
}

func TestNext_ExactMultiple(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 64)
	r := NewReader(bytes.NewReader(data), 32)

	windows := drain(t, r)
	assert.Len(t, windows, 2)
}

func TestNext_EmptySource(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), 16)

	w, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, w)

	// Stays exhausted
	w, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, w)
}

func TestNext_ShortReadsStayAligned(t *testing.T) {
	data := []byte("0123456789abcdefghij")
	r := NewReader(iotest.OneByteReader(bytes.NewReader(data)), 8)

	windows := drain(t, r)
	require.Len(t, windows, 3)
	assert.Equal(t, "01234567", string(windows[0]))
	assert.Equal(t, "89abcdef", string(windows[1]))
	assert.Equal(t, "ghij", string(windows[2]))
}

func TestNext_ReadFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	src := io.MultiReader(bytes.NewReader([]byte("0123456789")), iotest.ErrReader(boom))
	r := NewReader(src, 4)

	w, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "0123", string(w))

	_, err = r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSourceRead)
	assert.Contains(t, err.Error(), "disk on fire")
}
