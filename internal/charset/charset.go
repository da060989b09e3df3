package charset

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/dshills/textscan/pkg/types"
)

// DefaultEncoding is used when no encoding name is given
const DefaultEncoding = "utf-8"

// decodeBufSize is the initial destination buffer for streaming transforms
const decodeBufSize = 4096

// Lookup resolves an encoding by its IANA or WHATWG name.
// The empty name selects DefaultEncoding.
func Lookup(name string) (encoding.Encoding, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		n = DefaultEncoding
	}

	if enc, err := ianaindex.IANA.Encoding(n); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(n); err == nil && enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedEncoding, name)
}

// Canonical returns the IANA name for an encoding name, or the name itself
// when the index has no entry for it
func Canonical(name string) string {
	enc, err := Lookup(name)
	if err != nil {
		return name
	}
	if n, err := ianaindex.IANA.Name(enc); err == nil {
		return n
	}
	if strings.TrimSpace(name) == "" {
		return DefaultEncoding
	}
	return name
}

// Decoder turns byte windows into characters
type Decoder interface {
	// Decode decodes one window
	Decode(window []byte) ([]rune, error)

	// Flush decodes whatever the decoder still holds at end of stream
	Flush() ([]rune, error)
}

// NewDecoder returns a decoder for enc.
//
// With contiguous false every window is decoded on its own: a multi-byte
// character whose bytes straddle two windows comes out as replacement
// characters. With contiguous true an incomplete trailing sequence is kept and
// prepended to the next window.
func NewDecoder(enc encoding.Encoding, contiguous bool) Decoder {
	if contiguous {
		return &streamDecoder{dec: enc.NewDecoder()}
	}
	return &windowDecoder{dec: enc.NewDecoder()}
}

// windowDecoder decodes each window independently
type windowDecoder struct {
	dec *encoding.Decoder
}

func (d *windowDecoder) Decode(window []byte) ([]rune, error) {
	// Bytes resets the transformer and treats the window as the whole input
	out, err := d.dec.Bytes(window)
	if err != nil {
		return nil, fmt.Errorf("decode window: %w", err)
	}
	return bytes.Runes(out), nil
}

func (d *windowDecoder) Flush() ([]rune, error) {
	return nil, nil
}

// streamDecoder carries incomplete trailing bytes into the next window
type streamDecoder struct {
	dec     *encoding.Decoder
	pending []byte
	started bool
}

func (d *streamDecoder) Decode(window []byte) ([]rune, error) {
	if !d.started {
		d.dec.Reset()
		d.started = true
	}

	src := append(d.pending, window...)
	out, n, err := d.transform(src, false)
	if err != nil {
		return nil, fmt.Errorf("decode window: %w", err)
	}
	d.pending = append([]byte(nil), src[n:]...)
	return bytes.Runes(out), nil
}

func (d *streamDecoder) Flush() ([]rune, error) {
	if len(d.pending) == 0 {
		return nil, nil
	}
	out, _, err := d.transform(d.pending, true)
	d.pending = nil
	if err != nil {
		return nil, fmt.Errorf("decode trailing bytes: %w", err)
	}
	return bytes.Runes(out), nil
}

// transform runs the decoder over src and reports how many source bytes were
// consumed. When atEOF is false an incomplete tail is left unconsumed.
func (d *streamDecoder) transform(src []byte, atEOF bool) ([]byte, int, error) {
	var out []byte
	buf := make([]byte, decodeBufSize)
	consumed := 0

	for {
		nDst, nSrc, err := d.dec.Transform(buf, src[consumed:], atEOF)
		out = append(out, buf[:nDst]...)
		consumed += nSrc

		switch {
		case err == nil:
			return out, consumed, nil
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				buf = make([]byte, len(buf)*2)
			}
		case errors.Is(err, transform.ErrShortSrc) && !atEOF:
			return out, consumed, nil
		default:
			return out, consumed, err
		}
	}
}

// Encode converts s into the named encoding. Characters the encoding cannot
// represent are replaced with the encoding's replacement byte.
func Encode(s, name string) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return out, nil
}
