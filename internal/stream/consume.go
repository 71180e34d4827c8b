package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrStreamFailed wraps any read or decode error of a stream.
var ErrStreamFailed = errors.New("stream failed")

const chunkSize = 4 << 10

// AppendFunc receives the full text decoded so far.
type AppendFunc func(cumulative string)

// Consume reads r until EOF, decoding UTF-8 incrementally: a rune split
// across chunks is held back until it is complete, and invalid bytes become
// U+FFFD. onAppend is called with the cumulative text after every chunk
// that decoded to at least one character.
func Consume(ctx context.Context, r io.Reader, onAppend AppendFunc) (string, error) {
	decoder := unicode.UTF8.NewDecoder()
	buf := make([]byte, chunkSize)

	var (
		text    strings.Builder
		pending []byte
	)
	publish := func(s string) {
		if s == "" {
			return
		}
		text.WriteString(s)
		if onAppend != nil {
			onAppend(text.String())
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return text.String(), err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			out, rest, err := decodeChunk(decoder, pending, false)
			if err != nil {
				return text.String(), fmt.Errorf("%w: %w", ErrStreamFailed, err)
			}
			pending = rest
			publish(out)
		}

		switch {
		case readErr == io.EOF:
			out, _, err := decodeChunk(decoder, pending, true)
			if err != nil {
				return text.String(), fmt.Errorf("%w: %w", ErrStreamFailed, err)
			}
			publish(out)
			return text.String(), nil
		case readErr != nil:
			return text.String(), fmt.Errorf("%w: %w", ErrStreamFailed, readErr)
		}
	}
}

// decodeChunk transforms as much of src as forms complete runes and returns
// the unconsumed tail.
func decodeChunk(t transform.Transformer, src []byte, atEOF bool) (string, []byte, error) {
	if len(src) == 0 {
		return "", nil, nil
	}

	// Every invalid byte may expand to a 3-byte replacement character.
	dst := make([]byte, len(src)*3+utf8.UTFMax)
	var out strings.Builder
	for {
		nDst, nSrc, err := t.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return out.String(), nil, nil
		case errors.Is(err, transform.ErrShortSrc):
			rest := make([]byte, len(src))
			copy(rest, src)
			return out.String(), rest, nil
		case errors.Is(err, transform.ErrShortDst):
			if nSrc == 0 && nDst == 0 {
				dst = make([]byte, len(dst)*2)
			}
		default:
			return out.String(), nil, err
		}
	}
}
