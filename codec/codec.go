// Package codec encodes unsigned integers in a positional base-64 text
// form over the alphabet 0-9 a-z A-Z @ $. Records are separated by
// whitespace; an empty record marks the end of a stream.
package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Alphabet maps digit values 0..63 to their symbols.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ@$"

const invalid = 0xff

// ErrBadSymbol is returned when a record contains a byte outside the
// alphabet.
var ErrBadSymbol = errors.New("codec: symbol outside alphabet")

var value = func() [256]uint8 {
	var m [256]uint8
	for i := range m {
		m[i] = invalid
	}
	for i := 0; i < len(Alphabet); i++ {
		m[Alphabet[i]] = uint8(i)
	}
	return m
}()

// Append appends the encoding of u to dst and returns the extended
// slice. The encoding is most-significant digit first with no leading
// zeros; zero encodes as "0".
func Append(dst []byte, u uint32) []byte {
	if u == 0 {
		return append(dst, Alphabet[0])
	}
	var digits [6]byte
	n := 0
	for u > 0 {
		digits[n] = Alphabet[u&63]
		u >>= 6
		n++
	}
	for n > 0 {
		n--
		dst = append(dst, digits[n])
	}
	return dst
}

// Encode returns the encoding of u as a string.
func Encode(u uint32) string {
	var buf [6]byte
	return string(Append(buf[:0], u))
}

// Decode parses a single encoded record. Accumulation wraps modulo 2³²,
// matching Append's domain.
func Decode(text string) (uint32, error) {
	if text == "" {
		return 0, fmt.Errorf("%w: empty record", ErrBadSymbol)
	}
	var u uint32
	for i := 0; i < len(text); i++ {
		d := value[text[i]]
		if d == invalid {
			return 0, fmt.Errorf("%w: %q", ErrBadSymbol, text[i])
		}
		u = u<<6 + uint32(d)
	}
	return u, nil
}

// Reader yields whitespace-delimited encoded records from a stream.
type Reader struct {
	src *bufio.Reader
}

// NewReader wraps r for record-at-a-time decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{src: bufio.NewReader(r)}
}

// Next decodes the next record. ok is false at end of stream (end of
// input before any record byte). A byte outside the alphabet yields
// ErrBadSymbol.
func (me *Reader) Next() (u uint32, ok bool, err error) {
	started := false
	for {
		b, err := me.src.ReadByte()
		if err != nil {
			if err == io.EOF {
				return u, started, nil
			}
			return 0, false, err
		}
		if isSpace(b) {
			if started {
				return u, true, nil
			}
			continue
		}
		d := value[b]
		if d == invalid {
			return 0, false, fmt.Errorf("%w: %q", ErrBadSymbol, b)
		}
		u = u<<6 + uint32(d)
		started = true
	}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
