/*
 * Copyright (c) 2018 Josh Varga
 * Original C version: Copyright (C) 2003, 2012, 2013 Mark Adler
 * version 1.3, 24 Aug 2013
 *
 * This code has been adapted to Go from Mark Adler's blast.c in ZLIB,
 * most of the comments are from the original source.
 *
 * This decompressor is based on the excellent format description provided
 * by Ben Rudiak-Gould in comp.compression on August 13, 2001.
 */

package dcl

import (
	"bytes"
	"io"
)

// tokenKind distinguishes the two things decodeNext can produce.
type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenCopy
	tokenEnd
)

// Token is one decoded unit of the exploded bit stream: either a literal
// byte, a length/distance back-reference, or the end-of-stream marker.
type Token struct {
	Kind     tokenKind
	Literal  byte
	Length   int
	Distance uint
}

// explodeState is the bit-level decoder (spec component C, "Exploder").
// It owns the bit reader and the sliding window and walks the header and
// token stream described in spec.md §4.3.
type explodeState struct {
	br *bitReader

	coded    bool // true if literals are Huffman-coded (ASCII mode)
	dictBits uint // distance extra-bit count: 4, 5, or 6

	out   [maxWindowSize]byte // sliding window / output buffer
	next  uint                // write cursor into out
	first bool                // true until the window has wrapped once
}

func newExplodeState(r io.Reader) (*explodeState, error) {
	s := &explodeState{br: newBitReader(r), first: true}

	lit, err := s.br.bits(8)
	if err != nil {
		return nil, err
	}
	if lit > 1 {
		return nil, newHeaderError(0, byte(lit), ErrHeader)
	}

	dict, err := s.br.bits(8)
	if err != nil {
		return nil, err
	}
	if dict < 4 || dict > 6 {
		return nil, newHeaderError(1, byte(dict), ErrDictionary)
	}

	s.coded = lit != 0
	s.dictBits = uint(dict)
	return s, nil
}

// decodeNext decodes exactly one token from the bit stream: a literal
// byte, a length/distance pair, or the end marker (spec.md §4.3's
// three-step algorithm).
func (s *explodeState) decodeNext() (Token, error) {
	bitVal, err := s.br.bits(1)
	if err != nil {
		return Token{}, err
	}

	if bitVal == 0 {
		if s.coded {
			symbol, err := s.br.decodeSymbol(literalTable)
			if err != nil {
				return Token{}, err
			}
			return Token{Kind: tokenLiteral, Literal: byte(symbol)}, nil
		}
		v, err := s.br.bits(8)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: tokenLiteral, Literal: byte(v)}, nil
	}

	symbol, err := s.br.decodeSymbol(lengthTable)
	if err != nil {
		return Token{}, err
	}
	if symbol < 0 || int(symbol) >= len(lenBase) {
		return Token{}, ErrInvalidLengthCode
	}
	extraVal, err := s.br.bits(uint(exLenBits[symbol]))
	if err != nil {
		return Token{}, err
	}
	length := int(lenBase[symbol]) + int(extraVal)
	if length == endOfStreamLen {
		return Token{Kind: tokenEnd}, nil
	}

	var distBitsNeeded uint
	if length == 2 {
		distBitsNeeded = 2
	} else {
		distBitsNeeded = s.dictBits
	}
	distCode, err := s.br.decodeSymbol(distanceTable)
	if err != nil {
		return Token{}, err
	}
	dist := uint(distCode) << distBitsNeeded
	extraDist, err := s.br.bits(distBitsNeeded)
	if err != nil {
		return Token{}, err
	}
	dist += uint(extraDist)
	dist++

	return Token{Kind: tokenCopy, Length: length, Distance: dist}, nil
}

// apply materializes a token into the sliding window, flushing full
// 4096-byte chunks to w as they fill (the window buffer is always sized
// to the largest supported dictionary; the configured dictionary size
// only bounds how far back a decoded distance can reach, through the
// dictBits extra distance bits read in decodeNext).
func (s *explodeState) apply(tok Token, w io.Writer) error {
	switch tok.Kind {
	case tokenLiteral:
		s.out[s.next] = tok.Literal
		s.next++
		return s.flushIfFull(w)

	case tokenCopy:
		if s.first && tok.Distance > s.next {
			return &DistanceError{Distance: tok.Distance, Emitted: s.next}
		}
		remaining := tok.Length
		for remaining > 0 {
			remaining -= s.copyRun(tok.Distance, remaining)
			if err := s.flushIfFull(w); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}

// copyRun copies up to want bytes from dist bytes back in the ring buffer
// to the current write cursor, stopping early at the ring buffer's
// wraparound point so the caller can flush a full window before
// continuing. Returns how many bytes were actually copied.
func (s *explodeState) copyRun(dist uint, want int) int {
	to := s.next
	from := s.next - dist
	limit := maxWindowSize
	if s.next < dist {
		from += uint(limit)
		limit = int(dist)
	}
	limit -= int(s.next)
	if limit > want {
		limit = want
	}

	for i := 0; i < limit; i++ {
		s.out[to+uint(i)] = s.out[from+uint(i)]
	}
	s.next += uint(limit)
	return limit
}

// flushIfFull writes out the window once it has filled completely and
// resets the cursor, mirroring how the original decoder ring-buffers
// output in maxWindowSize-sized chunks.
func (s *explodeState) flushIfFull(w io.Writer) error {
	if s.next != maxWindowSize {
		return nil
	}
	if _, err := w.Write(s.out[:s.next]); err != nil {
		return err
	}
	s.next = 0
	s.first = false
	return nil
}

// decodeAll drains the token stream to w, stopping at the end marker.
func (s *explodeState) decodeAll(w io.Writer) error {
	for {
		tok, err := s.decodeNext()
		if err != nil {
			return err
		}
		if tok.Kind == tokenEnd {
			return nil
		}
		if err := s.apply(tok, w); err != nil {
			return err
		}
	}
}

func explode(r io.Reader, w io.Writer) error {
	s, err := newExplodeState(r)
	if err != nil {
		return err
	}
	if err := s.decodeAll(w); err != nil {
		return err
	}
	if s.next != 0 {
		_, err = w.Write(s.out[:s.next])
		if err != nil {
			return err
		}
	}
	return nil
}

// Reader is an io.ReadCloser that decompresses DCL-imploded data read
// from an underlying source. Construct with NewReader.
type Reader struct {
	data      []byte
	readIndex int64
}

// NewReader creates a new Reader. Reads from the returned Reader yield the
// decompressed form of data read from r. It is the caller's responsibility
// to call Close when done.
//
// Decoding happens eagerly at construction time, so any decode error
// (spec.md §7's InvalidHeader, UnexpectedEof, InvalidDistance,
// InvalidLengthCode) surfaces here rather than from a later Read — the
// returned Reader, once non-nil, never fails mid-stream. That is a
// stricter form of spec.md's poisoning requirement: once an error occurs,
// no partial or further bytes are ever produced.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if err := explode(r, &buf); err != nil {
		return nil, err
	}
	return &Reader{data: buf.Bytes()}, nil
}

// Read implements io.Reader, returning (0, io.EOF) once the decompressed
// data is exhausted.
func (r *Reader) Read(p []byte) (int, error) {
	if r.readIndex >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.readIndex:])
	r.readIndex += int64(n)
	return n, nil
}

// Close releases the Reader. It never returns an error.
func (r *Reader) Close() error {
	return nil
}

// PeekHeader reads and validates the 2-byte DCL header from r without
// constructing a full Reader, for callers (such as the info CLI
// subcommand) that only need the mode and dictionary size.
func PeekHeader(r io.Reader) (mode Mode, dictSize DictSize, err error) {
	br := newBitReader(r)
	lit, err := br.bits(8)
	if err != nil {
		return 0, 0, err
	}
	if lit > 1 {
		return 0, 0, newHeaderError(0, byte(lit), ErrHeader)
	}
	dict, err := br.bits(8)
	if err != nil {
		return 0, 0, err
	}
	size, ok := dictSizeForExponent(byte(dict))
	if !ok {
		return 0, 0, newHeaderError(1, byte(dict), ErrDictionary)
	}
	return Mode(lit), size, nil
}

// ExplodeBytes decompresses a complete in-memory DCL-imploded buffer.
func ExplodeBytes(compressed []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := explode(bytes.NewReader(compressed), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
