/*
 * Copyright (c) 2018 Josh Varga
 * Original C version: Copyright (c) Ladislav Zezula 2003
 *
 * This code has been adapted to Go from Ladislav Zezula's implode.c found
 * in https://github.com/ladislav-zezula/StormLib/blob/master/src/pklib/implode.c,
 * most of the comments are from the original source.
 *
 * Implode function of the PKWARE Data Compression Library.
 */

package dcl

import (
	"bytes"
	"io"
)

const maxRepLength = maxMatchLength // the longest allowed repetition

// implodeState is the match finder + bit-level encoder (spec component E,
// "Imploder"). It mirrors the PKWare reference's tCmpStruct layout: a
// hash index over the sliding dictionary plus a work buffer holding
// dictionary history, lookahead, and the bytes still to be searched.
type implodeState struct {
	distance   uint // backward distance of the current repetition, minus 1
	dsizeBits  uint // distance extra-bit count for the configured dictionary
	dsizeMask  uint // mask for the low dsizeBits bits of a distance
	cType      Mode
	dsizeBytes uint // dictionary size in bytes

	nChBits  [0x306]uint8  // per-literal/length-code bit length for output
	nChCodes [0x306]uint16 // per-literal/length-code value for output

	readBuf io.Reader
	bw      *bitWriter

	matchFail [maxMatchLength]uint16 // KMP-style failure function, reused across findMatch calls

	hash     *hashIndex
	workBuff []uint8
}

func newImplodeState() *implodeState {
	return &implodeState{
		workBuff: make([]uint8, 0x2204),
		hash:     newHashIndex(0x2204),
	}
}

// firstCandidateIndex locates the first hash-chain entry for the 2-byte
// prefix starting at workBuffOffset that still lies within the
// configured dictionary window, caching the skip in toIndex so later
// calls for the same key don't rewalk stale entries. ok is false when
// even that first candidate is not behind workBuffOffset at all (nothing
// to search).
func (p *implodeState) firstCandidateIndex(workBuffOffset uint) (idx, candidate uint, ok bool) {
	key := uint(hashPair(p.workBuff, workBuffOffset))
	minOffs := uint16(workBuffOffset - p.dsizeBytes + 1)

	idx = uint(p.hash.toIndex[key])
	if p.hash.offs[idx] < minOffs {
		for p.hash.offs[idx] < minOffs {
			idx++
		}
		p.hash.toIndex[key] = uint16(idx)
	}

	candidate = uint(p.hash.offs[idx])
	return idx, candidate, int(candidate) < int(workBuffOffset)-1
}

// extendMatch tests whether the candidate run at cand can match the run
// starting at pos for at least length bytes, returning how far it
// actually extends if so.
//
// Candidates always come from the same hash bucket as pos. Only byte 0
// and byte (length-1) — the last byte that must match for this candidate
// to reach the current best — are checked before the scan, which then
// starts at byte 2. Byte 1 is not compared, but it needs no check: the
// hash is b0*4 + b1*5, so a candidate with an equal hash and an equal
// byte 0 also has an equal byte 1. This is the reference's quick-reject
// test, kept as it is rather than turned into a scan from byte 0 (see
// DESIGN.md).
func (p *implodeState) extendMatch(pos, cand, length uint) (matched uint, ok bool) {
	if p.workBuff[pos] != p.workBuff[cand] || p.workBuff[pos+length-1] != p.workBuff[cand+length-1] {
		return 0, false
	}
	n := uint(2)
	for n < maxRepLength && p.workBuff[cand+n] == p.workBuff[pos+n] {
		n++
	}
	return n, true
}

// scanChain walks the hash chain starting at idx/candidate, keeping the
// longest match found (updating p.distance as it goes) and giving up
// early once a match longer than 10 bytes is found. exhausted reports
// whether the walk ran off the end of the usable dictionary window rather
// than stopping on that early-exit.
func (p *implodeState) scanChain(workBuffOffset, idx, candidate uint, limit int) (repLength, stopIdx uint, exhausted bool) {
	repLength = 1
	for {
		if n, ok := p.extendMatch(workBuffOffset, candidate, repLength); ok && n >= repLength {
			// The run starts at candidate, so the true backward
			// distance is workBuffOffset-candidate, stored minus 1 per
			// the wire convention.
			p.distance = workBuffOffset - candidate - 1
			repLength = n
			if repLength > 10 {
				return repLength, idx, false
			}
		}

		idx++
		candidate = uint(p.hash.offs[idx])
		if int(candidate) >= limit {
			return repLength, idx, true
		}
	}
}

// buildFailureFunction seeds a KMP-style failure function over
// workBuff[workBuffOffset:workBuffOffset+upTo] and returns the state
// (offsInRep, diVal) needed to extend it further later, via
// extendFailureFunction.
func (p *implodeState) buildFailureFunction(workBuffOffset, upTo uint) (offsInRep, diVal uint16) {
	p.matchFail[0] = 0xFFFF
	p.matchFail[1] = 0
	offsInRep, diVal = 1, 0
	p.extendFailureFunction(workBuffOffset, &offsInRep, &diVal, upTo)
	return offsInRep, diVal
}

// extendFailureFunction grows p.matchFail from its current frontier
// (offsInRep, diVal) up to upTo.
func (p *implodeState) extendFailureFunction(workBuffOffset uint, offsInRep, diVal *uint16, upTo uint) {
	for uint(*offsInRep) < upTo {
		if p.workBuff[workBuffOffset+uint(*offsInRep)] != p.workBuff[workBuffOffset+uint(*diVal)] {
			*diVal = p.matchFail[*diVal]
			if *diVal != 0xFFFF {
				continue
			}
		}
		*offsInRep++
		*diVal++
		p.matchFail[*offsInRep] = *diVal
	}
}

// advanceWhile walks the hash chain forward from idx for as long as cond
// holds for the candidate it lands on, returning as soon as cond is false
// or the chain runs off the usable dictionary window.
func (p *implodeState) advanceWhile(idx uint, limit int, cond func(candidate uint) bool) (newIdx, candidate uint, ok bool) {
	for {
		idx++
		candidate = uint(p.hash.offs[idx])
		if int(candidate) >= limit {
			return idx, candidate, false
		}
		if !cond(candidate) {
			return idx, candidate, true
		}
	}
}

// searchLongerMatchLater looks for a match longer than repLength starting
// at some later hash-chain candidate, using the failure function to skip
// positions it can already rule out. This only runs once scanChain has
// found a decent (>10 byte) but non-maximal match; it is the codec's
// "maybe the real repetition starts a little further along" check.
func (p *implodeState) searchLongerMatchLater(workBuffOffset, idx, repLength uint, limit int) uint {
	offsInRep, diVal := p.buildFailureFunction(workBuffOffset, repLength)

	candidate := uint(p.hash.offs[idx])
	repEnd := candidate + repLength
	length2 := repLength

	for {
		length2 = uint(p.matchFail[length2])
		if length2 == 0xFFFF {
			length2 = 0
		}

		var ok bool
		idx, candidate, ok = p.advanceWhile(idx, limit, func(c uint) bool {
			return c+length2 < repEnd
		})
		if !ok {
			return repLength
		}

		preLastByte := p.workBuff[workBuffOffset+repLength-2]
		if preLastByte == p.workBuff[candidate+repLength-2] {
			if candidate+length2 != repEnd {
				repEnd = candidate
				length2 = 0
			}
		} else {
			idx, candidate, ok = p.advanceWhile(idx, limit, func(c uint) bool {
				return p.workBuff[c+repLength-2] != preLastByte || p.workBuff[c] != p.workBuff[workBuffOffset]
			})
			if !ok {
				return repLength
			}
			repEnd = candidate + 2
			length2 = 2
		}

		for p.workBuff[repEnd] == p.workBuff[workBuffOffset+length2] {
			length2++
			if length2 >= maxRepLength {
				break
			}
			repEnd++
		}

		if length2 >= repLength {
			p.distance = workBuffOffset - candidate - 1
			repLength = length2
			if repLength == maxRepLength {
				return repLength
			}
			p.extendFailureFunction(workBuffOffset, &offsInRep, &diVal, length2)
		}
	}
}

// findMatch searches for the longest previous occurrence of the byte
// sequence starting at workBuffOffset, returning its length (0 if none
// qualifies) and storing the backward distance (minus 1) in p.distance.
//
// The search runs in two stages: scanChain walks the hash chain for an
// initial decent match, and searchLongerMatchLater — entered only when
// scanChain's match is good but not yet maximal — checks whether a still
// longer run starts a little further down the same chain.
func (p *implodeState) findMatch(workBuffOffset uint) uint {
	limit := int(workBuffOffset) - 1

	idx, candidate, ok := p.firstCandidateIndex(workBuffOffset)
	if !ok {
		return 0
	}

	repLength, idx, exhausted := p.scanChain(workBuffOffset, idx, candidate, limit)
	if exhausted {
		if repLength >= 2 {
			return repLength
		}
		return 0
	}
	if repLength == maxRepLength {
		return repLength
	}
	if int(p.hash.offs[idx+1]) >= limit {
		return repLength
	}
	return p.searchLongerMatchLater(workBuffOffset, idx, repLength, limit)
}

// bestMatchAt decides how to encode workBuffOffset: it runs findMatch,
// then — unless the match is already long or we're near the end of the
// available data — checks whether encoding this byte as a literal and
// picking up the match one byte later would do better, the reference's
// "AROCKFORT"/"ROCKFORT" heuristic (a short match can hide a longer one
// shifted by one byte). Returns ok=false when the position should be
// coded as a plain literal instead.
func (p *implodeState) bestMatchAt(workBuffOffset, inputDataEndIndex uint, atEOF bool) (length uint, ok bool) {
	length = p.findMatch(workBuffOffset)
	if length == 0 {
		return 0, false
	}
	if length == 2 && p.distance >= 0x100 {
		return 0, false
	}

	if atEOF && workBuffOffset+length > inputDataEndIndex {
		length = inputDataEndIndex - workBuffOffset
		if length < 2 {
			return 0, false
		}
		if length == 2 && p.distance >= 0x100 {
			return 0, false
		}
		return length, true
	}

	if length >= 8 || workBuffOffset+1 >= inputDataEndIndex {
		return length, true
	}

	savedLength, savedDistance := length, p.distance
	laterLength := p.findMatch(workBuffOffset + 1)
	if laterLength > savedLength && (laterLength > savedLength+1 || savedDistance > 0x80) {
		return 0, false
	}

	p.distance = savedDistance
	return savedLength, true
}

// emitCode writes the literal/length code for index (the byte value for a
// literal in either mode, or 0xFE+length for a match length).
func (p *implodeState) emitCode(index uint) error {
	return p.bw.put(uint16(p.nChBits[index]), uint(p.nChCodes[index]))
}

func (p *implodeState) emitLiteral(b byte) error {
	return p.emitCode(uint(b))
}

// emitMatch writes a length/distance back-reference: the length code,
// followed by the distance code and its extra bits (2 extra bits for a
// length-2 match, dsizeBits extra bits otherwise).
func (p *implodeState) emitMatch(length uint) error {
	if err := p.emitCode(length + 0xFE); err != nil {
		return err
	}
	if length == 2 {
		if err := p.bw.put(uint16(distBits[p.distance>>2]), uint(distCodes[p.distance>>2])); err != nil {
			return err
		}
		return p.bw.put(2, p.distance&3)
	}
	if err := p.bw.put(uint16(distBits[p.distance>>p.dsizeBits]), uint(distCodes[p.distance>>p.dsizeBits])); err != nil {
		return err
	}
	return p.bw.put(uint16(p.dsizeBits), p.dsizeMask&p.distance)
}

// loadChunk reads up to a 4096-byte chunk of input into the work buffer,
// returning how many bytes were actually read and whether the source is
// now exhausted. The destination is always the fixed region just past
// the dictionary-history prefix (dsizeBytes+0x204), not wherever the
// compress cursor currently sits: after the first chunk, that cursor
// drifts down to the start of the buffer as history slides in, while
// fresh input always lands in this same fixed window. The destination
// slice for each Read always extends to the full chunk boundary
// regardless of how much was read, so any not-yet-filled tail is zeroed
// — later hash lookups past the real data stay deterministic instead of
// reusing whatever a previous chunk left there.
func (p *implodeState) loadChunk() (totalLoaded uint, atEOF bool, err error) {
	const chunkSize = 0x1000
	base := p.dsizeBytes + 0x204

	for totalLoaded < chunkSize {
		buf := make([]byte, chunkSize-totalLoaded)
		n, _ := p.readBuf.Read(buf)
		copy(p.workBuff[base+totalLoaded:base+chunkSize], buf)
		if n == 0 {
			return totalLoaded, true, nil
		}
		totalLoaded += uint(n)
	}
	return totalLoaded, false, nil
}

// rebuildHashForPhase rebuilds the hash index over the portion of the
// work buffer now valid, following the reference's three-phase warm-up:
// the first chunk only covers what's been loaded so far, the second
// (used only with a 4096-byte dictionary) extends back to the
// dictionary boundary, and every chunk after that covers a full sliding
// window. Returns the next phase.
func (p *implodeState) rebuildHashForPhase(phase, workBuffOffset, inputDataEndIndex uint) uint {
	switch phase {
	case 0:
		p.hash.rebuild(p.workBuff, workBuffOffset, inputDataEndIndex+1)
		if p.dsizeBytes != 0x1000 {
			return 2
		}
		return 1
	case 1:
		p.hash.rebuild(p.workBuff, workBuffOffset-p.dsizeBytes+0x204, inputDataEndIndex+1)
		return 2
	default:
		p.hash.rebuild(p.workBuff, workBuffOffset-p.dsizeBytes, inputDataEndIndex+1)
		return phase
	}
}

// compressChunk encodes work[workBuffOffset:inputDataEndIndex], returning
// the final cursor position (always inputDataEndIndex on success).
func (p *implodeState) compressChunk(workBuffOffset, inputDataEndIndex uint, atEOF bool) (uint, error) {
	for workBuffOffset < inputDataEndIndex {
		length, matched := p.bestMatchAt(workBuffOffset, inputDataEndIndex, atEOF)
		if !matched {
			if err := p.emitLiteral(p.workBuff[workBuffOffset]); err != nil {
				return workBuffOffset, err
			}
			workBuffOffset++
			continue
		}
		if err := p.emitMatch(length); err != nil {
			return workBuffOffset, err
		}
		workBuffOffset += length
	}
	return workBuffOffset, nil
}

// writeCompressed is the bulk compression driver (spec's write + finish
// combined into one pass over the whole input, matching the reference's
// single-shot "load 0x1000 bytes, sort, compress" loop).
func (p *implodeState) writeCompressed(sink io.Writer) error {
	if _, err := sink.Write([]byte{byte(p.cType), byte(p.dsizeBits)}); err != nil {
		return err
	}
	p.bw = newBitWriter(sink)

	workBuffOffset := p.dsizeBytes + 0x204
	phase := uint(0)

	for {
		totalLoaded, atEOF, err := p.loadChunk()
		if err != nil {
			return err
		}
		if totalLoaded == 0 && phase == 0 {
			break
		}

		inputDataEndIndex := p.dsizeBytes + totalLoaded
		if atEOF {
			inputDataEndIndex += 0x204
		}

		phase = p.rebuildHashForPhase(phase, workBuffOffset, inputDataEndIndex)

		workBuffOffset, err = p.compressChunk(workBuffOffset, inputDataEndIndex, atEOF)
		if err != nil {
			return err
		}

		if atEOF {
			break
		}
		workBuffOffset -= 0x1000
		copy(p.workBuff[0:p.dsizeBytes+0x204], p.workBuff[0x1000:0x1000+p.dsizeBytes+0x204])
	}

	if err := p.emitCode(0x305); err != nil {
		return err
	}
	return p.bw.flushTrailing()
}

// implode drives a full compression pass: build the literal/length code
// tables for the requested mode and dictionary size, then run the match
// finder and encoder over r, writing the compressed stream to w.
func implode(r io.Reader, w io.Writer, state *implodeState, mode Mode, dictSize DictSize) error {
	state.readBuf = r
	state.dsizeBytes = uint(dictSize)
	state.cType = mode

	bits := dictBitsFor(dictSize)
	if bits == 0 {
		return ErrInvalidDictSize
	}
	state.dsizeBits = bits
	state.dsizeMask = (1 << bits) - 1

	switch mode {
	case Binary:
		code := uint(0)
		for i := uint(0); i < 0x100; i++ {
			state.nChBits[i] = 9
			state.nChCodes[i] = uint16(code)
			code = (code & 0x0000FFFF) + 2
		}
	case ASCII:
		for i := uint(0); i < 0x100; i++ {
			state.nChBits[i] = chBitsAscs[i] + 1
			state.nChCodes[i] = chCodeAscs[i] * 2
		}
	default:
		return ErrInvalidMode
	}

	count := uint(0x100)
	for i := 0; i < 0x10; i++ {
		if 1<<exLenBits[i] != 0 {
			for n2 := 0; n2 < (1 << exLenBits[i]); n2++ {
				state.nChBits[count] = uint8(exLenBits[i]) + lenBits[i] + 1
				state.nChCodes[count] = uint16(uint16(n2)<<uint16(lenBits[i]+1)) | uint16((uint16(lenCodes[i])&0x00FF)*2) | 1
				count++
			}
		}
	}

	return state.writeCompressed(w)
}

// Writer compresses data written to it and writes the imploded form to an
// underlying writer. Construct with NewWriter; Close must be called
// exactly once to emit a valid stream (spec.md §4.6 — dropping a Writer
// without Close yields a truncated, undecodable stream).
type Writer struct {
	w        io.Writer
	state    *implodeState
	mode     Mode
	dictSize DictSize
	data     []uint8
	closed   bool
}

// NewWriter creates a new Writer. Writes are buffered and compressed only
// once Close is called.
func NewWriter(w io.Writer, mode Mode, dictSize DictSize) *Writer {
	return &Writer{
		w:        w,
		state:    newImplodeState(),
		mode:     mode,
		dictSize: dictSize,
	}
}

// Write buffers p for compression; compressed bytes are not flushed to
// the underlying io.Writer until Close.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	w.data = append(w.data, p...)
	return len(p), nil
}

// Close flushes the buffered input through the imploder and closes the
// Writer. It must be called exactly once.
func (w *Writer) Close() error {
	w.closed = true
	return implode(bytes.NewBuffer(w.data), w.w, w.state, w.mode, w.dictSize)
}

// ImplodeBytes compresses a complete in-memory buffer using the given
// mode and dictionary size.
func ImplodeBytes(raw []byte, mode Mode, dictSize DictSize) ([]byte, error) {
	var buf bytes.Buffer
	if err := implode(bytes.NewReader(raw), &buf, newImplodeState(), mode, dictSize); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
