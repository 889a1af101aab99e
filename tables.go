/*
 * Copyright (c) 2018 Josh Varga
 * Original C versions: Copyright (C) 2003, 2012, 2013 Mark Adler (explode)
 *                       Copyright (c) Ladislav Zezula 2003 (implode)
 *
 * This software is provided 'as-is', without any express or implied
 * warranty. In no event will the authors be held liable for any damages
 * arising from the use of this software.
 *
 * Permission is granted to anyone to use this software for any purpose,
 * including commercial applications, and to alter it and redistribute it
 * freely, subject to the following restrictions:
 *
 * 1. The origin of this software must not be misrepresented; you must not
 *    claim that you wrote the original software. If you use this software
 *    in a product, an acknowledgment in the product documentation would be
 *    appreciated but is not required.
 * 2. Altered source versions must be plainly marked as such, and must not be
 *    misrepresented as being the original software.
 * 3. This notice may not be removed or altered from any source distribution.
 */

// Package dcl implements the PKWare Data Compression Library (DCL)
// "implode"/"explode" codec: a Huffman-plus-sliding-dictionary format used
// by legacy installers and game archives such as MPQ.
package dcl

// Mode selects whether literal bytes are coded (ASCII) or passed through
// uncoded (Binary).
type Mode uint

const (
	// Binary emits every literal as a raw 8-bit value.
	Binary Mode = 0
	// ASCII encodes literals with a variable-length prefix code (1-13
	// bits) tuned for English text.
	ASCII Mode = 1
)

// DictSize is the sliding-window capacity, one of 1024, 2048, or 4096 bytes.
type DictSize uint

const (
	// DictSize1024 is the smallest supported dictionary.
	DictSize1024 DictSize = 1024
	// DictSize2048 is the medium supported dictionary.
	DictSize2048 DictSize = 2048
	// DictSize4096 is the largest supported dictionary.
	DictSize4096 DictSize = 4096
)

const (
	maxBits        = 13   // maximum Huffman code length for literal/length/distance codes
	maxWindowSize  = 4096 // largest supported dictionary
	maxMatchLength = 0x204 // longest allowed length/distance repetition (516)
	endOfStreamLen = 519   // copyLength value that signals end-of-stream, not a real match
)

// bit lengths of literal codes (compact repeat-count encoding, expanded by expandLengths)
var literalBitLength = []byte{
	11, 124, 8, 7, 28, 7, 188, 13, 76, 4, 10, 8, 12, 10, 12, 10, 8, 23, 8,
	9, 7, 6, 7, 8, 7, 6, 55, 8, 23, 24, 12, 11, 7, 9, 11, 12, 6, 7, 22, 5,
	7, 24, 6, 11, 9, 6, 7, 22, 7, 11, 38, 7, 9, 8, 25, 11, 8, 11, 9, 12,
	8, 12, 5, 38, 5, 38, 5, 11, 7, 5, 6, 21, 6, 10, 53, 8, 7, 24, 10, 27,
	44, 253, 253, 253, 252, 252, 252, 13, 12, 45, 12, 45, 12, 61, 12, 45,
	44, 173}

// bit lengths of length codes 0..15 (compact repeat-count encoding)
var lengthBitLength = []byte{2, 35, 36, 53, 38, 23}

// bit lengths of distance codes 0..63 (compact repeat-count encoding)
var distanceBitLength = []byte{2, 20, 53, 230, 247, 151, 248}

// LEN_BASE: base length for each of the 16 length-code tiers.
var lenBase = []int16{3, 2, 4, 5, 6, 7, 8, 9, 10, 12, 16, 24, 40, 72, 136, 264}

// EX_LEN_BITS: number of extra bits per length-code tier.
var exLenBits = []int8{0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8}

// LEN_BITS / LEN_CODE: encoder-side length prefix-code lengths and values.
var lenBits = []uint8{
	0x03, 0x02, 0x03, 0x03, 0x04, 0x04, 0x04, 0x05, 0x05, 0x05, 0x05, 0x06, 0x06, 0x06, 0x07, 0x07,
}

var lenCodes = []uint8{
	0x05, 0x03, 0x01, 0x06, 0x0A, 0x02, 0x0C, 0x14, 0x04, 0x18, 0x08, 0x30, 0x10, 0x20, 0x40, 0x00,
}

// DIST_BITS / DIST_CODE: the 6 most-significant distance-code bits and
// their lengths, shared by encoder and decoder.
var distBits = []uint8{
	0x02, 0x04, 0x04, 0x05, 0x05, 0x05, 0x05, 0x06, 0x06, 0x06, 0x06, 0x06, 0x06, 0x06, 0x06, 0x06,
	0x06, 0x06, 0x06, 0x06, 0x06, 0x06, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07,
	0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07, 0x07,
	0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08, 0x08,
}

var distCodes = []uint8{
	0x03, 0x0D, 0x05, 0x19, 0x09, 0x11, 0x01, 0x3E, 0x1E, 0x2E, 0x0E, 0x36, 0x16, 0x26, 0x06, 0x3A,
	0x1A, 0x2A, 0x0A, 0x32, 0x12, 0x22, 0x42, 0x02, 0x7C, 0x3C, 0x5C, 0x1C, 0x6C, 0x2C, 0x4C, 0x0C,
	0x74, 0x34, 0x54, 0x14, 0x64, 0x24, 0x44, 0x04, 0x78, 0x38, 0x58, 0x18, 0x68, 0x28, 0x48, 0x08,
	0xF0, 0x70, 0xB0, 0x30, 0xD0, 0x50, 0x90, 0x10, 0xE0, 0x60, 0xA0, 0x20, 0xC0, 0x40, 0x80, 0x00,
}

// CH_BITS_ASC / CH_CODE_ASC: ASCII literal code lengths and values, one
// entry per byte value.
var chBitsAscs = []uint8{
	0x0B, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x08, 0x07, 0x0C, 0x0C, 0x07, 0x0C, 0x0C,
	0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0D, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C,
	0x04, 0x0A, 0x08, 0x0C, 0x0A, 0x0C, 0x0A, 0x08, 0x07, 0x07, 0x08, 0x09, 0x07, 0x06, 0x07, 0x08,
	0x07, 0x06, 0x07, 0x07, 0x07, 0x07, 0x08, 0x07, 0x07, 0x08, 0x08, 0x0C, 0x0B, 0x07, 0x09, 0x0B,
	0x0C, 0x06, 0x07, 0x06, 0x06, 0x05, 0x07, 0x08, 0x08, 0x06, 0x0B, 0x09, 0x06, 0x07, 0x06, 0x06,
	0x07, 0x0B, 0x06, 0x06, 0x06, 0x07, 0x09, 0x08, 0x09, 0x09, 0x0B, 0x08, 0x0B, 0x09, 0x0C, 0x08,
	0x0C, 0x05, 0x06, 0x06, 0x06, 0x05, 0x06, 0x06, 0x06, 0x05, 0x0B, 0x07, 0x05, 0x06, 0x05, 0x05,
	0x06, 0x0A, 0x05, 0x05, 0x05, 0x05, 0x08, 0x07, 0x08, 0x08, 0x0A, 0x0B, 0x0B, 0x0C, 0x0C, 0x0C,
	0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D,
	0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D,
	0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D,
	0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C,
	0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C,
	0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C, 0x0C,
	0x0D, 0x0C, 0x0D, 0x0D, 0x0D, 0x0C, 0x0D, 0x0D, 0x0D, 0x0C, 0x0D, 0x0D, 0x0D, 0x0D, 0x0C, 0x0D,
	0x0D, 0x0D, 0x0C, 0x0C, 0x0C, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D, 0x0D,
}

var chCodeAscs = []uint16{
	0x0490, 0x0FE0, 0x07E0, 0x0BE0, 0x03E0, 0x0DE0, 0x05E0, 0x09E0,
	0x01E0, 0x00B8, 0x0062, 0x0EE0, 0x06E0, 0x0022, 0x0AE0, 0x02E0,
	0x0CE0, 0x04E0, 0x08E0, 0x00E0, 0x0F60, 0x0760, 0x0B60, 0x0360,
	0x0D60, 0x0560, 0x1240, 0x0960, 0x0160, 0x0E60, 0x0660, 0x0A60,
	0x000F, 0x0250, 0x0038, 0x0260, 0x0050, 0x0C60, 0x0390, 0x00D8,
	0x0042, 0x0002, 0x0058, 0x01B0, 0x007C, 0x0029, 0x003C, 0x0098,
	0x005C, 0x0009, 0x001C, 0x006C, 0x002C, 0x004C, 0x0018, 0x000C,
	0x0074, 0x00E8, 0x0068, 0x0460, 0x0090, 0x0034, 0x00B0, 0x0710,
	0x0860, 0x0031, 0x0054, 0x0011, 0x0021, 0x0017, 0x0014, 0x00A8,
	0x0028, 0x0001, 0x0310, 0x0130, 0x003E, 0x0064, 0x001E, 0x002E,
	0x0024, 0x0510, 0x000E, 0x0036, 0x0016, 0x0044, 0x0030, 0x00C8,
	0x01D0, 0x00D0, 0x0110, 0x0048, 0x0610, 0x0150, 0x0060, 0x0088,
	0x0FA0, 0x0007, 0x0026, 0x0006, 0x003A, 0x001B, 0x001A, 0x002A,
	0x000A, 0x000B, 0x0210, 0x0004, 0x0013, 0x0032, 0x0003, 0x001D,
	0x0012, 0x0190, 0x000D, 0x0015, 0x0005, 0x0019, 0x0008, 0x0078,
	0x00F0, 0x0070, 0x0290, 0x0410, 0x0010, 0x07A0, 0x0BA0, 0x03A0,
	0x0240, 0x1C40, 0x0C40, 0x1440, 0x0440, 0x1840, 0x0840, 0x1040,
	0x0040, 0x1F80, 0x0F80, 0x1780, 0x0780, 0x1B80, 0x0B80, 0x1380,
	0x0380, 0x1D80, 0x0D80, 0x1580, 0x0580, 0x1980, 0x0980, 0x1180,
	0x0180, 0x1E80, 0x0E80, 0x1680, 0x0680, 0x1A80, 0x0A80, 0x1280,
	0x0280, 0x1C80, 0x0C80, 0x1480, 0x0480, 0x1880, 0x0880, 0x1080,
	0x0080, 0x1F00, 0x0F00, 0x1700, 0x0700, 0x1B00, 0x0B00, 0x1300,
	0x0DA0, 0x05A0, 0x09A0, 0x01A0, 0x0EA0, 0x06A0, 0x0AA0, 0x02A0,
	0x0CA0, 0x04A0, 0x08A0, 0x00A0, 0x0F20, 0x0720, 0x0B20, 0x0320,
	0x0D20, 0x0520, 0x0920, 0x0120, 0x0E20, 0x0620, 0x0A20, 0x0220,
	0x0C20, 0x0420, 0x0820, 0x0020, 0x0FC0, 0x07C0, 0x0BC0, 0x03C0,
	0x0DC0, 0x05C0, 0x09C0, 0x01C0, 0x0EC0, 0x06C0, 0x0AC0, 0x02C0,
	0x0CC0, 0x04C0, 0x08C0, 0x00C0, 0x0F40, 0x0740, 0x0B40, 0x0340,
	0x0300, 0x0D40, 0x1D00, 0x0D00, 0x1500, 0x0540, 0x0500, 0x1900,
	0x0900, 0x0940, 0x1100, 0x0100, 0x1E00, 0x0E00, 0x0140, 0x1600,
	0x0600, 0x1A00, 0x0E40, 0x0640, 0x0A40, 0x0A00, 0x1200, 0x0200,
	0x1C00, 0x0C00, 0x1400, 0x0400, 0x1800, 0x0800, 0x1000, 0x0000,
}

// huffmanTable holds a canonical Huffman decode table: count[1..maxBits] is
// the number of symbols of each length, and symbol[] holds the symbols in
// canonical order. This is the decode-table generator of spec component A
// (gen_decode_table): given a compact repeat-count length list it expands
// into the tables decodeSymbol walks bit-by-bit.
type huffmanTable struct {
	count  []int16
	symbol []int16
}

func newHuffmanTable(numSymbols int) *huffmanTable {
	return &huffmanTable{
		count:  make([]int16, maxBits+1),
		symbol: make([]int16, numSymbols),
	}
}

// expandLengths unpacks a compact repeat-count code-length list — each
// byte is a count-minus-one in the high nibble and a code length in the
// low nibble — into one code length per symbol, in symbol order.
func expandLengths(rep []byte) []int16 {
	lengths := make([]int16, 0, 256)
	for _, b := range rep {
		codeLen := int16(b & 0x0F)
		count := int(b>>4) + 1
		for i := 0; i < count; i++ {
			lengths = append(lengths, codeLen)
		}
	}
	return lengths
}

// countByLength tallies how many symbols share each code length, 0..maxBits.
func countByLength(lengths []int16) []int16 {
	counts := make([]int16, maxBits+1)
	for _, l := range lengths {
		counts[l]++
	}
	return counts
}

// checkComplete walks the counts by increasing length and returns the
// number of unused code slots at maxBits: zero means the code is exactly
// complete, negative means a length was over-subscribed (more codes of
// that length than the prefix-code tree has room for).
func checkComplete(counts []int16) int {
	left := 1
	for l := 1; l <= maxBits; l++ {
		left <<= 1
		left -= int(counts[l])
		if left < 0 {
			return left
		}
	}
	return left
}

// buildHuffmanTable expands a compact repeat-count code-length list into a
// canonical Huffman decode table. The return value is zero for a complete
// code, negative if over-subscribed, positive if incomplete; ties never
// occur because PKWare's codes are themselves prefix codes.
func buildHuffmanTable(h *huffmanTable, rep []byte) int {
	lengths := expandLengths(rep)
	counts := countByLength(lengths)
	copy(h.count, counts)

	if int(counts[0]) == len(lengths) {
		return 0 // complete, but decodeSymbol will fail: no codes
	}
	left := checkComplete(counts)
	if left < 0 {
		return left // over-subscribed
	}

	offs := make([]int16, maxBits+1)
	for l := 1; l < maxBits; l++ {
		offs[l+1] = offs[l] + counts[l]
	}
	for symbol, l := range lengths {
		if l != 0 {
			h.symbol[offs[l]] = int16(symbol)
			offs[l]++
		}
	}
	return left
}

var (
	literalTable  = newHuffmanTable(256)
	lengthTable   = newHuffmanTable(16)
	distanceTable = newHuffmanTable(64)
)

func init() {
	buildHuffmanTable(literalTable, literalBitLength)
	buildHuffmanTable(lengthTable, lengthBitLength)
	buildHuffmanTable(distanceTable, distanceBitLength)
}

// dictBitsFor returns the number of distance extra bits for a dictionary
// size: 4 for 1024, 5 for 2048, 6 for 4096.
func dictBitsFor(size DictSize) uint {
	switch size {
	case DictSize4096:
		return 6
	case DictSize2048:
		return 5
	case DictSize1024:
		return 4
	default:
		return 0
	}
}

func dictSizeForExponent(exp byte) (DictSize, bool) {
	switch exp {
	case 4:
		return DictSize1024, true
	case 5:
		return DictSize2048, true
	case 6:
		return DictSize4096, true
	default:
		return 0, false
	}
}

func exponentForDictSize(size DictSize) (byte, bool) {
	switch size {
	case DictSize1024:
		return 4, true
	case DictSize2048:
		return 5, true
	case DictSize4096:
		return 6, true
	default:
		return 0, false
	}
}
