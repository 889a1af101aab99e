package dcl

// hashIndex is a 2-byte-prefix hash index over the imploder's working
// dictionary+lookahead buffer, used for O(1) candidate retrieval during
// longest-match search.
//
// The exact hash key used by the reference implementation is not a full
// 16-bit prefix hash (spec's idealized p ∈ [0..65535]); it folds b0 and
// b1 into a narrower key via hashPair below, which only ever produces
// values in [0, 0x8F7]. Collisions are frequent but benign: hash choice
// only affects how many candidates findMatch has to walk through before
// finding (or ruling out) a real match, never the emitted bit format.
type hashIndex struct {
	toIndex []uint16 // lowest pair_hash_offs index for each hash key
	offs    []uint16 // flat table of candidate positions into work
}

// numHashBuckets bounds hashPair's output range (255*4 + 255*5 = 0x8F7).
const numHashBuckets = 0x900

func newHashIndex(workBufLen int) *hashIndex {
	return &hashIndex{
		toIndex: make([]uint16, numHashBuckets),
		offs:    make([]uint16, workBufLen),
	}
}

// hashPair computes the reference's 2-byte prefix hash. Implementers must
// match this exact expression — "(b0 << 2) + b0 + (b1 << 2) + b1" is NOT
// the same and will produce a different (still valid, but non-matching
// for fixture comparisons) candidate ordering.
func hashPair(buffer []uint8, offset uint) uint16 {
	return uint16(buffer[offset])*4 + uint16(buffer[offset+1])*5
}

// rebuild repopulates the hash index for work[begin:end] using a counting
// sort over the hash keys: count occurrences per key, turn the counts into
// a prefix sum (each key's one-past-the-end slot in offs), then scatter
// positions back-to-front, decrementing each key's slot, so that toIndex
// ends at each key's first slot and the candidates are recoverable
// starting from the earliest occurrence.
func (h *hashIndex) rebuild(work []uint8, begin, end uint) {
	h.resetCounts()
	h.countOccurrences(work, begin, end)
	h.accumulateCounts()
	h.scatterDescending(work, begin, end)
}

func (h *hashIndex) resetCounts() {
	for i := range h.toIndex {
		h.toIndex[i] = 0
	}
}

func (h *hashIndex) countOccurrences(work []uint8, begin, end uint) {
	for p := begin; p < end; p++ {
		h.toIndex[hashPair(work, p)]++
	}
}

// accumulateCounts turns per-key occurrence counts into a prefix sum, so
// that h.toIndex[key] becomes the one-past-the-end slot for key's run in
// offs (scatterDescending then fills each run back to front).
func (h *hashIndex) accumulateCounts() {
	var total uint16
	for i := range h.toIndex {
		total += h.toIndex[i]
		h.toIndex[i] = total
	}
}

func (h *hashIndex) scatterDescending(work []uint8, begin, end uint) {
	for p := end - 1; ; p-- {
		key := hashPair(work, p)
		h.toIndex[key]--
		h.offs[h.toIndex[key]] = uint16(p)
		if p == begin {
			break
		}
	}
}
