/*
Copyright 2011-2026 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package index implements the random-access side of the codec: a
// monotone Elias-Fano compressed index mapping node id to the stream
// pointer (the StreamPointer half of a rans.Phase) where that node's
// decoding begins, and a flat array holding the matching State half.
// Together these let a caller seed a rans.Decoder for any node without
// replaying the stream from the start.
package index

import "math/bits"

// PointerIndex is a read-only monotone non-decreasing sequence of
// stream pointers, compressed with the classic Elias-Fano scheme: each
// value is split into high bits (stored as a unary-coded gap sequence,
// one bit per value plus one bit per distinct high-bucket span) and low
// bits (stored as a fixed-width packed array), so the whole structure
// takes close to the information-theoretic minimum for a monotone
// sequence bounded by its last value.
type PointerIndex struct {
	n         int
	lowBits   uint
	low       []uint64 // n values of lowBits bits each, packed low-to-high
	upper     []uint64 // bit vector: n ones, fewer than 2n zeros
	upperBits int
}

// BuildPointerIndex compresses values, which must be non-decreasing.
// values[i] is the stream pointer for node i; the caller (codec.Encode,
// typically) is responsible for collecting them in node order
// from successive rans.Encoder.Phase calls.
func BuildPointerIndex(values []uint64) *PointerIndex {
	n := len(values)

	if n == 0 {
		return &PointerIndex{}
	}

	upperBound := values[n-1]

	var lowBits uint
	if ratio := upperBound / uint64(n); ratio > 0 {
		lowBits = uint(bits.Len64(ratio)) - 1
	}

	idx := &PointerIndex{n: n, lowBits: lowBits}
	idx.low = make([]uint64, (n*int(lowBits)+63)/64+1)

	lowMask := (uint64(1) << lowBits) - 1
	var prevHigh uint64

	for i, v := range values {
		low := v & lowMask
		packBits(idx.low, i*int(lowBits), lowBits, low)

		high := v >> lowBits
		idx.appendUnary(high - prevHigh)
		prevHigh = high
	}

	return idx
}

// appendUnary appends gap zero bits followed by a single one bit to the
// upper bit vector (the standard Elias-Fano "unary gap" encoding: the
// position of the i-th one bit, minus i, recovers the i-th value's high
// bits).
func (idx *PointerIndex) appendUnary(gap uint64) {
	needed := idx.upperBits + int(gap) + 1
	idx.ensureUpperCapacity(needed)
	idx.upperBits += int(gap)
	setBit(idx.upper, idx.upperBits)
	idx.upperBits++
}

func (idx *PointerIndex) ensureUpperCapacity(bitsNeeded int) {
	words := (bitsNeeded + 63) / 64
	for len(idx.upper) < words {
		idx.upper = append(idx.upper, 0)
	}
}

// Get returns the i-th value in the original sequence.
func (idx *PointerIndex) Get(i int) uint64 {
	low := unpackBits(idx.low, i*int(idx.lowBits), idx.lowBits)
	high := uint64(idx.select1(i) - i)
	return (high << idx.lowBits) | low
}

// Len returns the number of values held.
func (idx *PointerIndex) Len() int { return idx.n }

// select1 returns the bit position of the (i+1)-th one bit in the upper
// vector (0-indexed i).
func (idx *PointerIndex) select1(i int) int {
	remaining := i + 1

	for wordIdx, word := range idx.upper {
		count := bits.OnesCount64(word)

		if count < remaining {
			remaining -= count
			continue
		}

		for bitIdx := 0; bitIdx < 64; bitIdx++ {
			if word&(1<<uint(bitIdx)) != 0 {
				remaining--
				if remaining == 0 {
					return wordIdx*64 + bitIdx
				}
			}
		}
	}

	return -1
}

func setBit(words []uint64, pos int) {
	words[pos/64] |= uint64(1) << uint(pos%64)
}

// packBits writes the low nbits bits of value starting at bit offset
// off within words, treated as one long little-endian bit string.
func packBits(words []uint64, off int, nbits uint, value uint64) {
	for i := uint(0); i < nbits; i++ {
		if value&(1<<i) != 0 {
			setBit(words, off+int(i))
		}
	}
}

func unpackBits(words []uint64, off int, nbits uint) uint64 {
	var out uint64

	for i := uint(0); i < nbits; i++ {
		wordIdx := (off + int(i)) / 64
		bitIdx := (off + int(i)) % 64

		if wordIdx < len(words) && words[wordIdx]&(uint64(1)<<uint(bitIdx)) != 0 {
			out |= 1 << i
		}
	}

	return out
}

// StateArray is a flat, directly indexable array of the State half of
// each node's rans.Phase - unlike the stream pointers, encoder states
// are not monotone and so are stored densely rather than
// Elias-Fano-compressed.
type StateArray struct {
	values []uint64
}

// NewStateArray wraps values (one State per node, in node order).
func NewStateArray(values []uint64) *StateArray {
	return &StateArray{values: values}
}

// Get returns the State for node i.
func (s *StateArray) Get(i int) uint64 { return s.values[i] }

// Len returns the number of states held.
func (s *StateArray) Len() int { return len(s.values) }
