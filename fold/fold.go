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

package fold

import (
	"fmt"
	"math/bits"

	ans "github.com/ciminilorenzo/webgraph-ans-go"
)

// Threshold returns the folding threshold 2^(F+R-1): raw symbols below it
// are singletons and pass through Fold unchanged.
func Threshold(fidelity, radix uint) uint64 {
	return 1 << (fidelity + radix - 1)
}

// Offset returns the folding offset ((2^R-1) * 2^(F-1)) added per fold
// step so that the mapping stays injective across different fold counts.
func Offset(fidelity, radix uint) uint64 {
	return ((uint64(1) << radix) - 1) * (uint64(1) << (fidelity - 1))
}

// Count returns the fold count k for a non-singleton raw symbol s under
// (fidelity, radix): k = ((floor(log2 s) + 1) - F) / R.
func Count(s uint64, fidelity, radix uint) int {
	return (bits.Len64(s) - int(fidelity)) / int(radix)
}

// Fold performs symbol folding: singletons pass through unchanged;
// non-singletons are shifted right by k*radix bits and offset by
// k*Offset(F,R) so that folded values stay injective across different k.
// Returns an error if the folded result does not fit in 16 bits.
func Fold(s uint64, fidelity, radix uint) (uint16, error) {
	threshold := Threshold(fidelity, radix)

	if s < threshold {
		return uint16(s), nil
	}

	k := Count(s, fidelity, radix)
	shifted := s >> (uint(k) * radix)
	folded := shifted + Offset(fidelity, radix)*uint64(k)

	if folded > ans.MaxFoldedSymbol {
		return 0, fmt.Errorf("ans/fold: folded symbol %d for raw symbol %d (F=%d, R=%d) exceeds 16 bits", folded, s, fidelity, radix)
	}

	return uint16(folded), nil
}

// FoldWithStream performs symbol folding exactly like Fold, additionally
// appending the k*radix stripped low bits to sink, one radix-sized chunk
// per fold step (lowest-order chunk of the original symbol first). The
// sink must be consumed by Unfold in the exact reverse (LIFO) order.
func FoldWithStream(s uint64, fidelity, radix uint, sink Sink) (uint16, error) {
	threshold := Threshold(fidelity, radix)

	if s < threshold {
		return uint16(s), nil
	}

	k := Count(s, fidelity, radix)
	mask := (uint64(1) << radix) - 1
	remaining := s

	for i := 0; i < k; i++ {
		sink.AppendBits(remaining&mask, radix)
		remaining >>= radix
	}

	folded := remaining + Offset(fidelity, radix)*uint64(k)

	if folded > ans.MaxFoldedSymbol {
		return 0, fmt.Errorf("ans/fold: folded symbol %d for raw symbol %d (F=%d, R=%d) exceeds 16 bits", folded, s, fidelity, radix)
	}

	return uint16(folded), nil
}

// Unfold recovers the raw symbol from a folded value y plus the k*radix
// bits that FoldWithStream stripped, read back from source in reverse
// (LIFO) order. k is derived from y, foldingOffset and foldingThreshold:
// k = (y - threshold) / offset + 1. Singletons (y < threshold) consume no
// bits from source.
func Unfold(y uint16, foldingThreshold, foldingOffset uint64, radix uint, source Sink) uint64 {
	v := uint64(y)

	if v < foldingThreshold {
		return v
	}

	k := (v-foldingThreshold)/foldingOffset + 1
	high := v - foldingOffset*k

	var extra uint64

	for i := uint64(0); i < k; i++ {
		bits := source.ConsumeBits(radix)
		extra = (extra << radix) | bits
	}

	return (high << (k * uint64(radix))) | extra
}

// FoldCount returns the number of fold steps (and therefore stripped
// bits, k*radix) a folded value y encodes, given the component's folding
// parameters. Returns 0 for singletons.
func FoldCount(y uint16, foldingThreshold, foldingOffset uint64) uint64 {
	v := uint64(y)

	if v < foldingThreshold {
		return 0
	}

	return (v-foldingThreshold)/foldingOffset + 1
}
