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

package model

import (
	"fmt"
	"math"
)

// scaleFreqs rescales freqs (indexed by folded symbol) from their
// original common denominator m down (or up) to newM, giving priority
// to low-frequency symbols: each symbol's new frequency is a blend of
// the global ratio newM/m and a per-symbol ratio that grows as the
// symbol's rank (by ascending frequency) grows, so rare symbols are the
// first to be guaranteed at least 1 and the last to be squeezed toward
// it. sortedIndices lists the n symbols with non-zero frequency, sorted
// by ascending freqs[index]. On success the returned frequencies sum to
// exactly newM: whatever budget rounding leaves over is handed to the
// most frequent symbol. Returns an error if newM cannot accommodate
// every symbol at a frequency of at least 1.
func scaleFreqs(freqs []uint64, sortedIndices []int, n int, m uint64, newM int64) ([]uint64, error) {
	approx := make([]uint64, len(freqs))
	copy(approx, freqs)

	remainingM := m
	remainingNewM := newM
	ratio := float64(newM) / float64(m)

	for index, symIndex := range sortedIndices {
		symFreq := freqs[symIndex]
		secondRatio := float64(remainingNewM) / float64(remainingM)
		scale := float64(n-index)*ratio/float64(n) + float64(index)*secondRatio/float64(n)

		scaled := uint64(math.Max(1, math.Floor(0.5+scale*float64(symFreq))))
		approx[symIndex] = scaled

		remainingNewM -= int64(scaled)
		remainingM -= symFreq

		if remainingNewM < 0 {
			return nil, fmt.Errorf("ans/model: frame size %d too small to give every symbol a frequency of at least 1", newM)
		}
	}

	if remainingNewM > 0 {
		approx[sortedIndices[n-1]] += uint64(remainingNewM)
	}

	return approx, nil
}
