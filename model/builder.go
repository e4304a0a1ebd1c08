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
	"math"
	"math/bits"

	"golang.org/x/exp/slices"

	ans "github.com/ciminilorenzo/webgraph-ans-go"
	"github.com/ciminilorenzo/webgraph-ans-go/fold"
)

// Builder accumulates per-component raw-symbol histograms and turns
// them into an EncoderModel once every symbol has been pushed. One
// Builder produces models for all nine components at once, since the
// acceptance gate for each component is independent of the others.
type Builder struct {
	realFreqs  [ans.NumComponents]map[uint64]uint64
	totalFreqs [ans.NumComponents]uint64
	cfg        Config
	logger     ans.Logger
}

// NewBuilder creates a Builder that will search cfg's Theta staircase
// and SearchSpace when Build is called.
func NewBuilder(cfg Config) *Builder {
	b := &Builder{cfg: cfg, logger: ans.NopLogger()}

	for c := range b.realFreqs {
		b.realFreqs[c] = make(map[uint64]uint64)
	}

	return b
}

// WithLogger stores a diagnostic logger on the builder. Build's search
// loop writes no messages to it.
func (b *Builder) WithLogger(logger ans.Logger) *Builder {
	b.logger = logger
	return b
}

// Push records one occurrence of symbol for component. Returns
// *ans.SymbolOutOfRangeError if symbol exceeds ans.MaxRawSymbol.
func (b *Builder) Push(symbol uint64, component ans.Component) error {
	if symbol > ans.MaxRawSymbol {
		return &ans.SymbolOutOfRangeError{Symbol: symbol, Component: component}
	}

	b.realFreqs[component][symbol]++
	b.totalFreqs[component]++
	return nil
}

// Build runs the frame approximator independently for each component
// and returns the resulting EncoderModel. A component that never saw a
// pushed symbol gets an empty ComponentModel (never consulted by the
// streaming codec). Returns *ans.ErrFrameCeilingExceeded for any
// non-empty component for which no (fidelity, radix, frame size) triple
// in cfg satisfies the acceptance gate before cfg.FrameCeiling.
func (b *Builder) Build() (*EncoderModel, error) {
	out := &EncoderModel{}

	for c := ans.Component(0); int(c) < ans.NumComponents; c++ {
		if len(b.realFreqs[c]) == 0 {
			continue
		}

		built, err := b.buildComponent(c)
		if err != nil {
			return nil, err
		}

		out.Components[c] = *built
	}

	return out, nil
}

type candidate struct {
	fidelity, radix uint
	distribution    []uint64
	frameSize       uint
	divergence      float64
	biggestSymbol   uint16
}

func (b *Builder) buildComponent(c ans.Component) (*ComponentModel, error) {
	var best *candidate
	lowerDivergence := math.MaxFloat64

	// The staircase exists to recover components no distribution can
	// satisfy at the tight bound; once any candidate passes at a given
	// theta there is nothing left for a looser bound to add.
	for _, theta := range b.cfg.Theta {
		if best != nil {
			break
		}

	searchSpace:
		for _, pair := range b.cfg.SearchSpace {
			fidelity, radix := pair[0], pair[1]

			foldingThreshold := fold.Threshold(fidelity, radix)

			maxBucket, err := fold.Fold(ans.MaxRawSymbol, fidelity, radix)
			if err != nil {
				continue
			}

			foldedFreqs := make([]uint64, int(maxBucket)+1)
			var biggestSymbol uint16

			for rawSymbol, freq := range b.realFreqs[c] {
				var folded uint16

				if rawSymbol < foldingThreshold {
					folded = uint16(rawSymbol)
				} else {
					folded, err = fold.Fold(rawSymbol, fidelity, radix)
					if err != nil {
						continue searchSpace
					}
				}

				foldedFreqs[folded] += freq
				if folded > biggestSymbol {
					biggestSymbol = folded
				}
			}

			// The cost of the exact (un-approximated) folded distribution
			// under this pair: both the short-circuit bound (a pair whose
			// exact cost already exceeds the best approximated cost found
			// so far cannot win) and the acceptance-gate baseline the
			// quantisation loss is measured against.
			baseline := b.divergence(c, foldedFreqs, float64(b.totalFreqs[c]), foldingThreshold, fidelity, radix)
			if baseline > lowerDivergence {
				continue
			}

			n := 0
			for _, f := range foldedFreqs {
				if f > 0 {
					n++
				}
			}

			frameSize := nextPowerOfTwo(uint(n))

			sortedIndices := ascendingNonZeroIndices(foldedFreqs)

			// Smallest frame first: the first frame size whose scaled
			// distribution passes the acceptance gate is this pair's
			// result; doubling is only the response to a failure.
			for {
				if frameSize > b.cfg.FrameCeiling {
					continue searchSpace
				}

				scaled, err := scaleFreqs(foldedFreqs, sortedIndices, n, b.totalFreqs[c], int64(frameSize))
				if err != nil {
					frameSize *= 2
					continue
				}

				divergence := b.divergence(c, scaled, float64(frameSize), foldingThreshold, fidelity, radix)

				if divergence > baseline*theta {
					frameSize *= 2
					continue
				}

				if divergence < lowerDivergence ||
					(divergence == lowerDivergence && best != nil && frameSize < best.frameSize) {
					lowerDivergence = divergence
					trimmed := append([]uint64(nil), scaled[:int(biggestSymbol)+1]...)

					best = &candidate{
						fidelity:      fidelity,
						radix:         radix,
						distribution:  trimmed,
						frameSize:     frameSize,
						divergence:    divergence,
						biggestSymbol: biggestSymbol,
					}
				}

				continue searchSpace
			}
		}
	}

	if best == nil {
		return nil, &ans.ErrFrameCeilingExceeded{Component: c}
	}

	return b.materialize(best), nil
}

// divergence is the acceptance-gate cost of a candidate distribution:
// a cross-entropy-like term against it plus radix bits per fold step
// actually needed to reconstruct each real symbol (the folding tail is
// a real per-symbol cost, not free).
func (b *Builder) divergence(c ans.Component, distribution []uint64, newTotal float64, foldingThreshold uint64, fidelity, radix uint) float64 {
	var divergence float64

	for rawSymbol, freq := range b.realFreqs[c] {
		var foldedSym uint16
		var folds int

		if rawSymbol < foldingThreshold {
			foldedSym = uint16(rawSymbol)
		} else {
			foldedSym, _ = fold.Fold(rawSymbol, fidelity, radix)
			folds = fold.Count(rawSymbol, fidelity, radix)
		}

		divergence += float64(freq)*math.Log2(newTotal/float64(distribution[foldedSym])) + float64(folds)*float64(radix)
	}

	return divergence
}

func (b *Builder) materialize(cand *candidate) *ComponentModel {
	logFrame := uint(bits.Len(cand.frameSize) - 1)
	foldingThreshold := fold.Threshold(cand.fidelity, cand.radix)
	foldingOffset := fold.Offset(cand.fidelity, cand.radix)

	table := make([]EncoderModelEntry, len(cand.distribution))
	var cumul uint32

	for i, freq := range cand.distribution {
		table[i] = NewEncoderModelEntry(uint32(freq), cumul, logFrame)
		cumul += uint32(freq)
	}

	return &ComponentModel{
		Table:            table,
		LogFrameSize:     logFrame,
		Fidelity:         cand.fidelity,
		Radix:            cand.radix,
		FoldingThreshold: foldingThreshold,
		FoldingOffset:    foldingOffset,
	}
}

func nextPowerOfTwo(n uint) uint {
	if n == 0 {
		return 1
	}

	if n&(n-1) == 0 {
		return n
	}

	return uint(1) << bits.Len(n)
}

func ascendingNonZeroIndices(freqs []uint64) []int {
	idx := make([]int, 0, len(freqs))

	for i, f := range freqs {
		if f > 0 {
			idx = append(idx, i)
		}
	}

	slices.SortFunc(idx, func(a, b int) bool {
		return freqs[a] < freqs[b]
	})

	return idx
}
