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

// Package model builds and represents the per-component probability
// models the streaming codec encodes/decodes against: the frame
// approximator that picks a (fidelity, radix, frame size) triple per
// component from pushed raw symbols, and the dense encoder/decoder
// tables derived from the accepted frequency distribution.
package model

import (
	ans "github.com/ciminilorenzo/webgraph-ans-go"
)

// Theta is the multiplicative tolerance staircase the frame approximator
// walks, from tightest to loosest: the bigger the factor, the more the
// approximated distribution may diverge from the real one, trading
// accuracy for a smaller frame (less memory, faster codec throughput).
var Theta = [6]float64{1.001, 1.003, 1.005, 1.01, 1.02, 1.05}

// LogBlockBits is the renormalisation unit width (LOG2_B): the number of
// bits shed from, or restored to, the shared state register on each
// renormalisation step.
const LogBlockBits = 32

// Config is the immutable tuning surface for Builder.Build: the Theta
// staircase and the folding-parameter search space. Round-tripped
// on disk by package config.
type Config struct {
	Theta        []float64
	FrameCeiling uint
	SearchSpace  [][2]uint // (fidelity, radix) pairs, descending by sum
}

// DefaultConfig returns the configuration this codec ships with: the
// canonical Theta staircase, the frame-size ceiling of 2^15, and the
// full (fidelity, radix) search space with fidelity+radix in [4, 11].
func DefaultConfig() Config {
	theta := make([]float64, len(Theta))
	copy(theta, Theta[:])

	return Config{
		Theta:        theta,
		FrameCeiling: 1 << 15,
		SearchSpace:  FoldingParams(),
	}
}

// FoldingParams enumerates every (fidelity, radix) pair with both values
// in [1, 10] and fidelity+radix in [4, 11], sorted in descending order
// of fidelity+radix so the search tries the most expressive (largest)
// combinations first.
func FoldingParams() [][2]uint {
	var pairs [][2]uint

	for fidelity := uint(1); fidelity <= 10; fidelity++ {
		for radix := uint(1); radix <= 10; radix++ {
			if fidelity+radix < 4 || fidelity+radix > 11 {
				continue
			}

			pairs = append(pairs, [2]uint{fidelity, radix})
		}
	}

	// Insertion sort by descending sum; the search space is small (at
	// most a few dozen pairs) so this stays simple and stable.
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0; j-- {
			if sum(pairs[j]) > sum(pairs[j-1]) {
				pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
			} else {
				break
			}
		}
	}

	return pairs
}

func sum(p [2]uint) uint { return p[0] + p[1] }

// EncoderModelEntry is the per-folded-symbol data the streaming encoder
// needs: its frequency, cumulative frequency within the frame, the
// precomputed upper bound past which the state must be renormalised
// before encoding this symbol, and the precomputed reciprocal the rANS
// step divides the state register by instead of a hardware division.
type EncoderModelEntry struct {
	Freq       uint32
	CumulFreq  uint32
	UpperBound uint64
	Recip      Divider
}

// NewEncoderModelEntry computes UpperBound from freq and k = LogBlockBits -
// logFrame (or LogBlockBits-1 when logFrame is 0, keeping a degenerate
// one-slot frame's bound meaningful), plus the fast divisor for freq.
func NewEncoderModelEntry(freq, cumulFreq uint32, logFrame uint) EncoderModelEntry {
	k := LogBlockBits - logFrame
	if logFrame == 0 {
		k = LogBlockBits - 1
	}

	return EncoderModelEntry{
		Freq:       freq,
		CumulFreq:  cumulFreq,
		UpperBound: (uint64(1) << (k + LogBlockBits)) * uint64(freq),
		Recip:      NewDivider(freq),
	}
}

// ComponentModel is the accepted probability model for one BV-graph
// component: a dense table indexed by folded symbol, plus the folding
// parameters (fidelity, radix, threshold, offset) it was built under.
type ComponentModel struct {
	Table            []EncoderModelEntry
	LogFrameSize     uint
	Fidelity         uint
	Radix            uint
	FoldingThreshold uint64
	FoldingOffset    uint64
}

// Empty reports whether this component never received a pushed symbol
// (e.g. a dummy graph with no instances of some component); such models
// carry a nil table and are never consulted by the streaming codec.
func (m ComponentModel) Empty() bool {
	return len(m.Table) == 0
}

// EncoderModel bundles one ComponentModel per BV-graph component, built
// together by Builder.Build so every component's frame and folding
// parameters are available from a single value passed to rans.Encoder.
type EncoderModel struct {
	Components [ans.NumComponents]ComponentModel
}

// FrameMask returns (1<<logFrame)-1 for the given component, the mask
// the streaming codec applies to its state register to pick a frame
// slot.
func (m *EncoderModel) FrameMask(c ans.Component) uint64 {
	return (uint64(1) << m.Components[c].LogFrameSize) - 1
}

// LogFrameSize returns log2(M) for the given component.
func (m *EncoderModel) LogFrameSize(c ans.Component) uint {
	return m.Components[c].LogFrameSize
}

// Fidelity returns the folding fidelity chosen for the given component.
func (m *EncoderModel) Fidelity(c ans.Component) uint {
	return m.Components[c].Fidelity
}

// Radix returns the folding radix chosen for the given component.
func (m *EncoderModel) Radix(c ans.Component) uint {
	return m.Components[c].Radix
}

// FoldingThreshold returns the folding threshold for the given component.
func (m *EncoderModel) FoldingThreshold(c ans.Component) uint64 {
	return m.Components[c].FoldingThreshold
}

// FoldingOffset returns the folding offset for the given component.
func (m *EncoderModel) FoldingOffset(c ans.Component) uint64 {
	return m.Components[c].FoldingOffset
}

// Symbol returns the encoder entry for a folded symbol under the given
// component.
func (m *EncoderModel) Symbol(c ans.Component, foldedSymbol uint16) *EncoderModelEntry {
	return &m.Components[c].Table[foldedSymbol]
}
