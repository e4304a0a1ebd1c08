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

// Package estimator provides the per-symbol cost functions the two-pass
// model builder uses: a cheap bit-length estimate for the first pass,
// and an entropy-aware estimate (seeded from the first pass's model)
// for the second, so the final probability model is built from symbol
// traversal order decisions made against realistic per-symbol costs
// rather than a flat count.
package estimator

import (
	"math"
	"math/bits"

	ans "github.com/ciminilorenzo/webgraph-ans-go"
	"github.com/ciminilorenzo/webgraph-ans-go/fold"
	"github.com/ciminilorenzo/webgraph-ans-go/model"
)

// fixedPointShift is the fractional precision the Entropy cost table is
// carried at: costs are fixed-point values with 16 fractional bits, so
// that a fold tail's integral radix-bit cost can be added to a
// fractional self-information cost without losing precision.
const fixedPointShift = 16

// Estimator reports the bit cost of encoding a raw symbol under a given
// component, used to drive a BV-graph traversal's choice between
// encodings (e.g. which reference node to pick) before any probability
// model exists.
type Estimator interface {
	Cost(component ans.Component, rawSymbol uint64) uint64
}

// Log2 is the cheap first-pass estimator: cost(v) = floor(log2(v+2)),
// independent of any built model. Used to build a rough model the
// second pass can seed its own (fidelity, radix) search from.
type Log2 struct{}

// Cost returns floor(log2(rawSymbol+2)), ignoring component.
func (Log2) Cost(_ ans.Component, rawSymbol uint64) uint64 {
	return uint64(bits.Len64(rawSymbol+2) - 1)
}

// Entropy is the second-pass estimator: costs are derived from a model
// already built (typically from a first pass under Log2), giving a
// realistic bits-per-symbol figure - the symbol's self-information,
// log2(1/probability) under the model's frame, in fixed-point, plus the
// fold tail's radix-bit cost for symbols that needed folding.
type Entropy struct {
	costs  [ans.NumComponents][]uint64
	params [ans.NumComponents][2]uint // fidelity, radix per component
}

// NewEntropy builds a dense per-folded-symbol cost table from m, one
// entry per component per folded-symbol slot the component's table
// covers. Components with an empty model get an empty cost table, for
// which Cost reports zero.
func NewEntropy(m *model.EncoderModel) *Entropy {
	e := &Entropy{}

	for c := ans.Component(0); int(c) < ans.NumComponents; c++ {
		cm := m.Components[c]
		if cm.Empty() {
			continue
		}

		table := make([]uint64, len(cm.Table))
		frameSize := float64(uint64(1) << cm.LogFrameSize)

		for symbol, entry := range cm.Table {
			freq := entry.Freq
			if freq == 0 {
				freq = 1 // folded values below the component's largest one that never occurred
			}

			foldsToUnfold := fold.FoldCount(uint16(symbol), cm.FoldingThreshold, cm.FoldingOffset)

			probability := float64(freq) / frameSize
			selfInformation := -math.Log2(probability)
			shifted := uint64(math.Round(selfInformation * float64(uint64(1)<<fixedPointShift)))

			table[symbol] = shifted + foldsToUnfold*uint64(cm.Radix)*(uint64(1)<<fixedPointShift)
		}

		e.costs[c] = table
		e.params[c] = [2]uint{cm.Fidelity, cm.Radix}
	}

	return e
}

// Cost returns the fixed-point (16 fractional bits) cost of encoding
// rawSymbol under component, derived from the model Entropy was built
// from. Folds rawSymbol under the component's own (fidelity, radix)
// before indexing its cost table; a fold failure (rawSymbol exceeding
// what the component's folding parameters can represent in 16 bits), or
// a folded symbol past the end of the component's table, reports the
// maximum tabulated cost rather than panicking, since
// estimators only guide traversal choices and must never abort it.
func (e *Entropy) Cost(component ans.Component, rawSymbol uint64) uint64 {
	costs := e.costs[component]
	if len(costs) == 0 {
		return 0
	}

	fidelity, radix := e.params[component][0], e.params[component][1]

	folded, err := fold.Fold(rawSymbol, fidelity, radix)
	if err != nil || int(folded) >= len(costs) {
		var highest uint64
		for _, cost := range costs {
			if cost > highest {
				highest = cost
			}
		}

		return highest
	}

	return costs[folded]
}
