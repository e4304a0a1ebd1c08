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

package rans

import (
	"math/bits"

	ans "github.com/ciminilorenzo/webgraph-ans-go"
	"github.com/ciminilorenzo/webgraph-ans-go/fold"
	"github.com/ciminilorenzo/webgraph-ans-go/model"
)

// normalizationMask extracts the 32 LSBs shed from the state register
// during renormalisation.
const normalizationMask uint64 = 0xFFFFFFFF

// initialState is the register value a fresh Encoder starts from: the
// fixed point 1<<32 every phase's state is measured relative to.
const initialState uint64 = 1 << 32

// Encoder is the streaming rANS encoder for all nine BV-graph
// components. A single Encoder instance must be used for every
// component belonging to the same graph, since the state register is
// shared: this is what implements the "interleaved" part of the codec.
type Encoder struct {
	model      *model.EncoderModel
	state      uint64
	normalized []uint32
}

// NewEncoder creates an Encoder against m, ready to encode the first
// symbol of the stream.
func NewEncoder(m *model.EncoderModel) *Encoder {
	return &Encoder{model: m, state: initialState}
}

// Encode folds rawSymbol under component's folding parameters (pushing
// any stripped bits directly into the shared state register, spilling
// to the normalised word buffer only when the register has no spare
// high bits left) and then performs the core rANS encoding step against
// component's model.
//
// Symbols must be encoded in the reverse of the order they are to be
// decoded in: a LIFO discipline the caller (draining each node's
// buffered component values on node boundary) is responsible for.
func (e *Encoder) Encode(rawSymbol uint64, component ans.Component) error {
	if rawSymbol > ans.MaxRawSymbol {
		return &ans.SymbolOutOfRangeError{Symbol: rawSymbol, Component: component}
	}

	cm := &e.model.Components[component]
	radix := cm.Radix

	if rawSymbol >= cm.FoldingThreshold {
		folds := fold.Count(rawSymbol, cm.Fidelity, radix)

		for i := 0; i < folds; i++ {
			bitsToPush := rawSymbol & ((uint64(1) << radix) - 1)

			if uint64(bits.LeadingZeros64(e.state)) >= uint64(radix) {
				e.state <<= radix
				e.state += bitsToPush
			} else {
				e.state = e.shrinkState()
				e.state <<= radix
				e.state += bitsToPush
			}

			rawSymbol >>= radix
		}

		rawSymbol += cm.FoldingOffset * uint64(folds)
	}

	entry := e.model.Symbol(component, uint16(rawSymbol))

	if e.state >= entry.UpperBound {
		e.state = e.shrinkState()
	}

	block := entry.Recip.Div(e.state)
	e.state = (block << cm.LogFrameSize) + uint64(entry.CumulFreq) + (e.state - block*uint64(entry.Freq))

	return nil
}

// shrinkState pushes the low 32 bits of state onto the normalised word
// buffer and returns state shifted right by those 32 bits.
func (e *Encoder) shrinkState() uint64 {
	lsb := uint32(e.state & normalizationMask)
	e.normalized = append(e.normalized, lsb)
	return e.state >> model.LogBlockBits
}

// State returns the encoder's current register value.
func (e *Encoder) State() uint64 { return e.state }

// Normalized returns the renormalised 32-bit word stream emitted so
// far, in emission order. The returned slice is shared with the
// encoder's internal buffer and must not be mutated.
func (e *Encoder) Normalized() []uint32 { return e.normalized }

// Phase returns a checkpoint of the encoder's current position: the
// register value and how many normalised words have been emitted so
// far. Decoding from this Phase will decode the next symbol this
// Encoder would decode to, i.e. the last symbol encoded.
func (e *Encoder) Phase() Phase {
	return Phase{State: e.state, StreamPointer: len(e.normalized)}
}
