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
	ans "github.com/ciminilorenzo/webgraph-ans-go"
	"github.com/ciminilorenzo/webgraph-ans-go/model"
)

// LowerBound is the fixed renormalisation floor every component shares,
// regardless of its own frame size: the state register is kept in
// [LowerBound, LowerBound<<32) at all times between symbol decodes.
const LowerBound uint64 = 1 << 32

// Decoder is the streaming rANS decoder counterpart to Encoder. It
// consumes the same normalised word stream the encoder produced, but
// walks it backwards (decreasing StreamPointer), so it must be seeded
// with the encoder's final state and full word count to decode symbols
// back out in their original encoding order - or with an intermediate
// Phase to start decoding from an arbitrary point (random access).
type Decoder struct {
	model      *model.DecoderModel
	normalized []uint32
	state      uint64
	pointer    int
}

// NewDecoder seeds a Decoder at the end of the stream: the state and
// normalised word slice an Encoder produced after encoding every
// symbol. The first Decode call returns the last symbol that was
// encoded.
func NewDecoder(dm *model.DecoderModel, normalized []uint32, finalState uint64) *Decoder {
	return &Decoder{
		model:      dm,
		normalized: normalized,
		state:      finalState,
		pointer:    len(normalized),
	}
}

// FromPhase seeds a Decoder from a previously captured Phase, sharing
// the same normalised word slice an Encoder produced. Decoding starts
// at whatever symbol was current when the Phase was captured.
func FromPhase(dm *model.DecoderModel, normalized []uint32, phase Phase) *Decoder {
	return &Decoder{
		model:      dm,
		normalized: normalized,
		state:      phase.State,
		pointer:    phase.StreamPointer,
	}
}

// Decode returns the next raw symbol for component, in the reverse of
// the order Encoder.Encode originally consumed them.
func (d *Decoder) Decode(component ans.Component) (uint64, error) {
	frameMask := d.model.FrameMask(component)
	logFrame := d.model.LogFrameSize(component)
	radix := uint64(d.model.Radix(component))

	slot := d.state & frameMask
	entry := d.model.Symbol(component, slot)

	d.state = (d.state>>logFrame)*uint64(entry.Freq) + slot - uint64(entry.CumulFreq)

	if d.state < LowerBound {
		if err := d.extendState(); err != nil {
			return 0, err
		}
	}

	quasiUnfolded, folds := model.QuasiUnfold(entry.QuasiFolded)

	var foldBits uint64

	for i := uint32(0); i < folds; i++ {
		if d.state < LowerBound {
			if err := d.extendState(); err != nil {
				return 0, err
			}
		}

		foldBits = (foldBits << radix) | (d.state & ((uint64(1) << radix) - 1))
		d.state >>= radix

		if d.state < LowerBound {
			if err := d.extendState(); err != nil {
				return 0, err
			}
		}
	}

	return quasiUnfolded | foldBits, nil
}

// extendState pulls the next (walking backwards) normalised 32-bit word
// into the low bits of the state register.
func (d *Decoder) extendState() error {
	if d.pointer == 0 {
		return ans.ErrStreamUnderflow
	}

	d.pointer--
	word := d.normalized[d.pointer]
	d.state = (d.state << model.LogBlockBits) | uint64(word)
	return nil
}

// Phase returns a checkpoint of the decoder's current position,
// equivalent to the Phase an Encoder captured right after encoding the
// symbol this Decoder is about to return next.
func (d *Decoder) Phase() Phase {
	return Phase{State: d.state, StreamPointer: d.pointer}
}
