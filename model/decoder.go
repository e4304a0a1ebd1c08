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

import ans "github.com/ciminilorenzo/webgraph-ans-go"

// bitsReservedForSymbol is the width of the quasi-folded reconstruction
// key's low field (the pre-shifted high bits of the original raw
// symbol); the remaining high bits of the 64-bit key hold the fold
// count. 48 bits covers MaxRawSymbol exactly.
const bitsReservedForSymbol = 48

// DecoderModelEntry is one dense-table slot: the frequency and
// cumulative frequency of the symbol occupying this frame slot (shared
// across every slot the symbol covers), plus its quasi-folded
// reconstruction key.
type DecoderModelEntry struct {
	Freq        uint32
	CumulFreq   uint32
	QuasiFolded uint64
}

// DecoderModel is the inverted form of EncoderModel: for each component,
// a table with one entry per frame slot (not per symbol), so decoding a
// state's low bits is a single indexed lookup instead of a cumulative
// frequency search.
type DecoderModel struct {
	Frames        [ans.NumComponents][]DecoderModelEntry
	LogFrameSizes [ans.NumComponents]uint
	Radices       [ans.NumComponents]uint
}

// NewDecoderModel expands enc's per-symbol tables into dense
// per-slot frames.
func NewDecoderModel(enc *EncoderModel) *DecoderModel {
	dm := &DecoderModel{}

	for c := ans.Component(0); int(c) < ans.NumComponents; c++ {
		cm := enc.Components[c]
		if cm.Empty() {
			continue
		}

		dm.LogFrameSizes[c] = cm.LogFrameSize
		dm.Radices[c] = cm.Radix

		frame := make([]DecoderModelEntry, uint64(1)<<cm.LogFrameSize)
		var lastSlot uint32

		for symbol, entry := range cm.Table {
			if entry.Freq == 0 {
				continue
			}

			qf := quasiFold(uint16(symbol), cm.FoldingThreshold, cm.FoldingOffset, cm.Radix)

			for slot := lastSlot; slot < lastSlot+entry.Freq; slot++ {
				frame[slot] = DecoderModelEntry{
					Freq:        entry.Freq,
					CumulFreq:   entry.CumulFreq,
					QuasiFolded: qf,
				}
			}

			lastSlot += entry.Freq
		}

		dm.Frames[c] = frame
	}

	return dm
}

// FrameMask returns (1<<logFrame)-1 for the given component.
func (dm *DecoderModel) FrameMask(c ans.Component) uint64 {
	return (uint64(1) << dm.LogFrameSizes[c]) - 1
}

// LogFrameSize returns log2(M) for the given component.
func (dm *DecoderModel) LogFrameSize(c ans.Component) uint {
	return dm.LogFrameSizes[c]
}

// Radix returns the folding radix for the given component.
func (dm *DecoderModel) Radix(c ans.Component) uint {
	return dm.Radices[c]
}

// Symbol returns the dense-table entry for the frame slot under the
// given component.
func (dm *DecoderModel) Symbol(c ans.Component, slot uint64) *DecoderModelEntry {
	return &dm.Frames[c][slot]
}

// quasiFold packs a folded symbol, its folding threshold/offset and its
// radix into the 64-bit reconstruction key the decoder pulls apart via
// QuasiUnfold: the high 16 bits hold the fold count, the low 48 bits
// hold sym's unfolded high part pre-shifted left by foldCount*radix
// bits, ready to be OR-ed with the bits the decoder reads back off the
// state register.
func quasiFold(sym uint16, foldingThreshold, foldingOffset uint64, radix uint) uint64 {
	if uint64(sym) < foldingThreshold {
		return uint64(sym)
	}

	symbol := uint64(sym)
	folds := (symbol-foldingThreshold)/foldingOffset + 1
	foldsBits := folds << bitsReservedForSymbol

	symbol -= foldingOffset * folds
	symbol <<= folds * uint64(radix)

	return symbol | foldsBits
}

// QuasiUnfold splits a quasi-folded reconstruction key back into the
// pre-shifted high bits of the raw symbol and its fold count.
func QuasiUnfold(quasiFolded uint64) (uint64, uint32) {
	symbol := quasiFolded & ((uint64(1) << bitsReservedForSymbol) - 1)
	folds := quasiFolded >> bitsReservedForSymbol
	return symbol, uint32(folds)
}
