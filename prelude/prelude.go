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

// Package prelude serialises the graph-level metadata, the nine
// per-component models and the renormalised word stream a rans.Encoder
// produced into the single self-describing artifact a rans.Decoder (or
// the index package's random-access structures) is built from.
package prelude

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dchest/siphash"
	"github.com/google/uuid"

	ans "github.com/ciminilorenzo/webgraph-ans-go"
	"github.com/ciminilorenzo/webgraph-ans-go/model"
)

// checksumKey is the fixed SipHash-2-4 key used to checksum a prelude
// body. It is not a secret: the checksum only needs to catch accidental
// corruption (truncated files, bit flips), not adversarial tampering.
const checksumKey0, checksumKey1 uint64 = 0, 0x616e735f70726566

// Header carries the graph-level metadata a random-access reader needs
// before it can even look at the per-component models.
type Header struct {
	ArtifactID        uuid.UUID
	NumberOfNodes     uint64
	NumberOfArcs      uint64
	CompressionWindow uint64
	MaxRefCount       uint64
	MinIntervalLength uint64
}

// Prelude is the complete serialisable state of a finished encoding
// pass: everything a decoder needs except the per-node stream-pointer
// index (package index), which is serialised separately since it is
// keyed by node count rather than by component.
type Prelude struct {
	Header     Header
	Model      *model.EncoderModel
	Normalized []uint32
	FinalState uint64
}

// Flush assembles a Prelude from a finished encoder's model, normalised
// word stream and final state, stamping a fresh random ArtifactID.
func Flush(m *model.EncoderModel, normalized []uint32, finalState uint64, numNodes, numArcs, compressionWindow, maxRefCount, minIntervalLength uint64) *Prelude {
	return &Prelude{
		Header: Header{
			ArtifactID:        uuid.New(),
			NumberOfNodes:     numNodes,
			NumberOfArcs:      numArcs,
			CompressionWindow: compressionWindow,
			MaxRefCount:       maxRefCount,
			MinIntervalLength: minIntervalLength,
		},
		Model:      m,
		Normalized: normalized,
		FinalState: finalState,
	}
}

// Marshal serialises p into a checksummed byte stream: an 8-byte
// SipHash-2-4 digest of the body followed by the body itself.
func (p *Prelude) Marshal() ([]byte, error) {
	var body bytes.Buffer

	if err := p.marshalBody(&body); err != nil {
		return nil, fmt.Errorf("ans/prelude: marshal: %w", err)
	}

	checksum := siphash.Hash(checksumKey0, checksumKey1, body.Bytes())

	out := make([]byte, 8+body.Len())
	binary.LittleEndian.PutUint64(out, checksum)
	copy(out[8:], body.Bytes())

	return out, nil
}

// Unmarshal parses a byte stream produced by Marshal, verifying its
// checksum first. Returns *ans.CorruptPreludeError on any structural or
// checksum failure.
func Unmarshal(data []byte) (*Prelude, error) {
	if len(data) < 8 {
		return nil, &ans.CorruptPreludeError{Reason: "truncated: shorter than checksum header"}
	}

	wantChecksum := binary.LittleEndian.Uint64(data[:8])
	body := data[8:]
	gotChecksum := siphash.Hash(checksumKey0, checksumKey1, body)

	if gotChecksum != wantChecksum {
		return nil, &ans.CorruptPreludeError{Reason: "checksum mismatch"}
	}

	p := &Prelude{}
	if err := p.unmarshalBody(bytes.NewReader(body)); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Prelude) marshalBody(w *bytes.Buffer) error {
	idBytes, err := p.Header.ArtifactID.MarshalBinary()
	if err != nil {
		return err
	}

	w.Write(idBytes)

	for _, v := range []uint64{
		p.Header.NumberOfNodes,
		p.Header.NumberOfArcs,
		p.Header.CompressionWindow,
		p.Header.MaxRefCount,
		p.Header.MinIntervalLength,
		p.FinalState,
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(p.Normalized))); err != nil {
		return err
	}

	for _, word := range p.Normalized {
		if err := binary.Write(w, binary.LittleEndian, word); err != nil {
			return err
		}
	}

	for c := 0; c < ans.NumComponents; c++ {
		if err := marshalComponent(w, &p.Model.Components[c]); err != nil {
			return err
		}
	}

	return nil
}

func marshalComponent(w *bytes.Buffer, cm *model.ComponentModel) error {
	for _, v := range []uint64{
		uint64(cm.LogFrameSize),
		uint64(cm.Fidelity),
		uint64(cm.Radix),
		cm.FoldingThreshold,
		cm.FoldingOffset,
		uint64(len(cm.Table)),
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	for _, entry := range cm.Table {
		if err := binary.Write(w, binary.LittleEndian, entry.Freq); err != nil {
			return err
		}

		if err := binary.Write(w, binary.LittleEndian, entry.CumulFreq); err != nil {
			return err
		}

		if err := binary.Write(w, binary.LittleEndian, entry.UpperBound); err != nil {
			return err
		}
	}

	return nil
}

func (p *Prelude) unmarshalBody(r *bytes.Reader) error {
	idBytes := make([]byte, 16)
	if _, err := io.ReadFull(r, idBytes); err != nil {
		return &ans.CorruptPreludeError{Reason: "truncated artifact id"}
	}

	if err := p.Header.ArtifactID.UnmarshalBinary(idBytes); err != nil {
		return &ans.CorruptPreludeError{Reason: "malformed artifact id"}
	}

	fields := []*uint64{
		&p.Header.NumberOfNodes,
		&p.Header.NumberOfArcs,
		&p.Header.CompressionWindow,
		&p.Header.MaxRefCount,
		&p.Header.MinIntervalLength,
		&p.FinalState,
	}

	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return &ans.CorruptPreludeError{Reason: "truncated header field"}
		}
	}

	var normalizedLen uint64
	if err := binary.Read(r, binary.LittleEndian, &normalizedLen); err != nil {
		return &ans.CorruptPreludeError{Reason: "truncated normalized length"}
	}

	p.Normalized = make([]uint32, normalizedLen)
	for i := range p.Normalized {
		if err := binary.Read(r, binary.LittleEndian, &p.Normalized[i]); err != nil {
			return &ans.CorruptPreludeError{Reason: "truncated normalized word stream"}
		}
	}

	p.Model = &model.EncoderModel{}

	for c := 0; c < ans.NumComponents; c++ {
		cm, err := unmarshalComponent(r)
		if err != nil {
			return err
		}

		p.Model.Components[c] = *cm
	}

	return nil
}

func unmarshalComponent(r *bytes.Reader) (*model.ComponentModel, error) {
	var logFrame, fidelity, radix, threshold, offset, tableLen uint64

	for _, f := range []*uint64{&logFrame, &fidelity, &radix, &threshold, &offset, &tableLen} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, &ans.CorruptPreludeError{Reason: "truncated component header"}
		}
	}

	var table []model.EncoderModelEntry
	if tableLen > 0 {
		table = make([]model.EncoderModelEntry, tableLen)
	}

	cm := &model.ComponentModel{
		LogFrameSize:     uint(logFrame),
		Fidelity:         uint(fidelity),
		Radix:            uint(radix),
		FoldingThreshold: threshold,
		FoldingOffset:    offset,
		Table:            table,
	}

	if logFrame > uint64(ans.MaxLogFrame) {
		return nil, &ans.CorruptPreludeError{Reason: fmt.Sprintf("log_frame %d exceeds the maximum %d", logFrame, ans.MaxLogFrame)}
	}

	for i := range cm.Table {
		var e model.EncoderModelEntry

		if err := binary.Read(r, binary.LittleEndian, &e.Freq); err != nil {
			return nil, &ans.CorruptPreludeError{Reason: "truncated table entry"}
		}

		if err := binary.Read(r, binary.LittleEndian, &e.CumulFreq); err != nil {
			return nil, &ans.CorruptPreludeError{Reason: "truncated table entry"}
		}

		if err := binary.Read(r, binary.LittleEndian, &e.UpperBound); err != nil {
			return nil, &ans.CorruptPreludeError{Reason: "truncated table entry"}
		}

		e.Recip = model.NewDivider(e.Freq)
		cm.Table[i] = e
	}

	// A non-empty table must describe a full frame: cumulative
	// frequencies advance entry by entry and the frequencies sum to
	// exactly 2^log_frame, or every decoder built from this model would
	// index garbage slots.
	if len(cm.Table) > 0 {
		var cumul uint64

		for i := range cm.Table {
			if uint64(cm.Table[i].CumulFreq) != cumul {
				return nil, &ans.CorruptPreludeError{Reason: fmt.Sprintf("cumulative frequency of entry %d is %d, want %d", i, cm.Table[i].CumulFreq, cumul)}
			}

			cumul += uint64(cm.Table[i].Freq)
		}

		if cumul != uint64(1)<<logFrame {
			return nil, &ans.CorruptPreludeError{Reason: fmt.Sprintf("frequencies sum to %d, want frame size %d", cumul, uint64(1)<<logFrame)}
		}
	}

	return cm, nil
}
