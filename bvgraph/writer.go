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

// Package bvgraph drives the streaming codec across a BV-graph
// traversal: it buffers the symbols written for one node, in the
// per-component order they're produced, and drains those buffers in
// reverse (LIFO) order into the shared rANS encoder the instant the
// next node starts - the arrangement that lets a single forward
// traversal of the graph produce a stream a decoder can walk back to
// front.
package bvgraph

import (
	ans "github.com/ciminilorenzo/webgraph-ans-go"
	"github.com/ciminilorenzo/webgraph-ans-go/estimator"
	"github.com/ciminilorenzo/webgraph-ans-go/model"
	"github.com/ciminilorenzo/webgraph-ans-go/rans"
)

// ModelBuilder is the first-stage writer a BV-graph traversal feeds
// while no probability model exists yet: every written symbol is both
// pushed into the underlying model.Builder (so a model can eventually
// be built from it) and costed against an Estimator, so the traversal
// itself can make encoding choices - e.g. which reference node
// minimizes total bits - before any real frequencies are known.
type ModelBuilder struct {
	builder   *model.Builder
	estimator estimator.Estimator
}

// NewModelBuilder creates a ModelBuilder that accumulates symbols
// under cfg and costs them against est. Pass an estimator.Log2{} for a
// first pass with no model yet, or an *estimator.Entropy seeded from a
// first pass's model for a cost-aware second pass.
func NewModelBuilder(cfg model.Config, est estimator.Estimator) *ModelBuilder {
	return &ModelBuilder{
		builder:   model.NewBuilder(cfg),
		estimator: est,
	}
}

// Write pushes value for component into the accumulating model and
// returns its estimated bit cost under est.
func (b *ModelBuilder) Write(component ans.Component, value uint64) (uint64, error) {
	if err := b.builder.Push(value, component); err != nil {
		return 0, err
	}

	return b.estimator.Cost(component, value), nil
}

// Build finalizes the probability model from every symbol pushed so
// far. See model.Builder.Build.
func (b *ModelBuilder) Build() (*model.EncoderModel, error) {
	return b.builder.Build()
}

// Writer is the second-stage writer: it drives a rans.Encoder across a
// BV-graph traversal once a probability model has been built. Symbols
// for the node currently being visited are buffered per component;
// the moment WriteOutdegree starts a new node, the previous node's
// buffers are drained into the encoder in the exact reverse of
// write order, and a Phase checkpoint is recorded for that node
// boundary.
//
// A single Writer must be used for an entire graph: the rANS state it
// wraps is shared across every node, which is what makes the stream
// interleaved rather than nine independent streams.
type Writer struct {
	data       [ans.NumComponents][]uint64
	encoder    *rans.Encoder
	phases     []rans.Phase
	currNode   int
	hasCurrent bool
}

// NewWriter creates a Writer that encodes against model m.
func NewWriter(m *model.EncoderModel) *Writer {
	return &Writer{encoder: rans.NewEncoder(m), currNode: -1}
}

// WriteOutdegree starts a new node: it first drains the previous
// node's buffers (if any) into the encoder and records a Phase
// checkpoint, then begins buffering the new node under value.
func (w *Writer) WriteOutdegree(value uint64) error {
	if w.hasCurrent {
		if err := w.drainNode(); err != nil {
			return err
		}

		w.phases = append(w.phases, w.encoder.Phase())
	}

	w.currNode++
	w.hasCurrent = true

	for c := range w.data {
		w.data[c] = w.data[c][:0]
	}

	w.data[ans.Outdegree] = append(w.data[ans.Outdegree], value)
	return nil
}

// WriteReferenceOffset buffers value for the node currently being
// written.
func (w *Writer) WriteReferenceOffset(value uint64) {
	w.data[ans.ReferenceOffset] = append(w.data[ans.ReferenceOffset], value)
}

// WriteBlockCount buffers value for the node currently being written.
func (w *Writer) WriteBlockCount(value uint64) {
	w.data[ans.BlockCount] = append(w.data[ans.BlockCount], value)
}

// WriteBlocks buffers value for the node currently being written.
func (w *Writer) WriteBlocks(value uint64) {
	w.data[ans.Blocks] = append(w.data[ans.Blocks], value)
}

// WriteIntervalCount buffers value for the node currently being
// written.
func (w *Writer) WriteIntervalCount(value uint64) {
	w.data[ans.IntervalCount] = append(w.data[ans.IntervalCount], value)
}

// WriteIntervalStart buffers value for the node currently being
// written. Must be paired one-for-one with WriteIntervalLen: the two
// buffers are drained together, interval by interval.
func (w *Writer) WriteIntervalStart(value uint64) {
	w.data[ans.IntervalStart] = append(w.data[ans.IntervalStart], value)
}

// WriteIntervalLen buffers value for the node currently being written.
func (w *Writer) WriteIntervalLen(value uint64) {
	w.data[ans.IntervalLen] = append(w.data[ans.IntervalLen], value)
}

// WriteFirstResidual buffers value for the node currently being
// written.
func (w *Writer) WriteFirstResidual(value uint64) {
	w.data[ans.FirstResidual] = append(w.data[ans.FirstResidual], value)
}

// WriteResidual buffers value for the node currently being written.
func (w *Writer) WriteResidual(value uint64) {
	w.data[ans.Residual] = append(w.data[ans.Residual], value)
}

// drainNode encodes the current node's buffered symbols in the exact
// reverse of the order they were written, component group by
// component group, so that decoding replays them forwards:
//
//  1. Residual, then FirstResidual (each buffer reversed)
//  2. IntervalLen/IntervalStart pairs, interval index descending
//  3. IntervalCount, Blocks, BlockCount, ReferenceOffset, Outdegree
//     (each buffer reversed)
func (w *Writer) drainNode() error {
	for c := ans.Residual; c >= ans.FirstResidual; c-- {
		if err := w.encodeReversed(c); err != nil {
			return err
		}
	}

	starts := w.data[ans.IntervalStart]
	lens := w.data[ans.IntervalLen]

	for i := len(starts) - 1; i >= 0; i-- {
		if err := w.encoder.Encode(lens[i], ans.IntervalLen); err != nil {
			return err
		}

		if err := w.encoder.Encode(starts[i], ans.IntervalStart); err != nil {
			return err
		}
	}

	for c := ans.IntervalCount; ; c-- {
		if err := w.encodeReversed(c); err != nil {
			return err
		}

		if c == ans.Outdegree {
			break
		}
	}

	return nil
}

func (w *Writer) encodeReversed(c ans.Component) error {
	symbols := w.data[c]

	for i := len(symbols) - 1; i >= 0; i-- {
		if err := w.encoder.Encode(symbols[i], c); err != nil {
			return err
		}
	}

	return nil
}

// Flush drains the last node's buffers (there is no following
// WriteOutdegree call to trigger it) and records its Phase. Must be
// called exactly once, after the last node has been written.
func (w *Writer) Flush() error {
	if !w.hasCurrent {
		return nil
	}

	if err := w.drainNode(); err != nil {
		return err
	}

	w.phases = append(w.phases, w.encoder.Phase())
	w.hasCurrent = false
	return nil
}

// Encoder returns the underlying rans.Encoder, for callers that need
// its final State/Normalized buffer once writing is done.
func (w *Writer) Encoder() *rans.Encoder { return w.encoder }

// Phases returns one Phase per node written so far, in node order.
// Feeding these into index.BuildPointerIndex/index.NewStateArray
// gives random access into the stream by node id.
func (w *Writer) Phases() []rans.Phase { return w.phases }

// CurrentNode returns the id of the node currently being written, or
// -1 before the first call to WriteOutdegree.
func (w *Writer) CurrentNode() int { return w.currNode }

// EstimateCurrentNodeBits sums est's per-symbol cost over every
// component buffered for the node currently being written, without
// draining or mutating anything. Lets a traversal choosing between
// candidate encodings (e.g. two reference nodes) compare their cost
// before committing to one via the Write* methods.
func (w *Writer) EstimateCurrentNodeBits(est estimator.Estimator) uint64 {
	var total uint64

	for c := ans.Component(0); int(c) < ans.NumComponents; c++ {
		for _, symbol := range w.data[c] {
			total += est.Cost(c, symbol)
		}
	}

	return total
}
