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

// Package codec assembles the two-pass model-building pipeline, the
// streaming encode pass and the random-access structures a finished
// encoding needs into single entry points, so a caller walking a graph
// only has to implement one traversal closure and hand it to Build and
// Encode. It performs no file or network I/O of its own: callers own
// persistence (e.g. via package prelude's Marshal/Unmarshal) and the
// actual graph representation.
package codec

import (
	"fmt"

	"github.com/ciminilorenzo/webgraph-ans-go/bvgraph"
	"github.com/ciminilorenzo/webgraph-ans-go/estimator"
	"github.com/ciminilorenzo/webgraph-ans-go/index"
	"github.com/ciminilorenzo/webgraph-ans-go/model"
	"github.com/ciminilorenzo/webgraph-ans-go/prelude"
	"github.com/ciminilorenzo/webgraph-ans-go/rans"
)

// GraphStats carries the graph-level metadata the prelude header
// records alongside the per-component models: node/arc counts and the
// BV-graph encoding parameters a decoder needs to reconstruct adjacency
// lists from the decoded symbol streams.
type GraphStats struct {
	NumNodes          uint64
	NumArcs           uint64
	CompressionWindow uint64
	MaxRefCount       uint64
	MinIntervalLength uint64
}

// ModelTraversal is implemented by the caller: given a cost-reporting
// writer, walk every node of the graph exactly once, writing each
// symbol through w in the same order every time this traversal runs
// (Build invokes it twice), and return the graph's metadata. Returning
// the cost bvgraph.ModelBuilder.Write reports for each written symbol
// lets the traversal make cost-aware encoding choices (e.g. which
// reference node to prefer) once it's passed an estimator.Entropy on
// the second pass.
type ModelTraversal func(w *bvgraph.ModelBuilder) (GraphStats, error)

// Build runs the two-pass probability model construction pipeline: a
// first pass under the cheap estimator.Log2 (no model exists yet),
// then a second pass under an estimator.Entropy seeded from the first
// pass's model, producing the final EncoderModel the second pass's
// traversal decisions were actually costed against.
func Build(cfg model.Config, traverse ModelTraversal) (*model.EncoderModel, GraphStats, error) {
	firstPass := bvgraph.NewModelBuilder(cfg, estimator.Log2{})

	if _, err := traverse(firstPass); err != nil {
		return nil, GraphStats{}, fmt.Errorf("ans/codec: first pass: %w", err)
	}

	firstModel, err := firstPass.Build()
	if err != nil {
		return nil, GraphStats{}, fmt.Errorf("ans/codec: first pass model: %w", err)
	}

	secondPass := bvgraph.NewModelBuilder(cfg, estimator.NewEntropy(firstModel))

	stats, err := traverse(secondPass)
	if err != nil {
		return nil, GraphStats{}, fmt.Errorf("ans/codec: second pass: %w", err)
	}

	finalModel, err := secondPass.Build()
	if err != nil {
		return nil, GraphStats{}, fmt.Errorf("ans/codec: second pass model: %w", err)
	}

	return finalModel, stats, nil
}

// EncodeTraversal is implemented by the caller like ModelTraversal, but
// against a committing bvgraph.Writer: every Write* call here actually
// advances the shared rANS state once its node's buffer drains.
type EncodeTraversal func(w *bvgraph.Writer) error

// EncodedGraph is everything Encode produces: the self-describing
// Prelude (model, renormalised stream, header) plus the two
// random-access structures keyed by node id - Pointers (the
// monotone stream-pointer sequence) and States (the non-monotone
// register values), together letting NewNodeDecoder seed a Decoder at
// any node without replaying the stream from the start.
type EncodedGraph struct {
	Prelude  *prelude.Prelude
	Pointers *index.PointerIndex
	States   *index.StateArray
}

// Encode drives traverse against a fresh bvgraph.Writer under m, then
// assembles the finished Prelude and the node-indexed random-access
// structures from the Phase checkpoints the Writer recorded.
func Encode(m *model.EncoderModel, stats GraphStats, traverse EncodeTraversal) (*EncodedGraph, error) {
	w := bvgraph.NewWriter(m)

	if err := traverse(w); err != nil {
		return nil, fmt.Errorf("ans/codec: encode: %w", err)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("ans/codec: flush: %w", err)
	}

	phases := w.Phases()
	pointers := make([]uint64, len(phases))
	states := make([]uint64, len(phases))

	for i, phase := range phases {
		pointers[i] = uint64(phase.StreamPointer)
		states[i] = phase.State
	}

	p := prelude.Flush(m, w.Encoder().Normalized(), w.Encoder().State(),
		stats.NumNodes, stats.NumArcs, stats.CompressionWindow, stats.MaxRefCount, stats.MinIntervalLength)

	return &EncodedGraph{
		Prelude:  p,
		Pointers: index.BuildPointerIndex(pointers),
		States:   index.NewStateArray(states),
	}, nil
}

// NewNodeDecoder seeds a rans.Decoder to decode nodeID's symbols,
// using g's random-access structures to jump directly to that node's
// Phase rather than replaying the stream from the end.
func NewNodeDecoder(g *EncodedGraph, nodeID int) *rans.Decoder {
	dm := model.NewDecoderModel(g.Prelude.Model)
	phase := rans.Phase{
		State:         g.States.Get(nodeID),
		StreamPointer: int(g.Pointers.Get(nodeID)),
	}

	return rans.FromPhase(dm, g.Prelude.Normalized, phase)
}
