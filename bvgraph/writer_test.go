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

package bvgraph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	ans "github.com/ciminilorenzo/webgraph-ans-go"
	"github.com/ciminilorenzo/webgraph-ans-go/estimator"
	"github.com/ciminilorenzo/webgraph-ans-go/model"
	"github.com/ciminilorenzo/webgraph-ans-go/rans"
)

// node is a fully-written BV-graph node, independent of write order,
// used to drive both the buffering Writer and a plain decode check.
type node struct {
	outdegree       uint64
	referenceOffset uint64
	blockCount      uint64
	blocks          []uint64
	intervalCount   uint64
	intervalStarts  []uint64
	intervalLens    []uint64
	firstResidual   uint64
	residuals       []uint64
}

func randomNode(rng *rand.Rand) node {
	n := node{
		outdegree:       uint64(rng.Intn(40)),
		referenceOffset: uint64(rng.Intn(5)),
		blockCount:      uint64(rng.Intn(3)),
		intervalCount:   uint64(rng.Intn(2)),
		firstResidual:   uint64(rng.Intn(1000)),
	}

	for i := uint64(0); i < n.blockCount; i++ {
		n.blocks = append(n.blocks, uint64(rng.Intn(50)))
	}

	for i := uint64(0); i < n.intervalCount; i++ {
		n.intervalStarts = append(n.intervalStarts, uint64(rng.Intn(1000)))
		n.intervalLens = append(n.intervalLens, uint64(rng.Intn(50)))
	}

	residualCount := rng.Intn(6)
	for i := 0; i < residualCount; i++ {
		n.residuals = append(n.residuals, uint64(rng.Intn(2000)))
	}

	return n
}

func writeNode(w *Writer, n node) error {
	if err := w.WriteOutdegree(n.outdegree); err != nil {
		return err
	}

	w.WriteReferenceOffset(n.referenceOffset)
	w.WriteBlockCount(n.blockCount)

	for _, b := range n.blocks {
		w.WriteBlocks(b)
	}

	w.WriteIntervalCount(n.intervalCount)

	for i := range n.intervalStarts {
		w.WriteIntervalStart(n.intervalStarts[i])
		w.WriteIntervalLen(n.intervalLens[i])
	}

	w.WriteFirstResidual(n.firstResidual)

	for _, r := range n.residuals {
		w.WriteResidual(r)
	}

	return nil
}

func buildModelFromNodes(nodes []node) *model.EncoderModel {
	b := model.NewBuilder(model.DefaultConfig())

	for _, n := range nodes {
		b.Push(n.outdegree, ans.Outdegree)
		b.Push(n.referenceOffset, ans.ReferenceOffset)
		b.Push(n.blockCount, ans.BlockCount)

		for _, v := range n.blocks {
			b.Push(v, ans.Blocks)
		}

		b.Push(n.intervalCount, ans.IntervalCount)

		for _, v := range n.intervalStarts {
			b.Push(v, ans.IntervalStart)
		}

		for _, v := range n.intervalLens {
			b.Push(v, ans.IntervalLen)
		}

		b.Push(n.firstResidual, ans.FirstResidual)

		for _, v := range n.residuals {
			b.Push(v, ans.Residual)
		}
	}

	m, err := b.Build()
	if err != nil {
		panic(err)
	}

	return m
}

// decodeNode decodes exactly one node's worth of symbols from d,
// mirroring the shape writeNode produced, and asserts it matches want.
//
// A node's buffered symbols are encoded in the reverse of write order
// (see Writer.drainNode), so they decode back out in the same order
// they were originally written: Outdegree, ReferenceOffset,
// BlockCount, Blocks, IntervalCount, the IntervalStart/IntervalLen
// pairs, FirstResidual, then Residual - all ascending within each
// group.
func decodeNode(t *testing.T, d *rans.Decoder, want node) {
	t.Helper()

	outdegree, err := d.Decode(ans.Outdegree)
	require.NoError(t, err)

	referenceOffset, err := d.Decode(ans.ReferenceOffset)
	require.NoError(t, err)

	blockCount, err := d.Decode(ans.BlockCount)
	require.NoError(t, err)

	// Decoded slices are built by append so that a node with no values
	// in a group yields nil, like the zero-value field in want.
	var blocks []uint64
	for range want.blocks {
		v, err := d.Decode(ans.Blocks)
		require.NoError(t, err)
		blocks = append(blocks, v)
	}

	intervalCount, err := d.Decode(ans.IntervalCount)
	require.NoError(t, err)

	var intervalStarts, intervalLens []uint64
	for range want.intervalStarts {
		s, err := d.Decode(ans.IntervalStart)
		require.NoError(t, err)
		l, err := d.Decode(ans.IntervalLen)
		require.NoError(t, err)
		intervalStarts = append(intervalStarts, s)
		intervalLens = append(intervalLens, l)
	}

	firstResidual, err := d.Decode(ans.FirstResidual)
	require.NoError(t, err)

	var residuals []uint64
	for range want.residuals {
		v, err := d.Decode(ans.Residual)
		require.NoError(t, err)
		residuals = append(residuals, v)
	}

	require.Equal(t, want.outdegree, outdegree)
	require.Equal(t, want.referenceOffset, referenceOffset)
	require.Equal(t, want.blockCount, blockCount)
	require.Equal(t, want.blocks, blocks)
	require.Equal(t, want.intervalCount, intervalCount)
	require.Equal(t, want.intervalStarts, intervalStarts)
	require.Equal(t, want.intervalLens, intervalLens)
	require.Equal(t, want.firstResidual, firstResidual)
	require.Equal(t, want.residuals, residuals)
}

func TestWriterDrainsNodesInDecodableOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	nodes := make([]node, 20)
	for i := range nodes {
		nodes[i] = randomNode(rng)
	}

	m := buildModelFromNodes(nodes)

	w := NewWriter(m)
	for _, n := range nodes {
		require.NoError(t, writeNode(w, n))
	}
	require.NoError(t, w.Flush())

	require.Equal(t, len(nodes), len(w.Phases()))

	d := rans.NewDecoder(model.NewDecoderModel(m), w.Encoder().Normalized(), w.Encoder().State())

	for i := len(nodes) - 1; i >= 0; i-- {
		decodeNode(t, d, nodes[i])
	}
}

func TestWriterPhasesSeekIndividualNodes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	nodes := make([]node, 10)
	for i := range nodes {
		nodes[i] = randomNode(rng)
	}

	m := buildModelFromNodes(nodes)

	w := NewWriter(m)
	for _, n := range nodes {
		require.NoError(t, writeNode(w, n))
	}
	require.NoError(t, w.Flush())

	phases := w.Phases()
	require.Equal(t, len(nodes), len(phases))

	// Nodes are encoded in order and the normalised stream only grows,
	// so the phase stream pointers are non-decreasing.
	for i := 1; i < len(phases); i++ {
		require.GreaterOrEqual(t, phases[i].StreamPointer, phases[i-1].StreamPointer)
	}

	// Phase[i] is the encoder's position right after node i finished
	// encoding, i.e. the checkpoint to resume decoding at node i.
	d := rans.FromPhase(model.NewDecoderModel(m), w.Encoder().Normalized(), phases[5])
	decodeNode(t, d, nodes[5])
}

func TestRandomAccessMatchesSequentialDecode(t *testing.T) {
	rng := rand.New(rand.NewSource(23))

	nodes := make([]node, 10)
	for i := range nodes {
		nodes[i] = randomNode(rng)
	}

	m := buildModelFromNodes(nodes)

	w := NewWriter(m)
	for _, n := range nodes {
		require.NoError(t, writeNode(w, n))
	}
	require.NoError(t, w.Flush())

	dm := model.NewDecoderModel(m)

	// Sequential: decoding from the encoder's final position walks the
	// nodes back to front, reaching node 7 after nodes 9 and 8.
	seq := rans.NewDecoder(dm, w.Encoder().Normalized(), w.Encoder().State())
	for i := len(nodes) - 1; i >= 7; i-- {
		decodeNode(t, seq, nodes[i])
	}

	// Random access: seeding straight from node 7's phase must land on
	// the same symbols the sequential walk just produced.
	ra := rans.FromPhase(dm, w.Encoder().Normalized(), w.Phases()[7])
	decodeNode(t, ra, nodes[7])
}

func TestEstimateCurrentNodeBitsReflectsBufferedSymbols(t *testing.T) {
	nodes := []node{{outdegree: 3, residuals: []uint64{10, 20}}}
	m := buildModelFromNodes(nodes)

	w := NewWriter(m)
	require.NoError(t, w.WriteOutdegree(3))
	w.WriteReferenceOffset(0)
	w.WriteBlockCount(0)
	w.WriteIntervalCount(0)
	w.WriteFirstResidual(5)
	w.WriteResidual(10)
	w.WriteResidual(20)

	est := estimator.NewEntropy(m)
	cost := w.EstimateCurrentNodeBits(est)
	require.Greater(t, cost, uint64(0))
}

func TestModelBuilderWriteAccumulatesAndCosts(t *testing.T) {
	mb := NewModelBuilder(model.DefaultConfig(), estimator.Log2{})

	for i := 0; i < 100; i++ {
		cost, err := mb.Write(ans.Outdegree, uint64(i%7))
		require.NoError(t, err)
		require.GreaterOrEqual(t, cost, uint64(0))
	}

	m, err := mb.Build()
	require.NoError(t, err)
	require.False(t, m.Components[ans.Outdegree].Empty())
}
