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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	ans "github.com/ciminilorenzo/webgraph-ans-go"
	"github.com/ciminilorenzo/webgraph-ans-go/model"
)

// buildTestModel pushes a skewed distribution of raw symbols (mostly
// small values with an occasional large one, as a BV-graph component
// stream looks like) for a single component and returns the built
// model.
func buildTestModel(t *testing.T, symbols []uint64, component ans.Component) *model.EncoderModel {
	t.Helper()

	b := model.NewBuilder(model.DefaultConfig())

	for _, s := range symbols {
		require.NoError(t, b.Push(s, component))
	}

	m, err := b.Build()
	require.NoError(t, err)

	return m
}

func skewedSymbols(rng *rand.Rand, n int) []uint64 {
	symbols := make([]uint64, n)

	for i := range symbols {
		switch {
		case rng.Intn(20) == 0:
			symbols[i] = uint64(rng.Intn(1 << 20))
		default:
			symbols[i] = uint64(rng.Intn(16))
		}
	}

	return symbols
}

func TestEncodeDecodeSingleComponentRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	symbols := skewedSymbols(rng, 500)

	m := buildTestModel(t, symbols, ans.Outdegree)
	dm := model.NewDecoderModel(m)

	enc := NewEncoder(m)

	// LIFO: encode in reverse order so decoding recovers forward order.
	for i := len(symbols) - 1; i >= 0; i-- {
		require.NoError(t, enc.Encode(symbols[i], ans.Outdegree))
	}

	dec := NewDecoder(dm, enc.Normalized(), enc.State())

	for i := 0; i < len(symbols); i++ {
		got, err := dec.Decode(ans.Outdegree)
		require.NoError(t, err)
		require.Equal(t, symbols[i], got, "mismatch at index %d", i)
	}
}

func TestEncodeDecodeInterleavedComponents(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	var symbolSets [ans.NumComponents][]uint64

	builder := model.NewBuilder(model.DefaultConfig())

	for c := ans.Component(0); int(c) < ans.NumComponents; c++ {
		symbolSets[c] = skewedSymbols(rng, 50)

		for _, s := range symbolSets[c] {
			require.NoError(t, builder.Push(s, c))
		}
	}

	built, err := builder.Build()
	require.NoError(t, err)

	enc := NewEncoder(built)

	type step struct {
		component ans.Component
		symbol    uint64
	}

	var steps []step

	for i := 49; i >= 0; i-- {
		for c := ans.Component(0); int(c) < ans.NumComponents; c++ {
			steps = append(steps, step{component: c, symbol: symbolSets[c][i]})
		}
	}

	for _, st := range steps {
		require.NoError(t, enc.Encode(st.symbol, st.component))
	}

	dm := model.NewDecoderModel(built)
	dec := NewDecoder(dm, enc.Normalized(), enc.State())

	for i := len(steps) - 1; i >= 0; i-- {
		got, err := dec.Decode(steps[i].component)
		require.NoError(t, err)
		require.Equal(t, steps[i].symbol, got)
	}
}

func TestDummySequenceRoundTrip(t *testing.T) {
	source := []uint64{1, 1, 1, 2, 2, 2, 3, 3, 4, 5}

	cfg := model.DefaultConfig()
	cfg.SearchSpace = [][2]uint{{2, 4}}

	b := model.NewBuilder(cfg)
	for _, s := range source {
		require.NoError(t, b.Push(s, ans.Outdegree))
	}

	m, err := b.Build()
	require.NoError(t, err)

	enc := NewEncoder(m)
	for i := len(source) - 1; i >= 0; i-- {
		require.NoError(t, enc.Encode(source[i], ans.Outdegree))
	}

	dec := NewDecoder(model.NewDecoderModel(m), enc.Normalized(), enc.State())
	for _, want := range source {
		got, err := dec.Decode(ans.Outdegree)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestFoldedSequenceRoundTrip(t *testing.T) {
	source := []uint64{1000, 1000, 2000}

	cfg := model.DefaultConfig()
	cfg.SearchSpace = [][2]uint{{2, 4}}

	b := model.NewBuilder(cfg)
	for _, s := range source {
		require.NoError(t, b.Push(s, ans.Outdegree))
	}

	m, err := b.Build()
	require.NoError(t, err)

	// Every source symbol sits past the folding threshold for F=2, R=4.
	require.Greater(t, source[0], m.FoldingThreshold(ans.Outdegree))

	enc := NewEncoder(m)
	for i := len(source) - 1; i >= 0; i-- {
		require.NoError(t, enc.Encode(source[i], ans.Outdegree))
	}

	dec := NewDecoder(model.NewDecoderModel(m), enc.Normalized(), enc.State())
	for _, want := range source {
		got, err := dec.Decode(ans.Outdegree)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestRandomizedInterleaveOfTwoComponents(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	var sequences [2][]uint64
	builder := model.NewBuilder(model.DefaultConfig())

	for c := 0; c < 2; c++ {
		for i := 0; i < 10; i++ {
			s := uint64(rng.Intn(5) + 1)
			sequences[c] = append(sequences[c], s)
			require.NoError(t, builder.Push(s, ans.Component(c)))
		}
	}

	built, err := builder.Build()
	require.NoError(t, err)

	// Merge the two sequences in a random interleave order, preserving
	// each component's own order.
	type step struct {
		component ans.Component
		symbol    uint64
	}

	var steps []step
	next := [2]int{}

	for len(steps) < 20 {
		c := rng.Intn(2)
		if next[c] == len(sequences[c]) {
			c = 1 - c
		}

		steps = append(steps, step{component: ans.Component(c), symbol: sequences[c][next[c]]})
		next[c]++
	}

	enc := NewEncoder(built)
	for i := len(steps) - 1; i >= 0; i-- {
		require.NoError(t, enc.Encode(steps[i].symbol, steps[i].component))
	}

	dec := NewDecoder(model.NewDecoderModel(built), enc.Normalized(), enc.State())

	var decoded [2][]uint64
	for _, st := range steps {
		got, err := dec.Decode(st.component)
		require.NoError(t, err)
		decoded[st.component] = append(decoded[st.component], got)
	}

	require.Equal(t, sequences[0], decoded[0])
	require.Equal(t, sequences[1], decoded[1])
}

func TestZipfianRoundTripAcrossMagnitudes(t *testing.T) {
	for _, maxSymbol := range []uint64{1000, 1000000, 1000000000, ans.MaxRawSymbol} {
		rng := rand.New(rand.NewSource(int64(maxSymbol)))
		zipf := rand.NewZipf(rng, 1.2, 1, maxSymbol)

		symbols := make([]uint64, 2000)
		for i := range symbols {
			symbols[i] = zipf.Uint64()
		}

		m := buildTestModel(t, symbols, ans.FirstResidual)
		dm := model.NewDecoderModel(m)

		enc := NewEncoder(m)
		for i := len(symbols) - 1; i >= 0; i-- {
			require.NoError(t, enc.Encode(symbols[i], ans.FirstResidual))
		}

		dec := NewDecoder(dm, enc.Normalized(), enc.State())
		for i, want := range symbols {
			got, err := dec.Decode(ans.FirstResidual)
			require.NoError(t, err)
			require.Equal(t, want, got, "max=%d index=%d", maxSymbol, i)
		}
	}
}

func TestRoundTripWithSymbolsNearRawCeiling(t *testing.T) {
	rng := rand.New(rand.NewSource(8))

	symbols := make([]uint64, 0, 300)
	for i := 0; i < 300; i++ {
		switch {
		case i%37 == 0:
			symbols = append(symbols, ans.MaxRawSymbol)
		case i%11 == 0:
			symbols = append(symbols, rng.Uint64()%(ans.MaxRawSymbol+1))
		default:
			symbols = append(symbols, uint64(rng.Intn(64)))
		}
	}

	m := buildTestModel(t, symbols, ans.Residual)
	dm := model.NewDecoderModel(m)

	enc := NewEncoder(m)
	for i := len(symbols) - 1; i >= 0; i-- {
		require.NoError(t, enc.Encode(symbols[i], ans.Residual))
	}

	dec := NewDecoder(dm, enc.Normalized(), enc.State())
	for i, want := range symbols {
		got, err := dec.Decode(ans.Residual)
		require.NoError(t, err)
		require.Equal(t, want, got, "mismatch at index %d", i)
	}
}

func TestPhaseSeeksDecoderMidStream(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	symbols := skewedSymbols(rng, 200)

	m := buildTestModel(t, symbols, ans.Residual)
	dm := model.NewDecoderModel(m)

	enc := NewEncoder(m)

	var phases []Phase

	for i := len(symbols) - 1; i >= 0; i-- {
		require.NoError(t, enc.Encode(symbols[i], ans.Residual))
		phases = append(phases, enc.Phase())
	}

	normalized := enc.Normalized()

	// phases[k] was captured right after encoding symbols[len-1-k], so
	// decoding from it should reproduce symbols[len-1-k] onward.
	for k := 0; k < len(phases); k += 37 {
		dec := FromPhase(dm, normalized, phases[k])
		wantIndex := len(symbols) - 1 - k

		got, err := dec.Decode(ans.Residual)
		require.NoError(t, err)
		require.Equal(t, symbols[wantIndex], got)
	}
}
