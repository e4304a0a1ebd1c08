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

import "math/bits"

// Divider divides a 64-bit value by a fixed divisor using one 128-bit
// multiply-add and a shift instead of a hardware division: the rANS
// encode step divides the state register by the symbol's frequency on
// every symbol, so the divisor is known at model-build time and the
// reciprocal can be precomputed once per table entry.
//
// Exact for every 64-bit dividend (Robison's round-up/round-down
// multiply-add scheme): for a power-of-two divisor the multiply-add
// degrades to a plain shift; otherwise the reciprocal t =
// floor(2^(64+m)/d) is either rounded up with no addend or kept rounded
// down with itself as the addend, picked by the remainder test below.
type Divider struct {
	Mul   uint64
	Add   uint64
	Shift uint
}

// NewDivider precomputes the reciprocal for divisor d. A zero divisor
// yields a zero Divider; table entries with zero frequency are never
// encoded so their Divider is never used.
func NewDivider(d uint32) Divider {
	if d == 0 {
		return Divider{}
	}

	m := uint(bits.Len32(d)) - 1

	if d&(d-1) == 0 {
		return Divider{Mul: ^uint64(0), Add: ^uint64(0), Shift: m}
	}

	// t = floor(2^(m+64) / d); d*(t+1) = 2^(m+64) + r with 0 < r <= d.
	t, _ := bits.Div64(uint64(1)<<m, 0, uint64(d))
	_, r := bits.Mul64(uint64(d), t+1)

	if r <= uint64(1)<<m {
		return Divider{Mul: t + 1, Add: 0, Shift: m}
	}

	return Divider{Mul: t, Add: t, Shift: m}
}

// Div returns x / d for the divisor this Divider was built for.
func (dv Divider) Div(x uint64) uint64 {
	hi, lo := bits.Mul64(dv.Mul, x)
	_, carry := bits.Add64(lo, dv.Add, 0)
	return (hi + carry) >> dv.Shift
}
