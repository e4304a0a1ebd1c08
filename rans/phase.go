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

// Package rans implements the streaming, interleaved rANS state
// machine: an Encoder that folds and encodes raw symbols against a
// component's model while buffering renormalised 32-bit words, and a
// Decoder that replays those words to recover symbols in reverse
// encoding order. Both share a single State register across all nine
// components, which is what lets a caller interleave components
// arbitrarily within one node and still decode them back out in the
// matching order.
package rans

// Phase is a checkpoint of the encoder's (or a seeded decoder's) state:
// the 64-bit register value and how many renormalised words had been
// emitted (or must still be consumed) at that point. A Phase captured
// right after encoding symbol N can seed a fresh Decoder that will
// decode symbol N first, then the symbols encoded before it - this is
// what makes random access into the
// middle of a stream possible without replaying it from the start.
type Phase struct {
	State         uint64
	StreamPointer int
}
