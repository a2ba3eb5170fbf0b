// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package testing

import "encoding/binary"

// EventFrameSize is the length of one simulated event stack read.
const EventFrameSize = 56

// Touch places a finger in a slot of a built frame.
type Touch struct {
	Slot  int
	X     uint16
	Y     uint16
	Width byte
}

// FrameBuilder assembles event stack frames for a given slot count.
// Unused slots and the state pair default to 0xFF.
type FrameBuilder struct {
	frame     [EventFrameSize]byte
	maxPoints int
}

// NewFrameBuilder starts an empty frame laid out for maxPoints slots.
func NewFrameBuilder(maxPoints int) *FrameBuilder {
	b := &FrameBuilder{maxPoints: maxPoints}
	for i := range b.frame {
		b.frame[i] = 0xFF
	}
	b.FingerNum(0)
	return b
}

func (b *FrameBuilder) coordInfoSize() int {
	return 4*b.maxPoints + (b.maxPoints+3)&^3 + 4
}

// Touch writes a finger into its slot.
func (b *FrameBuilder) Touch(t Touch) *FrameBuilder {
	binary.BigEndian.PutUint16(b.frame[4*t.Slot:], t.X)
	binary.BigEndian.PutUint16(b.frame[4*t.Slot+2:], t.Y)
	b.frame[4*b.maxPoints+t.Slot] = t.Width
	return b
}

// FingerNum sets the finger count nibble. The high nibble is left set so
// decoders must mask it.
func (b *FrameBuilder) FingerNum(n byte) *FrameBuilder {
	b.frame[b.coordInfoSize()-4] = 0xF0 | (n & 0x0F)
	return b
}

// State sets the auxiliary state pair.
func (b *FrameBuilder) State(hi, lo byte) *FrameBuilder {
	b.frame[53] = hi
	b.frame[54] = lo
	return b
}

// Bytes returns a copy of the frame.
func (b *FrameBuilder) Bytes() []byte {
	out := make([]byte, EventFrameSize)
	copy(out, b.frame[:])
	return out
}
