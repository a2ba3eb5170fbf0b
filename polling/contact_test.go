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

package polling

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContactState_Observe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prev     uint16
		mask     uint16
		wantDown uint16
		wantUp   uint16
		phase    ContactPhase
	}{
		{name: "first touch", prev: 0, mask: 0b001, wantDown: 0b001, phase: PhaseTouching},
		{name: "second finger", prev: 0b001, mask: 0b011, wantDown: 0b010, phase: PhaseTouching},
		{name: "held", prev: 0b011, mask: 0b011, phase: PhaseTouching},
		{name: "one lifted", prev: 0b011, mask: 0b010, wantUp: 0b001, phase: PhaseTouching},
		{name: "swap", prev: 0b010, mask: 0b100, wantDown: 0b100, wantUp: 0b010, phase: PhaseTouching},
		{name: "all lifted", prev: 0b110, mask: 0, wantUp: 0b110, phase: PhaseIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cs := ContactState{Mask: tt.prev}

			down, up := cs.Observe(tt.mask, 0, nil)

			assert.Equal(t, tt.wantDown, down)
			assert.Equal(t, tt.wantUp, up)
			assert.Equal(t, tt.phase, cs.Phase)
			assert.Equal(t, tt.mask, cs.Mask)
			assert.Nil(t, cs.ReleaseTimer)
		})
	}
}

func TestContactState_ReleaseTimer(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	cs := ContactState{}

	cs.Observe(0b1, 10*time.Millisecond, func() { fired.Add(1) })
	assert.NotNil(t, cs.ReleaseTimer)

	// A new frame re-arms the timer
	cs.Observe(0b1, 10*time.Millisecond, func() { fired.Add(1) })
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)

	// Lifting stops it
	cs.Observe(0b1, time.Hour, func() { fired.Add(1) })
	cs.Observe(0, time.Hour, func() { fired.Add(1) })
	assert.Nil(t, cs.ReleaseTimer)
}

func TestContactState_TransitionToIdle(t *testing.T) {
	t.Parallel()

	cs := ContactState{}
	cs.Observe(0b1010, time.Hour, func() {})

	released := cs.TransitionToIdle()

	assert.Equal(t, uint16(0b1010), released)
	assert.Equal(t, PhaseIdle, cs.Phase)
	assert.Zero(t, cs.Mask)
	assert.True(t, cs.LastFrameTime.IsZero())
	assert.Nil(t, cs.ReleaseTimer)
}

func TestContactPhase_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "touching", PhaseTouching.String())
	assert.Equal(t, "phase(unknown)", ContactPhase(9).String())
}
