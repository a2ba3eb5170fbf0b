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
	"time"
)

// ContactPhase represents the finite state machine for finger contact
type ContactPhase int

const (
	PhaseIdle ContactPhase = iota
	PhaseTouching
)

// String returns the phase name
func (p ContactPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTouching:
		return "touching"
	default:
		return "phase(unknown)"
	}
}

// ContactState tracks which slots are in contact across frames
type ContactState struct {
	LastFrameTime time.Time
	ReleaseTimer  *time.Timer
	Phase         ContactPhase
	Mask          uint16
}

// safeTimerStop safely stops a timer and drains its channel to prevent resource leaks
func safeTimerStop(timer *time.Timer) {
	if timer != nil {
		stopped := timer.Stop()
		if !stopped {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

// Observe records the presence mask of a decoded frame and returns the
// slots that went down and the slots that lifted since the previous frame.
// While any slot is down, onTimeout is armed to fire after timeout without
// a further frame.
func (cs *ContactState) Observe(mask uint16, timeout time.Duration, onTimeout func()) (down, up uint16) {
	down = mask &^ cs.Mask
	up = cs.Mask &^ mask
	cs.Mask = mask
	cs.LastFrameTime = time.Now()

	safeTimerStop(cs.ReleaseTimer)
	cs.ReleaseTimer = nil

	if mask == 0 {
		cs.Phase = PhaseIdle
		return down, up
	}
	cs.Phase = PhaseTouching
	if timeout > 0 && onTimeout != nil {
		cs.ReleaseTimer = time.AfterFunc(timeout, onTimeout)
	}
	return down, up
}

// TransitionToIdle releases every slot and returns the ones that were down
func (cs *ContactState) TransitionToIdle() uint16 {
	released := cs.Mask
	cs.Phase = PhaseIdle
	cs.Mask = 0
	cs.LastFrameTime = time.Time{}
	safeTimerStop(cs.ReleaseTimer)
	cs.ReleaseTimer = nil
	return released
}
