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

package hx83112

import (
	"context"
	"encoding/binary"
	"fmt"
)

const (
	// MaxPoints is the number of finger slots the controller reports.
	MaxPoints = 10
	// EventFrameSize is the length of one event stack read.
	EventFrameSize = 56

	// DefaultTouchMaxX and DefaultTouchMaxY are the sensor's native bounds.
	DefaultTouchMaxX = 1080
	DefaultTouchMaxY = 2160

	stateSentinel byte = 0xFF
)

// EventFrame is one raw event stack read. It is decoded and dropped within
// the service call that read it.
type EventFrame [EventFrameSize]byte

// ObjectState is the per-slot presence reported to the host.
type ObjectState uint8

const (
	// ObjectAbsent marks an empty or out-of-bounds slot.
	ObjectAbsent ObjectState = iota
	// ObjectPresentAccurate marks a finger with a position inside the
	// sensor's native bounds.
	ObjectPresentAccurate
)

// String returns the object state name
func (s ObjectState) String() string {
	switch s {
	case ObjectAbsent:
		return "absent"
	case ObjectPresentAccurate:
		return "present"
	default:
		return fmt.Sprintf("object(%d)", uint8(s))
	}
}

// TouchPoint is one decoded finger slot.
type TouchPoint struct {
	State ObjectState
	X     uint16
	Y     uint16
	Width byte
}

// StateInfo is the auxiliary state pair carried at the end of the event
// frame. Valid is false when the controller sent the 0xFF "no state" marker.
type StateInfo struct {
	Value [2]byte
	Valid bool
}

// DetectedObjects is the decoded content of one event frame.
type DetectedObjects struct {
	Points    [MaxPoints]TouchPoint
	State     StateInfo
	FingerNum int
	Mask      uint16
	PrevMask  uint16
}

// Present returns the number of slots marked present.
func (d *DetectedObjects) Present() int {
	n := 0
	for i := range d.Points {
		if d.Points[i].State == ObjectPresentAccurate {
			n++
		}
	}
	return n
}

// frameLayout holds every offset of the event stack format. The coordinate
// area is maxPoints (X, Y) big-endian pairs followed by maxPoints width
// bytes padded to a word, then a word whose first byte carries the finger
// count in its low nibble.
type frameLayout struct {
	maxPoints int
}

func roundUp4(n int) int {
	return (n + 3) &^ 3
}

func (l frameLayout) coordInfoSize() int {
	return 4*l.maxPoints + roundUp4(l.maxPoints) + 4
}

func (l frameLayout) fingerNumOffset() int {
	return l.coordInfoSize() - 4
}

func (frameLayout) xOffset(slot int) int {
	return 4 * slot
}

func (frameLayout) yOffset(slot int) int {
	return 4*slot + 2
}

func (l frameLayout) widthOffset(slot int) int {
	return 4*l.maxPoints + slot
}

// The state pair sits at fixed offsets regardless of maxPoints.
func (frameLayout) stateOffset() int {
	return 53
}

// TouchState holds the per-controller decode context: the last coordinate
// buffer and state snapshot, the finger count and the presence masks.
// Callers serialize access through the Controller lock.
type TouchState struct {
	CoordBuf       [EventFrameSize]byte
	StateInfo      StateInfo
	FingerNum      int
	FingerMask     uint16
	PrevFingerMask uint16
	MaxFingers     int
	TouchMaxX      uint16
	TouchMaxY      uint16
}

// NewTouchState returns a decode context for maxFingers slots and the
// default native bounds.
func NewTouchState(maxFingers int) *TouchState {
	return &TouchState{
		MaxFingers: maxFingers,
		TouchMaxX:  DefaultTouchMaxX,
		TouchMaxY:  DefaultTouchMaxY,
	}
}

// ReadEventFrame reads one event stack frame. The bus-level burst read is
// switched off for the transfer and switched back on afterwards, even when
// the read failed. The first failure is returned unchanged.
func (r *Registers) ReadEventFrame(ctx context.Context) (EventFrame, error) {
	var frame EventFrame

	if err := r.bus.Write(ctx, cmdAHBAddr, []byte{eventBurstReadOff}, r.retries); err != nil {
		return frame, err
	}
	err := r.bus.Read(ctx, cmdEventStack, frame[:], r.retries)
	if onErr := r.bus.Write(ctx, cmdAHBAddr, []byte{eventBurstReadOn}, r.retries); onErr != nil && err == nil {
		err = onErr
	}
	if err != nil {
		return EventFrame{}, err
	}
	return frame, nil
}

// DecodeFrame turns a raw event frame into per-slot touch points and updates
// the summary fields of st. It performs no I/O.
func DecodeFrame(frame *EventFrame, st *TouchState) DetectedObjects {
	layout := frameLayout{maxPoints: st.MaxFingers}
	if layout.maxPoints <= 0 || layout.maxPoints > MaxPoints {
		layout.maxPoints = MaxPoints
	}

	copy(st.CoordBuf[:], frame[:])
	buf := st.CoordBuf[:]

	so := layout.stateOffset()
	if buf[so] != stateSentinel && buf[so+1] != stateSentinel {
		st.StateInfo = StateInfo{Value: [2]byte{buf[so], buf[so+1]}, Valid: true}
	} else {
		st.StateInfo = StateInfo{}
	}

	st.PrevFingerMask = st.FingerMask
	st.FingerNum = int(buf[layout.fingerNumOffset()] & 0x0F)

	var objs DetectedObjects
	var mask uint16
	for i := range layout.maxPoints {
		x := binary.BigEndian.Uint16(buf[layout.xOffset(i):])
		y := binary.BigEndian.Uint16(buf[layout.yOffset(i):])
		if x > st.TouchMaxX || y > st.TouchMaxY {
			continue
		}
		objs.Points[i] = TouchPoint{
			State: ObjectPresentAccurate,
			X:     x,
			Y:     y,
			Width: buf[layout.widthOffset(i)],
		}
		mask |= 1 << uint(i)
	}
	st.FingerMask = mask

	objs.State = st.StateInfo
	objs.FingerNum = st.FingerNum
	objs.Mask = mask
	objs.PrevMask = st.PrevFingerMask
	return objs
}
