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

// Package uinput exposes decoded touch frames to Linux as a multitouch
// (protocol B) input device.
package uinput

import (
	"encoding/binary"
	"unsafe"

	hx83112 "github.com/ZaparooProject/go-hx83112"
)

// Linux input event types and codes used by the touch device
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvAbs = 0x03

	SynReport = 0x00
	BtnTouch  = 0x14A

	AbsX              = 0x00
	AbsY              = 0x01
	AbsMTSlot         = 0x2F
	AbsMTTouchMajor   = 0x30
	AbsMTPositionX    = 0x35
	AbsMTPositionY    = 0x36
	AbsMTTrackingID   = 0x39
	InputPropDirect   = 0x01
	maxTrackingID     = 0xFFFF
	releaseTrackingID = -1
)

// Event is one input_event without its timestamp; the kernel stamps
// events written to uinput.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// timevalSize is the size of struct timeval on this platform.
const timevalSize = 2 * int(unsafe.Sizeof(uintptr(0)))

// EventSize is the size of a struct input_event on this platform.
const EventSize = timevalSize + 8

// MarshalEvents appends the wire form of events to buf.
func MarshalEvents(buf []byte, events []Event) []byte {
	for _, ev := range events {
		var raw [EventSize]byte
		binary.NativeEndian.PutUint16(raw[timevalSize:], ev.Type)
		binary.NativeEndian.PutUint16(raw[timevalSize+2:], ev.Code)
		binary.NativeEndian.PutUint32(raw[timevalSize+4:], uint32(ev.Value))
		buf = append(buf, raw[:]...)
	}
	return buf
}

// Encoder turns successive frames into protocol B event sequences. It
// tracks which slots are down and hands out tracking IDs.
type Encoder struct {
	trackingIDs [hx83112.MaxPoints]int32
	slots       int
	mask        uint16
	nextID      int32
	touching    bool
}

// NewEncoder creates an encoder for the given number of slots.
func NewEncoder(slots int) *Encoder {
	if slots <= 0 || slots > hx83112.MaxPoints {
		slots = hx83112.MaxPoints
	}
	return &Encoder{slots: slots}
}

// Encode returns the events for one frame. Slots present in objs report
// their position; slots that were down and are now absent are released.
// The sequence always ends with SYN_REPORT.
func (e *Encoder) Encode(objs *hx83112.DetectedObjects) []Event {
	events := make([]Event, 0, 6*e.slots+3)
	var mask uint16

	for i := range e.slots {
		pt := objs.Points[i]
		bit := uint16(1) << i
		if pt.State != hx83112.ObjectPresentAccurate {
			if e.mask&bit != 0 {
				events = append(events,
					Event{EvAbs, AbsMTSlot, int32(i)},
					Event{EvAbs, AbsMTTrackingID, releaseTrackingID})
			}
			continue
		}

		mask |= bit
		events = append(events, Event{EvAbs, AbsMTSlot, int32(i)})
		if e.mask&bit == 0 {
			e.trackingIDs[i] = e.nextID
			e.nextID = (e.nextID + 1) & maxTrackingID
			events = append(events, Event{EvAbs, AbsMTTrackingID, e.trackingIDs[i]})
		}
		events = append(events,
			Event{EvAbs, AbsMTPositionX, int32(pt.X)},
			Event{EvAbs, AbsMTPositionY, int32(pt.Y)},
			Event{EvAbs, AbsMTTouchMajor, int32(pt.Width)})
	}
	e.mask = mask

	return e.finish(events)
}

// Release lifts every slot that is down.
func (e *Encoder) Release() []Event {
	var events []Event
	for i := range e.slots {
		if e.mask&(1<<i) != 0 {
			events = append(events,
				Event{EvAbs, AbsMTSlot, int32(i)},
				Event{EvAbs, AbsMTTrackingID, releaseTrackingID})
		}
	}
	e.mask = 0
	return e.finish(events)
}

// Mask returns the slots currently down
func (e *Encoder) Mask() uint16 {
	return e.mask
}

func (e *Encoder) finish(events []Event) []Event {
	touching := e.mask != 0
	if touching != e.touching {
		value := int32(0)
		if touching {
			value = 1
		}
		events = append(events, Event{EvKey, BtnTouch, value})
		e.touching = touching
	}
	return append(events, Event{EvSyn, SynReport, 0})
}
