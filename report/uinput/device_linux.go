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

//go:build linux

package uinput

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	hx83112 "github.com/ZaparooProject/go-hx83112"
	"github.com/ZaparooProject/go-hx83112/calibration"
	"github.com/ZaparooProject/go-hx83112/internal/syncutil"
	"golang.org/x/sys/unix"
)

// DefaultPath is the uinput control node
const DefaultPath = "/dev/uinput"

// DefaultName is the device name shown to the input layer
const DefaultName = "hx83112-touchscreen"

const (
	maxNameSize = 80
	absCount    = 0x40
	busI2C      = 0x18

	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetAbsBit  = 0x40045567
	uiSetPropBit = 0x4004556E
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
)

// ErrDeviceClosed is returned when reporting on a closed device
var ErrDeviceClosed = errors.New("uinput device closed")

// inputID mirrors struct input_id
type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// userDev mirrors struct uinput_user_dev
type userDev struct {
	Name       [maxNameSize]byte
	ID         inputID
	EffectsMax uint32
	Absmax     [absCount]int32
	Absmin     [absCount]int32
	Absfuzz    [absCount]int32
	Absflat    [absCount]int32
}

// Device is a virtual multitouch screen backed by uinput. It implements
// hx83112.Reporter.
type Device struct {
	file    *os.File
	encoder *Encoder
	buf     []byte
	mu      syncutil.Mutex
}

// Open creates the input device. Axis ranges come from the display size
// in props, which is the range calibrated points are mapped to.
func Open(path, name string, props calibration.Properties, slots int) (*Device, error) {
	if path == "" {
		path = DefaultPath
	}
	if name == "" {
		name = DefaultName
	}

	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	enc := NewEncoder(slots)
	if err := setup(f, name, props, enc.slots); err != nil {
		_ = f.Close()
		return nil, err
	}

	hx83112.Debugf("uinput: created %q (%dx%d, %d slots)",
		name, props.DisplayPhysicalWidth, props.DisplayPhysicalHeight, enc.slots)
	return &Device{file: f, encoder: enc}, nil
}

func setup(f *os.File, name string, props calibration.Properties, slots int) error {
	fd := int(f.Fd())

	bits := []struct {
		req uint
		val int
	}{
		{uiSetEvBit, EvSyn},
		{uiSetEvBit, EvKey},
		{uiSetEvBit, EvAbs},
		{uiSetKeyBit, BtnTouch},
		{uiSetAbsBit, AbsMTSlot},
		{uiSetAbsBit, AbsMTTrackingID},
		{uiSetAbsBit, AbsMTPositionX},
		{uiSetAbsBit, AbsMTPositionY},
		{uiSetAbsBit, AbsMTTouchMajor},
		{uiSetPropBit, InputPropDirect},
	}
	for _, b := range bits {
		if err := unix.IoctlSetInt(fd, b.req, b.val); err != nil {
			return fmt.Errorf("uinput ioctl 0x%X(%d): %w", b.req, b.val, err)
		}
	}

	var dev userDev
	copy(dev.Name[:maxNameSize-1], name)
	dev.ID = inputID{Bustype: busI2C, Vendor: 0x4858, Product: 0x8311, Version: 1}
	dev.Absmax[AbsMTSlot] = int32(slots - 1)
	dev.Absmax[AbsMTTrackingID] = maxTrackingID
	dev.Absmax[AbsMTPositionX] = axisMax(props.DisplayPhysicalWidth)
	dev.Absmax[AbsMTPositionY] = axisMax(props.DisplayPhysicalHeight)
	dev.Absmax[AbsMTTouchMajor] = 0xFF

	if err := binary.Write(f, binary.NativeEndian, &dev); err != nil {
		return fmt.Errorf("write uinput device setup: %w", err)
	}
	if err := ioctlNoArg(fd, uiDevCreate); err != nil {
		return fmt.Errorf("create uinput device: %w", err)
	}
	return nil
}

func axisMax(size uint32) int32 {
	if size == 0 {
		return 0
	}
	return int32(size - 1)
}

func ioctlNoArg(fd int, req uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, 0); errno != 0 {
		return errno
	}
	return nil
}

// Report implements hx83112.Reporter
func (d *Device) Report(objs hx83112.DetectedObjects) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return ErrDeviceClosed
	}
	return d.write(d.encoder.Encode(&objs))
}

// Release lifts every contact, for example after the touch service lost
// the controller.
func (d *Device) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return ErrDeviceClosed
	}
	if d.encoder.Mask() == 0 {
		return nil
	}
	return d.write(d.encoder.Release())
}

func (d *Device) write(events []Event) error {
	d.buf = MarshalEvents(d.buf[:0], events)
	if _, err := d.file.Write(d.buf); err != nil {
		return fmt.Errorf("write input events: %w", err)
	}
	return nil
}

// Close destroys the input device
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	if d.encoder.Mask() != 0 {
		_ = d.write(d.encoder.Release())
	}
	destroyErr := ioctlNoArg(int(d.file.Fd()), uiDevDestroy)
	closeErr := d.file.Close()
	d.file = nil
	if destroyErr != nil {
		return fmt.Errorf("destroy uinput device: %w", destroyErr)
	}
	return closeErr
}
