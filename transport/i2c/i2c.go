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

// Package i2c provides the I2C transport for the HX83112 touch controller
package i2c

import (
	"fmt"
	"strconv"
	"strings"

	hx83112 "github.com/ZaparooProject/go-hx83112"
	"github.com/ZaparooProject/go-hx83112/internal/syncutil"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the HX83112 7-bit I2C address.
	DefaultAddress uint16 = 0x48

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz
)

// Option configures a Transport
type Option func(*Transport)

// WithAddress overrides the 7-bit device address.
func WithAddress(addr uint16) Option {
	return func(t *Transport) {
		t.dev.Addr = addr
	}
}

// WithSpeed overrides the bus clock. Zero leaves the bus at its default.
func WithSpeed(f physic.Frequency) Option {
	return func(t *Transport) {
		t.speed = f
	}
}

// Transport implements the hx83112.Transport interface for I2C communication
type Transport struct {
	dev     *i2c.Dev
	bus     i2c.BusCloser // Held so Close() can release the OS file descriptor
	busName string
	speed   physic.Frequency
	mu      syncutil.Mutex
	closed  bool
}

// ParsePath splits "bus:addr" into the bus name and the address. A path
// without an address uses DefaultAddress. The address accepts 0x-prefixed
// hex or decimal.
func ParsePath(path string) (busName string, addr uint16, err error) {
	busName, rawAddr, found := strings.Cut(path, ":")
	if !found || rawAddr == "" {
		return busName, DefaultAddress, nil
	}
	v, err := strconv.ParseUint(rawAddr, 0, 7)
	if err != nil {
		return "", 0, fmt.Errorf("invalid I2C address %q: %w", rawAddr, err)
	}
	return busName, uint16(v), nil
}

// New opens an I2C bus by name ("" picks the first bus, "1" or
// "/dev/i2c-1" select one) and addresses the controller on it.
func New(busName string, opts ...Option) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	return NewFromBus(bus, busName, opts...), nil
}

// NewFromBus wraps an already open bus. The transport owns bus and closes
// it on Close.
func NewFromBus(bus i2c.BusCloser, busName string, opts ...Option) *Transport {
	t := &Transport{
		dev:     &i2c.Dev{Addr: DefaultAddress, Bus: bus},
		bus:     bus,
		busName: busName,
		speed:   maxClockFreq,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.speed > 0 {
		if err := bus.SetSpeed(t.speed); err != nil {
			// Continue with the bus default speed
			hx83112.Debugf("I2C %s: cannot set speed %s: %v", busName, t.speed, err)
		}
	}
	return t
}

// Tx performs one addressed transaction: the write phase and, when r is not
// empty, a read phase after a repeated start.
func (t *Transport) Tx(w, r []byte) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return hx83112.NewTransportClosedError("Tx", t.String())
	}

	if err := t.dev.Tx(w, r); err != nil {
		return fmt.Errorf("i2c tx 0x%02X: %w", firstByte(w), err)
	}
	return nil
}

func firstByte(w []byte) byte {
	if len(w) == 0 {
		return 0
	}
	return w[0]
}

// Close closes the I2C transport
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.bus.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Type returns the transport type
func (*Transport) Type() hx83112.TransportType {
	return hx83112.TransportI2C
}

// String returns the bus name and device address
func (t *Transport) String() string {
	return fmt.Sprintf("%s:0x%02X", t.busName, t.dev.Addr)
}

// Address returns the 7-bit device address
func (t *Transport) Address() uint16 {
	return t.dev.Addr
}

// Ensure Transport implements hx83112.Transport
var _ hx83112.Transport = (*Transport)(nil)
