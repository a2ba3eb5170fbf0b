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

// Package testing provides test utilities including a register-level
// HX83112 simulator.
//
// VirtualHX83112 implements hx83112.Transport and models the part of the
// controller the driver talks to: the indirect AHB channel (address,
// direction, data, burst control), the bus password bytes, the event stack
// and the handful of AHB registers touched during bring-up.
package testing

import (
	"encoding/binary"
	"errors"
	"fmt"

	hx83112 "github.com/ZaparooProject/go-hx83112"
	"github.com/ZaparooProject/go-hx83112/internal/syncutil"
)

// Bus commands understood by the simulator
const (
	cmdAHBAddr      = 0x00
	cmdAHBReadData  = 0x08
	cmdAHBDirection = 0x0C
	cmdIncr4        = 0x0D
	cmdConti        = 0x13
	cmdEventStack   = 0x30
	cmdPasswordLow  = 0x31
	cmdPasswordHigh = 0x32
)

// AHB registers with side effects
const (
	AddrSystemReset       uint32 = 0x90000018
	AddrCtrlFW            uint32 = 0x9000005C
	AddrSafeModeReleasePW uint32 = 0x90000098
	AddrFlagResetEvent    uint32 = 0x900000E4
	AddrRawOutSel         uint32 = 0x800204B4
	AddrSortingModeEn     uint32 = 0x10007F04
)

const (
	contiBurstOn   = 0x31
	incr4AutoAdd   = 0x01
	resetPattern   = 0x55
	releasePattern = 0x53
)

// ErrSimulatedNAK is returned for injected bus failures and while the
// simulated controller is asleep.
var ErrSimulatedNAK = errors.New("simulated bus NAK")

// VirtualHX83112 simulates an HX83112 touch controller at the bus
// transaction level.
type VirtualHX83112 struct {
	mem          map[uint32]byte
	failNext     map[byte]int
	events       [][]byte
	violations   []string
	eventToggles []byte
	mu           syncutil.Mutex
	addr         uint32
	releaseAfter int
	pwWrites     int
	resets       int
	txCount      int
	password     [2]byte
	conti        byte
	incr4        byte
	direction    byte
	asleep       bool
	burstStuck   bool
	closed       bool
}

// NewVirtualHX83112 creates a simulator that wakes immediately, confirms
// burst mode on the first poll and never releases safe mode.
func NewVirtualHX83112() *VirtualHX83112 {
	return &VirtualHX83112{
		mem:       make(map[uint32]byte),
		failNext:  make(map[byte]int),
		direction: 0xFF,
	}
}

// SetReleaseAfter makes the reset event flag read 00 01 once n release
// passwords have been written. Zero never releases.
func (v *VirtualHX83112) SetReleaseAfter(n int) {
	v.mu.Lock()
	v.releaseAfter = n
	v.mu.Unlock()
}

// SetBurstStuck makes the burst control registers read back zero, so burst
// mode is never confirmed.
func (v *VirtualHX83112) SetBurstStuck(stuck bool) {
	v.mu.Lock()
	v.burstStuck = stuck
	v.mu.Unlock()
}

// SetAsleep makes every transaction fail, as if the controller never
// answered its address.
func (v *VirtualHX83112) SetAsleep(asleep bool) {
	v.mu.Lock()
	v.asleep = asleep
	v.mu.Unlock()
}

// FailNext makes the next n transactions on cmd fail.
func (v *VirtualHX83112) FailNext(cmd byte, n int) {
	v.mu.Lock()
	v.failNext[cmd] = n
	v.mu.Unlock()
}

// QueueFrame queues one event stack frame. With nothing queued the event
// stack reads as all 0xFF: no fingers, no state.
func (v *VirtualHX83112) QueueFrame(frame []byte) {
	v.mu.Lock()
	v.events = append(v.events, append([]byte(nil), frame...))
	v.mu.Unlock()
}

// Poke stores a word in AHB memory without bus traffic.
func (v *VirtualHX83112) Poke(addr uint32, word [4]byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, b := range word {
		v.mem[addr+uint32(i)] = b
	}
}

// Peek reads a word of AHB memory without bus traffic.
func (v *VirtualHX83112) Peek(addr uint32) [4]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	var word [4]byte
	for i := range word {
		word[i] = v.mem[addr+uint32(i)]
	}
	return word
}

// Resets returns how many system resets were written.
func (v *VirtualHX83112) Resets() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resets
}

// PasswordWrites returns how many release passwords were written.
func (v *VirtualHX83112) PasswordWrites() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pwWrites
}

// Password returns the bus password bytes written with direct access.
func (v *VirtualHX83112) Password() [2]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.password
}

// EventToggles returns every value written to the event stack burst toggle.
func (v *VirtualHX83112) EventToggles() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.eventToggles...)
}

// Violations lists protocol misuse seen so far, such as multi-word
// transfers without auto-increment.
func (v *VirtualHX83112) Violations() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.violations...)
}

// TxCount returns the number of transactions attempted.
func (v *VirtualHX83112) TxCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.txCount
}

// AutoIncrement reports whether 4-byte address auto-increment is on.
func (v *VirtualHX83112) AutoIncrement() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.incr4&incr4AutoAdd != 0
}

// Tx implements hx83112.Transport
func (v *VirtualHX83112) Tx(w, r []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.txCount++
	if v.closed {
		return hx83112.ErrTransportClosed
	}
	if len(w) == 0 {
		return fmt.Errorf("%w: empty write phase", ErrSimulatedNAK)
	}
	cmd := w[0]
	if v.asleep {
		return ErrSimulatedNAK
	}
	if n := v.failNext[cmd]; n > 0 {
		v.failNext[cmd] = n - 1
		return fmt.Errorf("%w: command 0x%02X", ErrSimulatedNAK, cmd)
	}

	if len(w) > 1 {
		v.write(cmd, w[1:])
	}
	if len(r) > 0 {
		v.read(cmd, r)
	}
	return nil
}

func (v *VirtualHX83112) violation(format string, args ...any) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

func (v *VirtualHX83112) write(cmd byte, data []byte) {
	switch cmd {
	case cmdAHBAddr:
		if len(data) == 1 {
			v.eventToggles = append(v.eventToggles, data[0])
			return
		}
		if len(data) < 4 {
			v.violation("short address write: %d bytes", len(data))
			return
		}
		v.addr = binary.LittleEndian.Uint32(data[:4])
		payload := data[4:]
		if len(payload) > 4 && v.incr4&incr4AutoAdd == 0 {
			v.violation("%d byte write to 0x%08X without auto-increment", len(payload), v.addr)
		}
		for i, b := range payload {
			v.mem[v.addr+uint32(i)] = b
		}
		if len(payload) > 0 {
			v.onAHBWrite(v.addr, payload)
		}
	case cmdAHBDirection:
		v.direction = data[0]
	case cmdConti:
		v.conti = data[0]
	case cmdIncr4:
		v.incr4 = data[0]
	case cmdPasswordLow:
		v.password[0] = data[0]
	case cmdPasswordHigh:
		v.password[1] = data[0]
	default:
		v.violation("write to unknown command 0x%02X", cmd)
	}
}

func (v *VirtualHX83112) onAHBWrite(addr uint32, payload []byte) {
	switch addr {
	case AddrSystemReset:
		if payload[0] == resetPattern {
			v.resets++
			v.conti, v.incr4 = 0, 0
		}
	case AddrSafeModeReleasePW:
		if payload[0] != releasePattern {
			return
		}
		v.pwWrites++
		if v.releaseAfter > 0 && v.pwWrites >= v.releaseAfter {
			v.mem[AddrFlagResetEvent] = 0x00
			v.mem[AddrFlagResetEvent+1] = 0x01
		}
	}
}

func (v *VirtualHX83112) read(cmd byte, r []byte) {
	clear(r)
	switch cmd {
	case cmdAHBReadData:
		if len(r) > 4 && v.incr4&incr4AutoAdd == 0 {
			v.violation("%d byte read of 0x%08X without auto-increment", len(r), v.addr)
		}
		if v.direction != 0 {
			// Wake-up reads arrive before any address was set
			return
		}
		for i := range r {
			r[i] = v.mem[v.addr+uint32(i)]
		}
	case cmdConti:
		if !v.burstStuck {
			r[0] = v.conti
		}
	case cmdIncr4:
		if !v.burstStuck {
			r[0] = v.incr4
		}
	case cmdEventStack:
		if len(v.events) == 0 {
			for i := range r {
				r[i] = 0xFF
			}
			return
		}
		copy(r, v.events[0])
		v.events = v.events[1:]
	default:
		v.violation("read of unknown command 0x%02X", cmd)
	}
}

// Close implements hx83112.Transport
func (v *VirtualHX83112) Close() error {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	return nil
}

// IsConnected implements hx83112.Transport
func (v *VirtualHX83112) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

// Type implements hx83112.Transport
func (*VirtualHX83112) Type() hx83112.TransportType {
	return hx83112.TransportVirtual
}

// String implements hx83112.Transport
func (*VirtualHX83112) String() string {
	return "virtual://hx83112"
}

var _ hx83112.Transport = (*VirtualHX83112)(nil)
