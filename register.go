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

	"github.com/ZaparooProject/go-hx83112/internal/frame"
)

// Bus commands of the indirect (AHB) access channel.
const (
	cmdAHBAddr      byte = 0x00 // ic_adr_ahb_addr_byte_0, also the event stack burst toggle
	cmdAHBReadData  byte = 0x08 // ic_adr_ahb_rdata_byte_0
	cmdAHBDirection byte = 0x0C // ic_cmd_ahb_access_direction
	cmdIncr4        byte = 0x0D // ic_cmd_incr4
	cmdConti        byte = 0x13 // ic_cmd_conti
	cmdEventStack   byte = 0x30
	cmdPasswordLow  byte = 0x31 // ic_adr_i2c_psw_lb
	cmdPasswordHigh byte = 0x32 // ic_adr_i2c_psw_ub
)

// Control values written to the channel registers.
const (
	contiBurstOn      byte = 0x31
	incr4Base         byte = 0x10
	incr4AutoAdd      byte = 0x01
	directionRead     byte = 0x00
	eventBurstReadOff byte = 0x00
	eventBurstReadOn  byte = 0x01
)

const (
	// WordSize is the AHB word width. Transfers longer than one word need the
	// burst bracket.
	WordSize = 4
	// MaxChunkSize is the largest indirect read accepted in one call.
	MaxChunkSize = 256
)

// AccessMode selects how a register address is interpreted.
type AccessMode uint8

const (
	// AccessAHB addresses the controller's 32-bit internal memory through the
	// address/direction/data channel registers.
	AccessAHB AccessMode = 0
	// AccessDirect treats the low byte of the address as a native bus command.
	AccessDirect AccessMode = 1
)

// String returns the access mode name
func (m AccessMode) String() string {
	switch m {
	case AccessAHB:
		return "ahb"
	case AccessDirect:
		return "direct"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Registers implements the indirect register protocol on top of a Bus.
//
// Any AHB transfer longer than one word is bracketed by BurstEnable(true) and
// BurstEnable(false). Leaving 4-byte auto-increment on corrupts the next
// single-word access, so the closing half of the bracket is always attempted.
type Registers struct {
	bus     *Bus
	retries int
}

// NewRegisters creates the register layer using BusRetryTimes per transaction.
func NewRegisters(bus *Bus) *Registers {
	return &Registers{bus: bus, retries: BusRetryTimes}
}

// Bus returns the underlying bus
func (r *Registers) Bus() *Bus {
	return r.bus
}

// BurstEnable puts the indirect channel into continuous burst mode and sets
// or clears 4-byte address auto-increment.
func (r *Registers) BurstEnable(ctx context.Context, autoIncrement bool) error {
	if err := r.bus.Write(ctx, cmdConti, []byte{contiBurstOn}, r.retries); err != nil {
		return fmt.Errorf("burst enable: %w", err)
	}

	incr := incr4Base
	if autoIncrement {
		incr |= incr4AutoAdd
	}
	if err := r.bus.Write(ctx, cmdIncr4, []byte{incr}, r.retries); err != nil {
		return fmt.Errorf("burst enable: %w", err)
	}
	return nil
}

// bracket runs transfer inside the burst bracket when length exceeds one
// word. The transfer error takes precedence over a failure to close the
// bracket.
func (r *Registers) bracket(ctx context.Context, length int, transfer func() error) error {
	if length <= WordSize {
		return transfer()
	}

	if err := r.BurstEnable(ctx, true); err != nil {
		return err
	}
	err := transfer()
	if offErr := r.BurstEnable(ctx, false); offErr != nil && err == nil {
		err = offErr
	}
	return err
}

// Read reads len(buf) bytes starting at addr.
func (r *Registers) Read(ctx context.Context, addr uint32, buf []byte, mode AccessMode) error {
	switch mode {
	case AccessDirect:
		return r.bus.Read(ctx, byte(addr), buf, r.retries)
	case AccessAHB:
	default:
		return fmt.Errorf("register read 0x%08X: %w: access %s", addr, ErrInvalidParameter, mode)
	}

	if len(buf) > MaxChunkSize {
		Errorf("register read 0x%08X: chunk size cannot be over %d", addr, MaxChunkSize)
		return NewSizeLimitError("RegisterRead", len(buf))
	}

	return r.bracket(ctx, len(buf), func() error {
		var address [WordSize]byte
		binary.LittleEndian.PutUint32(address[:], addr)

		if err := r.bus.Write(ctx, cmdAHBAddr, address[:], r.retries); err != nil {
			return fmt.Errorf("register read 0x%08X address: %w", addr, err)
		}
		if err := r.bus.Write(ctx, cmdAHBDirection, []byte{directionRead}, r.retries); err != nil {
			return fmt.Errorf("register read 0x%08X direction: %w", addr, err)
		}
		if err := r.bus.Read(ctx, cmdAHBReadData, buf, r.retries); err != nil {
			return fmt.Errorf("register read 0x%08X data: %w", addr, err)
		}
		return nil
	})
}

// Write writes data starting at addr. An AHB write is a single combined
// transaction carrying the little-endian address followed by the payload.
func (r *Registers) Write(ctx context.Context, addr uint32, data []byte, mode AccessMode) error {
	switch mode {
	case AccessDirect:
		return r.bus.Write(ctx, byte(addr), data, r.retries)
	case AccessAHB:
	default:
		return fmt.Errorf("register write 0x%08X: %w: access %s", addr, ErrInvalidParameter, mode)
	}

	scratch := frame.GetBuffer(len(data) + WordSize)
	if scratch == nil {
		return fmt.Errorf("register write 0x%08X (%d bytes): %w", addr, len(data), ErrAllocationFailed)
	}
	defer frame.PutBuffer(scratch)

	binary.LittleEndian.PutUint32(scratch, addr)
	copy(scratch[WordSize:], data)

	return r.bracket(ctx, len(data), func() error {
		if err := r.bus.Write(ctx, cmdAHBAddr, scratch, r.retries); err != nil {
			return fmt.Errorf("register write 0x%08X: %w", addr, err)
		}
		return nil
	})
}

// WriteBurst writes one AHB word as a single address+data transaction with no
// burst bracket.
func (r *Registers) WriteBurst(ctx context.Context, addr uint32, word [WordSize]byte) error {
	var buf [2 * WordSize]byte
	binary.LittleEndian.PutUint32(buf[:WordSize], addr)
	copy(buf[WordSize:], word[:])

	if err := r.bus.Write(ctx, cmdAHBAddr, buf[:], r.retries); err != nil {
		return fmt.Errorf("register burst write 0x%08X: %w", addr, err)
	}
	return nil
}
