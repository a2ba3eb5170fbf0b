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
	"errors"
	"fmt"
	"time"
)

// AHB addresses used while bringing the controller up.
const (
	addrSystemReset       uint32 = 0x90000018 // addr_system_reset
	addrCtrlFW            uint32 = 0x9000005C // fw_addr_ctrl_fw_isr, pending event clear
	addrSafeModeReleasePW uint32 = 0x90000098 // fw_addr_safe_mode_release_pw
	addrFlagResetEvent    uint32 = 0x900000E4 // fw_addr_flag_reset_event
	addrRawOutSel         uint32 = 0x800204B4 // fw_addr_raw_out_sel
	addrSortingModeEn     uint32 = 0x10007F04 // fw_addr_sorting_mode_en
)

const (
	dataSystemReset       byte = 0x55
	dataSafeModeReleasePW byte = 0x53
)

// BringupState is a step of the sense-on sequence.
type BringupState int

const (
	// StateBusAsleep is the initial state; the interface has not answered yet.
	StateBusAsleep BringupState = iota
	// StateInterfaceAwake means the dummy wake-up read succeeded.
	StateInterfaceAwake
	// StateBurstConfirmed means continuous burst mode read back as written.
	StateBurstConfirmed
	// StateSenseActive means sensing was (re)started by a system reset or a
	// safe mode release.
	StateSenseActive
	// StateBringupFailed means neither the release nor the reset fallback
	// reached the controller.
	StateBringupFailed
)

// String returns the state name
func (s BringupState) String() string {
	switch s {
	case StateBusAsleep:
		return "bus-asleep"
	case StateInterfaceAwake:
		return "interface-awake"
	case StateBurstConfirmed:
		return "burst-confirmed"
	case StateSenseActive:
		return "sense-active"
	case StateBringupFailed:
		return "bringup-failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// BringupResult describes how far bring-up got and which fallbacks ran.
type BringupResult struct {
	// Degraded wraps ErrBringupDegraded when a poll budget was exhausted or a
	// step failed and the sequence fell back to a system reset. It is nil on
	// a clean bring-up.
	Degraded         error
	State            BringupState
	BurstPolls       int
	ReleaseAttempts  int
	BurstConfirmed   bool
	SafeModeReleased bool
	Reset            bool
}

func (r *BringupResult) degrade(err error) {
	if r.Degraded == nil {
		r.Degraded = fmt.Errorf("%w: %w", ErrBringupDegraded, err)
		return
	}
	r.Degraded = errors.Join(r.Degraded, err)
}

// Bringup sequences interface wake, burst confirmation and sense-on.
type Bringup struct {
	regs        *Registers
	pollDelay   time.Duration
	settleDelay time.Duration
}

// NewBringup creates a bring-up sequencer on top of the register layer.
func NewBringup(regs *Registers) *Bringup {
	return &Bringup{
		regs:        regs,
		pollDelay:   BurstPollDelay,
		settleDelay: SenseOnSettleDelay,
	}
}

// SetDelays overrides the burst poll and sense-on settle waits.
func (b *Bringup) SetDelays(poll, settle time.Duration) {
	b.pollDelay = poll
	b.settleDelay = settle
}

// Probe performs the interface wake read once, without retries. A nil
// error means a controller acknowledged at the transport's address.
func (b *Bringup) Probe(ctx context.Context) error {
	var dummy [WordSize]byte
	if err := b.regs.bus.Read(ctx, cmdAHBReadData, dummy[:], 1); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return nil
}

// InterfaceOn wakes the bus with a dummy read and then writes the burst
// control registers until they read back as written. It returns the number
// of rounds that did not confirm. Not confirming within BurstConfirmPolls is
// logged but is not an error; only a bus failure is.
func (b *Bringup) InterfaceOn(ctx context.Context) (polls int, confirmed bool, err error) {
	bus := b.regs.bus
	retries := b.regs.retries

	var dummy [WordSize]byte
	if err := bus.Read(ctx, cmdAHBReadData, dummy[:], retries); err != nil {
		return 0, false, fmt.Errorf("interface wake: %w", err)
	}

	for polls < BurstConfirmPolls {
		if err := bus.Write(ctx, cmdConti, []byte{contiBurstOn}, retries); err != nil {
			return polls, false, fmt.Errorf("interface burst mode: %w", err)
		}
		if err := bus.Write(ctx, cmdIncr4, []byte{incr4Base}, retries); err != nil {
			return polls, false, fmt.Errorf("interface burst mode: %w", err)
		}

		var conti, incr4 [1]byte
		contiErr := bus.Read(ctx, cmdConti, conti[:], retries)
		incr4Err := bus.Read(ctx, cmdIncr4, incr4[:], retries)
		if contiErr == nil && incr4Err == nil && conti[0] == contiBurstOn && incr4[0] == incr4Base {
			confirmed = true
			break
		}

		polls++
		if err := sleepCtx(ctx, b.pollDelay); err != nil {
			return polls, false, err
		}
	}

	if polls > 0 {
		Debugf("Polling burst mode: %d times", polls)
	}
	if !confirmed {
		Errorf("burst mode not confirmed after %d polls, continuing", polls)
	}
	return polls, confirmed, nil
}

// SystemReset writes the reset pattern to the system reset register.
func (b *Bringup) SystemReset(ctx context.Context) error {
	data := [WordSize]byte{dataSystemReset}
	if err := b.regs.Write(ctx, addrSystemReset, data[:], AccessAHB); err != nil {
		return fmt.Errorf("system reset: %w", err)
	}
	return nil
}

// SenseOn starts sensing. In normal mode this is a full system reset. In
// flash (safe) mode the release password is written until the reset event
// flag reads 00 01, falling back to a system reset when SafeModeReleaseRetries
// attempts do not release it.
//
// Degraded outcomes are reported in the result, never as an error; the
// returned error is non-nil only when ctx is done.
func (b *Bringup) SenseOn(ctx context.Context, flashMode bool) (BringupResult, error) {
	res := BringupResult{State: StateBusAsleep}

	polls, confirmed, err := b.InterfaceOn(ctx)
	res.BurstPolls = polls
	res.BurstConfirmed = confirmed
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	switch {
	case err != nil:
		Errorf("sense on: %v", err)
		res.degrade(err)
	case confirmed:
		res.State = StateBurstConfirmed
	default:
		res.State = StateInterfaceAwake
		res.degrade(errors.New("burst mode not confirmed"))
	}

	var zero [WordSize]byte
	if err := b.regs.Write(ctx, addrCtrlFW, zero[:], AccessAHB); err != nil {
		Errorf("sense on: clear pending event: %v", err)
	}

	if err := sleepCtx(ctx, b.settleDelay); err != nil {
		return res, err
	}

	if flashMode {
		if b.releaseSafeMode(ctx, &res) {
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	b.resetFallback(ctx, &res)
	return res, ctx.Err()
}

func (b *Bringup) resetFallback(ctx context.Context, res *BringupResult) {
	if err := b.SystemReset(ctx); err != nil {
		Errorf("sense on: %v", err)
		res.degrade(err)
		res.State = StateBringupFailed
		return
	}
	res.Reset = true
	res.State = StateSenseActive
}

// releaseSafeMode reports whether safe mode was released and protection
// re-armed.
func (b *Bringup) releaseSafeMode(ctx context.Context, res *BringupResult) bool {
	var status [WordSize]byte
	released := false

	for res.ReleaseAttempts < SafeModeReleaseRetries {
		if ctx.Err() != nil {
			return false
		}
		res.ReleaseAttempts++

		pw := [WordSize]byte{dataSafeModeReleasePW}
		if err := b.regs.Write(ctx, addrSafeModeReleasePW, pw[:], AccessAHB); err != nil {
			Debugf("safe mode release attempt %d: %v", res.ReleaseAttempts, err)
			continue
		}
		if err := b.regs.Read(ctx, addrFlagResetEvent, status[:], AccessAHB); err != nil {
			Debugf("safe mode release attempt %d: %v", res.ReleaseAttempts, err)
			continue
		}
		if status[0] == 0x00 && status[1] == 0x01 {
			released = true
			break
		}
	}

	if !released {
		Errorf("Safe mode release failed.")
		res.degrade(fmt.Errorf("safe mode not released after %d attempts", res.ReleaseAttempts))
		return false
	}

	Debugf("OK and Read status from IC = %x,%x", status[0], status[1])
	res.SafeModeReleased = true
	res.State = StateSenseActive

	// Re-arm password protection
	zero := []byte{0x00}
	if err := b.regs.Write(ctx, uint32(cmdPasswordLow), zero, AccessDirect); err != nil {
		res.degrade(fmt.Errorf("clear password low byte: %w", err))
		return true
	}
	if err := b.regs.Write(ctx, uint32(cmdPasswordHigh), zero, AccessDirect); err != nil {
		res.degrade(fmt.Errorf("clear password high byte: %w", err))
		return true
	}
	var pwReset [WordSize]byte
	if err := b.regs.Write(ctx, addrSafeModeReleasePW, pwReset[:], AccessAHB); err != nil {
		res.degrade(fmt.Errorf("reset release password: %w", err))
	}
	return true
}

// ConfigureFunctions prepares the controller for touch reporting: raw output
// selection off, sorting mode assigned, then sense-on in normal mode.
func (b *Bringup) ConfigureFunctions(ctx context.Context, flashMode bool) (BringupResult, error) {
	var zero [WordSize]byte

	if err := b.regs.Write(ctx, addrRawOutSel, zero[:], AccessAHB); err != nil {
		Errorf("configure: raw out select: %v", err)
	}

	Debugf("configure: sorting mode word % X", zero[:])
	if err := b.regs.WriteBurst(ctx, addrSortingModeEn, zero); err != nil {
		Errorf("configure: sorting mode: %v", err)
	}

	return b.SenseOn(ctx, flashMode)
}
