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
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBringup() (*Bringup, *MockTransport) {
	regs, mock := newTestRegisters()
	b := NewBringup(regs)
	b.SetDelays(0, 0)
	return b, mock
}

// confirmBurst makes the burst control registers read back as written.
func confirmBurst(mock *MockTransport) {
	mock.QueueResponse(cmdConti, []byte{contiBurstOn})
	mock.QueueResponse(cmdIncr4, []byte{incr4Base})
}

// ahbWrites returns the payloads of every AHB write to addr.
func ahbWrites(log []TxRecord, addr uint32) [][]byte {
	prefix := []byte{byte(addr), byte(addr >> 8), byte(addr >> 16), byte(addr >> 24)}
	var out [][]byte
	for _, w := range writesTo(log, cmdAHBAddr) {
		if len(w) > WordSize && bytes.Equal(w[:WordSize], prefix) {
			out = append(out, w[WordSize:])
		}
	}
	return out
}

func TestInterfaceOn_ConfirmsBurst(t *testing.T) {
	t.Parallel()

	b, mock := newTestBringup()
	mock.QueueResponse(cmdConti, []byte{0x00})
	mock.QueueResponse(cmdConti, []byte{0x00})
	mock.QueueResponse(cmdConti, []byte{contiBurstOn})
	mock.QueueResponse(cmdIncr4, []byte{incr4Base})

	polls, confirmed, err := b.InterfaceOn(context.Background())

	require.NoError(t, err)
	assert.True(t, confirmed)
	assert.Equal(t, 2, polls)
	assert.Equal(t, 1, mock.GetCallCount(cmdAHBReadData), "one dummy wake-up read")
}

func TestInterfaceOn_ExhaustsPolls(t *testing.T) {
	t.Parallel()

	b, mock := newTestBringup()

	polls, confirmed, err := b.InterfaceOn(context.Background())

	require.NoError(t, err, "unconfirmed burst mode is not fatal")
	assert.False(t, confirmed)
	assert.Equal(t, BurstConfirmPolls, polls)
	assert.Len(t, writesTo(mock.Log(), cmdConti), BurstConfirmPolls)
}

func TestInterfaceOn_BusAsleep(t *testing.T) {
	t.Parallel()

	b, mock := newTestBringup()
	mock.SetError(cmdAHBReadData, ErrMockBusFault)

	_, confirmed, err := b.InterfaceOn(context.Background())

	require.ErrorIs(t, err, ErrTransportRead)
	assert.False(t, confirmed)
	assert.Equal(t, BusRetryTimes, mock.GetCallCount(cmdAHBReadData))
	assert.Zero(t, mock.GetCallCount(cmdConti))
}

func TestSenseOn_NormalModeResets(t *testing.T) {
	t.Parallel()

	b, mock := newTestBringup()
	confirmBurst(mock)

	res, err := b.SenseOn(context.Background(), false)

	require.NoError(t, err)
	require.NoError(t, res.Degraded)
	assert.Equal(t, StateSenseActive, res.State)
	assert.True(t, res.BurstConfirmed)
	assert.True(t, res.Reset)
	assert.False(t, res.SafeModeReleased)
	assert.Zero(t, res.ReleaseAttempts)

	log := mock.Log()
	assert.Equal(t, [][]byte{{0, 0, 0, 0}}, ahbWrites(log, addrCtrlFW))
	assert.Equal(t, [][]byte{{0x55, 0, 0, 0}}, ahbWrites(log, addrSystemReset))
	assert.Empty(t, ahbWrites(log, addrSafeModeReleasePW))
}

func TestSenseOn_UnconfirmedBurstDegrades(t *testing.T) {
	t.Parallel()

	b, _ := newTestBringup()

	res, err := b.SenseOn(context.Background(), false)

	require.NoError(t, err)
	require.ErrorIs(t, res.Degraded, ErrBringupDegraded)
	assert.Equal(t, BurstConfirmPolls, res.BurstPolls)
	assert.Equal(t, StateSenseActive, res.State)
	assert.True(t, res.Reset)
}

func TestSenseOn_FlashModeRelease(t *testing.T) {
	t.Parallel()

	b, mock := newTestBringup()
	confirmBurst(mock)
	// First read answers the wake-up read, the rest answer status polls
	mock.QueueResponse(cmdAHBReadData, []byte{0, 0, 0, 0})
	mock.QueueResponse(cmdAHBReadData, []byte{0, 0, 0, 0})
	mock.QueueResponse(cmdAHBReadData, []byte{0x00, 0x01, 0x00, 0x00})

	res, err := b.SenseOn(context.Background(), true)

	require.NoError(t, err)
	require.NoError(t, res.Degraded)
	assert.Equal(t, StateSenseActive, res.State)
	assert.True(t, res.SafeModeReleased)
	assert.False(t, res.Reset)
	assert.Equal(t, 2, res.ReleaseAttempts)

	log := mock.Log()
	assert.Equal(t, [][]byte{{0x53, 0, 0, 0}, {0x53, 0, 0, 0}, {0, 0, 0, 0}},
		ahbWrites(log, addrSafeModeReleasePW))
	assert.Equal(t, [][]byte{{0x00}}, writesTo(log, cmdPasswordLow))
	assert.Equal(t, [][]byte{{0x00}}, writesTo(log, cmdPasswordHigh))
	assert.Empty(t, ahbWrites(log, addrSystemReset))
}

func TestSenseOn_FlashModeFallsBackToReset(t *testing.T) {
	t.Parallel()

	b, mock := newTestBringup()
	confirmBurst(mock)

	res, err := b.SenseOn(context.Background(), true)

	require.NoError(t, err)
	require.ErrorIs(t, res.Degraded, ErrBringupDegraded)
	assert.Equal(t, SafeModeReleaseRetries, res.ReleaseAttempts)
	assert.False(t, res.SafeModeReleased)
	assert.True(t, res.Reset)
	assert.Equal(t, StateSenseActive, res.State)

	log := mock.Log()
	assert.Len(t, ahbWrites(log, addrSafeModeReleasePW), SafeModeReleaseRetries)
	assert.Len(t, ahbWrites(log, addrSystemReset), 1)
	assert.Empty(t, writesTo(log, cmdPasswordLow))
}

func TestSenseOn_ResetUnreachable(t *testing.T) {
	t.Parallel()

	b, mock := newTestBringup()
	confirmBurst(mock)
	mock.SetError(cmdAHBAddr, ErrMockBusFault)

	res, err := b.SenseOn(context.Background(), false)

	require.NoError(t, err, "bring-up failures are reported in the result")
	require.ErrorIs(t, res.Degraded, ErrBringupDegraded)
	require.ErrorIs(t, res.Degraded, ErrTransportWrite)
	assert.Equal(t, StateBringupFailed, res.State)
	assert.False(t, res.Reset)
}

func TestSenseOn_CancelledContext(t *testing.T) {
	t.Parallel()

	b, mock := newTestBringup()
	confirmBurst(mock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.SenseOn(ctx, false)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ahbWrites(mock.Log(), addrSystemReset))
}

func TestConfigureFunctions_Sequence(t *testing.T) {
	t.Parallel()

	b, mock := newTestBringup()
	confirmBurst(mock)

	res, err := b.ConfigureFunctions(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StateSenseActive, res.State)

	log := mock.Log()
	require.GreaterOrEqual(t, len(log), 2)
	assert.Equal(t, []byte{0x00, 0xB4, 0x04, 0x02, 0x80, 0, 0, 0, 0}, log[0].W)
	assert.Equal(t, []byte{0x00, 0x04, 0x7F, 0x00, 0x10, 0, 0, 0, 0}, log[1].W)
}

func TestConfigureFunctions_LogsSortingWord(t *testing.T) {
	buf := captureLog(t)

	b, mock := newTestBringup()
	confirmBurst(mock)

	_, err := b.ConfigureFunctions(context.Background(), false)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "DEBUG: configure: sorting mode word 00 00 00 00\n")
	assert.NotContains(t, buf.String(), "tmp_data")
}

func TestBringupState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bus-asleep", StateBusAsleep.String())
	assert.Equal(t, "burst-confirmed", StateBurstConfirmed.String())
	assert.Equal(t, "sense-active", StateSenseActive.String())
	assert.Equal(t, "bringup-failed", StateBringupFailed.String())
	assert.Equal(t, "state(9)", BringupState(9).String())
}
