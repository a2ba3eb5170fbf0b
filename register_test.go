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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegisters() (*Registers, *MockTransport) {
	bus, mock := newTestBus()
	return NewRegisters(bus), mock
}

// writesTo returns the payloads written to cmd, in order.
func writesTo(log []TxRecord, cmd byte) [][]byte {
	var out [][]byte
	for _, rec := range log {
		if rec.Command() == cmd && rec.ReadLen == 0 && len(rec.W) > 1 {
			out = append(out, rec.W[1:])
		}
	}
	return out
}

func TestRegisters_BurstBracketByLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		length    int
		bracketed bool
	}{
		{name: "one byte", length: 1},
		{name: "one word", length: 4},
		{name: "just over a word", length: 5, bracketed: true},
		{name: "frame", length: 56, bracketed: true},
		{name: "max chunk", length: MaxChunkSize, bracketed: true},
	}

	for _, tt := range tests {
		for _, write := range []bool{false, true} {
			name := tt.name + "/read"
			if write {
				name = tt.name + "/write"
			}
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				regs, mock := newTestRegisters()
				buf := make([]byte, tt.length)
				var err error
				if write {
					err = regs.Write(context.Background(), 0x10007000, buf, AccessAHB)
				} else {
					err = regs.Read(context.Background(), 0x10007000, buf, AccessAHB)
				}
				require.NoError(t, err)

				conti := writesTo(mock.Log(), cmdConti)
				incr4 := writesTo(mock.Log(), cmdIncr4)
				if !tt.bracketed {
					assert.Empty(t, conti)
					assert.Empty(t, incr4)
					return
				}
				assert.Equal(t, [][]byte{{0x31}, {0x31}}, conti)
				assert.Equal(t, [][]byte{{0x11}, {0x10}}, incr4)
			})
		}
	}
}

func TestRegisters_ReadSequence(t *testing.T) {
	t.Parallel()

	regs, mock := newTestRegisters()
	mock.QueueResponse(cmdAHBReadData, []byte{0x00, 0x01, 0x02, 0x03})

	buf := make([]byte, 4)
	require.NoError(t, regs.Read(context.Background(), 0x900000E4, buf, AccessAHB))

	assert.Equal(t, []byte{0x00, 0x01, 0x02, 0x03}, buf)
	log := mock.Log()
	require.Len(t, log, 3)
	assert.Equal(t, []byte{0x00, 0xE4, 0x00, 0x00, 0x90}, log[0].W)
	assert.Equal(t, []byte{0x0C, 0x00}, log[1].W)
	assert.Equal(t, []byte{0x08}, log[2].W)
	assert.Equal(t, 4, log[2].ReadLen)
}

func TestRegisters_WriteIsOneCombinedTransaction(t *testing.T) {
	t.Parallel()

	regs, mock := newTestRegisters()

	require.NoError(t, regs.Write(context.Background(), 0x90000018, []byte{0x55, 0, 0, 0}, AccessAHB))

	log := mock.Log()
	require.Len(t, log, 1)
	assert.Equal(t, []byte{0x00, 0x18, 0x00, 0x00, 0x90, 0x55, 0x00, 0x00, 0x00}, log[0].W)
}

func TestRegisters_SizeLimitBeforeTraffic(t *testing.T) {
	t.Parallel()

	regs, mock := newTestRegisters()

	err := regs.Read(context.Background(), 0x10007000, make([]byte, MaxChunkSize+1), AccessAHB)

	require.ErrorIs(t, err, ErrSizeLimitExceeded)
	assert.False(t, IsRetryable(err))
	assert.Empty(t, mock.Log())
}

func TestRegisters_AllocationFailureBeforeTraffic(t *testing.T) {
	t.Parallel()

	regs, mock := newTestRegisters()

	err := regs.Write(context.Background(), 0x10007000, make([]byte, 8188), AccessAHB)

	require.ErrorIs(t, err, ErrAllocationFailed)
	assert.Empty(t, mock.Log())
}

func TestRegisters_BracketClosedAfterDataFailure(t *testing.T) {
	t.Parallel()

	regs, mock := newTestRegisters()
	mock.SetError(cmdAHBReadData, ErrMockBusFault)

	err := regs.Read(context.Background(), 0x10007000, make([]byte, 8), AccessAHB)

	require.ErrorIs(t, err, ErrTransportRead)
	assert.Equal(t, BusRetryTimes, mock.GetCallCount(cmdAHBReadData))
	assert.Equal(t, [][]byte{{0x11}, {0x10}}, writesTo(mock.Log(), cmdIncr4))
	log := mock.Log()
	assert.Equal(t, []byte{cmdIncr4, 0x10}, log[len(log)-1].W)
}

func TestRegisters_OpenFailureSkipsTransfer(t *testing.T) {
	t.Parallel()

	regs, mock := newTestRegisters()
	mock.SetError(cmdConti, ErrMockBusFault)

	err := regs.Write(context.Background(), 0x10007000, make([]byte, 8), AccessAHB)

	require.ErrorIs(t, err, ErrTransportWrite)
	assert.Zero(t, mock.GetCallCount(cmdAHBAddr))
}

func TestRegisters_DirectAccess(t *testing.T) {
	t.Parallel()

	regs, mock := newTestRegisters()
	mock.QueueResponse(cmdPasswordLow, []byte{0xA5})
	ctx := context.Background()

	buf := make([]byte, 1)
	require.NoError(t, regs.Read(ctx, uint32(cmdPasswordLow), buf, AccessDirect))
	require.NoError(t, regs.Write(ctx, uint32(cmdPasswordHigh), []byte{0x00}, AccessDirect))

	assert.Equal(t, byte(0xA5), buf[0])
	log := mock.Log()
	require.Len(t, log, 2)
	assert.Equal(t, []byte{0x31}, log[0].W)
	assert.Equal(t, []byte{0x32, 0x00}, log[1].W)
}

func TestRegisters_InvalidAccessMode(t *testing.T) {
	t.Parallel()

	regs, mock := newTestRegisters()
	ctx := context.Background()

	require.ErrorIs(t, regs.Read(ctx, 0, make([]byte, 4), AccessMode(7)), ErrInvalidParameter)
	require.ErrorIs(t, regs.Write(ctx, 0, make([]byte, 4), AccessMode(7)), ErrInvalidParameter)
	assert.Empty(t, mock.Log())
	assert.Equal(t, "mode(7)", AccessMode(7).String())
}

func TestRegisters_WriteBurst(t *testing.T) {
	t.Parallel()

	regs, mock := newTestRegisters()

	require.NoError(t, regs.WriteBurst(context.Background(), 0x10007F04, [WordSize]byte{}))

	log := mock.Log()
	require.Len(t, log, 1)
	assert.Equal(t, []byte{0x00, 0x04, 0x7F, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00}, log[0].W)
}

func TestRegisters_WriteUsesRetryBudget(t *testing.T) {
	t.Parallel()

	regs, mock := newTestRegisters()
	mock.SetError(cmdAHBAddr, ErrMockBusFault)

	err := regs.Write(context.Background(), 0x9000005C, make([]byte, 4), AccessAHB)

	require.ErrorIs(t, err, ErrTransportWrite)
	assert.Equal(t, BusRetryTimes, mock.GetCallCount(cmdAHBAddr))
	assert.Equal(t, Transport(mock), regs.Bus().Transport())
}
