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
	"errors"

	"github.com/ZaparooProject/go-hx83112/internal/syncutil"
)

// Transport is one addressed connection to the touch controller. A single
// Tx call is one bus transaction: the write phase (command byte followed by
// payload) and, when r is non-empty, a read phase after a repeated start.
// Implementations do not retry; Bus owns the retry policy.
type Transport interface {
	// Tx performs one bus transaction
	Tx(w, r []byte) error

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType

	// String returns the bus name used in errors and traces
	String() string
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportI2C represents I2C bus transport.
	TransportI2C TransportType = "i2c"
	// TransportVirtual represents the register-level simulator.
	TransportVirtual TransportType = "virtual"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// TxRecord is one transaction observed by MockTransport.
type TxRecord struct {
	W       []byte
	ReadLen int
	Err     error
}

// Command returns the bus command byte of the transaction, or 0 if the write
// phase was empty.
func (r TxRecord) Command() byte {
	if len(r.W) == 0 {
		return 0
	}
	return r.W[0]
}

// MockTransport provides a scripted implementation of Transport for testing.
// Reads are answered from per-command response queues; failures can be
// injected per command, either permanently or for the next n attempts.
type MockTransport struct {
	responses map[byte][][]byte
	callCount map[byte]int
	errorMap  map[byte]error
	failNext  map[byte]int
	failErr   error
	log       []TxRecord
	mu        syncutil.RWMutex
	connected bool
}

// ErrMockBusFault is the default error returned for injected failures.
var ErrMockBusFault = errors.New("mock bus fault")

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		connected: true,
		responses: make(map[byte][][]byte),
		callCount: make(map[byte]int),
		errorMap:  make(map[byte]error),
		failNext:  make(map[byte]int),
		failErr:   ErrMockBusFault,
	}
}

// Tx implements Transport interface
func (m *MockTransport) Tx(w, r []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := TxRecord{W: append([]byte(nil), w...), ReadLen: len(r)}
	cmd := rec.Command()

	if !m.connected {
		rec.Err = ErrTransportClosed
		m.log = append(m.log, rec)
		return rec.Err
	}

	m.callCount[cmd]++

	if err, exists := m.errorMap[cmd]; exists {
		rec.Err = err
	} else if n := m.failNext[cmd]; n > 0 {
		m.failNext[cmd] = n - 1
		rec.Err = m.failErr
	}
	m.log = append(m.log, rec)
	if rec.Err != nil {
		return rec.Err
	}

	if len(r) > 0 {
		clear(r)
		if queue := m.responses[cmd]; len(queue) > 0 {
			copy(r, queue[0])
			// The last response repeats forever
			if len(queue) > 1 {
				m.responses[cmd] = queue[1:]
			}
		}
	}
	return nil
}

// Close implements Transport interface
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// IsConnected implements Transport interface
func (m *MockTransport) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Type implements Transport interface
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// String implements Transport interface
func (*MockTransport) String() string {
	return "mock://hx83112"
}

// Test helper methods

// QueueResponse appends a response for reads of a specific command. Once the
// queue is down to its last entry, that entry answers every further read.
func (m *MockTransport) QueueResponse(cmd byte, response []byte) {
	m.mu.Lock()
	m.responses[cmd] = append(m.responses[cmd], append([]byte(nil), response...))
	m.mu.Unlock()
}

// SetError configures an error to be returned for every transaction on a
// specific command.
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	m.errorMap[cmd] = err
	m.mu.Unlock()
}

// ClearError removes error injection for a command
func (m *MockTransport) ClearError(cmd byte) {
	m.mu.Lock()
	delete(m.errorMap, cmd)
	m.mu.Unlock()
}

// FailNext makes the next n transactions on cmd fail with ErrMockBusFault.
func (m *MockTransport) FailNext(cmd byte, n int) {
	m.mu.Lock()
	m.failNext[cmd] = n
	m.mu.Unlock()
}

// GetCallCount returns how many transactions were issued for a command
func (m *MockTransport) GetCallCount(cmd byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount[cmd]
}

// Log returns a copy of every transaction seen so far, in order.
func (m *MockTransport) Log() []TxRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TxRecord(nil), m.log...)
}

// Reset clears all call counts, the transaction log and injected errors.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	m.callCount = make(map[byte]int)
	m.errorMap = make(map[byte]error)
	m.failNext = make(map[byte]int)
	m.log = nil
	m.connected = true
	m.mu.Unlock()
}
