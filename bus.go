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

	"github.com/ZaparooProject/go-hx83112/internal/frame"
)

// Bus issues single addressed transactions on a Transport with a bounded
// number of attempts and a fixed wait between failed attempts. It does not
// look at why an attempt failed: any error is retried until the budget is
// spent.
//
// Bus is not safe for concurrent use; the Controller lock serializes it.
type Bus struct {
	transport Transport
	delay     time.Duration
}

// NewBus creates a bus on top of transport using BusRetryDelay between
// failed attempts.
func NewBus(transport Transport) *Bus {
	return &Bus{
		transport: transport,
		delay:     BusRetryDelay,
	}
}

// Transport returns the underlying transport
func (b *Bus) Transport() Transport {
	return b.transport
}

// SetRetryDelay overrides the wait between failed attempts.
func (b *Bus) SetRetryDelay(d time.Duration) {
	b.delay = d
}

// sleepCtx performs a context-aware sleep. Returns ctx.Err() if context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Write sends cmd followed by data, making at most retries attempts.
func (b *Bus) Write(ctx context.Context, cmd byte, data []byte, retries int) error {
	w := frame.GetBuffer(1 + len(data))
	if w == nil {
		w = make([]byte, 1+len(data))
	} else {
		defer frame.PutBuffer(w)
	}
	w[0] = cmd
	copy(w[1:], data)

	return b.transact(ctx, "BusWrite", w, nil, retries)
}

// WriteCommand sends a bare command byte with no payload.
func (b *Bus) WriteCommand(ctx context.Context, cmd byte, retries int) error {
	return b.transact(ctx, "BusWriteCommand", []byte{cmd}, nil, retries)
}

// Read sends cmd and reads len(buf) bytes back, making at most retries
// attempts. buf is only meaningful when Read returns nil.
func (b *Bus) Read(ctx context.Context, cmd byte, buf []byte, retries int) error {
	return b.transact(ctx, "BusRead", []byte{cmd}, buf, retries)
}

func (b *Bus) transact(ctx context.Context, op string, w, r []byte, retries int) error {
	if retries <= 0 {
		retries = 1
	}

	trace := NewTraceBuffer(string(b.transport.Type()), b.transport.String(), retries)

	var lastErr, waitErr error
	for attempt := range retries {
		err := b.transport.Tx(w, r)
		if err == nil {
			if attempt > 0 {
				Debugf("%s 0x%02X succeeded on attempt %d", op, w[0], attempt+1)
			}
			return nil
		}
		lastErr = err
		trace.RecordTX(w, fmt.Sprintf("attempt %d: %v", attempt+1, err))

		if attempt < retries-1 {
			if waitErr = sleepCtx(ctx, b.delay); waitErr != nil {
				break
			}
		}
	}

	Errorf("%s 0x%02X error after %d attempts - %v", op, w[0], trace.Len(), lastErr)

	var terr *TransportError
	if len(r) > 0 {
		terr = NewTransportReadError(op, b.transport.String(), lastErr)
	} else {
		terr = NewTransportWriteError(op, b.transport.String(), lastErr)
	}
	if waitErr != nil {
		return errors.Join(trace.WrapError(terr), waitErr)
	}
	return trace.WrapError(terr)
}
