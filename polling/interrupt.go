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

package polling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrPinNotFound is returned when the named interrupt line does not exist.
var ErrPinNotFound = errors.New("interrupt pin not found")

// InterruptSource waits for the controller to signal that touch data is
// ready. Wait returns true when the line fired and false when the wait
// timed out without an event.
type InterruptSource interface {
	Wait(ctx context.Context) (bool, error)
	Close() error
}

// GPIOInterrupt waits for falling edges on the controller's active-low
// interrupt line.
type GPIOInterrupt struct {
	pin     gpio.PinIn
	timeout time.Duration
}

// NewGPIOInterrupt configures pin as a pulled-up input with falling edge
// detection. timeout bounds each call to Wait.
func NewGPIOInterrupt(pin gpio.PinIn, timeout time.Duration) (*GPIOInterrupt, error) {
	if pin == nil {
		return nil, ErrPinNotFound
	}
	if timeout <= 0 {
		timeout = DefaultConfig().InterruptTimeout
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure interrupt pin %s: %w", pin, err)
	}
	return &GPIOInterrupt{pin: pin, timeout: timeout}, nil
}

// OpenGPIOInterrupt looks up a pin by name through the periph registry.
func OpenGPIOInterrupt(name string, timeout time.Duration) (*GPIOInterrupt, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return NewGPIOInterrupt(pin, timeout)
}

// Wait blocks until a falling edge or the configured timeout. The line is
// level checked after a timeout so an edge lost while servicing the
// previous frame is still picked up.
func (g *GPIOInterrupt) Wait(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if g.pin.WaitForEdge(g.timeout) {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return g.pin.Read() == gpio.Low, nil
}

// Close halts edge detection, which unblocks a pending Wait.
func (g *GPIOInterrupt) Close() error {
	if err := g.pin.Halt(); err != nil {
		return fmt.Errorf("halt interrupt pin: %w", err)
	}
	return nil
}

// Pin returns the underlying pin
func (g *GPIOInterrupt) Pin() gpio.PinIn {
	return g.pin
}

// TickerInterrupt fires on a fixed interval. It is used when the interrupt
// line is not wired to the host.
type TickerInterrupt struct {
	ticker *time.Ticker
}

// NewTickerInterrupt creates a ticker source firing every interval
func NewTickerInterrupt(interval time.Duration) *TickerInterrupt {
	if interval <= 0 {
		interval = DefaultConfig().FallbackPollInterval
	}
	return &TickerInterrupt{ticker: time.NewTicker(interval)}
}

// Wait blocks until the next tick.
func (t *TickerInterrupt) Wait(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-t.ticker.C:
		return true, nil
	}
}

// Close stops the ticker
func (t *TickerInterrupt) Close() error {
	t.ticker.Stop()
	return nil
}
