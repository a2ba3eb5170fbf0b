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

	"github.com/ZaparooProject/go-hx83112/calibration"
	"github.com/ZaparooProject/go-hx83112/internal/syncutil"
)

// ErrNotStarted is returned when an interrupt is serviced before Start.
var ErrNotStarted = errors.New("controller not started")

// Option configures a Controller
type Option func(*Controller) error

// WithMaxFingers sets how many finger slots are decoded (1..MaxPoints).
func WithMaxFingers(n int) Option {
	return func(c *Controller) error {
		if n < 1 || n > MaxPoints {
			return fmt.Errorf("%w: max fingers must be 1..%d, got %d", ErrInvalidParameter, MaxPoints, n)
		}
		c.maxFingers = n
		return nil
	}
}

// WithProperties sets the screen calibration properties.
func WithProperties(props calibration.Properties) Option {
	return func(c *Controller) error {
		if err := props.Validate(); err != nil {
			return err
		}
		c.props = props
		return nil
	}
}

// WithReporter sets the sink for decoded touch points.
func WithReporter(r Reporter) Option {
	return func(c *Controller) error {
		c.reporter = r
		return nil
	}
}

// WithFlashMode makes Start release safe mode instead of resetting.
func WithFlashMode(enabled bool) Option {
	return func(c *Controller) error {
		c.flashMode = enabled
		return nil
	}
}

// WithTouchBounds overrides the sensor's native coordinate bounds.
func WithTouchBounds(maxX, maxY uint16) Option {
	return func(c *Controller) error {
		if maxX == 0 || maxY == 0 {
			return fmt.Errorf("%w: touch bounds %dx%d", ErrInvalidParameter, maxX, maxY)
		}
		c.touch.TouchMaxX = maxX
		c.touch.TouchMaxY = maxY
		return nil
	}
}

// WithPortName overrides the bus name used in logs.
func WithPortName(name string) Option {
	return func(c *Controller) error {
		c.portName = name
		return nil
	}
}

// Controller drives one HX83112 touch controller.
//
// Thread Safety: every exported method takes the controller lock, so a
// Controller may be shared between the service goroutine and callers that
// change the reporting mode. Bus and Registers do not lock; callers that
// use them directly must hold Lock.
type Controller struct {
	transport      Transport
	reporter       Reporter
	bus            *Bus
	regs           *Registers
	bringup        *Bringup
	touch          *TouchState
	portName       string
	props          calibration.Properties
	lastBringup    BringupResult
	maxFingers     int
	mu             syncutil.Mutex
	mode           ReportingMode
	flashMode      bool
	processReports bool
	started        bool
}

// New creates a controller on top of transport. No bus traffic happens
// until Start.
func New(transport Transport, opts ...Option) (*Controller, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	bus := NewBus(transport)
	regs := NewRegisters(bus)
	c := &Controller{
		transport:  transport,
		bus:        bus,
		regs:       regs,
		bringup:    NewBringup(regs),
		touch:      NewTouchState(MaxPoints),
		props:      calibration.DefaultProperties(),
		maxFingers: MaxPoints,
		mode:       ReportingReduced,
		portName:   transport.String(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.touch.MaxFingers = c.maxFingers
	return c, nil
}

// Lock acquires the controller lock
func (c *Controller) Lock() {
	c.mu.Lock()
}

// Unlock releases the controller lock
func (c *Controller) Unlock() {
	c.mu.Unlock()
}

// Registers returns the register layer. Hold Lock while using it.
func (c *Controller) Registers() *Registers {
	return c.regs
}

// Bringup returns the bring-up sequencer. Hold Lock while using it.
func (c *Controller) Bringup() *Bringup {
	return c.bringup
}

// Transport returns the underlying transport
func (c *Controller) Transport() Transport {
	return c.transport
}

// Properties returns a copy of the calibration properties
func (c *Controller) Properties() calibration.Properties {
	return c.props
}

// Start configures the controller and turns sensing on. A degraded
// bring-up still starts the controller; the result says what happened.
// The error is non-nil only when ctx is done.
func (c *Controller) Start(ctx context.Context) (BringupResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	Debugf("Starting HX83112 on %s (flash mode: %v, max fingers: %d)", c.portName, c.flashMode, c.maxFingers)

	res, err := c.bringup.ConfigureFunctions(ctx, c.flashMode)
	c.lastBringup = res
	if err != nil {
		return res, fmt.Errorf("start %s: %w", c.portName, err)
	}
	if res.Degraded != nil {
		Errorf("HX83112 on %s started degraded (%s): %v", c.portName, res.State, res.Degraded)
	} else {
		Debugf("HX83112 on %s is %s after %d burst polls", c.portName, res.State, res.BurstPolls)
	}

	c.touch = &TouchState{
		MaxFingers: c.maxFingers,
		TouchMaxX:  c.touch.TouchMaxX,
		TouchMaxY:  c.touch.TouchMaxY,
	}
	c.processReports = c.mode == ReportingContinuous
	c.started = true
	return res, nil
}

// LastBringup returns the result of the most recent Start.
func (c *Controller) LastBringup() BringupResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBringup
}

// ServiceInterrupt handles one interrupt. A zero status means the interrupt
// was not a touch event and nothing is read. Otherwise the event stack is
// read, decoded and calibrated, and forwarded to the Reporter when
// continuous reporting is on.
//
// A failed event stack read is a routine outcome: it returns an error
// wrapping ErrNoDataAvailable and is only logged at debug level.
func (c *Controller) ServiceInterrupt(ctx context.Context, status uint32) (DetectedObjects, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return DetectedObjects{}, ErrNotStarted
	}
	if status == 0 {
		return DetectedObjects{}, nil
	}

	frame, err := c.regs.ReadEventFrame(ctx)
	if err != nil {
		Debugf("No object data to report - %v", err)
		return DetectedObjects{}, fmt.Errorf("%w: %w", ErrNoDataAvailable, err)
	}

	objs := DecodeFrame(&frame, c.touch)
	if err := TranslatePoints(&objs, &c.props); err != nil {
		return DetectedObjects{}, err
	}

	if c.processReports && c.reporter != nil {
		if err := c.reporter.Report(objs); err != nil {
			Debugf("Error while reporting objects - %v", err)
			return objs, fmt.Errorf("report objects: %w", err)
		}
	}
	return objs, nil
}

// SetReportingMode switches between continuous reporting and the modes
// where decoded frames are not forwarded. It returns the previous mode.
func (c *Controller) SetReportingMode(mode ReportingMode) (ReportingMode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch mode {
	case ReportingContinuous, ReportingReduced, ReportingWakeupGesture:
	default:
		return c.mode, fmt.Errorf("%w: reporting mode %d", ErrInvalidParameter, mode)
	}

	old := c.mode
	c.mode = mode
	c.processReports = mode == ReportingContinuous
	return old, nil
}

// ReportingMode returns the current reporting mode
func (c *Controller) ReportingMode() ReportingMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// TouchState returns a copy of the decode context.
func (c *Controller) TouchState() TouchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.touch
}

// Stop stops servicing. The transport stays open so Start can be called
// again.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
}

// Close stops the controller and closes the transport.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = false
	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c.portName, err)
	}
	return nil
}

// TranslatePoints calibrates every present slot of objs in place.
func TranslatePoints(objs *DetectedObjects, props *calibration.Properties) error {
	for i := range objs.Points {
		pt := &objs.Points[i]
		if pt.State != ObjectPresentAccurate {
			continue
		}
		out, err := calibration.Translate(calibration.Point{X: pt.X, Y: pt.Y}, props)
		if err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
		pt.X, pt.Y = out.X, out.Y
	}
	return nil
}
