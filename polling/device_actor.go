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
	"sync"
	"sync/atomic"
	"time"

	hx83112 "github.com/ZaparooProject/go-hx83112"
	"github.com/ZaparooProject/go-hx83112/internal/syncutil"
)

// DeviceCallbacks defines callback functions for touch events. Every
// callback runs on the service goroutine except OnContactsUp, which also
// runs from the release timer.
type DeviceCallbacks struct {
	OnObjects      func(objs hx83112.DetectedObjects) error
	OnContactsDown func(mask uint16)
	OnContactsUp   func(mask uint16)
	OnRecovered    func(ctrl *hx83112.Controller)
}

// DeviceMetrics tracks operational metrics for DeviceActor
type DeviceMetrics struct {
	Interrupts         int64         // Interrupts received
	Frames             int64         // Frames decoded
	NoData             int64         // Services where the event stack read failed
	Errors             int64         // Other service or callback errors
	TouchesReported    int64         // Present slots across all decoded frames
	Recoveries         int64         // Successful recoveries
	LastServiceLatency time.Duration // Duration of the last service
}

// DeviceActor owns the service goroutine for one controller. It waits on
// the interrupt source, services the controller and tracks contacts.
type DeviceActor struct {
	controller *hx83112.Controller
	source     InterruptSource
	recoverer  Recoverer
	config     *Config
	callbacks  DeviceCallbacks
	cancel     context.CancelFunc
	lastErr    error
	contacts   ContactState
	wg         sync.WaitGroup
	mu         syncutil.Mutex
	// Atomic counters for metrics
	interrupts         int64
	frames             int64
	noData             int64
	errorCount         int64
	touchesReported    int64
	recoveries         int64
	lastServiceLatency int64 // in nanoseconds
	consecutiveErrors  int64
	// Running state to prevent multiple goroutines
	running int64 // 0 = stopped, 1 = running
}

// NewDeviceActor creates a new device actor. A nil config uses
// DefaultConfig.
func NewDeviceActor(
	controller *hx83112.Controller,
	source InterruptSource,
	config *Config,
	callbacks DeviceCallbacks,
) *DeviceActor {
	if config == nil {
		config = DefaultConfig()
	}
	return &DeviceActor{
		controller: controller,
		source:     source,
		config:     config,
		callbacks:  callbacks,
	}
}

// SetRecoverer sets the recoverer used after repeated failures. Call it
// before Start.
func (da *DeviceActor) SetRecoverer(r Recoverer) {
	da.mu.Lock()
	defer da.mu.Unlock()
	da.recoverer = r
}

// Start launches the service goroutine. The controller must already be
// started.
func (da *DeviceActor) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt64(&da.running, 0, 1) {
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	da.mu.Lock()
	da.cancel = cancel
	da.mu.Unlock()

	da.wg.Add(1)
	go da.serviceLoop(loopCtx)
	return nil
}

// serviceLoop runs until the context is cancelled or a fatal error has no
// recovery.
func (da *DeviceActor) serviceLoop(ctx context.Context) {
	defer da.wg.Done()
	defer atomic.StoreInt64(&da.running, 0)

	for {
		fired, err := da.source.Wait(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			hx83112.Debugf("Interrupt wait failed: %v", err)
			atomic.AddInt64(&da.errorCount, 1)
			if !da.sleep(ctx, da.config.FallbackPollInterval) {
				return
			}
			continue
		}
		if !fired {
			continue
		}
		if !da.service(ctx) {
			return
		}
	}
}

// service handles one interrupt and reports whether the loop should go on.
func (da *DeviceActor) service(ctx context.Context) bool {
	atomic.AddInt64(&da.interrupts, 1)
	ctrl := da.Controller()

	start := time.Now()
	objs, err := ctrl.ServiceInterrupt(ctx, 1)
	atomic.StoreInt64(&da.lastServiceLatency, time.Since(start).Nanoseconds())

	if err == nil {
		atomic.AddInt64(&da.frames, 1)
		atomic.AddInt64(&da.touchesReported, int64(objs.Present()))
		atomic.StoreInt64(&da.consecutiveErrors, 0)
		da.handleObjects(objs)
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	if errors.Is(err, hx83112.ErrNoDataAvailable) {
		atomic.AddInt64(&da.noData, 1)
	} else {
		atomic.AddInt64(&da.errorCount, 1)
	}
	da.setLastErr(err)

	if atomic.AddInt64(&da.consecutiveErrors, 1) < int64(da.config.MaxConsecutiveErrors) {
		return true
	}
	atomic.StoreInt64(&da.consecutiveErrors, 0)
	return da.runRecovery(ctx, err)
}

func (da *DeviceActor) handleObjects(objs hx83112.DetectedObjects) {
	if da.callbacks.OnObjects != nil {
		if err := da.callbacks.OnObjects(objs); err != nil {
			hx83112.Debugf("Objects callback failed: %v", err)
			atomic.AddInt64(&da.errorCount, 1)
			da.setLastErr(err)
		}
	}

	timeout := da.releaseTimeout()
	da.mu.Lock()
	down, up := da.contacts.Observe(objs.Mask, timeout, da.releaseStale)
	da.mu.Unlock()

	if up != 0 && da.callbacks.OnContactsUp != nil {
		da.callbacks.OnContactsUp(up)
	}
	if down != 0 && da.callbacks.OnContactsDown != nil {
		da.callbacks.OnContactsDown(down)
	}
}

// releaseTimeout is the configured release timeout, or zero when the sensor
// only interrupts on change and a held finger sends no further frames.
func (da *DeviceActor) releaseTimeout() time.Duration {
	props := da.Controller().Properties()
	if props.LacksContinuousReporting() {
		return 0
	}
	return da.config.ReleaseTimeout
}

// releaseStale runs from the release timer. A frame that arrived after the
// timer fired wins.
func (da *DeviceActor) releaseStale() {
	da.mu.Lock()
	if da.contacts.Phase != PhaseTouching || time.Since(da.contacts.LastFrameTime) < da.config.ReleaseTimeout {
		da.mu.Unlock()
		return
	}
	released := da.contacts.TransitionToIdle()
	da.mu.Unlock()

	hx83112.Debugf("No frame for %v, releasing contacts 0x%03X", da.config.ReleaseTimeout, released)
	if released != 0 && da.callbacks.OnContactsUp != nil {
		da.callbacks.OnContactsUp(released)
	}
}

// runRecovery runs the recoverer after repeated failures. Without recovery
// only a fatal error stops the loop.
func (da *DeviceActor) runRecovery(ctx context.Context, cause error) bool {
	da.mu.Lock()
	r := da.recoverer
	da.mu.Unlock()

	if r == nil || !da.config.Recovery.Enabled {
		if hx83112.IsFatal(cause) {
			hx83112.Errorf("Stopping touch service: %v", cause)
			return false
		}
		return true
	}

	hx83112.Debugf("%d consecutive service failures, attempting recovery: %v",
		da.config.MaxConsecutiveErrors, cause)
	if err := r.AttemptRecovery(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		hx83112.Errorf("Touch controller recovery failed: %v", err)
		da.setLastErr(err)
		return !hx83112.IsFatal(err)
	}

	ctrl := r.Controller()
	da.mu.Lock()
	da.controller = ctrl
	released := da.contacts.TransitionToIdle()
	da.mu.Unlock()
	atomic.AddInt64(&da.recoveries, 1)

	if released != 0 && da.callbacks.OnContactsUp != nil {
		da.callbacks.OnContactsUp(released)
	}
	if da.callbacks.OnRecovered != nil {
		da.callbacks.OnRecovered(ctrl)
	}
	return true
}

func (*DeviceActor) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (da *DeviceActor) setLastErr(err error) {
	da.mu.Lock()
	da.lastErr = err
	da.mu.Unlock()
}

// Stop stops the device actor and waits for the service goroutine to exit
func (da *DeviceActor) Stop(ctx context.Context) error {
	da.mu.Lock()
	cancel := da.cancel
	da.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		da.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	da.mu.Lock()
	da.contacts.TransitionToIdle()
	da.mu.Unlock()
	return nil
}

// IsRunning reports whether the service goroutine is alive
func (da *DeviceActor) IsRunning() bool {
	return atomic.LoadInt64(&da.running) == 1
}

// Controller returns the controller being serviced. It may change after a
// recovery that reopened the transport.
func (da *DeviceActor) Controller() *hx83112.Controller {
	da.mu.Lock()
	defer da.mu.Unlock()
	return da.controller
}

// Contacts returns a copy of the contact state
func (da *DeviceActor) Contacts() (ContactPhase, uint16) {
	da.mu.Lock()
	defer da.mu.Unlock()
	return da.contacts.Phase, da.contacts.Mask
}

// LastError returns the most recent service error
func (da *DeviceActor) LastError() error {
	da.mu.Lock()
	defer da.mu.Unlock()
	return da.lastErr
}

// GetMetrics returns current operational metrics
func (da *DeviceActor) GetMetrics() DeviceMetrics {
	return DeviceMetrics{
		Interrupts:         atomic.LoadInt64(&da.interrupts),
		Frames:             atomic.LoadInt64(&da.frames),
		NoData:             atomic.LoadInt64(&da.noData),
		Errors:             atomic.LoadInt64(&da.errorCount),
		TouchesReported:    atomic.LoadInt64(&da.touchesReported),
		Recoveries:         atomic.LoadInt64(&da.recoveries),
		LastServiceLatency: time.Duration(atomic.LoadInt64(&da.lastServiceLatency)),
	}
}
