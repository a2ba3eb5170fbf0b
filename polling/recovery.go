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
	"fmt"
	"time"

	hx83112 "github.com/ZaparooProject/go-hx83112"
	"github.com/ZaparooProject/go-hx83112/internal/syncutil"
)

// Recoverer brings a controller back after repeated service failures
type Recoverer interface {
	// AttemptRecovery tries to restore touch servicing.
	// Returns nil if recovery was successful, error otherwise.
	AttemptRecovery(ctx context.Context) error

	// Controller returns the current controller (may change after reconnection)
	Controller() *hx83112.Controller
}

// ReopenFunc opens a fresh transport and wraps it in a new controller. It
// must not start the controller.
type ReopenFunc func(ctx context.Context) (*hx83112.Controller, error)

// DefaultRecoverer implements a tiered recovery strategy:
// 1. Re-run bring-up on the existing transport
// 2. Full reconnection via user-provided reopen function
type DefaultRecoverer struct {
	controller  *hx83112.Controller
	reopenFunc  ReopenFunc
	backoff     time.Duration
	maxAttempts int
	mu          syncutil.Mutex
}

// NewDefaultRecoverer creates a recoverer with tiered recovery strategy.
// If reopenFunc is nil, only the bring-up tier is attempted.
func NewDefaultRecoverer(
	controller *hx83112.Controller,
	reopenFunc ReopenFunc,
	backoff time.Duration,
	maxAttempts int,
) *DefaultRecoverer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &DefaultRecoverer{
		controller:  controller,
		reopenFunc:  reopenFunc,
		backoff:     backoff,
		maxAttempts: maxAttempts,
	}
}

// NewRecovererFromConfig creates a DefaultRecoverer sized by cfg
func NewRecovererFromConfig(controller *hx83112.Controller, reopenFunc ReopenFunc, cfg RecoveryConfig) *DefaultRecoverer {
	return NewDefaultRecoverer(controller, reopenFunc, cfg.RecoveryBackoff, cfg.MaxRecoveryAttempts)
}

// AttemptRecovery implements tiered recovery:
// 1. Restart the controller - works when only the controller lost its state
// 2. If that fails and reopenFunc is provided, reopen the bus and start again
//
// Rounds back off exponentially starting at the configured backoff.
func (r *DefaultRecoverer) AttemptRecovery(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bo := newBackoff(r.backoff)
	var lastErr error

	for attempt := range r.maxAttempts {
		if attempt > 0 {
			if err := bo.Wait(ctx); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := r.recoverOnce(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}

	return fmt.Errorf("recovery failed after %d attempts: %w", r.maxAttempts, lastErr)
}

func (r *DefaultRecoverer) recoverOnce(ctx context.Context) error {
	// Tier 1: bring-up on the current transport
	err := startController(ctx, r.controller)
	if err == nil || r.reopenFunc == nil || ctx.Err() != nil {
		return err
	}

	// Tier 2: Full reconnection
	_ = r.controller.Close()
	ctrl, reopenErr := r.reopenFunc(ctx)
	if reopenErr != nil {
		return fmt.Errorf("reopen: %w", reopenErr)
	}
	r.controller = ctrl
	return startController(ctx, ctrl)
}

// startController runs Start and treats a failed reset fallback as an error.
// A bring-up degraded to reset still leaves sensing on and counts as
// recovered.
func startController(ctx context.Context, ctrl *hx83112.Controller) error {
	res, err := ctrl.Start(ctx)
	if err != nil {
		return err
	}
	if res.State == hx83112.StateBringupFailed {
		return fmt.Errorf("bring-up %s: %w", res.State, res.Degraded)
	}
	return nil
}

// Controller returns the current controller.
// This may return a different controller after a successful reconnection.
func (r *DefaultRecoverer) Controller() *hx83112.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controller
}
