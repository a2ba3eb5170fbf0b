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

import "time"

// RecoveryConfig controls how the actor brings the controller back after
// repeated service failures.
type RecoveryConfig struct {
	// Enabled turns recovery on. When false the actor keeps servicing and
	// only counts errors.
	Enabled bool
	// MaxRecoveryAttempts is the number of recovery rounds per trigger.
	MaxRecoveryAttempts int
	// RecoveryBackoff is the wait between recovery rounds.
	RecoveryBackoff time.Duration
}

// Config holds the service loop configuration
type Config struct {
	// InterruptTimeout bounds one wait on the interrupt line. A timeout is
	// not an error; the actor simply waits again.
	InterruptTimeout time.Duration
	// FallbackPollInterval is the tick used when no interrupt line is wired.
	FallbackPollInterval time.Duration
	// ReleaseTimeout releases all contacts when no frame arrives for this
	// long while a finger is down. Zero disables it, and it is ignored for
	// sensors that lack continuous reporting since a held finger is silent.
	ReleaseTimeout time.Duration
	// MaxConsecutiveErrors triggers recovery after this many failed
	// services in a row.
	MaxConsecutiveErrors int
	Recovery             RecoveryConfig
}

// DefaultConfig returns the default service configuration
func DefaultConfig() *Config {
	return &Config{
		InterruptTimeout:     500 * time.Millisecond,
		FallbackPollInterval: 10 * time.Millisecond,
		ReleaseTimeout:       200 * time.Millisecond,
		MaxConsecutiveErrors: 5,
		Recovery: RecoveryConfig{
			Enabled:             true,
			MaxRecoveryAttempts: 3,
			RecoveryBackoff:     500 * time.Millisecond,
		},
	}
}
