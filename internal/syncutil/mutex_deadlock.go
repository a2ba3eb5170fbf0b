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

//go:build deadlock

// Package syncutil provides the mutex types used across the driver. This
// file is compiled when building with -tags=deadlock and swaps in
// github.com/sasha-s/go-deadlock, which reports lock order inversions and
// locks held longer than the configured timeout.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DetectionEnabled reports whether deadlock detection is compiled in.
const DetectionEnabled = true

// Mutex wraps deadlock.Mutex for deadlock detection.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex wraps deadlock.RWMutex for deadlock detection.
type RWMutex struct {
	deadlock.RWMutex
}

// SetLockTimeout sets how long a lock may be waited on before it is
// reported. A bring-up holds the controller lock across bus retries, so
// callers with slow buses should raise it.
func SetLockTimeout(d time.Duration) {
	deadlock.Opts.DeadlockTimeout = d
}
