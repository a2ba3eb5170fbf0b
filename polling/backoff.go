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
	"math/rand/v2"
	"time"
)

// Recovery rounds wait base, 2*base, 4*base... capped at maxBackoffFactor
// times base, each stretched by up to jitterFraction of itself.
const (
	backoffMultiplier = 2
	maxBackoffFactor  = 8
	jitterFraction    = 0.1
)

// backoff is the wait schedule between recovery rounds.
type backoff struct {
	base time.Duration
	next time.Duration
}

func newBackoff(base time.Duration) *backoff {
	return &backoff{base: base, next: base}
}

// Next returns the upcoming wait and advances the schedule.
func (b *backoff) Next() time.Duration {
	d := b.next + jitter(b.next)
	b.next = min(b.next*backoffMultiplier, b.base*maxBackoffFactor)
	return d
}

// Wait sleeps for the next delay or until ctx is done.
func (b *backoff) Wait(ctx context.Context) error {
	timer := time.NewTimer(b.Next())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func jitter(d time.Duration) time.Duration {
	span := int64(float64(d) * jitterFraction)
	if span <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(span + 1)) //nolint:gosec // timing spread, not crypto
}
