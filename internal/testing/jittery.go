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

package testing

import (
	"fmt"
	"math/rand/v2"
	"time"

	hx83112 "github.com/ZaparooProject/go-hx83112"
	"github.com/ZaparooProject/go-hx83112/internal/syncutil"
)

// JitterConfig configures the behavior of JitteryTransport.
type JitterConfig struct {
	// MaxLatency is the upper bound of the random delay before each
	// transaction.
	MaxLatency time.Duration
	// NAKRate is the probability in [0, 1] that a transaction fails
	// before reaching the backend.
	NAKRate float64
	// StallEvery makes every Nth transaction fail StallLength times in a
	// row, like a controller busy with a firmware scan.
	StallEvery  int
	StallLength int
	Seed        uint64
}

// DefaultJitterConfig returns a sensible default configuration for testing.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatency: 200 * time.Microsecond,
		NAKRate:    0.2,
	}
}

// JitteryTransport wraps a transport to simulate a noisy I2C bus: random
// latency, random NAKs and stalls that outlast a single retry. A NAKed
// transaction never reaches the backend, so the backend state only changes
// on transactions that succeed.
type JitteryTransport struct {
	hx83112.Transport
	rng       *rand.Rand
	config    JitterConfig
	count     int
	stallLeft int
	naks      int
	mu        syncutil.Mutex
}

// NewJitteryTransport wraps backend with jitter simulation.
func NewJitteryTransport(backend hx83112.Transport, config JitterConfig) *JitteryTransport {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Test code, not crypto
	}

	return &JitteryTransport{
		Transport: backend,
		config:    config,
		rng:       rng,
	}
}

// Tx delays, possibly fails, and otherwise forwards to the backend.
func (j *JitteryTransport) Tx(w, r []byte) error {
	delay, fail := j.next()
	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		cmd := byte(0)
		if len(w) > 0 {
			cmd = w[0]
		}
		return fmt.Errorf("%w: jitter on command 0x%02X", ErrSimulatedNAK, cmd)
	}
	return j.Transport.Tx(w, r) //nolint:wrapcheck // Pass-through wrapper
}

func (j *JitteryTransport) next() (time.Duration, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.count++
	var delay time.Duration
	if j.config.MaxLatency > 0 {
		delay = time.Duration(j.rng.Int64N(int64(j.config.MaxLatency) + 1))
	}

	if j.config.StallEvery > 0 && j.count%j.config.StallEvery == 0 {
		j.stallLeft = j.config.StallLength
	}
	if j.stallLeft > 0 {
		j.stallLeft--
		j.naks++
		return delay, true
	}
	if j.config.NAKRate > 0 && j.rng.Float64() < j.config.NAKRate {
		j.naks++
		return delay, true
	}
	return delay, false
}

// NAKs returns the number of injected failures
func (j *JitteryTransport) NAKs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.naks
}

// String identifies the wrapped transport
func (j *JitteryTransport) String() string {
	return "jittery+" + j.Transport.String()
}
