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

package syncutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMutex_LockUnlock(t *testing.T) {
	t.Parallel()

	var mu Mutex
	counter := 0
	done := make(chan struct{})
	for range 4 {
		go func() {
			mu.Lock()
			counter++
			mu.Unlock()
			done <- struct{}{}
		}()
	}
	for range 4 {
		<-done
	}
	assert.Equal(t, 4, counter)
}

func TestRWMutex_ReadersShare(t *testing.T) {
	t.Parallel()

	var mu RWMutex
	mu.RLock()
	mu.RLock()
	mu.RUnlock()
	mu.RUnlock()
	mu.Lock()
	mu.Unlock()
}

func TestSetLockTimeout(t *testing.T) {
	SetLockTimeout(30 * time.Second)
	var mu Mutex
	mu.Lock()
	mu.Unlock()
}
