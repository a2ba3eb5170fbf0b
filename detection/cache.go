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

package detection

import (
	"time"

	"github.com/ZaparooProject/go-hx83112/internal/syncutil"
)

// cacheKey separates results per probe mode; a passive scan must not
// answer a later full probe.
type cacheKey struct {
	transport string
	mode      Mode
}

// cacheEntry holds cached detection results.
type cacheEntry struct {
	timestamp time.Time
	devices   []DeviceInfo
}

// detectionCache provides thread-safe caching of detection results.
type detectionCache struct {
	entries map[cacheKey]cacheEntry
	mu      syncutil.RWMutex
}

var cache = &detectionCache{
	entries: make(map[cacheKey]cacheEntry),
}

// getCached returns cached devices if available and not expired
func getCached(transport string, mode Mode, ttl time.Duration) ([]DeviceInfo, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	entry, exists := cache.entries[cacheKey{transport, mode}]
	if !exists || time.Since(entry.timestamp) > ttl {
		return nil, false
	}

	devices := make([]DeviceInfo, len(entry.devices))
	copy(devices, entry.devices)
	return devices, true
}

// setCached stores detection results in cache
func setCached(transport string, mode Mode, devices []DeviceInfo) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	devicesCopy := make([]DeviceInfo, len(devices))
	copy(devicesCopy, devices)

	cache.entries[cacheKey{transport, mode}] = cacheEntry{
		devices:   devicesCopy,
		timestamp: time.Now(),
	}
}

// clearCache removes all cached entries
func clearCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.entries = make(map[cacheKey]cacheEntry)
}

// clearCacheForTransport removes cached entries for a specific transport in
// every mode
func clearCacheForTransport(transport string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	for key := range cache.entries {
		if key.transport == transport {
			delete(cache.entries, key)
		}
	}
}
