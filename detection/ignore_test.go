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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/i2c-1:0x48", ignorePaths: []string{}},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/i2c-1:0x48"}},
		{name: "exact match", devicePath: "/dev/i2c-1:0x48", ignorePaths: []string{"/dev/i2c-1:0x48"}, expected: true},
		{name: "address case", devicePath: "/dev/i2c-1:0x4A", ignorePaths: []string{"/dev/i2c-1:0x4a"}, expected: true},
		{name: "bus case", devicePath: "I2C1:0x48", ignorePaths: []string{"i2c1:0x48"}, expected: true},
		{name: "other address", devicePath: "/dev/i2c-1:0x48", ignorePaths: []string{"/dev/i2c-1:0x49"}},
		{name: "other bus", devicePath: "/dev/i2c-2:0x48", ignorePaths: []string{"/dev/i2c-1:0x48"}},
		{
			name:        "relative components",
			devicePath:  "/dev/../dev/i2c-1:0x48",
			ignorePaths: []string{"/dev/i2c-1:0x48"},
			expected:    true,
		},
		{
			name:        "empty strings in ignore list",
			devicePath:  "/dev/i2c-1:0x48",
			ignorePaths: []string{"", "/dev/i2c-1:0x48", ""},
			expected:    true,
		},
		{name: "bus without address", devicePath: "/dev/i2c-1", ignorePaths: []string{"/dev/i2c-1"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}
