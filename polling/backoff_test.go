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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_DoublesUpToCap(t *testing.T) {
	t.Parallel()

	b := newBackoff(10 * time.Millisecond)
	for _, want := range []time.Duration{10, 20, 40, 80, 80, 80} {
		want *= time.Millisecond
		got := b.Next()
		assert.GreaterOrEqual(t, got, want)
		assert.LessOrEqual(t, got, want+want/10)
	}
}

func TestBackoff_TinyBaseHasNoJitter(t *testing.T) {
	t.Parallel()

	b := newBackoff(4 * time.Nanosecond)
	assert.Equal(t, 4*time.Nanosecond, b.Next())
	assert.Equal(t, 8*time.Nanosecond, b.Next())
}

func TestBackoff_WaitCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := newBackoff(time.Hour).Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBackoff_WaitElapses(t *testing.T) {
	t.Parallel()

	require.NoError(t, newBackoff(time.Millisecond).Wait(context.Background()))
}
