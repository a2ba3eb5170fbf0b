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

package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_DefaultsAreIdentity(t *testing.T) {
	t.Parallel()

	props := DefaultProperties()
	for _, pt := range []Point{{0, 0}, {1, 1}, {100, 200}, {479, 799}, {240, 400}} {
		got, err := Translate(pt, &props)
		require.NoError(t, err)
		assert.Equal(t, pt, got)
	}
}

func TestTranslate_Steps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(p *Properties)
		in     Point
		want   Point
	}{
		{
			name:   "swap axes",
			modify: func(p *Properties) { p.TouchSwapAxes = 1 },
			in:     Point{X: 100, Y: 200},
			want:   Point{X: 200, Y: 100},
		},
		{
			name:   "invert x",
			modify: func(p *Properties) { p.TouchInvertXAxis = 1 },
			in:     Point{X: 100, Y: 200},
			want:   Point{X: 379, Y: 200},
		},
		{
			name:   "invert x clamps beyond width",
			modify: func(p *Properties) { p.TouchInvertXAxis = 1 },
			in:     Point{X: 1000, Y: 10},
			want:   Point{X: 0, Y: 10},
		},
		{
			name:   "invert y",
			modify: func(p *Properties) { p.TouchInvertYAxis = 1 },
			in:     Point{X: 5, Y: 0},
			want:   Point{X: 5, Y: 799},
		},
		{
			name: "touch pillarbox inside left inset",
			modify: func(p *Properties) {
				p.TouchPillarBoxWidthLeft = 10
				p.TouchPillarBoxWidthRight = 20
			},
			in:   Point{X: 5, Y: 50},
			want: Point{X: 20, Y: 50},
		},
		{
			name: "touch pillarbox middle",
			modify: func(p *Properties) {
				p.TouchPillarBoxWidthLeft = 10
				p.TouchPillarBoxWidthRight = 20
			},
			in:   Point{X: 100, Y: 50},
			want: Point{X: 110, Y: 50},
		},
		{
			name: "touch pillarbox far edge",
			modify: func(p *Properties) {
				p.TouchPillarBoxWidthLeft = 10
				p.TouchPillarBoxWidthRight = 20
			},
			in:   Point{X: 470, Y: 50},
			want: Point{X: 480, Y: 50},
		},
		{
			name: "touch letterbox",
			modify: func(p *Properties) {
				p.TouchLetterBoxHeightTop = 40
			},
			in:   Point{X: 1, Y: 140},
			want: Point{X: 1, Y: 100},
		},
		{
			name: "scale to display",
			modify: func(p *Properties) {
				p.TouchPhysicalWidth = 1080
				p.TouchPhysicalHeight = 2160
				p.DisplayPhysicalWidth = 540
				p.DisplayPhysicalHeight = 1080
			},
			in:   Point{X: 1000, Y: 2000},
			want: Point{X: 500, Y: 1000},
		},
		{
			name: "button area excluded from scale",
			modify: func(p *Properties) {
				p.TouchPhysicalHeight = 2160
				p.TouchPhysicalButtonHeight = 160
				p.DisplayPhysicalHeight = 2000
			},
			in:   Point{X: 0, Y: 1000},
			want: Point{X: 0, Y: 1000},
		},
		{
			name: "display letterbox",
			modify: func(p *Properties) {
				p.DisplayLetterBoxHeightTop = 50
				p.DisplayLetterBoxHeightBottom = 50
			},
			in:   Point{X: 0, Y: 30},
			want: Point{X: 0, Y: 50},
		},
		{
			name: "result clamps to 16 bits",
			modify: func(p *Properties) {
				p.DisplayPhysicalWidth = 100000
			},
			in:   Point{X: 479, Y: 0},
			want: Point{X: 0xFFFF, Y: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			props := DefaultProperties()
			tt.modify(&props)
			got, err := Translate(tt.in, &props)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslate_Misconfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		modify func(p *Properties)
		name   string
	}{
		{name: "zero touch width", modify: func(p *Properties) { p.TouchPhysicalWidth = 0 }},
		{name: "button fills height", modify: func(p *Properties) { p.TouchPhysicalButtonHeight = 800 }},
		{name: "zero touch height", modify: func(p *Properties) { p.TouchPhysicalHeight = 0 }},
		{name: "zero display width", modify: func(p *Properties) { p.DisplayPhysicalWidth = 0 }},
		{name: "zero display height", modify: func(p *Properties) { p.DisplayPhysicalHeight = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			props := DefaultProperties()
			tt.modify(&props)
			_, err := Translate(Point{X: 10, Y: 10}, &props)
			require.ErrorIs(t, err, ErrMisconfigured)
		})
	}
}

func TestSanitize_ResetsOversizedInsets(t *testing.T) {
	t.Parallel()

	props := DefaultProperties()
	props.TouchPillarBoxWidthLeft = 300
	props.TouchPillarBoxWidthRight = 180
	props.TouchLetterBoxHeightTop = 10
	props.TouchLetterBoxHeightBottom = 10

	resets := props.Sanitize()

	require.Len(t, resets, 1)
	assert.Contains(t, resets[0], "pillar box")
	assert.Zero(t, props.TouchPillarBoxWidthLeft)
	assert.Zero(t, props.TouchPillarBoxWidthRight)
	assert.Equal(t, uint32(10), props.TouchLetterBoxHeightTop)
	assert.Equal(t, uint32(10), props.TouchLetterBoxHeightBottom)
}

func TestSanitize_ResetsLetterbox(t *testing.T) {
	t.Parallel()

	props := DefaultProperties()
	props.TouchLetterBoxHeightTop = 800

	resets := props.Sanitize()

	require.Len(t, resets, 1)
	assert.Contains(t, resets[0], "letter box")
	assert.Zero(t, props.TouchLetterBoxHeightTop)
}

func TestSanitize_WrappingInsets(t *testing.T) {
	t.Parallel()

	props := DefaultProperties()
	props.TouchPillarBoxWidthLeft = 0xFFFFFFFF
	props.TouchPillarBoxWidthRight = 1
	props.TouchLetterBoxHeightTop = 1
	props.TouchLetterBoxHeightBottom = 0xFFFFFFFF

	resets := props.Sanitize()

	require.Len(t, resets, 2)
	assert.Contains(t, resets[0], "pillar box")
	assert.Contains(t, resets[1], "letter box")
	assert.Zero(t, props.TouchPillarBoxWidthLeft)
	assert.Zero(t, props.TouchPillarBoxWidthRight)
	assert.Zero(t, props.TouchLetterBoxHeightTop)
	assert.Zero(t, props.TouchLetterBoxHeightBottom)

	for _, x := range []uint16{0, 100, 240, 479} {
		out, err := Translate(Point{X: x, Y: 400}, &props)
		require.NoError(t, err)
		assert.Equal(t, Point{X: x, Y: 400}, out)
	}
}
