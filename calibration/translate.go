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
	"errors"
	"fmt"
)

// ErrMisconfigured is returned when the properties would divide by zero.
var ErrMisconfigured = errors.New("calibration misconfigured")

// Point is a coordinate pair in sensor or display units.
type Point struct {
	X uint16
	Y uint16
}

// Validate checks the dimensions Translate divides by or scales to.
func (p *Properties) Validate() error {
	switch {
	case p.TouchPhysicalWidth == 0:
		return fmt.Errorf("%w: touch physical width is zero", ErrMisconfigured)
	case p.TouchPhysicalHeight <= p.TouchPhysicalButtonHeight:
		return fmt.Errorf("%w: touch height %d does not exceed button height %d",
			ErrMisconfigured, p.TouchPhysicalHeight, p.TouchPhysicalButtonHeight)
	case p.DisplayPhysicalWidth == 0 || p.DisplayPhysicalHeight == 0:
		return fmt.Errorf("%w: display physical size %dx%d",
			ErrMisconfigured, p.DisplayPhysicalWidth, p.DisplayPhysicalHeight)
	}
	return nil
}

// clip removes a leading inset and adds a trailing one, pinning coordinates
// inside the leading inset to 0 and those beyond the trailing edge to size.
func clip(c, size, lead, trail uint32) uint32 {
	if c <= lead {
		c = 0
	} else {
		c -= lead
	}

	var edge uint32
	if trail < size {
		edge = size - trail
	}
	if c >= edge {
		return size
	}
	return c + trail
}

func invert(c, size uint32) uint32 {
	if c >= size {
		c = size - 1
	}
	return size - c - 1
}

func clamp16(v uint64) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

// Translate maps a sensor coordinate to a display pixel. The steps are
// swap, invert, touch-side insets, scale, then display-side insets.
func Translate(pt Point, props *Properties) (Point, error) {
	if err := props.Validate(); err != nil {
		return Point{}, err
	}

	x, y := uint32(pt.X), uint32(pt.Y)

	if props.SwapAxes() {
		x, y = y, x
	}
	if props.InvertX() {
		x = invert(x, props.TouchPhysicalWidth)
	}
	if props.InvertY() {
		y = invert(y, props.TouchPhysicalHeight)
	}

	x = clip(x, props.TouchPhysicalWidth, props.TouchPillarBoxWidthLeft, props.TouchPillarBoxWidthRight)
	y = clip(y, props.TouchPhysicalHeight, props.TouchLetterBoxHeightTop, props.TouchLetterBoxHeightBottom)

	// Scale in 64 bits; the product of two 32-bit values can overflow.
	sx := uint64(x) * uint64(props.DisplayPhysicalWidth) / uint64(props.TouchPhysicalWidth)
	sy := uint64(y) * uint64(props.DisplayPhysicalHeight) /
		uint64(props.TouchPhysicalHeight-props.TouchPhysicalButtonHeight)

	x = uint32(min(sx, 0xFFFFFFFF))
	y = uint32(min(sy, 0xFFFFFFFF))

	x = clip(x, props.DisplayPhysicalWidth, props.DisplayPillarBoxWidthLeft, props.DisplayPillarBoxWidthRight)
	y = clip(y, props.DisplayPhysicalHeight, props.DisplayLetterBoxHeightTop, props.DisplayLetterBoxHeightBottom)

	return Point{X: clamp16(uint64(x)), Y: clamp16(uint64(y))}, nil
}
