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

// Package calibration maps raw touch controller coordinates to display
// pixels and loads the screen properties that drive the mapping.
package calibration

import "fmt"

// DefaultResolutionX and DefaultResolutionY are assumed for both the touch
// sensor and the display when nothing else is configured.
const (
	DefaultResolutionX = 480
	DefaultResolutionY = 800
)

// Properties describe how the touch sensor lines up with the panel. Values
// are in sensor units on the touch side and display pixels on the display
// side. Properties are read-only once loaded.
type Properties struct {
	TouchSwapAxes    uint32
	TouchInvertXAxis uint32
	TouchInvertYAxis uint32

	TouchPhysicalWidth         uint32
	TouchPhysicalHeight        uint32
	TouchPhysicalButtonHeight  uint32
	TouchPillarBoxWidthLeft    uint32
	TouchPillarBoxWidthRight   uint32
	TouchLetterBoxHeightTop    uint32
	TouchLetterBoxHeightBottom uint32

	DisplayPhysicalWidth         uint32
	DisplayPhysicalHeight        uint32
	DisplayViewableWidth         uint32
	DisplayViewableHeight        uint32
	DisplayPillarBoxWidthLeft    uint32
	DisplayPillarBoxWidthRight   uint32
	DisplayLetterBoxHeightTop    uint32
	DisplayLetterBoxHeightBottom uint32

	DisplayHeight10um uint32
	DisplayWidth10um  uint32

	TouchHardwareLacksContinuousReporting uint32
}

// DefaultProperties returns a 480x800 sensor perfectly aligned with a
// 480x800 display.
func DefaultProperties() Properties {
	return Properties{
		TouchPhysicalWidth:                    DefaultResolutionX,
		TouchPhysicalHeight:                   DefaultResolutionY,
		DisplayPhysicalWidth:                  DefaultResolutionX,
		DisplayPhysicalHeight:                 DefaultResolutionY,
		DisplayViewableWidth:                  DefaultResolutionX,
		DisplayViewableHeight:                 DefaultResolutionY,
		DisplayHeight10um:                     0x1ac2,
		DisplayWidth10um:                      0x3840,
		TouchHardwareLacksContinuousReporting: 1,
	}
}

// SwapAxes reports whether X and Y are exchanged before any other step.
func (p *Properties) SwapAxes() bool { return p.TouchSwapAxes != 0 }

// InvertX reports whether the X axis is mirrored.
func (p *Properties) InvertX() bool { return p.TouchInvertXAxis != 0 }

// InvertY reports whether the Y axis is mirrored.
func (p *Properties) InvertY() bool { return p.TouchInvertYAxis != 0 }

// LacksContinuousReporting reports whether the sensor only interrupts on
// change, so a stationary finger produces no new frames.
func (p *Properties) LacksContinuousReporting() bool {
	return p.TouchHardwareLacksContinuousReporting != 0
}

// Sanitize resets touch insets that leave no usable area. Pillarbox widths
// whose sum reaches the touch width go back to their defaults, and so do
// letterbox heights whose sum reaches the touch height. The returned
// messages describe every reset.
func (p *Properties) Sanitize() []string {
	var resets []string
	def := DefaultProperties()

	if !insetsFit(p.TouchPillarBoxWidthLeft, p.TouchPillarBoxWidthRight, p.TouchPhysicalWidth) {
		resets = append(resets, fmt.Sprintf("invalid pillar box widths provided (%d,%d for %d)",
			p.TouchPillarBoxWidthLeft, p.TouchPillarBoxWidthRight, p.TouchPhysicalWidth))
		p.TouchPillarBoxWidthLeft = def.TouchPillarBoxWidthLeft
		p.TouchPillarBoxWidthRight = def.TouchPillarBoxWidthRight
	}

	if !insetsFit(p.TouchLetterBoxHeightTop, p.TouchLetterBoxHeightBottom, p.TouchPhysicalHeight) {
		resets = append(resets, fmt.Sprintf("invalid letter box heights provided (%d,%d for %d)",
			p.TouchLetterBoxHeightTop, p.TouchLetterBoxHeightBottom, p.TouchPhysicalHeight))
		p.TouchLetterBoxHeightTop = def.TouchLetterBoxHeightTop
		p.TouchLetterBoxHeightBottom = def.TouchLetterBoxHeightBottom
	}

	return resets
}

// insetsFit reports whether lead+trail stays strictly below size. The sum is
// taken in 64 bits so large insets cannot wrap around.
func insetsFit(lead, trail, size uint32) bool {
	return uint64(lead)+uint64(trail) < uint64(size)
}
