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

package hx83112

// Reporter delivers decoded, calibrated touch points to the host input layer.
type Reporter interface {
	Report(objects DetectedObjects) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(objects DetectedObjects) error

// Report implements Reporter
func (f ReporterFunc) Report(objects DetectedObjects) error {
	return f(objects)
}

// ReportingMode selects which frames are forwarded to the Reporter.
type ReportingMode uint8

const (
	// ReportingContinuous forwards every decoded frame.
	ReportingContinuous ReportingMode = iota
	// ReportingReduced stops forwarding frames.
	ReportingReduced
	// ReportingWakeupGesture stops forwarding frames; the controller only
	// needs to wake the host.
	ReportingWakeupGesture
)

// String returns the reporting mode name
func (m ReportingMode) String() string {
	switch m {
	case ReportingContinuous:
		return "continuous"
	case ReportingReduced:
		return "reduced"
	case ReportingWakeupGesture:
		return "wakeup-gesture"
	default:
		return "unknown"
	}
}
