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

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// debugEnabled controls whether debug logging is active. The service
// goroutine and release timers log concurrently with SetDebugEnabled.
var debugEnabled atomic.Bool

func init() {
	// Enable debug logging if DEBUG environment variable is set
	if os.Getenv("HX83112_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled.Store(true)
	}
}

// logLine writes one tagged line to the session log (always) and to the
// console when debug mode is enabled.
func logLine(level, message string) {
	sessionMu.Lock()
	if sessionLogWriter != nil {
		timestamp := time.Now().Format("15:04:05.000")
		_, _ = fmt.Fprintf(sessionLogWriter, "%s %s: %s\n", timestamp, level, message)
	}
	sessionMu.Unlock()

	if debugEnabled.Load() {
		_, _ = fmt.Printf("%s: %s\n", level, message)
	}
}

// Debugf prints debug information.
// Always writes to session log file (if initialized) with timestamp.
// Only prints to console when debug mode is enabled.
func Debugf(format string, args ...any) {
	logLine("DEBUG", fmt.Sprintf(format, args...))
}

// Debugln prints debug information.
// Always writes to session log file (if initialized) with timestamp.
// Only prints to console when debug mode is enabled.
func Debugln(args ...any) {
	logLine("DEBUG", fmt.Sprint(args...))
}

// Errorf records a failure the core recovered from or propagated: bus retry
// exhaustion, safe mode release failure, misconfigured calibration.
func Errorf(format string, args ...any) {
	logLine("ERROR", fmt.Sprintf(format, args...))
}

// SetDebugEnabled allows programmatic control of debug logging
// Useful for testing or application-controlled debug modes
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}
