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

import "time"

// Bus transport retry constants. Every bus transaction in the core uses the
// same fixed attempt budget; the wait between attempts is constant.
const (
	// BusRetryTimes is the number of attempts for a single bus transaction.
	BusRetryTimes = 10
	// BusRetryDelay is the wait between failed bus attempts.
	BusRetryDelay = 2 * time.Millisecond
)

// Bring-up polling constants.
const (
	// BurstConfirmPolls is the number of write/read-back rounds used to
	// confirm continuous burst mode during interface wake.
	BurstConfirmPolls = 10
	// BurstPollDelay is the wait between burst confirmation rounds.
	BurstPollDelay = 100 * time.Microsecond
	// SenseOnSettleDelay is the wait after clearing the pending event register.
	SenseOnSettleDelay = 2 * time.Millisecond
	// SafeModeReleaseRetries is the number of password writes attempted to
	// release safe (flash) mode before falling back to a system reset.
	SafeModeReleaseRetries = 5
)
