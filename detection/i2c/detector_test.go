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

package i2c

import (
	"context"
	"sync"
	"testing"

	"github.com/ZaparooProject/go-hx83112/detection"
	virt "github.com/ZaparooProject/go-hx83112/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

const simBusName = "hx83112-sim"

// simBus answers only at the default address, like a board with a single
// touch controller.
type simBus struct {
	sim *virt.VirtualHX83112
}

func (b *simBus) Tx(addr uint16, w, r []byte) error {
	if addr != 0x48 {
		return virt.ErrSimulatedNAK
	}
	return b.sim.Tx(w, r)
}

func (*simBus) SetSpeed(physic.Frequency) error { return nil }

func (*simBus) String() string { return simBusName }

func (*simBus) Close() error { return nil }

var (
	registerOnce sync.Once
	sharedSim    = virt.NewVirtualHX83112()
)

func registerSimBus(t *testing.T) {
	t.Helper()
	registerOnce.Do(func() {
		err := i2creg.Register(simBusName, nil, -1, func() (i2c.BusCloser, error) {
			return &simBus{sim: sharedSim}, nil
		})
		require.NoError(t, err)
	})
}

func findDevice(devices []detection.DeviceInfo, path string) (detection.DeviceInfo, bool) {
	for _, d := range devices {
		if d.Path == path {
			return d, true
		}
	}
	return detection.DeviceInfo{}, false
}

func TestDetector_Transport(t *testing.T) {
	assert.Equal(t, "i2c", New().Transport())
}

func TestDetector_SafeProbe(t *testing.T) {
	registerSimBus(t)

	opts := detection.Options{Mode: detection.Safe, Addresses: []uint16{0x48, 0x49}}
	devices, err := New().Detect(context.Background(), &opts)

	require.NoError(t, err)
	dev, found := findDevice(devices, simBusName+":0x48")
	require.True(t, found)
	assert.Equal(t, detection.Medium, dev.Confidence)
	assert.Equal(t, "HX83112", dev.Name)
	assert.Equal(t, "-1", dev.Metadata["bus_number"])

	_, found = findDevice(devices, simBusName+":0x49")
	assert.False(t, found, "nothing answers at 0x49")
}

func TestDetector_FullProbe(t *testing.T) {
	registerSimBus(t)

	opts := detection.Options{Mode: detection.Full}
	devices, err := New().Detect(context.Background(), &opts)

	require.NoError(t, err)
	dev, found := findDevice(devices, simBusName+":0x48")
	require.True(t, found)
	assert.Equal(t, detection.High, dev.Confidence)
}

func TestDetector_PassiveListsWithoutTraffic(t *testing.T) {
	registerSimBus(t)
	before := sharedSim.TxCount()

	opts := detection.Options{Mode: detection.Passive, Addresses: []uint16{0x49}}
	devices, err := New().Detect(context.Background(), &opts)

	require.NoError(t, err)
	dev, found := findDevice(devices, simBusName+":0x49")
	require.True(t, found)
	assert.Equal(t, detection.Low, dev.Confidence)
	assert.Equal(t, before, sharedSim.TxCount())
}

func TestDetector_IgnorePaths(t *testing.T) {
	registerSimBus(t)

	opts := detection.Options{Mode: detection.Passive, IgnorePaths: []string{simBusName + ":0x48"}}
	devices, _ := New().Detect(context.Background(), &opts)

	_, found := findDevice(devices, simBusName+":0x48")
	assert.False(t, found)
}
