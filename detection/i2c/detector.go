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

// Package i2c registers a detector that scans every I2C bus known to periph
// for HX83112 controllers.
package i2c

import (
	"context"
	"fmt"
	"strconv"

	hx83112 "github.com/ZaparooProject/go-hx83112"
	"github.com/ZaparooProject/go-hx83112/detection"
	"github.com/ZaparooProject/go-hx83112/transport/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// detector implements the Detector interface for I2C buses
type detector struct{}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "i2c"
}

// Detect probes every candidate address on every registered bus
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	addrs := opts.Addresses
	if len(addrs) == 0 {
		addrs = []uint16{i2c.DefaultAddress}
	}

	var devices []detection.DeviceInfo
	for _, ref := range i2creg.All() {
		for _, addr := range addrs {
			if err := ctx.Err(); err != nil {
				return devices, err
			}
			path := fmt.Sprintf("%s:0x%02X", ref.Name, addr)
			if detection.IsPathIgnored(path, opts.IgnorePaths) {
				continue
			}

			conf, err := probeAddress(ctx, ref, addr, opts.Mode)
			if err != nil {
				hx83112.Debugf("I2C detect %s: %v", path, err)
				continue
			}
			devices = append(devices, detection.DeviceInfo{
				Transport:  "i2c",
				Path:       path,
				Name:       "HX83112",
				Confidence: conf,
				Metadata:   map[string]string{"bus_number": strconv.Itoa(ref.Number)},
			})
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func probeAddress(ctx context.Context, ref *i2creg.Ref, addr uint16, mode detection.Mode) (detection.Confidence, error) {
	if mode == detection.Passive {
		return detection.Low, nil
	}

	bus, err := ref.Open()
	if err != nil {
		return detection.Low, fmt.Errorf("open bus: %w", err)
	}
	transport := i2c.NewFromBus(bus, ref.Name, i2c.WithAddress(addr))
	defer func() { _ = transport.Close() }()

	return detection.Probe(ctx, transport, mode)
}
