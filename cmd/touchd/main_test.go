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

package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"testing"

	hx83112 "github.com/ZaparooProject/go-hx83112"
	"github.com/ZaparooProject/go-hx83112/calibration"
	virt "github.com/ZaparooProject/go-hx83112/internal/testing"
	"github.com/ZaparooProject/go-hx83112/polling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseArgs(t *testing.T, args ...string) *config {
	t.Helper()
	fs := flag.NewFlagSet("touchd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg := registerFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cfg
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	cfg := parseArgs(t)

	assert.Equal(t, uint(0x48), cfg.addr)
	assert.Equal(t, hx83112.MaxPoints, cfg.maxFingers)
	assert.Empty(t, cfg.irq)
	assert.False(t, cfg.flashMode)
	assert.False(t, cfg.uinput)
	assert.Empty(t, cfg.props.String())
}

func TestRegisterFlags_Values(t *testing.T) {
	t.Parallel()

	cfg := parseArgs(t,
		"-bus", "1", "-addr", "0x4a", "-irq", "GPIO17", "-flash-mode",
		"-max-fingers", "5", "-prop", "TouchSwapAxes=1", "-prop", "displayphysicalwidth=1080",
		"-uinput", "-debug", "-log-session")

	assert.Equal(t, "1", cfg.bus)
	assert.Equal(t, uint(0x4a), cfg.addr)
	assert.Equal(t, "GPIO17", cfg.irq)
	assert.True(t, cfg.flashMode)
	assert.Equal(t, 5, cfg.maxFingers)
	assert.True(t, cfg.uinput)
	assert.True(t, cfg.debug)
	assert.True(t, cfg.logSession)
	assert.Equal(t, "TouchSwapAxes=1,DisplayPhysicalWidth=1080", cfg.props.String())
}

func TestRegisterFlags_UnknownProperty(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("touchd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	registerFlags(fs)

	err := fs.Parse([]string{"-prop", "NoSuchOption=1"})
	require.ErrorIs(t, err, calibration.ErrUnknownOption)
}

func TestLoadProperties(t *testing.T) {
	t.Parallel()

	cfg := parseArgs(t, "-prop", "TouchInvertXAxis=true", "-prop", "DisplayPhysicalHeight=0x780")
	var warn bytes.Buffer

	props, err := loadProperties(cfg, &warn)

	require.NoError(t, err)
	assert.True(t, props.InvertX())
	assert.Equal(t, uint32(0x780), props.DisplayPhysicalHeight)
	assert.Empty(t, warn.String())
}

func TestLoadProperties_BadValueWarns(t *testing.T) {
	t.Parallel()

	cfg := parseArgs(t, "-prop", "TouchPhysicalWidth=wide")
	var warn bytes.Buffer

	props, err := loadProperties(cfg, &warn)

	require.NoError(t, err)
	assert.Equal(t, calibration.DefaultProperties().TouchPhysicalWidth, props.TouchPhysicalWidth)
	assert.Contains(t, warn.String(), "TouchPhysicalWidth")
}

func TestLoadProperties_Misconfigured(t *testing.T) {
	t.Parallel()

	cfg := parseArgs(t, "-prop", "DisplayPhysicalWidth=0")

	_, err := loadProperties(cfg, io.Discard)
	require.ErrorIs(t, err, calibration.ErrMisconfigured)
}

func TestLoadProperties_Environment(t *testing.T) {
	t.Setenv(envPrefix+"TouchSwapAxes", "1")
	t.Setenv(envPrefix+"TouchInvertYAxis", "1")

	cfg := parseArgs(t, "-prop", "TouchInvertYAxis=0")

	props, err := loadProperties(cfg, io.Discard)

	require.NoError(t, err)
	assert.True(t, props.SwapAxes())
	assert.False(t, props.InvertY(), "flags take precedence over the environment")
}

func TestControllerOptions(t *testing.T) {
	t.Parallel()

	cfg := parseArgs(t, "-max-fingers", "2", "-flash-mode")
	props := calibration.DefaultProperties()
	var out bytes.Buffer

	sim := virt.NewVirtualHX83112()
	sim.SetReleaseAfter(1)
	ctrl, err := hx83112.New(sim, controllerOptions(cfg, props, printReporter(&out))...)
	require.NoError(t, err)
	ctrl.Registers().Bus().SetRetryDelay(0)
	ctrl.Bringup().SetDelays(0, 0)
	_, err = ctrl.SetReportingMode(hx83112.ReportingContinuous)
	require.NoError(t, err)

	res, err := ctrl.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, res.SafeModeReleased)
	assert.Equal(t, 2, ctrl.TouchState().MaxFingers)

	sim.QueueFrame(virt.NewFrameBuilder(2).Touch(virt.Touch{Slot: 1, X: 240, Y: 400, Width: 7}).Bytes())
	_, err = ctrl.ServiceInterrupt(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "slot=1 x=240 y=400 w=7\n", out.String())
}

func TestPrintReporter_SkipsAbsentSlots(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	objs := hx83112.DetectedObjects{}
	objs.Points[3] = hx83112.TouchPoint{State: hx83112.ObjectPresentAccurate, X: 1, Y: 2, Width: 3}

	require.NoError(t, printReporter(&out).Report(objs))
	assert.Equal(t, "slot=3 x=1 y=2 w=3\n", out.String())
}

func TestNewInterruptSource_FallbackTicker(t *testing.T) {
	t.Parallel()

	cfg := parseArgs(t)
	src, err := newInterruptSource(cfg, polling.DefaultConfig())

	require.NoError(t, err)
	assert.IsType(t, &polling.TickerInterrupt{}, src)
	require.NoError(t, src.Close())
}

func TestResolveBus_ExplicitBusUntouched(t *testing.T) {
	t.Parallel()

	cfg := parseArgs(t, "-bus", "/dev/i2c-3", "-addr", "0x4b")

	require.NoError(t, resolveBus(context.Background(), cfg))
	assert.Equal(t, "/dev/i2c-3", cfg.bus)
	assert.Equal(t, uint(0x4b), cfg.addr)
}
