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

// Command touchd brings up an HX83112 touch controller on an I2C bus and
// services its interrupts, printing touches or feeding them to uinput.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	hx83112 "github.com/ZaparooProject/go-hx83112"
	"github.com/ZaparooProject/go-hx83112/calibration"
	"github.com/ZaparooProject/go-hx83112/detection"
	_ "github.com/ZaparooProject/go-hx83112/detection/i2c"
	"github.com/ZaparooProject/go-hx83112/internal/syncutil"
	"github.com/ZaparooProject/go-hx83112/polling"
	"github.com/ZaparooProject/go-hx83112/transport/i2c"
)

// envPrefix prefixes calibration options read from the environment
const envPrefix = "HX83112_"

type config struct {
	props      *calibration.FlagSource
	bus        string
	irq        string
	sessionDir string
	uinputPath string
	addr       uint
	maxFingers int
	flashMode  bool
	uinput     bool
	debug      bool
	logSession bool
}

func registerFlags(fs *flag.FlagSet) *config {
	cfg := &config{props: calibration.NewFlagSource(calibration.DefaultSchema())}
	fs.StringVar(&cfg.bus, "bus", "", `I2C bus name (first bus if empty, "auto" to scan every bus)`)
	fs.UintVar(&cfg.addr, "addr", uint(i2c.DefaultAddress), "7-bit I2C address of the controller")
	fs.StringVar(&cfg.irq, "irq", "", "GPIO name of the interrupt line (poll on a timer if empty)")
	fs.BoolVar(&cfg.flashMode, "flash-mode", false, "Release safe mode instead of resetting during bring-up")
	fs.IntVar(&cfg.maxFingers, "max-fingers", hx83112.MaxPoints, "Number of touch slots reported by the firmware")
	fs.Var(cfg.props, "prop", "Calibration option as Key=Value (repeatable)")
	fs.BoolVar(&cfg.uinput, "uinput", false, "Create a uinput multitouch device instead of printing touches")
	fs.StringVar(&cfg.uinputPath, "uinput-path", "/dev/uinput", "uinput control node")
	fs.BoolVar(&cfg.debug, "debug", false, "Enable debug output")
	fs.BoolVar(&cfg.logSession, "log-session", false, "Write a session log file")
	fs.StringVar(&cfg.sessionDir, "log-dir", "", "Directory for the session log (working directory if empty)")
	return cfg
}

// loadProperties resolves calibration from -prop flags, then the
// environment, then defaults. Problems with individual options are
// written to warn and do not fail the load.
func loadProperties(cfg *config, warn io.Writer) (calibration.Properties, error) {
	source := calibration.Chain{cfg.props, calibration.EnvSource{Prefix: envPrefix}}
	props, problems := calibration.Load(calibration.DefaultSchema(), source)
	for _, p := range problems {
		_, _ = fmt.Fprintf(warn, "Warning: calibration: %v\n", p)
	}
	if err := props.Validate(); err != nil {
		return props, fmt.Errorf("calibration: %w", err)
	}
	return props, nil
}

func controllerOptions(cfg *config, props calibration.Properties, reporter hx83112.Reporter) []hx83112.Option {
	opts := []hx83112.Option{
		hx83112.WithMaxFingers(cfg.maxFingers),
		hx83112.WithProperties(props),
		hx83112.WithFlashMode(cfg.flashMode),
	}
	if reporter != nil {
		opts = append(opts, hx83112.WithReporter(reporter))
	}
	return opts
}

// openController opens the bus and wraps it in a controller. The
// controller is not started.
func openController(cfg *config, props calibration.Properties, reporter hx83112.Reporter) (*hx83112.Controller, error) {
	transport, err := i2c.New(cfg.bus, i2c.WithAddress(uint16(cfg.addr)))
	if err != nil {
		return nil, err
	}
	ctrl, err := hx83112.New(transport, controllerOptions(cfg, props, reporter)...)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	if _, err := ctrl.SetReportingMode(hx83112.ReportingContinuous); err != nil {
		_ = ctrl.Close()
		return nil, err
	}
	return ctrl, nil
}

// resolveBus replaces -bus auto with the first controller found by a bus
// scan at the configured address.
func resolveBus(ctx context.Context, cfg *config) error {
	if cfg.bus != "auto" {
		return nil
	}
	opts := detection.DefaultOptions()
	opts.Transports = []string{"i2c"}
	opts.Addresses = []uint16{uint16(cfg.addr)}
	devices, err := detection.DetectAll(ctx, &opts)
	if err != nil {
		return fmt.Errorf("detect controller: %w", err)
	}
	bus, addr, err := i2c.ParsePath(devices[0].Path)
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("Found %s\n", devices[0])
	cfg.bus, cfg.addr = bus, uint(addr)
	return nil
}

func newInterruptSource(cfg *config, pcfg *polling.Config) (polling.InterruptSource, error) {
	if cfg.irq == "" {
		hx83112.Debugf("No interrupt line, polling every %v", pcfg.FallbackPollInterval)
		return polling.NewTickerInterrupt(pcfg.FallbackPollInterval), nil
	}
	irq, err := polling.OpenGPIOInterrupt(cfg.irq, pcfg.InterruptTimeout)
	if err != nil {
		return nil, fmt.Errorf("interrupt line: %w", err)
	}
	return irq, nil
}

// printReporter writes one line per present slot.
func printReporter(w io.Writer) hx83112.Reporter {
	return hx83112.ReporterFunc(func(objs hx83112.DetectedObjects) error {
		for i, pt := range objs.Points {
			if pt.State != hx83112.ObjectPresentAccurate {
				continue
			}
			if _, err := fmt.Fprintf(w, "slot=%d x=%d y=%d w=%d\n", i, pt.X, pt.Y, pt.Width); err != nil {
				return fmt.Errorf("print touch: %w", err)
			}
		}
		return nil
	})
}

func run(ctx context.Context, cfg *config) error {
	props, err := loadProperties(cfg, os.Stderr)
	if err != nil {
		return err
	}

	if err := resolveBus(ctx, cfg); err != nil {
		return err
	}

	reporter := printReporter(os.Stdout)
	if cfg.uinput {
		dev, devErr := openUinput(cfg.uinputPath, props, cfg.maxFingers)
		if devErr != nil {
			return devErr
		}
		defer func() { _ = dev.Close() }()
		reporter = dev
	}

	ctrl, err := openController(cfg, props, reporter)
	if err != nil {
		return err
	}

	res, err := ctrl.Start(ctx)
	if err != nil {
		_ = ctrl.Close()
		return err
	}
	_, _ = fmt.Printf("HX83112 on %s: %s\n", ctrl.Transport(), res.State)
	if res.Degraded != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: %v\n", res.Degraded)
	}

	pcfg := polling.DefaultConfig()
	irq, err := newInterruptSource(cfg, pcfg)
	if err != nil {
		_ = ctrl.Close()
		return err
	}
	defer func() { _ = irq.Close() }()

	actor := polling.NewDeviceActor(ctrl, irq, pcfg, polling.DeviceCallbacks{
		OnRecovered: func(c *hx83112.Controller) {
			_, _ = fmt.Printf("Recovered HX83112 on %s\n", c.Transport())
		},
	})
	actor.SetRecoverer(polling.NewRecovererFromConfig(ctrl,
		func(context.Context) (*hx83112.Controller, error) {
			return openController(cfg, props, reporter)
		}, pcfg.Recovery))

	if err := actor.Start(ctx); err != nil {
		_ = ctrl.Close()
		return err
	}
	_, _ = fmt.Println("Servicing touches. Press Ctrl+C to stop...")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := actor.Stop(stopCtx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to stop touch service: %v\n", err)
	}
	if err := actor.Controller().Close(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to close controller: %v\n", err)
	}

	m := actor.GetMetrics()
	_, _ = fmt.Printf("Interrupts: %d, frames: %d, no data: %d, errors: %d, recoveries: %d\n",
		m.Interrupts, m.Frames, m.NoData, m.Errors, m.Recoveries)
	return ctx.Err()
}

func main() {
	cfg := registerFlags(flag.CommandLine)
	flag.Parse()
	os.Exit(mainWithExitCode(cfg))
}

func mainWithExitCode(cfg *config) int {
	if cfg.debug {
		hx83112.SetDebugEnabled(true)
	}
	if syncutil.DetectionEnabled {
		// Bring-up holds the controller lock across every bus retry
		syncutil.SetLockTimeout(10 * time.Second)
	}
	if cfg.logSession {
		path, err := hx83112.InitSessionLog(cfg.sessionDir)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to start session log: %v\n", err)
		} else {
			_, _ = fmt.Printf("Session log: %s\n", path)
			defer func() { _ = hx83112.CloseSessionLog() }()
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
