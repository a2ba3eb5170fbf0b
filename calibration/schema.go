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
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrTypeMismatch is reported when a configured value does not parse as the
// option's kind. The option keeps its default.
var ErrTypeMismatch = errors.New("configuration value has wrong type")

// ErrUnknownOption is reported by FlagSource for a key no option declares.
var ErrUnknownOption = errors.New("unknown configuration option")

// Kind is the value type of an Option.
type Kind int

const (
	// KindUint is an unsigned 32-bit integer, decimal or 0x-prefixed hex.
	KindUint Kind = iota
	// KindBool is a flag stored as 0 or 1.
	KindBool
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint32"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Option declares one configurable property.
type Option struct {
	Field   func(*Properties) *uint32
	Name    string
	Kind    Kind
	Default uint32
}

// Schema is an ordered, immutable set of options.
type Schema []Option

// Lookup finds an option by name, case-insensitively.
func (s Schema) Lookup(name string) (Option, bool) {
	for _, opt := range s {
		if strings.EqualFold(opt.Name, name) {
			return opt, true
		}
	}
	return Option{}, false
}

// Source supplies raw option values by name.
type Source interface {
	Lookup(name string) (string, bool)
}

func uintOption(name string, field func(*Properties) *uint32) Option {
	def := DefaultProperties()
	return Option{Name: name, Kind: KindUint, Field: field, Default: *field(&def)}
}

func boolOption(name string, field func(*Properties) *uint32) Option {
	opt := uintOption(name, field)
	opt.Kind = KindBool
	return opt
}

// DefaultSchema returns every screen property under its registry value name.
func DefaultSchema() Schema {
	return Schema{
		boolOption("TouchSwapAxes", func(p *Properties) *uint32 { return &p.TouchSwapAxes }),
		boolOption("TouchInvertXAxis", func(p *Properties) *uint32 { return &p.TouchInvertXAxis }),
		boolOption("TouchInvertYAxis", func(p *Properties) *uint32 { return &p.TouchInvertYAxis }),
		uintOption("TouchPhysicalWidth", func(p *Properties) *uint32 { return &p.TouchPhysicalWidth }),
		uintOption("TouchPhysicalHeight", func(p *Properties) *uint32 { return &p.TouchPhysicalHeight }),
		uintOption("TouchPhysicalButtonHeight", func(p *Properties) *uint32 { return &p.TouchPhysicalButtonHeight }),
		uintOption("TouchPillarBoxWidthLeft", func(p *Properties) *uint32 { return &p.TouchPillarBoxWidthLeft }),
		uintOption("TouchPillarBoxWidthRight", func(p *Properties) *uint32 { return &p.TouchPillarBoxWidthRight }),
		uintOption("TouchLetterBoxHeightTop", func(p *Properties) *uint32 { return &p.TouchLetterBoxHeightTop }),
		uintOption("TouchLetterBoxHeightBottom", func(p *Properties) *uint32 { return &p.TouchLetterBoxHeightBottom }),
		uintOption("DisplayPhysicalWidth", func(p *Properties) *uint32 { return &p.DisplayPhysicalWidth }),
		uintOption("DisplayPhysicalHeight", func(p *Properties) *uint32 { return &p.DisplayPhysicalHeight }),
		uintOption("DisplayViewableWidth", func(p *Properties) *uint32 { return &p.DisplayViewableWidth }),
		uintOption("DisplayViewableHeight", func(p *Properties) *uint32 { return &p.DisplayViewableHeight }),
		uintOption("DisplayPillarBoxWidthLeft", func(p *Properties) *uint32 { return &p.DisplayPillarBoxWidthLeft }),
		uintOption("DisplayPillarBoxWidthRight", func(p *Properties) *uint32 { return &p.DisplayPillarBoxWidthRight }),
		uintOption("DisplayLetterBoxHeightTop", func(p *Properties) *uint32 { return &p.DisplayLetterBoxHeightTop }),
		uintOption("DisplayLetterBoxHeightBottom", func(p *Properties) *uint32 { return &p.DisplayLetterBoxHeightBottom }),
		uintOption("DisplayHeight10um", func(p *Properties) *uint32 { return &p.DisplayHeight10um }),
		uintOption("DisplayWidth10um", func(p *Properties) *uint32 { return &p.DisplayWidth10um }),
		boolOption("TouchHardwareLacksContinuousReporting",
			func(p *Properties) *uint32 { return &p.TouchHardwareLacksContinuousReporting }),
	}
}

func parseValue(kind Kind, raw string) (uint32, error) {
	raw = strings.TrimSpace(raw)
	if kind == KindBool {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return 0, err
		}
		if b {
			return 1, nil
		}
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// Load builds Properties from the schema defaults overridden by source. A
// value that fails to parse leaves its option at the default and adds an
// ErrTypeMismatch to the returned list; so does every inset reset made by
// Sanitize. Load never fails outright.
func Load(schema Schema, source Source) (Properties, []error) {
	var props Properties
	var errs []error

	for _, opt := range schema {
		*opt.Field(&props) = opt.Default
		if source == nil {
			continue
		}
		raw, ok := source.Lookup(opt.Name)
		if !ok {
			continue
		}
		v, err := parseValue(opt.Kind, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w: want %s", opt.Name, raw, ErrTypeMismatch, opt.Kind))
			continue
		}
		*opt.Field(&props) = v
	}

	for _, msg := range props.Sanitize() {
		errs = append(errs, errors.New(msg))
	}
	return props, errs
}

// MapSource serves values from a map keyed by option name.
type MapSource map[string]string

// Lookup implements Source
func (m MapSource) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// EnvSource reads options from environment variables named Prefix+Name,
// for example HX83112_TouchSwapAxes.
type EnvSource struct {
	Prefix string
}

// Lookup implements Source
func (e EnvSource) Lookup(name string) (string, bool) {
	return os.LookupEnv(e.Prefix + name)
}

// FlagSource collects repeated Key=Value command line flags. It implements
// flag.Value so it can be registered with flag.Var.
type FlagSource struct {
	schema Schema
	values map[string]string
}

var _ flag.Value = (*FlagSource)(nil)

// NewFlagSource creates a flag source that accepts the options of schema.
func NewFlagSource(schema Schema) *FlagSource {
	return &FlagSource{schema: schema, values: make(map[string]string)}
}

// Set implements flag.Value
func (f *FlagSource) Set(kv string) error {
	key, value, ok := strings.Cut(kv, "=")
	if !ok {
		return fmt.Errorf("expected Key=Value, got %q", kv)
	}
	opt, found := f.schema.Lookup(strings.TrimSpace(key))
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
	f.values[opt.Name] = value
	return nil
}

// String implements flag.Value
func (f *FlagSource) String() string {
	if f == nil || len(f.values) == 0 {
		return ""
	}
	parts := make([]string, 0, len(f.values))
	for _, opt := range f.schema {
		if v, ok := f.values[opt.Name]; ok {
			parts = append(parts, opt.Name+"="+v)
		}
	}
	return strings.Join(parts, ",")
}

// Lookup implements Source
func (f *FlagSource) Lookup(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Chain consults each source in turn; the first one that has a value wins.
type Chain []Source

// Lookup implements Source
func (c Chain) Lookup(name string) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}
