/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// Package regmap turns a declarative list of application registers into a
// control register bus.
package regmap

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type Type string

const (
	Counter8  Type = "counter_8bit"
	Counter16 Type = "counter_16bit"
	Percent   Type = "percent"
	Button    Type = "button"
)

// Width is the number of bits the type occupies, taken from bit 31 down.
func (t Type) Width() int {
	switch t {
	case Counter8:
		return 8
	case Counter16:
		return 16
	case Percent:
		return 7
	case Button:
		return 1
	}
	return 0
}

// Max is the largest value of the type.
func (t Type) Max() int {
	switch t {
	case Counter8:
		return 255
	case Counter16:
		return 65535
	case Percent:
		return 100
	case Button:
		return 1
	}
	return 0
}

func (t Type) valid() bool {
	return t.Width() != 0
}

const (
	AppFirst = 20
	AppLast  = 30
	MaxApp   = AppLast - AppFirst + 1
)

// Signals the probe needs from every register map.
const (
	SignalArm              = "arm_probe"
	SignalForceFire        = "force_fire"
	SignalResetFSM         = "reset_fsm"
	SignalClockDivider     = "clock_divider"
	SignalArmTimeout       = "arm_timeout"
	SignalFiringDuration   = "firing_duration"
	SignalCoolingDuration  = "cooling_duration"
	SignalTriggerThreshold = "trigger_threshold"
	SignalIntensity        = "intensity"
	SignalTriggerMode      = "trigger_mode"
)

var requiredSignals = []string{
	SignalArm,
	SignalForceFire,
	SignalResetFSM,
	SignalArmTimeout,
	SignalFiringDuration,
	SignalCoolingDuration,
	SignalTriggerThreshold,
	SignalIntensity,
}

type Register struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Type        Type   `yaml:"type" json:"type"`
	CR          int    `yaml:"cr" json:"cr"`
	Default     int    `yaml:"default" json:"default"`
	Min         *int   `yaml:"min,omitempty" json:"min,omitempty"`
	Max         *int   `yaml:"max,omitempty" json:"max,omitempty"`
	Signed      bool   `yaml:"signed,omitempty" json:"signed,omitempty"`
}

type Map struct {
	Name        string     `yaml:"name" json:"name"`
	Version     string     `yaml:"version" json:"version"`
	Description string     `yaml:"description" json:"description"`
	Registers   []Register `yaml:"registers" json:"registers"`
}

//go:embed ds1140.yaml
var ds1140 []byte

// Default is the built-in DS1140-PD layout.
func Default() *Map {
	m, err := Parse(ds1140)
	if err != nil {
		panic(fmt.Sprintf("built-in register map: %s", err))
	}
	return m
}

func Parse(data []byte) (*Map, error) {
	m := &Map{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, ErrInvalidRegisterMap{What: err.Error()}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read register map %s: %w", path, err)
	}
	return Parse(data)
}

func (m *Map) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

func (m *Map) Validate() error {
	if len(m.Registers) == 0 {
		return ErrInvalidRegisterMap{What: "no registers"}
	}
	if len(m.Registers) > MaxApp {
		return ErrInvalidRegisterMap{What: fmt.Sprintf("%d registers, at most %d allowed", len(m.Registers), MaxApp)}
	}
	crs := map[int]string{}
	signals := map[string]bool{}
	for _, r := range m.Registers {
		if err := r.validate(); err != nil {
			return err
		}
		if prev, ok := crs[r.CR]; ok {
			return ErrInvalidRegisterMap{What: fmt.Sprintf("CR%d used by %q and %q", r.CR, prev, r.Name)}
		}
		crs[r.CR] = r.Name
		sig := r.Signal()
		if signals[sig] {
			return ErrInvalidRegisterMap{What: fmt.Sprintf("duplicate signal %s", sig)}
		}
		signals[sig] = true
	}
	for _, sig := range requiredSignals {
		if !signals[sig] {
			return ErrInvalidRegisterMap{What: fmt.Sprintf("missing signal %s", sig)}
		}
	}
	return nil
}

func (r Register) validate() error {
	if r.Name == "" || r.Signal() == "" {
		return ErrInvalidRegisterMap{What: fmt.Sprintf("CR%d: empty name", r.CR)}
	}
	if !r.Type.valid() {
		return ErrInvalidRegisterMap{What: fmt.Sprintf("%s: unknown type %q", r.Name, r.Type)}
	}
	if r.CR < AppFirst || r.CR > AppLast {
		return ErrInvalidRegisterMap{What: fmt.Sprintf("%s: cr %d out of [%d, %d]", r.Name, r.CR, AppFirst, AppLast)}
	}
	if r.Signed && r.Type != Counter16 {
		return ErrInvalidRegisterMap{What: fmt.Sprintf("%s: only %s can be signed", r.Name, Counter16)}
	}
	tlo, thi := r.typeRange()
	if r.Min != nil && (*r.Min < tlo || *r.Min > thi) {
		return ErrInvalidRegisterMap{What: fmt.Sprintf("%s: min %d out of [%d, %d]", r.Name, *r.Min, tlo, thi)}
	}
	if r.Max != nil && (*r.Max < tlo || *r.Max > thi) {
		return ErrInvalidRegisterMap{What: fmt.Sprintf("%s: max %d out of [%d, %d]", r.Name, *r.Max, tlo, thi)}
	}
	lo, hi := r.bounds()
	if lo > hi {
		return ErrInvalidRegisterMap{What: fmt.Sprintf("%s: min %d > max %d", r.Name, lo, hi)}
	}
	if r.Default < lo || r.Default > hi {
		return ErrInvalidRegisterMap{What: fmt.Sprintf("%s: default %d out of [%d, %d]", r.Name, r.Default, lo, hi)}
	}
	return nil
}

// typeRange is the range of the interpreted value before min/max.
func (r Register) typeRange() (int, int) {
	if r.Signed {
		return -32768, 32767
	}
	return 0, r.Type.Max()
}

func (r Register) bounds() (int, int) {
	lo, hi := r.typeRange()
	if r.Min != nil && *r.Min > lo {
		lo = *r.Min
	}
	if r.Max != nil && *r.Max < hi {
		hi = *r.Max
	}
	return lo, hi
}

var (
	nonSignal  = regexp.MustCompile(`[^a-z0-9_]`)
	underscore = regexp.MustCompile(`_+`)
)

// SignalName derives a signal name from a friendly register name,
// e.g. "PWM Duty %" -> "pwm_duty".
func SignalName(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "_")
	s = nonSignal.ReplaceAllString(s, "")
	s = underscore.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func (r Register) Signal() string {
	return SignalName(r.Name)
}

func (r Register) shift() uint {
	return uint(32 - r.Type.Width())
}

func (r Register) mask() uint32 {
	return uint32(1)<<uint(r.Type.Width()) - 1
}

// Extract reads the register value from a control word, MSB first, and
// clamps it to the declared range.
func (r Register) Extract(word uint32) int {
	raw := (word >> r.shift()) & r.mask()
	v := int(raw)
	if r.Signed {
		v = int(int16(uint16(raw)))
	}
	lo, hi := r.bounds()
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Pack places v into a control word, MSB first. Signed values are stored
// as two's complement.
func (r Register) Pack(v int) uint32 {
	return (uint32(v) & r.mask()) << r.shift()
}

// BitRange describes where the value sits in the control word, e.g. "31:24".
func (r Register) BitRange() string {
	if r.Type.Width() == 1 {
		return "31"
	}
	return fmt.Sprintf("31:%d", r.shift())
}

func (m *Map) Lookup(signal string) (Register, bool) {
	for _, r := range m.Registers {
		if r.Signal() == signal {
			return r, true
		}
	}
	return Register{}, false
}

func (m *Map) ByCR(cr int) (Register, bool) {
	for _, r := range m.Registers {
		if r.CR == cr {
			return r, true
		}
	}
	return Register{}, false
}
