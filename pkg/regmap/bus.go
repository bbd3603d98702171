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

package regmap

import (
	"ezemfi.io/go-probe/pkg/bram"
	"ezemfi.io/go-probe/pkg/latch"
	"ezemfi.io/go-probe/pkg/trigger"
)

const (
	NumRegs = 32

	CRControl       = 0
	CRLoaderControl = 10
	CRLoaderAddr    = 11
	CRLoaderData    = 12
	CRLoaderStrobe  = 13
)

// CR0 enable bits
const (
	VoloReadyBit  = 31
	UserEnableBit = 30
	ClkEnableBit  = 29
)

type Control struct {
	VoloReady  bool `json:"voloReady"`
	UserEnable bool `json:"userEnable"`
	ClkEnable  bool `json:"clkEnable"`
}

// Word encodes c as a CR0 value.
func (c Control) Word() uint32 {
	var w uint32
	if c.VoloReady {
		w |= 1 << VoloReadyBit
	}
	if c.UserEnable {
		w |= 1 << UserEnableBit
	}
	if c.ClkEnable {
		w |= 1 << ClkEnableBit
	}
	return w
}

// ControlFromWord decodes CR0.
func ControlFromWord(w uint32) Control {
	return Control{
		VoloReady:  w&(1<<VoloReadyBit) != 0,
		UserEnable: w&(1<<UserEnableBit) != 0,
		ClkEnable:  w&(1<<ClkEnableBit) != 0,
	}
}

// ControlEnabled is the CR0 word with all enable bits set.
var ControlEnabled = Control{VoloReady: true, UserEnable: true, ClkEnable: true}.Word()

type Commands struct {
	Arm       bool `json:"arm"`
	ForceFire bool `json:"forceFire"`
	ResetFSM  bool `json:"resetFsm"`
}

// Bus is the bank of 32-bit control registers CR0..CR31. It is not safe for
// concurrent use; the owner serializes access.
type Bus struct {
	m    *Map
	regs [NumRegs]uint32
}

// NewBus returns a bus with every application register at its default.
func NewBus(m *Map) *Bus {
	b := &Bus{m: m}
	b.LoadDefaults()
	return b
}

func (b *Bus) Map() *Map {
	return b.m
}

// LoadDefaults clears the bus and writes the application defaults.
func (b *Bus) LoadDefaults() {
	b.regs = [NumRegs]uint32{}
	for _, r := range b.m.Registers {
		b.regs[r.CR] = r.Pack(r.Default)
	}
}

func (b *Bus) Write(cr int, value uint32) error {
	if cr < 0 || cr >= NumRegs {
		return ErrRegisterNotMapped{Addr: cr}
	}
	b.regs[cr] = value
	return nil
}

func (b *Bus) Read(cr int) (uint32, error) {
	if cr < 0 || cr >= NumRegs {
		return 0, ErrRegisterNotMapped{Addr: cr}
	}
	return b.regs[cr], nil
}

func (b *Bus) Snapshot() [NumRegs]uint32 {
	return b.regs
}

// Value is the extracted and clamped value of a named signal.
func (b *Bus) Value(signal string) (int, error) {
	r, ok := b.m.Lookup(signal)
	if !ok {
		return 0, ErrUnknownSignal{What: signal}
	}
	return r.Extract(b.regs[r.CR]), nil
}

// SetValue packs v into the register backing signal. Other bits of the
// control word are cleared.
func (b *Bus) SetValue(signal string, v int) error {
	r, ok := b.m.Lookup(signal)
	if !ok {
		return ErrUnknownSignal{What: signal}
	}
	b.regs[r.CR] = r.Pack(v)
	return nil
}

func (b *Bus) value(signal string, fallback int) int {
	v, err := b.Value(signal)
	if err != nil {
		return fallback
	}
	return v
}

// Pending is the parameter set currently held by the bus.
func (b *Bus) Pending() latch.ParameterSet {
	return parameters(func(signal string, fallback int) int {
		return b.value(signal, fallback)
	})
}

// Defaults is the parameter set made of the declared register defaults.
func (b *Bus) Defaults() latch.ParameterSet {
	return parameters(func(signal string, fallback int) int {
		r, ok := b.m.Lookup(signal)
		if !ok {
			return fallback
		}
		return r.Default
	})
}

func parameters(get func(signal string, fallback int) int) latch.ParameterSet {
	d := latch.DefaultParameters()
	mode := trigger.Rising
	if get(SignalTriggerMode, int(d.TriggerMode)) != 0 {
		mode = trigger.Falling
	}
	return latch.ParameterSet{
		ArmTimeout:       uint16(get(SignalArmTimeout, int(d.ArmTimeout))),
		FiringDuration:   uint8(get(SignalFiringDuration, int(d.FiringDuration))),
		CoolingDuration:  uint8(get(SignalCoolingDuration, int(d.CoolingDuration))),
		TriggerThreshold: int16(get(SignalTriggerThreshold, int(d.TriggerThreshold))),
		Intensity:        int16(get(SignalIntensity, int(d.Intensity))),
		ClockDivider:     uint8(get(SignalClockDivider, int(d.ClockDivider))),
		TriggerMode:      mode,
	}
}

func (b *Bus) Commands() Commands {
	return Commands{
		Arm:       b.value(SignalArm, 0) != 0,
		ForceFire: b.value(SignalForceFire, 0) != 0,
		ResetFSM:  b.value(SignalResetFSM, 0) != 0,
	}
}

func (b *Bus) Control() Control {
	return ControlFromWord(b.regs[CRControl])
}

// Loader is the bulk-data loader view of CR10..CR13.
func (b *Bus) Loader() bram.Inputs {
	return bram.Inputs{
		Control: b.regs[CRLoaderControl],
		Addr:    b.regs[CRLoaderAddr],
		Data:    b.regs[CRLoaderData],
		Strobe:  b.regs[CRLoaderStrobe],
	}
}
