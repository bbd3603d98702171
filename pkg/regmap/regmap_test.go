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
	"os"
	"path/filepath"
	"testing"

	"ezemfi.io/go-probe/pkg/latch"
	"ezemfi.io/go-probe/pkg/trigger"
)

func TestSignalName(t *testing.T) {
	tests := map[string]string{
		"Pulse Width":       "pulse_width",
		"Enable Output":     "enable_output",
		"PWM Duty %":        "pwm_duty",
		"  Arm   Probe  ":   "arm_probe",
		"__Reset-FSM__":     "resetfsm",
		"Trigger Threshold": "trigger_threshold",
	}
	for in, want := range tests {
		if got := SignalName(in); got != want {
			t.Errorf("SignalName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultMap(t *testing.T) {
	m := Default()
	if m.Name != "DS1140-PD" {
		t.Fatalf("name = %s", m.Name)
	}
	b := NewBus(m)
	if b.Defaults() != latch.DefaultParameters() {
		t.Fatalf("map defaults %s differ from built-in defaults %s", b.Defaults(), latch.DefaultParameters())
	}
	if b.Pending() != b.Defaults() {
		t.Fatalf("fresh bus pending %s, want defaults", b.Pending())
	}
}

func TestExtractMSBFirst(t *testing.T) {
	tests := []struct {
		reg  Register
		word uint32
		want int
	}{
		{Register{Type: Button}, 0x80000000, 1},
		{Register{Type: Button}, 0x7FFFFFFF, 0},
		{Register{Type: Counter8}, 0xAB000000, 0xAB},
		{Register{Type: Counter16}, 0x12345678, 0x1234},
		{Register{Type: Percent}, 50 << 25, 50},
		{Register{Type: Percent}, 0xFE000000, 100},
		{Register{Type: Counter16, Signed: true}, 0xFFFF0000, -1},
		{Register{Type: Counter16, Max: intp(4095)}, 0xFFFF0000, 4095},
	}
	for _, tt := range tests {
		if got := tt.reg.Extract(tt.word); got != tt.want {
			t.Errorf("%s %#08x: got %d, want %d", tt.reg.Type, tt.word, got, tt.want)
		}
	}
}

func TestPackRoundTrip(t *testing.T) {
	r := Register{Type: Counter16, Signed: true}
	for _, v := range []int{-32768, -1, 0, 15729, 32767} {
		if got := r.Extract(r.Pack(v)); got != v {
			t.Errorf("%d: got %d", v, got)
		}
	}
	if (Register{Type: Counter8}).BitRange() != "31:24" {
		t.Fatal("counter_8bit bit range")
	}
	if (Register{Type: Button}).BitRange() != "31" {
		t.Fatal("button bit range")
	}
}

func intp(v int) *int {
	return &v
}

func TestValidate(t *testing.T) {
	base := func() *Map {
		return Default()
	}
	tests := []struct {
		name   string
		mutate func(m *Map)
	}{
		{"duplicate cr", func(m *Map) { m.Registers[1].CR = m.Registers[0].CR }},
		{"cr out of range", func(m *Map) { m.Registers[0].CR = 6 }},
		{"unknown type", func(m *Map) { m.Registers[0].Type = "float" }},
		{"default too big", func(m *Map) { m.Registers[3].Default = 256 }},
		{"signed counter8", func(m *Map) { m.Registers[3].Signed = true }},
		{"missing signal", func(m *Map) { m.Registers[0].Name = "Arm Laser" }},
		{"min above max", func(m *Map) { m.Registers[3].Min = intp(10); m.Registers[3].Max = intp(5) }},
		{"too many", func(m *Map) {
			m.Registers = append(m.Registers, Register{Name: "Extra", Type: Button, CR: 30})
			m.Registers = append(m.Registers, Register{Name: "Extra Two", Type: Button, CR: 30})
		}},
	}
	for _, tt := range tests {
		m := base()
		tt.mutate(m)
		if err := m.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("default map: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	m := Default()
	m.Registers[4].Default = 100
	data, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "regs.yaml")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if NewBus(loaded).Defaults().ArmTimeout != 100 {
		t.Fatalf("arm timeout default = %d", NewBus(loaded).Defaults().ArmTimeout)
	}

	if _, err := Parse([]byte("name: x\nbogus: 1\n")); err == nil {
		t.Fatal("unknown fields must be rejected")
	}
}

func TestBusPending(t *testing.T) {
	b := NewBus(Default())
	writes := map[string]int{
		SignalArmTimeout:       9999,
		SignalFiringDuration:   100,
		SignalCoolingDuration:  2,
		SignalTriggerThreshold: -1000,
		SignalIntensity:        30000,
		SignalClockDivider:     3,
		SignalTriggerMode:      1,
	}
	for sig, v := range writes {
		if err := b.SetValue(sig, v); err != nil {
			t.Fatal(err)
		}
	}
	want := latch.ParameterSet{
		ArmTimeout:       4095,
		FiringDuration:   100,
		CoolingDuration:  2,
		TriggerThreshold: -1000,
		Intensity:        30000,
		ClockDivider:     3,
		TriggerMode:      trigger.Falling,
	}
	if got := b.Pending(); got != want {
		t.Fatalf("pending = %s\nwant %s", got, want)
	}
}

func TestBusCommandsAndControl(t *testing.T) {
	b := NewBus(Default())
	if err := b.Write(20, 0x80000000); err != nil {
		t.Fatal(err)
	}
	if err := b.Write(CRControl, ControlEnabled); err != nil {
		t.Fatal(err)
	}
	c := b.Commands()
	if !c.Arm || c.ForceFire || c.ResetFSM {
		t.Fatalf("commands = %+v", c)
	}
	if b.Control() != (Control{VoloReady: true, UserEnable: true, ClkEnable: true}) {
		t.Fatalf("control = %+v", b.Control())
	}
	if ControlEnabled != 0xE0000000 {
		t.Fatalf("enabled word = %#x", ControlEnabled)
	}
	if err := b.Write(32, 1); err == nil {
		t.Fatal("CR32 must not be mapped")
	}
	if _, err := b.Read(-1); err == nil {
		t.Fatal("negative register must not be mapped")
	}
}
