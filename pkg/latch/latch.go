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

// Package latch holds the applied copy of the probe parameters and gates
// updates from the pending copy behind the sequencer's permission signal.
package latch

import (
	"fmt"

	"ezemfi.io/go-probe/pkg/codec"
	"ezemfi.io/go-probe/pkg/trigger"
)

const (
	ArmTimeoutMax = 4095
)

// ParameterSet is every operator-configurable parameter of the probe.
// Values are stored as written; safety clamps are applied by the consumers.
type ParameterSet struct {
	ArmTimeout       uint16       `json:"armTimeout"`
	FiringDuration   uint8        `json:"firingDuration"`
	CoolingDuration  uint8        `json:"coolingDuration"`
	TriggerThreshold int16        `json:"triggerThreshold"`
	Intensity        int16        `json:"intensity"`
	ClockDivider     uint8        `json:"clockDivider"`
	TriggerMode      trigger.Mode `json:"triggerMode"`
}

func (p ParameterSet) String() string {
	return fmt.Sprintf("arm_timeout=%d firing=%d cooling=%d threshold=%.3fV intensity=%.3fV div=%d mode=%s",
		p.ArmTimeout, p.FiringDuration, p.CoolingDuration,
		codec.DigitalToVolts(p.TriggerThreshold), codec.DigitalToVolts(p.Intensity),
		p.ClockDivider, p.TriggerMode)
}

// DefaultParameters are the reset values of the DS1140-PD register layout.
func DefaultParameters() ParameterSet {
	return ParameterSet{
		ArmTimeout:       255,
		FiringDuration:   16,
		CoolingDuration:  16,
		TriggerThreshold: codec.Digital2V4,
		Intensity:        codec.Digital2V,
		ClockDivider:     0,
		TriggerMode:      trigger.Rising,
	}
}

type Inputs struct {
	Reset           bool
	Freeze          bool
	ReadyForUpdates bool
}

type Latch struct {
	defaults ParameterSet
	pending  ParameterSet
	applied  ParameterSet
	copies   uint64
}

func New(defaults ParameterSet) *Latch {
	return &Latch{
		defaults: defaults,
		pending:  defaults,
		applied:  defaults,
	}
}

// SetPending overwrites the pending copy. It never touches the applied copy.
func (l *Latch) SetPending(p ParameterSet) {
	l.pending = p
}

func (l *Latch) Pending() ParameterSet {
	return l.pending
}

func (l *Latch) Applied() ParameterSet {
	return l.applied
}

func (l *Latch) Defaults() ParameterSet {
	return l.defaults
}

// Copies counts the ticks on which pending was copied into applied.
func (l *Latch) Copies() uint64 {
	return l.copies
}

// Tick copies the whole pending set into applied when permission is granted.
func (l *Latch) Tick(in Inputs) {
	switch {
	case in.Reset:
		l.applied = l.defaults
	case in.Freeze:
	case in.ReadyForUpdates:
		l.applied = l.pending
		l.copies++
	}
}
