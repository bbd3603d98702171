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

// Package sequencer drives the probe lifecycle:
// Ready -> Armed -> Firing -> Cooling -> Done, with TimedOut when an armed
// probe never sees a trigger.
//
// The sequencer owns the timing counters and the sticky status. It never
// reads parameters on its own; the caller passes the applied values each
// tick and they are snapshotted only when the governing state is entered.
package sequencer

const (
	// MaxFiringTicks caps the firing window
	MaxFiringTicks = 32
	// MinCoolingTicks is the floor of the cooling window
	MinCoolingTicks = 8
	// CounterMax is where fire and spurious counters saturate
	CounterMax = 15
)

type Inputs struct {
	Reset  bool
	Freeze bool
	Enable bool

	Arm       bool
	ForceFire bool
	ResetFSM  bool
	Trigger   bool

	ArmTimeout      uint16
	FiringDuration  uint8
	CoolingDuration uint8
}

type Status struct {
	State            State  `json:"state"`
	WasTriggered     bool   `json:"wasTriggered"`
	TimedOut         bool   `json:"timedOut"`
	FireCount        uint8  `json:"fireCount"`
	SpuriousCount    uint8  `json:"spuriousCount"`
	ArmRemaining     uint16 `json:"armRemaining"`
	FiringRemaining  uint8  `json:"firingRemaining"`
	CoolingRemaining uint8  `json:"coolingRemaining"`
}

type Sequencer struct {
	status Status
}

func New() *Sequencer {
	return &Sequencer{}
}

func (s *Sequencer) State() State {
	return s.status.State
}

func (s *Sequencer) Status() Status {
	return s.status
}

// ReadyForUpdates grants the configuration latch permission to apply
// pending parameters.
func (s *Sequencer) ReadyForUpdates() bool {
	return s.status.State.Paused()
}

// Tick evaluates one clock period. Priority is reset, then freeze, then enable.
func (s *Sequencer) Tick(in Inputs) {
	if in.Reset {
		s.status = Status{State: Ready}
		return
	}
	if in.Freeze || !in.Enable {
		return
	}

	st := &s.status
	if in.Trigger && st.State != Armed {
		st.SpuriousCount = saturate(st.SpuriousCount)
	}

	switch st.State {
	case Ready:
		switch {
		case in.ResetFSM:
			st.clearSticky()
		case in.Arm:
			st.State = Armed
			st.ArmRemaining = in.ArmTimeout
		}

	case Armed:
		if in.ForceFire || in.Trigger {
			st.State = Firing
			st.WasTriggered = true
			st.ArmRemaining = 0
			st.FiringRemaining = min(in.FiringDuration, MaxFiringTicks)
			return
		}
		if st.ArmRemaining > 0 {
			st.ArmRemaining--
		}
		if st.ArmRemaining == 0 {
			st.State = TimedOut
			st.TimedOut = true
		}

	case Firing:
		if st.FiringRemaining > 0 {
			st.FiringRemaining--
		}
		if st.FiringRemaining == 0 {
			st.State = Cooling
			st.FireCount = saturate(st.FireCount)
			st.CoolingRemaining = max(in.CoolingDuration, MinCoolingTicks)
		}

	case Cooling:
		if st.CoolingRemaining > 0 {
			st.CoolingRemaining--
		}
		if st.CoolingRemaining == 0 {
			st.State = Done
		}

	case Done, TimedOut, HardFault:
		if in.ResetFSM {
			st.State = Ready
			st.clearSticky()
		}

	default:
		st.State = Ready
	}
}

func (st *Status) clearSticky() {
	st.WasTriggered = false
	st.TimedOut = false
}

func saturate(c uint8) uint8 {
	if c < CounterMax {
		return c + 1
	}
	return c
}
