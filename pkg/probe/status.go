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

package probe

import (
	"ezemfi.io/go-probe/pkg/bram"
	"ezemfi.io/go-probe/pkg/latch"
	"ezemfi.io/go-probe/pkg/sequencer"
)

const NumStatusRegs = 4

// Status word 0 layout
const (
	StatusStateMask      = 0x7
	StatusWasTriggered   = 1 << 3
	StatusTimedOut       = 1 << 4
	StatusReady          = 1 << 5
	StatusFireCountShift = 8
	StatusSpuriousShift  = 12
)

// Snapshot is everything an operator can observe about the probe.
type Snapshot struct {
	Tick          uint64             `json:"tick"`
	Sequencer     sequencer.Status   `json:"sequencer"`
	Applied       latch.ParameterSet `json:"applied"`
	Pending       latch.ParameterSet `json:"pending"`
	Enabled       bool               `json:"enabled"`
	Frozen        bool               `json:"frozen"`
	TriggerAbove  bool               `json:"triggerAbove"`
	Crossings     uint16             `json:"crossings"`
	Loader        bram.State         `json:"loader"`
	LoaderWritten uint16             `json:"loaderWritten"`
	Outputs       Outputs            `json:"outputs"`
}

func (p *Probe) Snapshot() Snapshot {
	return Snapshot{
		Tick:          p.ticks,
		Sequencer:     p.seq.Status(),
		Applied:       p.latch.Applied(),
		Pending:       p.latch.Pending(),
		Enabled:       p.enabled,
		Frozen:        p.frozen,
		TriggerAbove:  p.detector.Above(),
		Crossings:     p.detector.Crossings(),
		Loader:        p.loader.State(),
		LoaderWritten: p.loader.Written(),
		Outputs:       p.out,
	}
}

// StatusWords packs the read-only status registers.
func (p *Probe) StatusWords() [NumStatusRegs]uint32 {
	st := p.seq.Status()
	w := uint32(st.State) & StatusStateMask
	if st.WasTriggered {
		w |= StatusWasTriggered
	}
	if st.TimedOut {
		w |= StatusTimedOut
	}
	if p.seq.ReadyForUpdates() {
		w |= StatusReady
	}
	w |= uint32(st.FireCount&0xF) << StatusFireCountShift
	w |= uint32(st.SpuriousCount&0xF) << StatusSpuriousShift
	return [NumStatusRegs]uint32{
		w,
		uint32(p.detector.Crossings()),
		uint32(uint16(p.out.OutputC)),
		uint32(p.loader.State()),
	}
}

// DecodeStatus unpacks status word 0.
func DecodeStatus(w uint32) sequencer.Status {
	return sequencer.Status{
		State:         sequencer.State(w & StatusStateMask),
		WasTriggered:  w&StatusWasTriggered != 0,
		TimedOut:      w&StatusTimedOut != 0,
		FireCount:     uint8(w>>StatusFireCountShift) & 0xF,
		SpuriousCount: uint8(w>>StatusSpuriousShift) & 0xF,
	}
}
