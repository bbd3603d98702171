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
	"time"

	"ezemfi.io/go-probe/pkg/latch"
	"ezemfi.io/go-probe/pkg/sequencer"
)

// RunRecord describes one finished arm cycle.
type RunRecord struct {
	Seq           uint64             `json:"seq"`
	Time          time.Time          `json:"time"`
	Tick          uint64             `json:"tick"`
	Outcome       sequencer.State    `json:"outcome"`
	WasTriggered  bool               `json:"wasTriggered"`
	TimedOut      bool               `json:"timedOut"`
	FireCount     uint8              `json:"fireCount"`
	SpuriousCount uint8              `json:"spuriousCount"`
	Applied       latch.ParameterSet `json:"applied"`
}

// Finished reports whether st ends an arm cycle.
func Finished(st sequencer.State) bool {
	return st == sequencer.Done || st == sequencer.TimedOut
}

// RunRecord captures the current outcome.
func (p *Probe) RunRecord(now time.Time) RunRecord {
	st := p.seq.Status()
	return RunRecord{
		Time:          now,
		Tick:          p.ticks,
		Outcome:       st.State,
		WasTriggered:  st.WasTriggered,
		TimedOut:      st.TimedOut,
		FireCount:     st.FireCount,
		SpuriousCount: st.SpuriousCount,
		Applied:       p.latch.Applied(),
	}
}
