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

// Package bram streams an auxiliary lookup buffer into block memory through a
// start/address/data/strobe register handshake.
//
// Control words:
//
//	CR10: bit 0 start, bits 31:16 word count
//	CR11: bits 11:0 address
//	CR12: data word
//	CR13: bit 0 write strobe, one word per rising edge
package bram

import (
	"fmt"
)

const (
	Depth    = 4096
	AddrMask = Depth - 1

	StartMask      = 0x00000001
	WordCountShift = 16
	StrobeMask     = 0x00000001
)

type State uint8

const (
	Idle State = iota
	Loading
	Done
	Reserved
)

// NumStates and FaultThreshold describe the loader state encoding to an observer.
const (
	NumStates      = 4
	FaultThreshold = 3
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Done:
		return "done"
	case Reserved:
		return "reserved"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := Idle; st <= Reserved; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown loader state %q", text)
}

// Inputs are the raw control words seen on one tick.
type Inputs struct {
	Reset   bool
	Control uint32
	Addr    uint32
	Data    uint32
	Strobe  uint32
}

func (in Inputs) start() bool {
	return in.Control&StartMask != 0
}

func (in Inputs) wordCount() uint16 {
	return uint16(in.Control >> WordCountShift)
}

func (in Inputs) strobe() bool {
	return in.Strobe&StrobeMask != 0
}

// Write is the block memory port driven on a tick.
type Write struct {
	Addr uint16
	Data uint32
}

type Loader struct {
	state      State
	buf        [Depth]uint32
	expected   uint16
	written    uint16
	prevStart  bool
	prevStrobe bool
	last       *Write
}

func NewLoader() *Loader {
	return &Loader{}
}

// Tick advances the loader FSM by one clock period.
func (l *Loader) Tick(in Inputs) {
	l.last = nil
	if in.Reset {
		l.state = Idle
		l.expected = 0
		l.written = 0
		l.prevStart = false
		l.prevStrobe = false
		return
	}

	start := in.start()
	strobe := in.strobe()
	startEdge := start && !l.prevStart
	strobeEdge := strobe && !l.prevStrobe
	l.prevStart = start
	l.prevStrobe = strobe

	switch l.state {
	case Idle:
		if start {
			l.begin(in.wordCount())
		}
	case Loading:
		if strobeEdge {
			w := Write{Addr: uint16(in.Addr & AddrMask), Data: in.Data}
			l.buf[w.Addr] = w.Data
			l.last = &w
			l.written++
			if l.written >= l.expected {
				l.state = Done
			}
		}
	case Done:
		if startEdge {
			l.begin(in.wordCount())
		}
	default:
		l.state = Idle
	}
}

func (l *Loader) begin(count uint16) {
	l.expected = count
	l.written = 0
	if count == 0 {
		l.state = Done
		return
	}
	l.state = Loading
}

func (l *Loader) State() State {
	return l.state
}

func (l *Loader) Done() bool {
	return l.state == Done
}

// Written is the number of words written by the current load.
func (l *Loader) Written() uint16 {
	return l.written
}

func (l *Loader) Expected() uint16 {
	return l.expected
}

// LastWrite is the memory write performed on the last tick, if any.
func (l *Loader) LastWrite() (Write, bool) {
	if l.last == nil {
		return Write{}, false
	}
	return *l.last, true
}

// Word reads the buffer. Addresses wrap at Depth.
func (l *Loader) Word(addr uint16) uint32 {
	return l.buf[addr&AddrMask]
}

// Words returns a copy of count words starting at addr.
func (l *Loader) Words(addr uint16, count int) []uint32 {
	out := make([]uint32, count)
	for i := range out {
		out[i] = l.Word(addr + uint16(i))
	}
	return out
}

// ControlWord encodes CR10 for a load of count words.
func ControlWord(count uint16, start bool) uint32 {
	v := uint32(count) << WordCountShift
	if start {
		v |= StartMask
	}
	return v
}
