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

package sequencer

import "fmt"

type State uint8

const (
	Ready State = iota
	Armed
	Firing
	Cooling
	Done
	TimedOut
)

// HardFault is encoded 0b111; 0b110 is unused.
const HardFault State = 7

const (
	// NumNormalStates is the number of states that are not faults
	NumNormalStates = 6
	// NumStates spans the 3-bit state encoding
	NumStates = 8
)

var stateNames = map[State]string{
	Ready:     "ready",
	Armed:     "armed",
	Firing:    "firing",
	Cooling:   "cooling",
	Done:      "done",
	TimedOut:  "timed_out",
	HardFault: "hard_fault",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Paused reports whether the state waits for an operator command.
func (s State) Paused() bool {
	switch s {
	case Ready, Done, TimedOut, HardFault:
		return true
	}
	return false
}

func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return Ready, ErrUnknownState{What: name}
}

type ErrUnknownState struct {
	What string
}

func (e ErrUnknownState) Error() string {
	return fmt.Sprintf("Unknown sequencer state: %s", e.What)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	st, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
