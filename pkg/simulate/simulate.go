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

// Package simulate runs the probe core offline against a scripted scenario
// and records a trace of what an operator would observe.
package simulate

import (
	"fmt"
	"os"
	"sort"

	"sigs.k8s.io/yaml"

	"ezemfi.io/go-probe/pkg/bram"
	"ezemfi.io/go-probe/pkg/codec"
	"ezemfi.io/go-probe/pkg/probe"
	"ezemfi.io/go-probe/pkg/regmap"
	"ezemfi.io/go-probe/pkg/sequencer"
)

const (
	ActionArm      = "arm"
	ActionFire     = "fire"
	ActionReset    = "reset"
	ActionResetAll = "reset-all"
	ActionInput    = "input"
)

var buttons = map[string]string{
	ActionArm:   regmap.SignalArm,
	ActionFire:  regmap.SignalForceFire,
	ActionReset: regmap.SignalResetFSM,
}

// ErrUnknownAction returned for events the simulator can not apply
type ErrUnknownAction struct {
	What string
}

func (e ErrUnknownAction) Error() string {
	return fmt.Sprintf("Unknown action: %s", e.What)
}

// Event happens right before the tick it names.
type Event struct {
	Tick   int     `json:"tick"`
	Action string  `json:"action"`
	Volts  float64 `json:"volts,omitempty"`
}

type Scenario struct {
	Ticks int `json:"ticks"`
	// Registers are signal values written before the first tick
	Registers map[string]int `json:"registers,omitempty"`
	Events    []Event        `json:"events,omitempty"`
}

type Step struct {
	Tick          int             `json:"tick"`
	Events        []string        `json:"events,omitempty"`
	State         sequencer.State `json:"state"`
	InputA        int16           `json:"inputA"`
	OutputA       int16           `json:"outputA"`
	OutputB       int16           `json:"outputB"`
	OutputC       int16           `json:"outputC"`
	FireCount     uint8           `json:"fireCount"`
	SpuriousCount uint8           `json:"spuriousCount"`
}

type Trace struct {
	Steps []Step         `json:"steps"`
	Final probe.Snapshot `json:"final"`
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc := &Scenario{}
	if err = yaml.UnmarshalStrict(data, sc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return sc, nil
}

func (t *Trace) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

// Run plays sc on a deployed probe: enable bits set and an empty load
// finished on tick 0. A step is recorded on every tick with an event or a
// state change.
func Run(m *regmap.Map, cfg probe.Config, sc *Scenario) (*Trace, error) {
	bus := regmap.NewBus(m)
	signals := make([]string, 0, len(sc.Registers))
	for signal := range sc.Registers {
		signals = append(signals, signal)
	}
	sort.Strings(signals)
	for _, signal := range signals {
		if err := bus.SetValue(signal, sc.Registers[signal]); err != nil {
			return nil, err
		}
	}
	cfg.Defaults = bus.Defaults()
	p, err := probe.New(cfg)
	if err != nil {
		return nil, err
	}
	_ = bus.Write(regmap.CRControl, regmap.ControlEnabled)
	_ = bus.Write(regmap.CRLoaderControl, bram.ControlWord(0, true))

	events := map[int][]Event{}
	for _, ev := range sc.Events {
		if ev.Tick < 0 || ev.Tick >= sc.Ticks {
			return nil, ErrUnknownAction{What: fmt.Sprintf("%s at tick %d, outside 0..%d", ev.Action, ev.Tick, sc.Ticks-1)}
		}
		events[ev.Tick] = append(events[ev.Tick], ev)
	}

	trace := &Trace{}
	var inputA int16
	prev := p.State()
	var held []string
	for tick := 0; tick < sc.Ticks; tick++ {
		reset := false
		var applied []string
		for _, ev := range events[tick] {
			switch ev.Action {
			case ActionResetAll:
				reset = true
			case ActionInput:
				inputA = codec.VoltsToDigital(ev.Volts)
			default:
				signal, ok := buttons[ev.Action]
				if !ok {
					return nil, ErrUnknownAction{What: ev.Action}
				}
				_ = bus.SetValue(signal, 1)
				held = append(held, signal)
			}
			applied = append(applied, ev.Action)
		}

		out := p.Tick(probe.InputsFromBus(bus, reset, inputA))
		// buttons stay down until the core advances
		if !p.Frozen() {
			for _, signal := range held {
				_ = bus.SetValue(signal, 0)
			}
			held = held[:0]
		}

		st := p.Status()
		if len(applied) > 0 || st.State != prev {
			trace.Steps = append(trace.Steps, Step{
				Tick:          tick,
				Events:        applied,
				State:         st.State,
				InputA:        inputA,
				OutputA:       out.OutputA,
				OutputB:       out.OutputB,
				OutputC:       out.OutputC,
				FireCount:     st.FireCount,
				SpuriousCount: st.SpuriousCount,
			})
		}
		prev = st.State
	}
	trace.Final = p.Snapshot()
	return trace, nil
}
