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

// Package probe composes the probe core: clock divider, trigger detector,
// configuration latch, sequencer, state observers and the bulk-data loader.
//
// Every component reads the values committed on the previous tick and all of
// them commit together, so a tick is a pure function of the previous state
// and the sampled inputs.
package probe

import (
	"ezemfi.io/go-probe/pkg/bram"
	"ezemfi.io/go-probe/pkg/codec"
	"ezemfi.io/go-probe/pkg/divider"
	"ezemfi.io/go-probe/pkg/latch"
	"ezemfi.io/go-probe/pkg/observer"
	"ezemfi.io/go-probe/pkg/regmap"
	"ezemfi.io/go-probe/pkg/sequencer"
	"ezemfi.io/go-probe/pkg/trigger"
)

var (
	// TriggerLevel is driven on output A while firing
	TriggerLevel = codec.Digital3V3
	// IntensityCeiling is the largest magnitude output B may reach
	IntensityCeiling = codec.Digital3V
)

type Config struct {
	Defaults latch.ParameterSet
	VMin     float64
	VMax     float64
}

func DefaultConfig() Config {
	return Config{
		Defaults: latch.DefaultParameters(),
		VMin:     0.0,
		VMax:     2.5,
	}
}

// Inputs sampled on one tick.
type Inputs struct {
	Reset    bool
	InputA   int16
	Control  regmap.Control
	Commands regmap.Commands
	Pending  latch.ParameterSet
	Loader   bram.Inputs
}

// InputsFromBus samples the control registers.
func InputsFromBus(b *regmap.Bus, reset bool, inputA int16) Inputs {
	return Inputs{
		Reset:    reset,
		InputA:   inputA,
		Control:  b.Control(),
		Commands: b.Commands(),
		Pending:  b.Pending(),
		Loader:   b.Loader(),
	}
}

type Outputs struct {
	OutputA         int16 `json:"outputA"`
	OutputB         int16 `json:"outputB"`
	OutputC         int16 `json:"outputC"`
	LoaderMonitor   int16 `json:"loaderMonitor"`
	ReadyForUpdates bool  `json:"readyForUpdates"`
}

type Probe struct {
	cfg Config

	div       *divider.Divider
	detector  *trigger.Detector
	latch     *latch.Latch
	seq       *sequencer.Sequencer
	monitor   *observer.Observer
	loader    *bram.Loader
	loaderMon *observer.Observer

	ticks   uint64
	enabled bool
	frozen  bool
	out     Outputs
}

func New(cfg Config) (*Probe, error) {
	monitor, err := observer.New(observer.Config{
		NumStates:      sequencer.NumStates,
		FaultThreshold: sequencer.NumNormalStates,
		VMin:           cfg.VMin,
		VMax:           cfg.VMax,
	})
	if err != nil {
		return nil, err
	}
	loaderMon, err := observer.New(observer.Config{
		NumStates:      bram.NumStates,
		FaultThreshold: bram.FaultThreshold,
		VMin:           0.0,
		VMax:           2.0,
	})
	if err != nil {
		return nil, err
	}
	p := &Probe{
		cfg:       cfg,
		div:       divider.New(),
		detector:  trigger.NewDetector(),
		latch:     latch.New(cfg.Defaults),
		seq:       sequencer.New(),
		monitor:   monitor,
		loader:    bram.NewLoader(),
		loaderMon: loaderMon,
	}
	p.out = p.outputs()
	return p, nil
}

// Tick advances the whole core by one clock period.
func (p *Probe) Tick(in Inputs) Outputs {
	// previous-tick values
	applied := p.latch.Applied()
	ready := p.seq.ReadyForUpdates()
	pulse := p.detector.Pulse()
	loaderDone := p.loader.Done()

	p.enabled = in.Control.VoloReady && in.Control.UserEnable && loaderDone
	tickEnable := p.div.Tick(in.Reset, applied.ClockDivider)
	p.frozen = !in.Reset && (!in.Control.ClkEnable || !tickEnable)

	loaderIn := in.Loader
	loaderIn.Reset = in.Reset
	p.loader.Tick(loaderIn)

	p.detector.Tick(trigger.Inputs{
		Reset:     in.Reset,
		Freeze:    p.frozen,
		Enable:    p.enabled,
		Sample:    in.InputA,
		Threshold: applied.TriggerThreshold,
		Mode:      applied.TriggerMode,
	})

	p.seq.Tick(sequencer.Inputs{
		Reset:           in.Reset,
		Freeze:          p.frozen,
		Enable:          p.enabled,
		Arm:             in.Commands.Arm,
		ForceFire:       in.Commands.ForceFire,
		ResetFSM:        in.Commands.ResetFSM,
		Trigger:         pulse,
		ArmTimeout:      applied.ArmTimeout,
		FiringDuration:  applied.FiringDuration,
		CoolingDuration: applied.CoolingDuration,
	})

	p.latch.SetPending(in.Pending)
	p.latch.Tick(latch.Inputs{
		Reset:           in.Reset,
		Freeze:          p.frozen,
		ReadyForUpdates: ready,
	})

	if in.Reset {
		p.monitor.Reset()
		p.loaderMon.Reset()
	}
	p.ticks++
	p.out = p.outputs()
	return p.out
}

func (p *Probe) outputs() Outputs {
	st := p.seq.State()
	out := Outputs{
		ReadyForUpdates: p.seq.ReadyForUpdates(),
	}
	p.monitor.Observe(int(st))
	out.OutputC = p.monitor.Digital()
	p.loaderMon.Observe(int(p.loader.State()))
	out.LoaderMonitor = p.loaderMon.Digital()

	if st == sequencer.Firing && p.enabled {
		out.OutputA = TriggerLevel
		out.OutputB = codec.ClampMagnitude(p.latch.Applied().Intensity, IntensityCeiling)
	}
	return out
}

func (p *Probe) Outputs() Outputs {
	return p.out
}

func (p *Probe) Status() sequencer.Status {
	return p.seq.Status()
}

func (p *Probe) State() sequencer.State {
	return p.seq.State()
}

func (p *Probe) Applied() latch.ParameterSet {
	return p.latch.Applied()
}

func (p *Probe) Pending() latch.ParameterSet {
	return p.latch.Pending()
}

func (p *Probe) Loader() *bram.Loader {
	return p.loader
}

func (p *Probe) Ticks() uint64 {
	return p.ticks
}

func (p *Probe) Enabled() bool {
	return p.enabled
}

func (p *Probe) Frozen() bool {
	return p.frozen
}

func (p *Probe) Config() Config {
	return p.cfg
}
