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

package control

import (
	"context"
	"time"

	"ezemfi.io/go-probe/pkg/bram"
	"ezemfi.io/go-probe/pkg/layers"
	"ezemfi.io/go-probe/pkg/log"
	"ezemfi.io/go-probe/pkg/probe"
	"ezemfi.io/go-probe/pkg/regmap"
	"ezemfi.io/go-probe/pkg/sequencer"
	"ezemfi.io/go-probe/pkg/srv"
)

type engineOp struct {
	fn   func() error
	done chan error
}

// loadStep is the loader handshake driven on one tick.
type loadStep struct {
	control uint32
	addr    uint32
	data    uint32
	strobe  uint32
}

// Engine owns the probe and its register bus. Everything that touches them
// runs on the engine goroutine, between two ticks.
type Engine struct {
	probe  *probe.Probe
	bus    *regmap.Bus
	period time.Duration

	inputA   int16
	reset    bool
	releases []string
	steps    []loadStep
	prev     sequencer.State

	ops     chan engineOp
	stopped chan struct{}

	// OnRun is called on the engine goroutine every time an arm cycle ends
	OnRun func(rec probe.RunRecord)
}

// NewEngine builds a probe over the registers of m. The latch defaults are the
// register defaults declared by m; cfg.Defaults is ignored.
func NewEngine(cfg probe.Config, m *regmap.Map, period time.Duration) (*Engine, error) {
	bus := regmap.NewBus(m)
	cfg.Defaults = bus.Defaults()
	p, err := probe.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		probe:   p,
		bus:     bus,
		period:  period,
		prev:    p.State(),
		ops:     make(chan engineOp),
		stopped: make(chan struct{}),
	}, nil
}

// Run ticks the probe until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)
	log.Info("Starting tick engine: period %s", e.period)
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Tick()
		case op := <-e.ops:
			op.done <- op.fn()
		}
	}
}

func (e *Engine) do(fn func() error) error {
	op := engineOp{fn: fn, done: make(chan error, 1)}
	select {
	case e.ops <- op:
	case <-e.stopped:
		return srv.ErrStopped{}
	}
	return <-op.done
}

// Tick samples the bus and advances the probe by one period.
func (e *Engine) Tick() probe.Outputs {
	if len(e.steps) > 0 {
		step := e.steps[0]
		e.steps = e.steps[1:]
		_ = e.bus.Write(regmap.CRLoaderControl, step.control)
		_ = e.bus.Write(regmap.CRLoaderAddr, step.addr)
		_ = e.bus.Write(regmap.CRLoaderData, step.data)
		_ = e.bus.Write(regmap.CRLoaderStrobe, step.strobe)
	}

	out := e.probe.Tick(probe.InputsFromBus(e.bus, e.reset, e.inputA))
	e.reset = false
	// a frozen core never saw the buttons, keep them held
	if !e.probe.Frozen() {
		for _, signal := range e.releases {
			_ = e.bus.SetValue(signal, 0)
		}
		e.releases = e.releases[:0]
	}

	if w, ok := e.probe.Loader().LastWrite(); ok {
		log.Debug("BRAM write: addr 0x%03x data 0x%08x", w.Addr, w.Data)
	}

	st := e.probe.State()
	if st != e.prev {
		log.Debug("Sequencer: %s -> %s at tick %d", e.prev, st, e.probe.Ticks())
		if probe.Finished(st) && e.OnRun != nil {
			e.OnRun(e.probe.RunRecord(time.Now()))
		}
		e.prev = st
	}
	return out
}

// Map is the register map behind the bus. It never changes.
func (e *Engine) Map() *regmap.Map {
	return e.bus.Map()
}

func (e *Engine) regWrite(reg *layers.Reg) error {
	if isStatus(reg.Addr) {
		return srv.ErrReadOnly{Addr: reg.Addr}
	}
	if !isControl(reg.Addr) {
		return regmap.ErrRegisterNotMapped{Addr: int(reg.Addr)}
	}
	return e.bus.Write(int(reg.Addr-ControlRegBase), reg.Value)
}

func (e *Engine) regRead(addr uint16) (*layers.Reg, error) {
	if isStatus(addr) {
		words := e.probe.StatusWords()
		return &layers.Reg{Addr: addr, Value: words[addr-StatusRegBase]}, nil
	}
	if !isControl(addr) {
		return nil, regmap.ErrRegisterNotMapped{Addr: int(addr)}
	}
	value, err := e.bus.Read(int(addr - ControlRegBase))
	if err != nil {
		return nil, err
	}
	return &layers.Reg{Addr: addr, Value: value}, nil
}

func (e *Engine) regReadAll() []*layers.Reg {
	regs := make([]*layers.Reg, 0, regmap.NumRegs+probe.NumStatusRegs)
	for i, value := range e.bus.Snapshot() {
		regs = append(regs, &layers.Reg{Addr: ControlRegBase + uint16(i), Value: value})
	}
	for i, value := range e.probe.StatusWords() {
		regs = append(regs, &layers.Reg{Addr: StatusRegBase + uint16(i), Value: value})
	}
	return regs
}

// press holds a button register high until the core advances on a tick.
func (e *Engine) press(signal string) error {
	if err := e.bus.SetValue(signal, 1); err != nil {
		return err
	}
	e.releases = append(e.releases, signal)
	return nil
}

// load queues the CR10..CR13 handshake writing words from addr on.
// Each word takes two ticks: address and data with the strobe low, then the
// strobe high.
func (e *Engine) load(addr uint16, words []uint32) {
	count := uint16(len(words))
	idle := loadStep{control: bram.ControlWord(count, false)}
	start := loadStep{control: bram.ControlWord(count, true)}
	e.steps = append(e.steps, idle, start)
	for i, w := range words {
		a := uint32((addr + uint16(i)) & bram.AddrMask)
		e.steps = append(e.steps,
			loadStep{control: start.control, addr: a, data: w},
			loadStep{control: start.control, addr: a, data: w, strobe: bram.StrobeMask},
		)
	}
	e.steps = append(e.steps, idle)
}

func (e *Engine) RegWrite(reg *layers.Reg) error {
	return e.do(func() error {
		return e.regWrite(reg)
	})
}

func (e *Engine) RegRead(addr uint16) (*layers.Reg, error) {
	var reg *layers.Reg
	err := e.do(func() error {
		var err error
		reg, err = e.regRead(addr)
		return err
	})
	return reg, err
}

func (e *Engine) RegReadAll() ([]*layers.Reg, error) {
	var regs []*layers.Reg
	err := e.do(func() error {
		regs = e.regReadAll()
		return nil
	})
	return regs, err
}

// Press sets a button signal (arm_probe, force_fire, reset_fsm) for one
// core tick. Ticks the core is frozen on do not count.
func (e *Engine) Press(signal string) error {
	return e.do(func() error {
		return e.press(signal)
	})
}

// ResetAll pulses the global reset input on the next tick. Queued loads are
// dropped and an empty load completes the loader handshake again, the buffer
// contents survive.
func (e *Engine) ResetAll() error {
	return e.do(func() error {
		e.reset = true
		e.steps = nil
		e.load(0, nil)
		return nil
	})
}

// SetInput sets the sample seen on input A from the next tick on.
func (e *Engine) SetInput(v int16) error {
	return e.do(func() error {
		e.inputA = v
		return nil
	})
}

// Load queues a bulk-data load. It returns once the load is queued.
func (e *Engine) Load(addr uint16, words []uint32) error {
	if int(addr)+len(words) > bram.Depth || len(words) > 0xffff {
		return srv.ErrOutOfRange{What: "BRAM load does not fit the buffer"}
	}
	return e.do(func() error {
		e.load(addr, words)
		return nil
	})
}

// Loading reports whether a queued load has not finished yet.
func (e *Engine) Loading() (bool, error) {
	var busy bool
	err := e.do(func() error {
		busy = len(e.steps) > 0
		return nil
	})
	return busy, err
}

func (e *Engine) BramRead(addr uint16, count int) ([]uint32, error) {
	if count < 0 || int(addr)+count > bram.Depth {
		return nil, srv.ErrOutOfRange{What: "BRAM read beyond the buffer"}
	}
	var words []uint32
	err := e.do(func() error {
		words = e.probe.Loader().Words(addr, count)
		return nil
	})
	return words, err
}

func (e *Engine) Snapshot() (probe.Snapshot, error) {
	var snap probe.Snapshot
	err := e.do(func() error {
		snap = e.probe.Snapshot()
		return nil
	})
	return snap, err
}
