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

// Package observer projects a state index onto a single bounded voltage for
// out-of-band monitoring.
//
// Normal states (index < FaultThreshold) are spread evenly from VMin to VMax
// in index order. A fault state reports the negated voltage of the last
// normal state seen, so the sign says "faulted" and the magnitude says where.
package observer

import (
	"fmt"
	"math"

	"ezemfi.io/go-probe/pkg/codec"
)

type ErrInvalidConfig struct {
	What string
}

func (e ErrInvalidConfig) Error() string {
	return fmt.Sprintf("Invalid observer config: %s", e.What)
}

type Config struct {
	NumStates      int
	FaultThreshold int
	VMin           float64
	VMax           float64
}

func (c Config) Validate() error {
	if c.NumStates < 1 {
		return ErrInvalidConfig{What: fmt.Sprintf("numStates %d < 1", c.NumStates)}
	}
	if c.FaultThreshold < 1 || c.FaultThreshold > c.NumStates {
		return ErrInvalidConfig{What: fmt.Sprintf("faultThreshold %d out of [1, %d]", c.FaultThreshold, c.NumStates)}
	}
	if c.VMax < c.VMin {
		return ErrInvalidConfig{What: fmt.Sprintf("vMax %.3f < vMin %.3f", c.VMax, c.VMin)}
	}
	if math.Abs(c.VMin) > codec.FullScaleVolts || math.Abs(c.VMax) > codec.FullScaleVolts {
		return ErrInvalidConfig{What: "voltage range exceeds full scale"}
	}
	return nil
}

type Observer struct {
	cfg        Config
	step       float64
	prevNormal int
	volts      float64
}

func New(cfg Config) (*Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Observer{cfg: cfg}
	if cfg.FaultThreshold > 1 {
		o.step = (cfg.VMax - cfg.VMin) / float64(cfg.FaultThreshold-1)
	}
	o.volts = cfg.VMin
	return o, nil
}

// Normal returns the voltage of normal state index, or VMin for anything else.
func (o *Observer) Normal(index int) float64 {
	if index < 0 || index >= o.cfg.FaultThreshold {
		return o.cfg.VMin
	}
	return o.cfg.VMin + float64(index)*o.step
}

// Observe recomputes the output from the current state index.
func (o *Observer) Observe(index int) float64 {
	switch {
	case index < 0 || index >= o.cfg.NumStates:
		o.volts = o.cfg.VMin
	case index >= o.cfg.FaultThreshold:
		o.volts = -o.Normal(o.prevNormal)
	default:
		o.prevNormal = index
		o.volts = o.Normal(index)
	}
	return o.volts
}

// Reset forgets the remembered normal state.
func (o *Observer) Reset() {
	o.prevNormal = 0
	o.volts = o.cfg.VMin
}

func (o *Observer) Volts() float64 {
	return o.volts
}

func (o *Observer) Digital() int16 {
	return codec.VoltsToDigital(o.volts)
}

func (o *Observer) Config() Config {
	return o.cfg
}
