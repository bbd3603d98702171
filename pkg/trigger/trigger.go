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

// Package trigger implements a threshold crossing detector with hysteresis.
//
// In rising mode the band is [threshold-Hysteresis, threshold]: a sample at or
// above threshold fires once, and the detector re-arms only after the input
// falls below the lower edge. Falling mode mirrors this around
// [threshold, threshold+Hysteresis].
package trigger

import (
	"fmt"
	"math"

	"ezemfi.io/go-probe/pkg/codec"
)

// Hysteresis is the fixed gap between the high and low thresholds (about 39 mV).
const Hysteresis int16 = 0x0100

type Mode uint8

const (
	Rising Mode = iota
	Falling
)

func (m Mode) String() string {
	if m == Falling {
		return "falling"
	}
	return "rising"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "rising":
		*m = Rising
	case "falling":
		*m = Falling
	default:
		return fmt.Errorf("unknown trigger mode %q", text)
	}
	return nil
}

// Inputs sampled on one tick
type Inputs struct {
	Reset     bool
	Freeze    bool
	Enable    bool
	Sample    int16
	Threshold int16
	Mode      Mode
}

type Detector struct {
	// past is true while the input sits beyond the threshold in the qualifying
	// direction, i.e. the detector waits for the re-arm edge
	past      bool
	above     bool
	pulse     bool
	crossings uint16
	mode      Mode
}

func NewDetector() *Detector {
	return &Detector{}
}

// Band returns the low and high thresholds derived from threshold and mode.
func Band(threshold int16, mode Mode) (low, high int16) {
	t := int32(threshold)
	h := int32(Hysteresis)
	if mode == Falling {
		return threshold, int16(codec.Clamp(t+h, math.MinInt16, math.MaxInt16))
	}
	return int16(codec.Clamp(t-h, math.MinInt16, math.MaxInt16)), threshold
}

// Tick advances the detector by one clock period.
func (d *Detector) Tick(in Inputs) {
	if in.Reset {
		*d = Detector{}
		return
	}
	if in.Freeze {
		return
	}
	d.pulse = false
	if !in.Enable {
		return
	}
	if in.Mode != d.mode {
		d.mode = in.Mode
		d.past = false
	}

	low, high := Band(in.Threshold, in.Mode)
	if in.Sample >= high {
		d.above = true
	} else if in.Sample < low {
		d.above = false
	}

	switch in.Mode {
	case Falling:
		if !d.past && in.Sample <= low {
			d.fire()
		} else if d.past && in.Sample > high {
			d.past = false
		}
	default:
		if !d.past && in.Sample >= high {
			d.fire()
		} else if d.past && in.Sample < low {
			d.past = false
		}
	}
}

func (d *Detector) fire() {
	d.past = true
	d.pulse = true
	if d.crossings < math.MaxUint16 {
		d.crossings++
	}
}

// Pulse is true only on the tick the qualifying crossing was detected.
func (d *Detector) Pulse() bool {
	return d.pulse
}

// Above reports whether the input was last seen above the hysteresis band.
// Inside the band the previous answer is kept.
func (d *Detector) Above() bool {
	return d.above
}

// Crossings counts detected crossings since reset. It saturates instead of wrapping.
func (d *Detector) Crossings() uint16 {
	return d.crossings
}
