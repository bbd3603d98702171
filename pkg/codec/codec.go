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

// Package codec converts between volts and the 16-bit signed fixed-point
// encoding used on every analog channel (±5 V full scale).
package codec

import (
	"math"

	"golang.org/x/exp/constraints"
)

const (
	FullScaleVolts  = 5.0
	FullScaleCounts = 32768.0
	// DigitalMax is the symmetric clamp limit, -DigitalMax..DigitalMax
	DigitalMax = 32767
)

// Well-known encodings
var (
	Digital1V  = VoltsToDigital(1.0)
	Digital2V  = VoltsToDigital(2.0)
	Digital2V4 = VoltsToDigital(2.4)
	Digital2V5 = VoltsToDigital(2.5)
	Digital3V  = VoltsToDigital(3.0)
	Digital3V3 = VoltsToDigital(3.3)
	Digital5V  = VoltsToDigital(5.0)
)

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// VoltsToDigital clamps v to ±FullScaleVolts, scales and rounds to the nearest
// count (half away from zero), then clamps to ±DigitalMax.
func VoltsToDigital(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	v = Clamp(v, -FullScaleVolts, FullScaleVolts)
	d := math.Round(v * FullScaleCounts / FullScaleVolts)
	return int16(Clamp(d, -DigitalMax, DigitalMax))
}

// DigitalToVolts is the exact inverse scaling of VoltsToDigital.
func DigitalToVolts(d int16) float64 {
	return float64(d) * FullScaleVolts / FullScaleCounts
}

// ClampMagnitude limits d to ±limit. A negative limit is treated as its magnitude.
func ClampMagnitude(d, limit int16) int16 {
	if limit < 0 {
		if limit == math.MinInt16 {
			limit = math.MaxInt16
		} else {
			limit = -limit
		}
	}
	return Clamp(d, -limit, limit)
}
