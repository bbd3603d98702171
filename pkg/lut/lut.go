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

// Package lut builds percent-indexed lookup tables: 101 entries addressed by
// an index 0..100, out-of-range indices saturate at the ends.
package lut

import (
	"math"

	"ezemfi.io/go-probe/pkg/codec"
)

const (
	MaxIndex = 100
	Size     = MaxIndex + 1
)

// PctSpanVolts is the input span VoltageToPctIndex maps onto 0..100.
const PctSpanVolts = 3.3

// Table holds unsigned 16-bit entries.
type Table [Size]uint16

// SignedTable holds signed 16-bit entries, e.g. voltage encodings.
type SignedTable [Size]int16

var (
	// Linear5V spans 0..5 V
	Linear5V = LinearVoltage(0, 5.0)
	// Linear3V3 spans 0..3.3 V
	Linear3V3 = LinearVoltage(0, 3.3)
)

// ClampIndex saturates index to 0..MaxIndex.
func ClampIndex(index int) int {
	return codec.Clamp(index, 0, MaxIndex)
}

func (t Table) Lookup(index int) uint16 {
	return t[ClampIndex(index)]
}

func (t SignedTable) Lookup(index int) int16 {
	return t[ClampIndex(index)]
}

// Words returns the table as buffer words, one entry per word.
func (t Table) Words() []uint32 {
	words := make([]uint32, Size)
	for i, v := range t {
		words[i] = uint32(v)
	}
	return words
}

// Words returns the table as buffer words, entries in the low half-word.
func (t SignedTable) Words() []uint32 {
	words := make([]uint32, Size)
	for i, v := range t {
		words[i] = uint32(uint16(v))
	}
	return words
}

// LinearUnsigned maps index i to i/100 of 0xFFFF, truncated.
func LinearUnsigned() Table {
	var t Table
	for i := range t {
		t[i] = uint16(i * math.MaxUint16 / MaxIndex)
	}
	return t
}

// LinearSigned maps 0..100 onto -32768..32767 with 50 at exactly 0.
func LinearSigned() SignedTable {
	var t SignedTable
	half := MaxIndex / 2
	for i := range t {
		if i <= half {
			t[i] = int16(math.MinInt16 + math.Round(float64(i)*-math.MinInt16/float64(half)))
		} else {
			t[i] = int16(math.Round(float64(i-half) * math.MaxInt16 / float64(half)))
		}
	}
	return t
}

// LinearVoltage spreads vMin..vMax evenly over the table, encoded by the codec.
func LinearVoltage(vMin, vMax float64) SignedTable {
	var t SignedTable
	for i := range t {
		t[i] = codec.VoltsToDigital(vMin + (vMax-vMin)*float64(i)/MaxIndex)
	}
	return t
}

// VoltageToPctIndex maps a sample over 0..PctSpanVolts onto an index 0..100,
// rounded to nearest. Samples outside the span saturate.
func VoltageToPctIndex(d int16) int {
	span := float64(codec.VoltsToDigital(PctSpanVolts))
	return ClampIndex(int(math.Round(float64(d) * MaxIndex / span)))
}
