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

package lut

import (
	"testing"

	"ezemfi.io/go-probe/pkg/codec"
)

func TestClampIndex(t *testing.T) {
	cases := []struct{ in, want int }{
		{-10, 0}, {0, 0}, {50, 50}, {100, 100}, {101, 100}, {150, 100}, {255, 100},
	}
	for _, c := range cases {
		if got := ClampIndex(c.in); got != c.want {
			t.Errorf("ClampIndex(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestLinearUnsigned(t *testing.T) {
	want := map[int]uint16{
		0:   0x0000,
		1:   0x028F,
		10:  0x1999,
		25:  0x3FFF,
		50:  0x7FFF,
		75:  0xBFFF,
		100: 0xFFFF,
	}
	tbl := LinearUnsigned()
	for idx, v := range want {
		if got := tbl.Lookup(idx); got != v {
			t.Errorf("index %d: 0x%04X, want 0x%04X", idx, got, v)
		}
	}
	for _, idx := range []int{101, 150, 255} {
		if got := tbl.Lookup(idx); got != 0xFFFF {
			t.Errorf("index %d should saturate, got 0x%04X", idx, got)
		}
	}
	if got := tbl.Lookup(-10); got != 0 {
		t.Errorf("negative index should saturate, got 0x%04X", got)
	}
}

func TestLinearSigned(t *testing.T) {
	cases := []struct {
		idx  int
		want int16
		tol  int
	}{
		{0, -32768, 0},
		{25, -16395, 16},
		{50, 0, 0},
		{75, 16377, 16},
		{100, 32767, 0},
	}
	tbl := LinearSigned()
	for _, c := range cases {
		got := tbl.Lookup(c.idx)
		if d := int(got) - int(c.want); d < -c.tol || d > c.tol {
			t.Errorf("index %d: %d, want %d ±%d", c.idx, got, c.want, c.tol)
		}
	}
	for i := 1; i < Size; i++ {
		if tbl[i] <= tbl[i-1] {
			t.Fatalf("not increasing at %d: %d after %d", i, tbl[i], tbl[i-1])
		}
	}
}

func TestLinearVoltage(t *testing.T) {
	cases := []struct {
		name string
		tbl  SignedTable
		idx  int
		want int16
	}{
		{"5V start", Linear5V, 0, 0},
		{"5V middle", Linear5V, 50, 16384},
		{"5V end", Linear5V, 100, 32767},
		{"3V3 start", Linear3V3, 0, 0},
		{"3V3 middle", Linear3V3, 50, 10813},
		{"3V3 end", Linear3V3, 100, 21627},
	}
	for _, c := range cases {
		if got := c.tbl.Lookup(c.idx); got != c.want {
			t.Errorf("%s: %d, want %d", c.name, got, c.want)
		}
	}
	tbl := LinearVoltage(-1.0, 1.0)
	if tbl[0] != -codec.Digital1V || tbl[50] != 0 || tbl[100] != codec.Digital1V {
		t.Fatalf("bipolar table ends: %d %d %d", tbl[0], tbl[50], tbl[100])
	}
}

func TestVoltageToPctIndex(t *testing.T) {
	cases := []struct {
		d    int16
		want int
	}{
		{0, 0},
		{10813, 50},
		{21627, 100},
		{32767, 100},
		{-32768, 0},
	}
	for _, c := range cases {
		if got := VoltageToPctIndex(c.d); got != c.want {
			t.Errorf("VoltageToPctIndex(%d) = %d, want %d", c.d, got, c.want)
		}
	}
}

func TestWords(t *testing.T) {
	words := LinearSigned().Words()
	if len(words) != Size {
		t.Fatalf("%d words", len(words))
	}
	if words[0] != 0x8000 || words[100] != 0x7FFF {
		t.Fatalf("words = 0x%x .. 0x%x", words[0], words[100])
	}
	if w := LinearUnsigned().Words(); w[100] != 0xFFFF {
		t.Fatalf("unsigned end word = 0x%x", w[100])
	}
}
