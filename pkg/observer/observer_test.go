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

package observer

import (
	"math"
	"testing"

	"ezemfi.io/go-probe/pkg/codec"
	"ezemfi.io/go-probe/pkg/sequencer"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvenSpacing(t *testing.T) {
	o, err := New(Config{NumStates: 7, FaultThreshold: 6, VMin: 0, VMax: 2.5})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		if v := o.Observe(i); !near(v, 0.5*float64(i)) {
			t.Errorf("state %d: %.3f V, want %.3f V", i, v, 0.5*float64(i))
		}
	}
}

func TestFaultFlipsPreviousState(t *testing.T) {
	o, err := New(Config{NumStates: 7, FaultThreshold: 6, VMin: 0, VMax: 2.5})
	if err != nil {
		t.Fatal(err)
	}
	o.Observe(2)
	if v := o.Observe(6); !near(v, -1.0) {
		t.Fatalf("fault after state 2: %.3f V, want -1.0 V", v)
	}
	if v := o.Observe(6); !near(v, -1.0) {
		t.Fatalf("fault must keep the remembered state: %.3f V", v)
	}
	o.Observe(4)
	if v := o.Observe(6); !near(v, -2.0) {
		t.Fatalf("fault after state 4: %.3f V, want -2.0 V", v)
	}
}

func TestSequencerEncoding(t *testing.T) {
	o, err := New(Config{
		NumStates:      sequencer.NumStates,
		FaultThreshold: sequencer.NumNormalStates,
		VMin:           0,
		VMax:           2.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	for st := sequencer.Ready; st <= sequencer.TimedOut; st++ {
		if v := o.Observe(int(st)); !near(v, 0.5*float64(st)) {
			t.Errorf("%s: %.3f V, want %.3f V", st, v, 0.5*float64(st))
		}
	}
	if v := o.Observe(int(sequencer.HardFault)); !near(v, -2.5) {
		t.Fatalf("hard fault after timed_out: %.3f V, want -2.5 V", v)
	}
	if v := o.Observe(int(sequencer.NumStates)); !near(v, 0) {
		t.Fatalf("index past the encoding: %.3f V, want vMin", v)
	}
}

func TestInvalidIndexIsVMin(t *testing.T) {
	o, err := New(Config{NumStates: 7, FaultThreshold: 6, VMin: 0.25, VMax: 2.5})
	if err != nil {
		t.Fatal(err)
	}
	o.Observe(3)
	for _, idx := range []int{-1, 7, 100} {
		if v := o.Observe(idx); !near(v, 0.25) {
			t.Errorf("index %d: %.3f V, want vMin", idx, v)
		}
	}
}

func TestLoaderObserverDigital(t *testing.T) {
	o, err := New(Config{NumStates: 4, FaultThreshold: 3, VMin: 0, VMax: 2.0})
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{0, 6554, 13107}
	for i, w := range want {
		o.Observe(i)
		if d := o.Digital(); d != w {
			t.Errorf("state %d: digital %d, want %d", i, d, w)
		}
	}
	o.Observe(3)
	if d := o.Digital(); d != -13107 {
		t.Fatalf("fault digital %d, want -13107", d)
	}
	if codec.DigitalToVolts(o.Digital()) > 0 {
		t.Fatal("fault must be negative")
	}
}

func TestValidate(t *testing.T) {
	bad := []Config{
		{NumStates: 0, FaultThreshold: 0},
		{NumStates: 4, FaultThreshold: 5},
		{NumStates: 4, FaultThreshold: 3, VMin: 2, VMax: 1},
		{NumStates: 4, FaultThreshold: 3, VMin: 0, VMax: 6},
	}
	for _, c := range bad {
		if _, err := New(c); err == nil {
			t.Errorf("%+v: expected error", c)
		}
	}
}
