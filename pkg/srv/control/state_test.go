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
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ezemfi.io/go-probe/pkg/config"
	"ezemfi.io/go-probe/pkg/latch"
	"ezemfi.io/go-probe/pkg/layers"
	"ezemfi.io/go-probe/pkg/probe"
	"ezemfi.io/go-probe/pkg/sequencer"
	"ezemfi.io/go-probe/pkg/trigger"
)

func newTestState(t *testing.T) *RegState {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "db", "probe.db")
	s, err := NewRegState(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestRegState(t *testing.T) {
	s := newTestState(t)

	if _, err := s.GetReg(0x0000); !errors.As(err, &ErrRegNotFound{}) {
		t.Fatalf("missing register: %v", err)
	}

	regs := []*layers.Reg{
		{Addr: 0x001c, Value: 0x33330000},
		{Addr: 0x0000, Value: 0xE0000000},
		{Addr: 0x0018, Value: 0x00ff0000},
	}
	for _, reg := range regs {
		if err := s.SetReg(reg); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetReg(&layers.Reg{Addr: 0x0018, Value: 0x01000000}); err != nil {
		t.Fatal(err)
	}

	reg, err := s.GetReg(0x0018)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Value != 0x01000000 {
		t.Fatalf("CR24 = 0x%08x", reg.Value)
	}

	all, err := s.GetRegAll()
	if err != nil {
		t.Fatal(err)
	}
	want := []uint16{0x0000, 0x0018, 0x001c}
	if len(all) != len(want) {
		t.Fatalf("%d registers", len(all))
	}
	for i, addr := range want {
		if all[i].Addr != addr {
			t.Fatalf("register %d at 0x%04x, want 0x%04x", i, all[i].Addr, addr)
		}
	}
	if all[0].Value != 0xE0000000 {
		t.Fatalf("CR0 = 0x%08x", all[0].Value)
	}
}

func TestRunLog(t *testing.T) {
	s := newTestState(t)
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	params := latch.DefaultParameters()
	params.TriggerMode = trigger.Falling

	outcomes := []sequencer.State{sequencer.Done, sequencer.TimedOut, sequencer.Done}
	for i, outcome := range outcomes {
		seq, err := s.AddRun(probe.RunRecord{
			Time:      start.Add(time.Duration(i) * time.Second),
			Tick:      uint64(100 * (i + 1)),
			Outcome:   outcome,
			TimedOut:  outcome == sequencer.TimedOut,
			FireCount: uint8(i),
			Applied:   params,
		})
		if err != nil {
			t.Fatal(err)
		}
		if seq != uint64(i+1) {
			t.Fatalf("seq = %d, want %d", seq, i+1)
		}
	}

	runs, err := s.GetRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("%d runs", len(runs))
	}

	runs, err = s.GetRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].Seq != 2 || runs[1].Seq != 3 {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].Outcome != sequencer.TimedOut || !runs[0].TimedOut {
		t.Fatalf("run 2 = %+v", runs[0])
	}
	if !runs[1].Time.Equal(start.Add(2 * time.Second)) {
		t.Fatalf("run 3 time = %s", runs[1].Time)
	}
	if runs[1].Applied != params {
		t.Fatalf("run 3 applied = %s", runs[1].Applied)
	}
}
