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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ezemfi.io/go-probe/pkg/config"
	"ezemfi.io/go-probe/pkg/probe"
	"ezemfi.io/go-probe/pkg/sequencer"
	"ezemfi.io/go-probe/pkg/srv"
)

type apiFixture struct {
	t      *testing.T
	ctrl   *ControlServer
	server *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "probe.db")
	state, err := NewRegState(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(state.Close)

	e := newTestEngine(t)
	ctrl := &ControlServer{
		Server: srv.Server{Context: ctx, Config: cfg},
		engine: e,
		state:  state,
	}
	e.OnRun = ctrl.recordRun
	go e.Run(ctx)

	api, err := NewApiServer(ctx, cfg, ctrl)
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return &apiFixture{t: t, ctrl: ctrl, server: server}
}

// step ticks the engine n times on its own goroutine.
func (f *apiFixture) step(n int) {
	f.t.Helper()
	err := f.ctrl.engine.do(func() error {
		tickN(f.ctrl.engine, n)
		return nil
	})
	if err != nil {
		f.t.Fatal(err)
	}
}

func (f *apiFixture) do(method, path string, body interface{}, out interface{}) int {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			f.t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		f.t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		f.t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			f.t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func (f *apiFixture) state() sequencer.State {
	f.t.Helper()
	snap := struct {
		Sequencer sequencer.Status `json:"sequencer"`
	}{}
	if code := f.do("GET", "/api/status", nil, &snap); code != http.StatusOK {
		f.t.Fatalf("status: %d", code)
	}
	return snap.Sequencer.State
}

func TestApiRegisters(t *testing.T) {
	f := newAPIFixture(t)

	if code := f.do("POST", "/api/reg/w", &RegHex{Addr: "0x001c", Value: "0x20000000"}, nil); code != http.StatusOK {
		t.Fatalf("write: %d", code)
	}
	reg := &RegHex{}
	if code := f.do("GET", "/api/reg/r/0x001c", nil, reg); code != http.StatusOK {
		t.Fatalf("read: %d", code)
	}
	if reg.Value != "0x20000000" {
		t.Fatalf("CR28 = %s", reg.Value)
	}
	stored, err := f.ctrl.state.GetReg(0x001c)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Value != 0x20000000 {
		t.Fatalf("persisted CR28 = 0x%08x", stored.Value)
	}

	if code := f.do("POST", "/api/reg/w", &RegHex{Addr: "0x0014", Value: "0x80000000"}, nil); code != http.StatusOK {
		t.Fatalf("button write: %d", code)
	}
	if _, err = f.ctrl.state.GetReg(0x0014); !errors.As(err, &ErrRegNotFound{}) {
		t.Fatalf("button register must not be persisted: %v", err)
	}

	if code := f.do("POST", "/api/reg/w", &RegHex{Addr: "0x0100", Value: "0x1"}, nil); code != http.StatusBadRequest {
		t.Fatalf("status write: %d", code)
	}
	if code := f.do("POST", "/api/reg/w", &RegHex{Addr: "zz", Value: "0x1"}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad address: %d", code)
	}
	if code := f.do("GET", "/api/reg/r/0x0050", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unmapped read: %d", code)
	}

	var regs []*RegHex
	if code := f.do("GET", "/api/reg/r", nil, &regs); code != http.StatusOK {
		t.Fatalf("read all: %d", code)
	}
	if len(regs) != 36 {
		t.Fatalf("%d registers", len(regs))
	}
}

func TestApiProbeCycle(t *testing.T) {
	f := newAPIFixture(t)

	if code := f.do("POST", "/api/probe/arm", nil, nil); code != http.StatusOK {
		t.Fatalf("arm: %d", code)
	}
	f.step(1)
	if st := f.state(); st != sequencer.Armed {
		t.Fatalf("state = %s, want armed", st)
	}
	if code := f.do("POST", "/api/probe/fire", nil, nil); code != http.StatusOK {
		t.Fatalf("fire: %d", code)
	}
	f.step(1)
	if st := f.state(); st != sequencer.Firing {
		t.Fatalf("state = %s, want firing", st)
	}
	f.step(64)
	if st := f.state(); st != sequencer.Done {
		t.Fatalf("state = %s, want done", st)
	}

	var runs []probe.RunRecord
	if code := f.do("GET", "/api/runs?limit=5", nil, &runs); code != http.StatusOK {
		t.Fatalf("runs: %d", code)
	}
	if len(runs) != 1 || runs[0].Outcome != sequencer.Done || runs[0].FireCount != 1 {
		t.Fatalf("runs = %+v", runs)
	}
	if code := f.do("GET", "/api/runs?limit=x", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", code)
	}

	if code := f.do("POST", "/api/probe/reset", nil, nil); code != http.StatusOK {
		t.Fatalf("reset: %d", code)
	}
	f.step(1)
	if st := f.state(); st != sequencer.Ready {
		t.Fatalf("state = %s, want ready", st)
	}
	if code := f.do("POST", "/api/probe/explode", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown action: %d", code)
	}
}

func TestApiResetAll(t *testing.T) {
	f := newAPIFixture(t)
	f.do("POST", "/api/probe/arm", nil, nil)
	f.step(1)
	if code := f.do("POST", "/api/probe/reset-all", nil, nil); code != http.StatusOK {
		t.Fatalf("reset-all: %d", code)
	}
	f.step(1)
	if st := f.state(); st != sequencer.Ready {
		t.Fatalf("state = %s, want ready", st)
	}
}

func TestApiInputTriggers(t *testing.T) {
	f := newAPIFixture(t)
	f.do("POST", "/api/probe/arm", nil, nil)
	f.step(1)

	if code := f.do("POST", "/api/input", map[string]interface{}{}, nil); code != http.StatusBadRequest {
		t.Fatalf("empty input: %d", code)
	}
	if code := f.do("POST", "/api/input", map[string]interface{}{"volts": 3.0}, nil); code != http.StatusOK {
		t.Fatalf("input: %d", code)
	}
	f.step(2)
	if st := f.state(); st != sequencer.Firing {
		t.Fatalf("state = %s, want firing", st)
	}
}

func TestApiBram(t *testing.T) {
	f := newAPIFixture(t)
	words := []uint32{0xCAFE, 0xBEEF}
	if code := f.do("POST", "/api/bram", &BramLoad{Addr: 5, Words: words}, nil); code != http.StatusOK {
		t.Fatalf("load: %d", code)
	}
	f.step(2 + 2*len(words) + 1)

	got := &BramLoad{}
	if code := f.do("GET", "/api/bram/5?count=2", nil, got); code != http.StatusOK {
		t.Fatalf("read: %d", code)
	}
	if len(got.Words) != 2 || got.Words[0] != 0xCAFE || got.Words[1] != 0xBEEF {
		t.Fatalf("words = %v", got.Words)
	}
	if code := f.do("GET", "/api/bram/4095?count=2", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("read past end: %d", code)
	}
	if code := f.do("POST", "/api/bram", &BramLoad{Addr: 4095, Words: words}, nil); code != http.StatusBadRequest {
		t.Fatalf("load past end: %d", code)
	}
}

func TestApiDocs(t *testing.T) {
	f := newAPIFixture(t)
	for _, path := range []string{"/swagger.json", "/docs"} {
		if code := f.do("GET", path, nil, nil); code != http.StatusOK {
			t.Fatalf("%s: %d", path, code)
		}
	}
}

func TestApiResetAllKeepsProbeUsable(t *testing.T) {
	f := newAPIFixture(t)
	f.do("POST", "/api/probe/reset-all", nil, nil)
	f.step(4)
	f.do("POST", "/api/probe/arm", nil, nil)
	f.step(1)
	if st := f.state(); st != sequencer.Armed {
		t.Fatalf("state = %s, want armed", st)
	}
}
