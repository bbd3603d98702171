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

package command

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"ezemfi.io/go-probe/pkg/config"
	"ezemfi.io/go-probe/pkg/probe"
	"ezemfi.io/go-probe/pkg/sequencer"
	"ezemfi.io/go-probe/pkg/srv/control"
)

func newTestClient(t *testing.T, h http.Handler) *ApiClient {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	host, port, err := net.SplitHostPort(server.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.NewDefaultConfig()
	cfg.IP = host
	if cfg.ApiPort, err = strconv.Atoi(port); err != nil {
		t.Fatal(err)
	}
	return NewApiClient(cfg)
}

func TestRegWrite(t *testing.T) {
	var got control.RegHex
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/reg/w" {
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}))
	if err := c.RegWrite("0x0018", "0x00ff0000"); err != nil {
		t.Fatal(err)
	}
	if got.Addr != "0x0018" || got.Value != "0x00ff0000" {
		t.Fatalf("server got %+v", got)
	}
}

func TestErrorStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Register 0x0100 is read only", http.StatusBadRequest)
	}))
	if err := c.RegWrite("0x0100", "0x1"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := c.RegRead("0x0100"); err == nil {
		t.Fatal("expected error")
	}
	if err := c.ProbeAction("arm"); err == nil {
		t.Fatal("expected error")
	}
}

func TestStatusAndRuns(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(probe.Snapshot{
			Tick:      12,
			Sequencer: sequencer.Status{State: sequencer.Cooling, FireCount: 2},
		})
	})
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			http.Error(w, "limit", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode([]probe.RunRecord{{Seq: 4, Outcome: sequencer.TimedOut}})
	})
	mux.HandleFunc("/api/bram/16", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(control.BramLoad{Addr: 16, Words: []uint32{1, 2}})
	})
	c := newTestClient(t, mux)

	snap, err := c.Status()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Tick != 12 || snap.Sequencer.State != sequencer.Cooling || snap.Sequencer.FireCount != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}

	runs, err := c.Runs(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Seq != 4 || runs[0].Outcome != sequencer.TimedOut {
		t.Fatalf("runs = %+v", runs)
	}

	words, err := c.BramRead(16, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 || words[1] != 2 {
		t.Fatalf("words = %v", words)
	}
}
