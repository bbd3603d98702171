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

package bram

import (
	"strings"
	"testing"
)

type harness struct {
	l  *Loader
	in Inputs
}

func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.l.Tick(h.in)
	}
}

func (h *harness) write(addr uint16, data uint32) {
	h.in.Addr = uint32(addr)
	h.in.Data = data
	h.tick(1)
	h.in.Strobe = StrobeMask
	h.tick(1)
	h.in.Strobe = 0
	h.tick(2)
}

func TestLoadWords(t *testing.T) {
	h := &harness{l: NewLoader()}
	h.tick(2)
	if h.l.State() != Idle {
		t.Fatalf("state = %s", h.l.State())
	}
	h.in.Control = ControlWord(4, true)
	h.tick(2)
	if h.l.State() != Loading {
		t.Fatalf("state = %s, want loading", h.l.State())
	}
	for i := 0; i < 4; i++ {
		if h.l.Done() {
			t.Fatalf("done after %d of 4 words", i)
		}
		h.write(uint16(i), 0x1000+uint32(i))
	}
	if !h.l.Done() {
		t.Fatal("expected done after 4 words")
	}
	got := h.l.Words(0, 4)
	for i, w := range got {
		if w != 0x1000+uint32(i) {
			t.Errorf("word %d = %#x", i, w)
		}
	}
}

func TestStrobeWritesOncePerEdge(t *testing.T) {
	h := &harness{l: NewLoader()}
	h.in.Control = ControlWord(2, true)
	h.tick(1)
	h.in.Addr = 0x123
	h.in.Data = 0xABCD1234
	h.in.Strobe = StrobeMask
	h.tick(1)
	w, ok := h.l.LastWrite()
	if !ok || w.Addr != 0x123 || w.Data != 0xABCD1234 {
		t.Fatalf("last write = %+v %v", w, ok)
	}
	h.tick(5)
	if _, ok := h.l.LastWrite(); ok {
		t.Fatal("held strobe must not write again")
	}
	if h.l.Written() != 1 {
		t.Fatalf("written = %d", h.l.Written())
	}
}

func TestZeroWordsIsDone(t *testing.T) {
	h := &harness{l: NewLoader()}
	h.in.Control = ControlWord(0, true)
	h.tick(1)
	if !h.l.Done() {
		t.Fatalf("state = %s, want done", h.l.State())
	}
}

func TestMaxAddress(t *testing.T) {
	h := &harness{l: NewLoader()}
	h.in.Control = ControlWord(1, true)
	h.tick(1)
	h.write(0xFFF, 0x55555555)
	if h.l.Word(0xFFF) != 0x55555555 {
		t.Fatalf("word = %#x", h.l.Word(0xFFF))
	}
	h2 := &harness{l: NewLoader()}
	h2.in.Control = ControlWord(1, true)
	h2.tick(1)
	h2.write(0x1001, 7)
	if h2.l.Word(1) != 7 {
		t.Fatal("address must be masked to 12 bits")
	}
}

func TestReloadAfterDone(t *testing.T) {
	h := &harness{l: NewLoader()}
	h.in.Control = ControlWord(1, true)
	h.tick(1)
	h.write(0, 1)
	if !h.l.Done() {
		t.Fatal("expected done")
	}
	h.tick(3)
	if !h.l.Done() {
		t.Fatal("held start must not restart the load")
	}
	h.in.Control = 0
	h.tick(1)
	h.in.Control = ControlWord(2, true)
	h.tick(1)
	if h.l.State() != Loading || h.l.Expected() != 2 {
		t.Fatalf("state = %s expected = %d", h.l.State(), h.l.Expected())
	}
	if h.l.Word(0) != 1 {
		t.Fatal("buffer contents must survive a new load")
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	h := &harness{l: NewLoader()}
	h.in.Control = ControlWord(3, true)
	h.tick(1)
	h.in.Reset = true
	h.tick(1)
	if h.l.State() != Idle {
		t.Fatalf("state = %s", h.l.State())
	}
}

func TestStateText(t *testing.T) {
	for st := Idle; st <= Reserved; st++ {
		text, err := st.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got State
		if err = got.UnmarshalText(text); err != nil {
			t.Fatal(err)
		}
		if got != st {
			t.Fatalf("%s decoded as %s", st, got)
		}
	}
	var s State
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseWords(t *testing.T) {
	words, err := ParseWords(strings.NewReader("# lookup table\n0x10 0x20\n\n3 # tail\n0xFFFFFFFF\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{0x10, 0x20, 3, 0xFFFFFFFF}
	if len(words) != len(want) {
		t.Fatalf("words = %v", words)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("word %d = 0x%x, want 0x%x", i, words[i], want[i])
		}
	}
	if _, err = ParseWords(strings.NewReader("1\n0x1FFFFFFFF\n")); err == nil {
		t.Fatal("expected overflow error")
	}
	if _, err = ParseWords(strings.NewReader(strings.Repeat("1\n", Depth+1))); err == nil {
		t.Fatal("expected too many words error")
	}
}
