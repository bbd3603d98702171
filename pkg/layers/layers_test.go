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

package layers

import (
	"testing"
)

func TestRegFrameRoundTrip(t *testing.T) {
	ops := []*RegOp{
		{Read: false, Reg: &Reg{Addr: 0x0014, Value: 0x80000000}},
		{Read: true, Reg: &Reg{Addr: 0x0100}},
	}
	data, err := RegOpsToBytes(MLinkTypeRegRequest, ops, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != MLinkHeaderSize+2*RegOpSize+4 {
		t.Fatalf("frame size = %d", len(data))
	}
	ml, packet, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if ml.Type != MLinkTypeRegRequest || ml.Seq != 7 || ml.Src != MLinkHostAddr {
		t.Fatalf("header = %+v", ml.MLinkHeader)
	}
	reg, ok := packet.Layer(RegLayerType).(*RegLayer)
	if !ok {
		t.Fatal("no reg layer")
	}
	if len(reg.RegOps) != 2 {
		t.Fatalf("ops = %d", len(reg.RegOps))
	}
	if reg.RegOps[0].Read || reg.RegOps[0].Addr != 0x14 || reg.RegOps[0].Value != 0x80000000 {
		t.Fatalf("op 0 = %+v", *reg.RegOps[0].Reg)
	}
	if !reg.RegOps[1].Read || reg.RegOps[1].Addr != 0x100 {
		t.Fatalf("op 1 = %+v", *reg.RegOps[1].Reg)
	}
}

func TestMemFrameRoundTrip(t *testing.T) {
	op := &MemOp{Addr: 0xFFF, Size: 3, Data: []uint32{1, 0xDEADBEEF, 3}}
	data, err := MemOpToBytes(MLinkTypeMemRequest, op, 1)
	if err != nil {
		t.Fatal(err)
	}
	_, packet, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	mem, ok := packet.Layer(MemLayerType).(*MemLayer)
	if !ok {
		t.Fatal("no mem layer")
	}
	if mem.Addr != 0xFFF || mem.Size != 3 || len(mem.Data) != 3 || mem.Data[1] != 0xDEADBEEF {
		t.Fatalf("mem op = %+v", *mem.MemOp)
	}
}

func TestMemTooLarge(t *testing.T) {
	op := &MemOp{Size: MemMaxWords + 1, Data: make([]uint32, MemMaxWords+1)}
	if _, err := MemOpToBytes(MLinkTypeMemRequest, op, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestBadFrames(t *testing.T) {
	data, err := RegOpsToBytes(MLinkTypeRegRequest, []*RegOp{{Reg: &Reg{Addr: 1, Value: 2}}}, 0)
	if err != nil {
		t.Fatal(err)
	}

	corrupted := append([]byte{}, data...)
	corrupted[MLinkHeaderSize] ^= 0xff
	if _, _, err := Decode(corrupted); err == nil {
		t.Fatal("crc mismatch must fail")
	}

	badSync := append([]byte{}, data...)
	badSync[2] = 0
	if _, _, err := Decode(badSync); err == nil {
		t.Fatal("bad sync must fail")
	}

	if _, _, err := Decode(data[:8]); err == nil {
		t.Fatal("short frame must fail")
	}
}

func TestRegHex(t *testing.T) {
	reg, err := NewRegFromHex("0x0014", "0x80000000")
	if err != nil {
		t.Fatal(err)
	}
	addr, value := reg.Hex()
	if addr != "0x0014" || value != "0x80000000" {
		t.Fatalf("hex = %s %s", addr, value)
	}
	if _, err := NewRegFromHex("0x10000", "0"); err == nil {
		t.Fatal("address overflow must fail")
	}
}
