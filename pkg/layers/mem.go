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
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// MemLayerNum identifies the layer
	MemLayerNum = 1996
	// MemMaxSize is the max number of data words the size field can hold
	MemMaxSize = 0x1ff
	// MemMaxWords is the max number of data words that fit one frame
	MemMaxWords = (MLinkMaxPayloadSize - 4) / 4

	memReadFlag  = 0x80000000
	memSizeShift = 22
	memAddrMask  = 0x3fffff
)

type MemOp struct {
	Read bool
	Addr uint32   // 22 bits
	Size uint32   // 9 bits
	Data []uint32 // if Read is true, Data is empty in requests
}

type MemLayer struct {
	layers.BaseLayer
	*MemOp
}

var MemLayerType = gopacket.RegisterLayerType(MemLayerNum,
	gopacket.LayerTypeMetadata{Name: "MemLayerType", Decoder: gopacket.DecodeFunc(DecodeMemLayer)})

// LayerType returns the type of the Mem layer in the layer catalog
func (mem *MemLayer) LayerType() gopacket.LayerType {
	return MemLayerType
}

func (mem *MemLayer) size() int {
	return 4 + 4*len(mem.Data)
}

// Serialize serializes the memory operation header and data words to a buffer.
func (mem *MemLayer) Serialize(buf []byte) {
	hdr := ((mem.Size & MemMaxSize) << memSizeShift) | (mem.Addr & memAddrMask)
	if mem.Read {
		hdr |= memReadFlag
	}
	binary.LittleEndian.PutUint32(buf[0:4], hdr)
	for i, word := range mem.Data {
		offset := (i + 1) * 4
		binary.LittleEndian.PutUint32(buf[offset:offset+4], word)
	}
}

// SerializeTo serializes the memory layer into bytes and writes the bytes to the SerializeBuffer
func (mem *MemLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(mem.size())
	if err != nil {
		return err
	}
	mem.Serialize(bytes)
	return nil
}

func (mem *MemLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < 4 {
		df.SetTruncated()
		return ErrBadFrame{What: "memory payload too short"}
	}
	mem.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload:  []byte{},
	}
	hdr := binary.LittleEndian.Uint32(data[0:4])
	mem.MemOp = &MemOp{
		Read: hdr&memReadFlag != 0,
		Addr: hdr & memAddrMask,
		Size: (hdr >> memSizeShift) & MemMaxSize,
	}
	words := (len(data) - 4) / 4
	if words > int(mem.Size) {
		words = int(mem.Size)
	}
	for i := 0; i < words; i++ {
		offset := (i + 1) * 4
		mem.Data = append(mem.Data, binary.LittleEndian.Uint32(data[offset:offset+4]))
	}
	if !mem.Read && len(mem.Data) != int(mem.Size) {
		return ErrBadFrame{What: fmt.Sprintf("memory write of %d words carries %d", mem.Size, len(mem.Data))}
	}
	return nil
}

func DecodeMemLayer(data []byte, p gopacket.PacketBuilder) error {
	req := &MemLayer{}
	err := req.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(req)
	return nil
}

// MemOpToBytes builds a memory request (or response) frame.
func MemOpToBytes(typ MLinkType, op *MemOp, seq uint16) ([]byte, error) {
	mem := &MemLayer{MemOp: op}
	if op.Size > MemMaxSize || mem.size() > MLinkMaxPayloadSize {
		return nil, ErrBadFrame{What: fmt.Sprintf("memory operation of %d words", op.Size)}
	}
	memBytes := make([]byte, mem.size())
	mem.Serialize(memBytes)
	return frame(typ, seq, memBytes, mem)
}
