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
	"strconv"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// RegLayerNum identifies the layer
	RegLayerNum = 1997
	// RegOpSize is the size of one register operation in bytes
	RegOpSize = 8

	regReadFlag = 0x80000000
	regAddrMask = 0x0000ffff
)

// Reg is a 32-bit register value at a 16-bit address
type Reg struct {
	Addr  uint16
	Value uint32
}

// Hex returns hexadecimal representation of the register address and value
func (r *Reg) Hex() (string, string) {
	return fmt.Sprintf("0x%04x", r.Addr), fmt.Sprintf("0x%08x", r.Value)
}

// NewRegFromHex parses hexadecimal (or decimal) address and value strings
func NewRegFromHex(hexAddr, hexValue string) (*Reg, error) {
	addr, err := strconv.ParseUint(hexAddr, 0, 16)
	if err != nil {
		return nil, err
	}
	value, err := strconv.ParseUint(hexValue, 0, 32)
	if err != nil {
		return nil, err
	}
	return &Reg{Addr: uint16(addr), Value: uint32(value)}, nil
}

// RegOp is one register read or write. For reads Value is ignored in
// requests and carries the result in responses.
type RegOp struct {
	Read bool
	*Reg
}

type RegLayer struct {
	layers.BaseLayer
	RegOps []*RegOp
}

var RegLayerType = gopacket.RegisterLayerType(RegLayerNum,
	gopacket.LayerTypeMetadata{Name: "RegLayerType", Decoder: gopacket.DecodeFunc(DecodeRegLayer)})

// LayerType returns the type of the Reg layer in the layer catalog
func (reg *RegLayer) LayerType() gopacket.LayerType {
	return RegLayerType
}

// Serialize serializes register operations to a buffer of len(RegOps)*RegOpSize bytes.
// Each operation is two words: read flag and address, then value.
func (reg *RegLayer) Serialize(buf []byte) {
	for i, op := range reg.RegOps {
		offset := i * RegOpSize
		word := uint32(op.Addr) & regAddrMask
		if op.Read {
			word |= regReadFlag
		}
		binary.LittleEndian.PutUint32(buf[offset:offset+4], word)
		binary.LittleEndian.PutUint32(buf[offset+4:offset+8], op.Value)
	}
}

// SerializeTo serializes the register read/write layer into bytes and writes the bytes to the SerializeBuffer
func (reg *RegLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(len(reg.RegOps) * RegOpSize)
	if err != nil {
		return err
	}
	reg.Serialize(bytes)
	return nil
}

func (reg *RegLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data)%RegOpSize != 0 {
		df.SetTruncated()
		return ErrBadFrame{What: fmt.Sprintf("register payload of %d bytes", len(data))}
	}
	reg.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload:  []byte{},
	}
	reg.RegOps = nil
	for offset := 0; offset < len(data); offset += RegOpSize {
		word := binary.LittleEndian.Uint32(data[offset : offset+4])
		reg.RegOps = append(reg.RegOps, &RegOp{
			Read: word&regReadFlag != 0,
			Reg: &Reg{
				Addr:  uint16(word & regAddrMask),
				Value: binary.LittleEndian.Uint32(data[offset+4 : offset+8]),
			},
		})
	}
	return nil
}

func DecodeRegLayer(data []byte, p gopacket.PacketBuilder) error {
	req := &RegLayer{}
	err := req.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(req)
	return nil
}

// RegOpsToBytes builds a register request (or response) frame.
func RegOpsToBytes(typ MLinkType, ops []*RegOp, seq uint16) ([]byte, error) {
	if len(ops)*RegOpSize > MLinkMaxPayloadSize {
		return nil, ErrBadFrame{What: fmt.Sprintf("%d register operations do not fit a frame", len(ops))}
	}
	reg := &RegLayer{RegOps: ops}
	regBytes := make([]byte, len(ops)*RegOpSize)
	reg.Serialize(regBytes)
	return frame(typ, seq, regBytes, reg)
}
