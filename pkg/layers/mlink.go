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
	"hash/crc32"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"ezemfi.io/go-probe/pkg/log"
)

const (
	MLinkHostAddr   = 1
	MLinkDeviceAddr = 0xfefe
)

func init() {
	initUnknownMLinkTypes()
	initActualMLinkTypes()
}

const (
	// MLinkLayerNum identifies the layer
	MLinkLayerNum = 1999
	// MLinkSync is a magic number that appears in the beginning of each MLink frame
	MLinkSync = 0x2A50
	// MLinkHeaderSize is the size of the MLink header in bytes
	MLinkHeaderSize = 12
	// MLinkMaxFrameSize is the max size of MLink frame including MLink header and CRC
	MLinkMaxFrameSize = 1400
	// MLinkMaxPayloadSize is the max size of Mlink frame payload
	// MLink header 12 bytes
	// MLink CRC 4 bytes
	MLinkMaxPayloadSize = MLinkMaxFrameSize - 16
)

type MLinkType uint16

const (
	MLinkTypeRegRequest  MLinkType = 0x0101
	MLinkTypeRegResponse MLinkType = 0x0102
	MLinkTypeMemRequest  MLinkType = 0x0105
	MLinkTypeMemResponse MLinkType = 0x0106
)

// ErrBadFrame returned when a frame can not be decoded
type ErrBadFrame struct {
	What string
}

func (e ErrBadFrame) Error() string {
	return fmt.Sprintf("Bad MLink frame: %s", e.What)
}

type errorDecoderForMLinkType int

func (e *errorDecoderForMLinkType) Decode(data []byte, p gopacket.PacketBuilder) error {
	return e
}

func (e *errorDecoderForMLinkType) Error() string {
	return fmt.Sprintf("Unable to decode MLink type %d", int(*e))
}

var errorDecodersForMLinkType [65536]errorDecoderForMLinkType
var MLinkMetadata [65536]layers.EnumMetadata

func initUnknownMLinkTypes() {
	for i := 0; i < 65536; i++ {
		errorDecodersForMLinkType[i] = errorDecoderForMLinkType(i)
		MLinkMetadata[i] = layers.EnumMetadata{
			DecodeWith: &errorDecodersForMLinkType[i],
			Name:       "UnknownMLinkType",
		}
	}
}

func initActualMLinkTypes() {
	MLinkMetadata[MLinkTypeRegRequest] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeRegLayer), Name: "RegRequest", LayerType: RegLayerType}
	MLinkMetadata[MLinkTypeRegResponse] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeRegLayer), Name: "RegResponse", LayerType: RegLayerType}
	MLinkMetadata[MLinkTypeMemRequest] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeMemLayer), Name: "MemRequest", LayerType: MemLayerType}
	MLinkMetadata[MLinkTypeMemResponse] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeMemLayer), Name: "MemResponse", LayerType: MemLayerType}
}

// LayerType returns MLinkMetadata.LayerType
func (t MLinkType) LayerType() gopacket.LayerType {
	return MLinkMetadata[t].LayerType
}

// Decode calls MLinkMetadata.DecodeWith's decoder
func (t MLinkType) Decode(data []byte, p gopacket.PacketBuilder) error {
	return MLinkMetadata[t].DecodeWith.Decode(data, p)
}

// String returns MLinkMetadata.Name
func (t MLinkType) String() string {
	return MLinkMetadata[t].Name
}

type MLinkHeader struct {
	Type MLinkType
	Sync uint16
	Seq  uint16
	Len  uint16 // length of MLink frame including header, payload and CRC in 4-byte words NOT in bytes
	Src  uint16
	Dst  uint16
}

type MLinkLayer struct {
	layers.BaseLayer
	MLinkHeader
	Crc uint32
}

var MLinkLayerType = gopacket.RegisterLayerType(MLinkLayerNum,
	gopacket.LayerTypeMetadata{Name: "MLinkLayerType", Decoder: gopacket.DecodeFunc(decodeMLinkLayer)})

func (ml *MLinkLayer) LayerType() gopacket.LayerType {
	return MLinkLayerType
}

// SerializeHeader serializes only MLink header (not tail) to a buffer.
// The CRC covers the serialized header and payload, so upper layers
// compute it before calling SerializeTo.
func (ml *MLinkLayer) SerializeHeader(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(ml.Type))
	binary.LittleEndian.PutUint16(buf[2:4], ml.Sync)
	binary.LittleEndian.PutUint16(buf[4:6], ml.Seq)
	binary.LittleEndian.PutUint16(buf[6:8], ml.Len)
	binary.LittleEndian.PutUint16(buf[8:10], ml.Src)
	binary.LittleEndian.PutUint16(buf[10:12], ml.Dst)
}

// SerializeTo serializes the layer into bytes and writes the bytes to the SerializeBuffer
func (ml *MLinkLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	headerBytes, err := b.PrependBytes(MLinkHeaderSize)
	if err != nil {
		return err
	}
	ml.SerializeHeader(headerBytes)

	tailBytes, err := b.AppendBytes(4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(tailBytes[0:4], ml.Crc)
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a MLink frame
func (ml *MLinkLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < MLinkHeaderSize+4 {
		df.SetTruncated()
		return ErrBadFrame{What: "too short"}
	}
	if len(data)%4 != 0 {
		return ErrBadFrame{What: fmt.Sprintf("length %d is not a multiple of 4", len(data))}
	}

	if binary.LittleEndian.Uint16(data[2:4]) != MLinkSync {
		return ErrBadFrame{What: fmt.Sprintf("wrong sync, must be 0x%04x", MLinkSync)}
	}

	ml.BaseLayer = layers.BaseLayer{
		Contents: data[0:MLinkHeaderSize],
		Payload:  data[MLinkHeaderSize : len(data)-4],
	}

	ml.Type = MLinkType(binary.LittleEndian.Uint16(data[0:2]))
	ml.Sync = binary.LittleEndian.Uint16(data[2:4])
	ml.Seq = binary.LittleEndian.Uint16(data[4:6])
	ml.Len = binary.LittleEndian.Uint16(data[6:8])
	ml.Src = binary.LittleEndian.Uint16(data[8:10])
	ml.Dst = binary.LittleEndian.Uint16(data[10:12])
	ml.Crc = binary.LittleEndian.Uint32(data[len(data)-4:])

	if int(ml.Len)*4 != len(data) {
		return ErrBadFrame{What: fmt.Sprintf("length field %d words, frame %d bytes", ml.Len, len(data))}
	}
	if crc := crc32.ChecksumIEEE(data[:len(data)-4]); crc != ml.Crc {
		return ErrBadFrame{What: fmt.Sprintf("crc 0x%08x, computed 0x%08x", ml.Crc, crc)}
	}
	return nil
}

func (ml *MLinkLayer) NextLayerType() gopacket.LayerType {
	return ml.Type.LayerType()
}

func decodeMLinkLayer(data []byte, p gopacket.PacketBuilder) error {
	ml := &MLinkLayer{}
	err := ml.DecodeFromBytes(data, p)
	if err != nil {
		log.Debug("Error while decoding mlink layer: %s", err)
		return err
	}
	p.AddLayer(ml)
	return p.NextDecoder(ml.Type)
}

// frame wraps a serialized payload into an MLink frame.
func frame(typ MLinkType, seq uint16, payload []byte, layer gopacket.SerializableLayer) ([]byte, error) {
	ml := &MLinkLayer{}
	ml.Type = typ
	ml.Sync = MLinkSync
	// 3 words for MLink header + 1 word CRC + N words payload
	ml.Len = uint16(4 + len(payload)/4)
	ml.Seq = seq
	ml.Src = MLinkHostAddr
	ml.Dst = MLinkDeviceAddr
	if typ == MLinkTypeRegResponse || typ == MLinkTypeMemResponse {
		ml.Src, ml.Dst = MLinkDeviceAddr, MLinkHostAddr
	}

	// Calculate crc32 checksum
	mlHeaderBytes := make([]byte, MLinkHeaderSize)
	ml.SerializeHeader(mlHeaderBytes)
	ml.Crc = crc32.ChecksumIEEE(append(mlHeaderBytes, payload...))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	if err := gopacket.SerializeLayers(buf, opts, ml, layer); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a complete MLink frame.
func Decode(data []byte) (*MLinkLayer, gopacket.Packet, error) {
	packet := gopacket.NewPacket(data, MLinkLayerType, gopacket.Default)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, nil, errLayer.Error()
	}
	ml, ok := packet.Layer(MLinkLayerType).(*MLinkLayer)
	if !ok {
		return nil, nil, ErrBadFrame{What: "no MLink layer"}
	}
	return ml, packet, nil
}
