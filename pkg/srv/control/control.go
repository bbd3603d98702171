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
	"net"

	"github.com/google/gopacket"

	"ezemfi.io/go-probe/pkg/config"
	"ezemfi.io/go-probe/pkg/layers"
	"ezemfi.io/go-probe/pkg/log"
	"ezemfi.io/go-probe/pkg/probe"
	"ezemfi.io/go-probe/pkg/regmap"
	"ezemfi.io/go-probe/pkg/srv"
	"ezemfi.io/go-probe/pkg/srv/control/ifc"
)

type ControlServer struct {
	srv.Server
	engine *Engine
	state  *RegState
	api    ifc.ApiServer
}

var _ ifc.ControlServer = &ControlServer{}

// NewControlServer ...
func NewControlServer(ctx context.Context, cfg *config.Config) (*ControlServer, error) {
	log.Debug("Initializing control server with address: %s", cfg.RegAddr())

	uaddr, err := net.ResolveUDPAddr("udp", cfg.RegAddr())
	if err != nil {
		return nil, err
	}

	m := regmap.Default()
	if cfg.RegisterMap != "" {
		if m, err = regmap.Load(cfg.RegisterMap); err != nil {
			return nil, err
		}
	}

	engine, err := NewEngine(probe.Config{
		VMin: cfg.Observer.VMin,
		VMax: cfg.Observer.VMax,
	}, m, cfg.TickPeriod())
	if err != nil {
		return nil, err
	}

	regState, err := NewRegState(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &ControlServer{
		Server: srv.Server{
			Context: ctx,
			Config:  cfg,
			UDPAddr: uaddr,
			ChIn:    make(chan srv.InPacket),
			ChOut:   make(chan srv.OutPacket),
		},
		engine: engine,
		state:  regState,
	}
	engine.OnRun = s.recordRun

	apiServer, err := NewApiServer(ctx, cfg, s)
	if err != nil {
		regState.Close()
		return nil, err
	}
	s.api = apiServer

	return s, nil
}

func (s *ControlServer) Run() error {
	conn, err := net.ListenUDP("udp", s.UDPAddr)
	if err != nil {
		return err
	}

	defer conn.Close()
	defer s.state.Close()

	errChan := make(chan error, 4)
	fail := func(err error) {
		select {
		case errChan <- err:
		default:
		}
	}

	go func() {
		fail(s.engine.Run(s.Context))
	}()

	if err = s.restore(); err != nil {
		return err
	}

	// Read UDP packets from wire and put them to input queue
	go func() {
		buffer := make([]byte, 65536)
		for {
			length, udpAddr, readErr := conn.ReadFromUDP(buffer)
			if readErr != nil {
				fail(readErr)
				return
			}
			select {
			case s.ChIn <- srv.NewInPacket(buffer[:length], udpAddr):
			case <-s.Context.Done():
				return
			}
		}
	}()

	// Read captured packets from input queue, apply them and queue the responses
	go func() {
		source := gopacket.NewPacketSource(s, layers.MLinkLayerType)
		for packet := range source.Packets() {
			udpAddr, addrErr := srv.GetAddrPort(packet)
			if addrErr != nil {
				log.Error(addrErr.Error())
				continue
			}
			data, packetErr := s.handlePacket(packet)
			if packetErr != nil {
				log.Error("Dropping packet from %s: %s", udpAddr, packetErr)
				continue
			}
			select {
			case s.ChOut <- srv.OutPacket{Data: data, UDPAddr: udpAddr}:
			case <-s.Context.Done():
				return
			}
		}
	}()

	// Read packets from output queue and send them to wire
	go func() {
		for {
			select {
			case outPacket := <-s.ChOut:
				if _, sendErr := conn.WriteToUDP(outPacket.Data, outPacket.UDPAddr); sendErr != nil {
					log.Error("Error while sending data to %s", outPacket.UDPAddr)
					fail(sendErr)
					return
				}
			case <-s.Context.Done():
				return
			}
		}
	}()

	go func() {
		fail(s.api.Run())
	}()

	log.Info("Register endpoint listening on %s", s.UDPAddr)
	select {
	case <-s.Context.Done():
		return s.Context.Err()
	case err = <-errChan:
		return err
	}
}

// restore replays the persisted registers into the bus. A fresh database
// deploys the probe instead: the enable bits are set and an empty load
// completes the loader handshake.
func (s *ControlServer) restore() error {
	regs, err := s.state.GetRegAll()
	if err != nil {
		return err
	}
	if len(regs) == 0 {
		log.Info("No persisted registers, deploying with defaults")
		if err = s.RegWrite(&layers.Reg{Addr: RegMap[RegControl], Value: regmap.ControlEnabled}); err != nil {
			return err
		}
		return s.engine.Load(0, nil)
	}
	log.Info("Restoring %d persisted registers", len(regs))
	for _, reg := range regs {
		if err = s.engine.RegWrite(reg); err != nil {
			log.Warning("Skipping persisted register 0x%04x: %s", reg.Addr, err)
		}
	}
	return s.engine.Load(0, nil)
}

func (s *ControlServer) handlePacket(packet gopacket.Packet) ([]byte, error) {
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	ml, ok := packet.Layer(layers.MLinkLayerType).(*layers.MLinkLayer)
	if !ok {
		return nil, layers.ErrBadFrame{What: "no MLink layer"}
	}
	switch ml.Type {
	case layers.MLinkTypeRegRequest:
		reg, ok := packet.Layer(layers.RegLayerType).(*layers.RegLayer)
		if !ok {
			return nil, layers.ErrBadFrame{What: "register request without operations"}
		}
		if err := s.regOps(reg.RegOps); err != nil {
			return nil, err
		}
		return layers.RegOpsToBytes(layers.MLinkTypeRegResponse, reg.RegOps, ml.Seq)
	case layers.MLinkTypeMemRequest:
		mem, ok := packet.Layer(layers.MemLayerType).(*layers.MemLayer)
		if !ok {
			return nil, layers.ErrBadFrame{What: "memory request without operation"}
		}
		resp, err := s.memOp(mem.MemOp)
		if err != nil {
			return nil, err
		}
		return layers.MemOpToBytes(layers.MLinkTypeMemResponse, resp, ml.Seq)
	}
	return nil, srv.ErrUnknownOperation{What: ml.Type.String()}
}

// regOps applies register operations in order. Reads fill in the value.
func (s *ControlServer) regOps(ops []*layers.RegOp) error {
	for _, op := range ops {
		if op.Read {
			reg, err := s.RegRead(op.Addr)
			if err != nil {
				return err
			}
			op.Value = reg.Value
			continue
		}
		if err := s.RegWrite(op.Reg); err != nil {
			return err
		}
	}
	return nil
}

func (s *ControlServer) memOp(op *layers.MemOp) (*layers.MemOp, error) {
	if op.Addr >= 1<<16 {
		return nil, srv.ErrOutOfRange{What: "BRAM address"}
	}
	if op.Read {
		words, err := s.BramRead(uint16(op.Addr), int(op.Size))
		if err != nil {
			return nil, err
		}
		return &layers.MemOp{Read: true, Addr: op.Addr, Size: op.Size, Data: words}, nil
	}
	if err := s.Load(uint16(op.Addr), op.Data); err != nil {
		return nil, err
	}
	return &layers.MemOp{Addr: op.Addr}, nil
}

func (s *ControlServer) recordRun(rec probe.RunRecord) {
	seq, err := s.state.AddRun(rec)
	if err != nil {
		log.Error("Error while recording run: %s", err)
		return
	}
	log.Info("Run %d finished: %s (fired %d, spurious %d)", seq, rec.Outcome, rec.FireCount, rec.SpuriousCount)
}

// persistent reports whether writes to addr survive a restart. Command
// buttons and the loader handshake are transient.
func (s *ControlServer) persistent(addr uint16) bool {
	if !isControl(addr) {
		return false
	}
	cr := int(addr - ControlRegBase)
	if cr >= regmap.CRLoaderControl && cr <= regmap.CRLoaderStrobe {
		return false
	}
	r, ok := s.engine.Map().ByCR(cr)
	if !ok {
		return true
	}
	switch r.Signal() {
	case regmap.SignalArm, regmap.SignalForceFire, regmap.SignalResetFSM:
		return false
	}
	return true
}

func (s *ControlServer) RegRead(addr uint16) (*layers.Reg, error) {
	return s.engine.RegRead(addr)
}

func (s *ControlServer) RegReadAll() ([]*layers.Reg, error) {
	return s.engine.RegReadAll()
}

func (s *ControlServer) RegWrite(reg *layers.Reg) error {
	if err := s.engine.RegWrite(reg); err != nil {
		return err
	}
	if !s.persistent(reg.Addr) {
		return nil
	}
	return s.state.SetReg(reg)
}

func (s *ControlServer) Press(signal string) error {
	return s.engine.Press(signal)
}

func (s *ControlServer) ResetAll() error {
	return s.engine.ResetAll()
}

func (s *ControlServer) SetInput(v int16) error {
	return s.engine.SetInput(v)
}

func (s *ControlServer) Load(addr uint16, words []uint32) error {
	return s.engine.Load(addr, words)
}

func (s *ControlServer) BramRead(addr uint16, count int) ([]uint32, error) {
	return s.engine.BramRead(addr, count)
}

func (s *ControlServer) Snapshot() (probe.Snapshot, error) {
	return s.engine.Snapshot()
}

func (s *ControlServer) Runs(limit int) ([]probe.RunRecord, error) {
	return s.state.GetRuns(limit)
}
