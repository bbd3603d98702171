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
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"ezemfi.io/go-probe/pkg/config"
	"ezemfi.io/go-probe/pkg/layers"
	"ezemfi.io/go-probe/pkg/log"
	"ezemfi.io/go-probe/pkg/probe"
)

const (
	BucketNamePrefix    = "reg_"
	RunBucketNamePrefix = "runs_"
)

// ErrBucketNotFound returned when the database has no bucket for a device
type ErrBucketNotFound struct {
	Name string
}

func (e ErrBucketNotFound) Error() string {
	return fmt.Sprintf("Bucket not found: %s", e.Name)
}

// ErrRegNotFound returned when a register was never persisted
type ErrRegNotFound struct {
	Addr uint16
}

func (e ErrRegNotFound) Error() string {
	return fmt.Sprintf("Key not found: 0x%04x", e.Addr)
}

// RegState persists control register writes and finished runs.
type RegState struct {
	context.Context
	DB     *bbolt.DB
	device string
}

func NewRegState(ctx context.Context, cfg *config.Config) (*RegState, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, err
	}
	// open register database
	db, err := bbolt.Open(cfg.DBPath, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketName(cfg.DeviceName), runBucketName(cfg.DeviceName)} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &RegState{
		Context: ctx,
		DB:      db,
		device:  cfg.DeviceName,
	}, nil
}

func uint16ToByte(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func uint32ToByte(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func bucketName(deviceName string) string {
	return fmt.Sprintf("%s%s", BucketNamePrefix, deviceName)
}

func runBucketName(deviceName string) string {
	return fmt.Sprintf("%s%s", RunBucketNamePrefix, deviceName)
}

func (s *RegState) Close() {
	s.DB.Close()
}

func (s *RegState) SetReg(reg *layers.Reg) error {
	log.Debug("Setting register: Addr: %x Value: %x", reg.Addr, reg.Value)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(s.device)))
		if b == nil {
			return ErrBucketNotFound{Name: bucketName(s.device)}
		}
		return b.Put(uint16ToByte(reg.Addr), uint32ToByte(reg.Value))
	})
}

func (s *RegState) GetReg(addr uint16) (*layers.Reg, error) {
	log.Debug("Getting register: Addr: %x", addr)
	var value uint32
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(s.device)))
		if b == nil {
			return ErrBucketNotFound{Name: bucketName(s.device)}
		}
		valueBytes := b.Get(uint16ToByte(addr))
		if valueBytes == nil {
			return ErrRegNotFound{Addr: addr}
		}
		value = binary.BigEndian.Uint32(valueBytes)
		return nil
	}); err != nil {
		return nil, err
	}
	return &layers.Reg{
		Addr:  addr,
		Value: value,
	}, nil
}

// GetRegAll returns every persisted register in address order.
func (s *RegState) GetRegAll() ([]*layers.Reg, error) {
	log.Debug("Getting all registers")
	var regs []*layers.Reg
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(s.device)))
		if b == nil {
			return ErrBucketNotFound{Name: bucketName(s.device)}
		}
		return b.ForEach(func(k, v []byte) error {
			regs = append(regs, &layers.Reg{
				Addr:  binary.BigEndian.Uint16(k),
				Value: binary.BigEndian.Uint32(v),
			})
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return regs, nil
}

// AddRun appends rec to the run log and returns its sequence number.
func (s *RegState) AddRun(rec probe.RunRecord) (uint64, error) {
	var seq uint64
	err := s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runBucketName(s.device)))
		if b == nil {
			return ErrBucketNotFound{Name: runBucketName(s.device)}
		}
		var err error
		if seq, err = b.NextSequence(); err != nil {
			return err
		}
		rec.Seq = seq
		data, err := yaml.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(uint64ToByte(seq), data)
	})
	return seq, err
}

// GetRuns returns up to limit most recent runs, oldest first. A limit of 0
// returns all of them.
func (s *RegState) GetRuns(limit int) ([]probe.RunRecord, error) {
	var runs []probe.RunRecord
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runBucketName(s.device)))
		if b == nil {
			return ErrBucketNotFound{Name: runBucketName(s.device)}
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			rec := probe.RunRecord{}
			if err := yaml.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("run %d: %w", binary.BigEndian.Uint64(k), err)
			}
			runs = append(runs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}
