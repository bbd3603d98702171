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

package ifc

import (
	"ezemfi.io/go-probe/pkg/layers"
	"ezemfi.io/go-probe/pkg/probe"
)

type ControlServer interface {
	Run() error

	RegRead(addr uint16) (*layers.Reg, error)
	RegReadAll() ([]*layers.Reg, error)
	// RegWrite writes a control register and persists it
	RegWrite(reg *layers.Reg) error

	// Press holds a button signal high for one tick
	Press(signal string) error
	// ResetAll pulses the global reset
	ResetAll() error
	SetInput(v int16) error

	Load(addr uint16, words []uint32) error
	BramRead(addr uint16, count int) ([]uint32, error)

	Snapshot() (probe.Snapshot, error)
	Runs(limit int) ([]probe.RunRecord, error)
}

type ApiServer interface {
	Run() error
}
