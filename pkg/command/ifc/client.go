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
	"ezemfi.io/go-probe/pkg/probe"
	"ezemfi.io/go-probe/pkg/srv/control"
)

type ApiClient interface {
	RegRead(addr string) (string, error)
	RegReadAll() ([]*control.RegHex, error)
	RegWrite(addr, value string) error

	// ProbeAction is one of arm, fire, reset, reset-all
	ProbeAction(action string) error
	Status() (*probe.Snapshot, error)
	SetInput(setup *control.InputSetup) error

	BramLoad(addr uint16, words []uint32) error
	BramRead(addr uint16, count int) ([]uint32, error)

	Runs(limit int) ([]probe.RunRecord, error)
}
