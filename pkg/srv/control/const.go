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
	"ezemfi.io/go-probe/pkg/probe"
	"ezemfi.io/go-probe/pkg/regmap"
)

// Register address space seen over the wire and the API.
// Control registers CR0..CR31 are read/write, status registers are read only.
const (
	ControlRegBase = 0x0000
	StatusRegBase  = 0x0100
)

type RegAlias int

const (
	RegControl RegAlias = iota
	RegLoaderControl
	RegLoaderAddr
	RegLoaderData
	RegLoaderStrobe
	RegStatus
	RegCrossings
	RegMonitor
	RegLoaderState
	RegAliasLimit
)

var RegMap = map[RegAlias]uint16{
	RegControl:       ControlRegBase + regmap.CRControl,
	RegLoaderControl: ControlRegBase + regmap.CRLoaderControl,
	RegLoaderAddr:    ControlRegBase + regmap.CRLoaderAddr,
	RegLoaderData:    ControlRegBase + regmap.CRLoaderData,
	RegLoaderStrobe:  ControlRegBase + regmap.CRLoaderStrobe,
	RegStatus:        StatusRegBase + 0,
	RegCrossings:     StatusRegBase + 1,
	RegMonitor:       StatusRegBase + 2,
	RegLoaderState:   StatusRegBase + 3,
}

func isControl(addr uint16) bool {
	return addr < ControlRegBase+regmap.NumRegs
}

func isStatus(addr uint16) bool {
	return addr >= StatusRegBase && addr < StatusRegBase+probe.NumStatusRegs
}
