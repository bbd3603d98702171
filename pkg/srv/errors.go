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

package srv

import (
	"fmt"
)

// ErrGetAddr returned when we can not get the address and port of the peer that sent a packet
type ErrGetAddr struct{}

func (e ErrGetAddr) Error() string {
	return "Error while getting peer address and port"
}

// ErrUnknownOperation returned when a request names an operation the server does not know
type ErrUnknownOperation struct {
	What string
}

func (e ErrUnknownOperation) Error() string {
	return fmt.Sprintf("Unknown operation: %s", e.What)
}

// ErrReadOnly returned on writes to read-only registers
type ErrReadOnly struct {
	Addr uint16
}

func (e ErrReadOnly) Error() string {
	return fmt.Sprintf("Register 0x%04x is read only", e.Addr)
}

// ErrStopped returned when the tick engine is not running
type ErrStopped struct{}

func (e ErrStopped) Error() string {
	return "Tick engine is not running"
}

// ErrOutOfRange returned when a memory access does not fit the buffer
type ErrOutOfRange struct {
	What string
}

func (e ErrOutOfRange) Error() string {
	return fmt.Sprintf("Out of range: %s", e.What)
}
