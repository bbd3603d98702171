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

package regmap

import "fmt"

type ErrInvalidRegisterMap struct {
	What string
}

func (e ErrInvalidRegisterMap) Error() string {
	return fmt.Sprintf("Invalid register map: %s", e.What)
}

type ErrRegisterNotMapped struct {
	Addr int
}

func (e ErrRegisterNotMapped) Error() string {
	return fmt.Sprintf("Control register is not mapped: %d", e.Addr)
}

type ErrUnknownSignal struct {
	What string
}

func (e ErrUnknownSignal) Error() string {
	return fmt.Sprintf("Unknown signal: %s", e.What)
}
