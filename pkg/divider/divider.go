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

// Package divider produces the core tick enable from the system tick.
package divider

// Divider asserts its enable once every N+1 ticks. N = 0 bypasses division.
type Divider struct {
	count uint8
}

func New() *Divider {
	return &Divider{}
}

// Tick returns true when the divided tick fires on this system tick.
func (d *Divider) Tick(reset bool, n uint8) bool {
	if reset {
		d.count = 0
		return false
	}
	if d.count >= n {
		d.count = 0
		return true
	}
	d.count++
	return false
}
