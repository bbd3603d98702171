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

package bram

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseWords reads whitespace separated 32-bit words, decimal or 0x prefixed
// hexadecimal. Text after # is a comment.
func ParseWords(r io.Reader) ([]uint32, error) {
	var words []uint32
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		for _, field := range strings.Fields(text) {
			v, err := strconv.ParseUint(field, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			words = append(words, uint32(v))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) > Depth {
		return nil, fmt.Errorf("%d words do not fit %d", len(words), Depth)
	}
	return words, nil
}
