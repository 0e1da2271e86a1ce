// Copyright 2026 The ccpp Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorAdvancedBy(t *testing.T) {
	testCases := []struct {
		lookAhead string
		expected  Cursor
	}{
		{"", Cursor{Line: 1, Column: 1}},
		{"abc", Cursor{Line: 1, Column: 4}},
		{"a\n", Cursor{Line: 2, Column: 1}},
		{"a\nbc", Cursor{Line: 2, Column: 3}},
		{"\n\n\n", Cursor{Line: 4, Column: 1}},
		{"żółć", Cursor{Line: 1, Column: 5}},
	}
	for _, tc := range testCases {
		t.Run(tc.lookAhead, func(t *testing.T) {
			assert.Equal(t, tc.expected, CursorInit.AdvancedBy(tc.lookAhead))
		})
	}
}

func TestCursorString(t *testing.T) {
	assert.Equal(t, "EOF", CursorEOF.String())
	assert.Equal(t, "3:7", Cursor{Line: 3, Column: 7}.String())
}
