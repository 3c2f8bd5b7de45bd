// Copyright 2024 The bcxo Authors
// This file is part of the bcxo library.
//
// The bcxo library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The bcxo library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the bcxo library. If not, see <http://www.gnu.org/licenses/>.

package bytecode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClasses(t *testing.T) {
	t.Parallel()
	byName := loadFixtures(t)
	require.Len(t, byName, 5)

	fact := byName["Fact"]
	assert.Equal(t, ObjectClass, fact.Super)
	m := fact.FindMethod("fact", "(I)I")
	require.NotNil(t, m)
	assert.Equal(t, 18, m.Len())
	assert.Equal(t, "Fact.fact(I)I", m.FullName())

	shape := byName["Shape"]
	assert.True(t, shape.Interface)
	assert.Equal(t, []string{"Shape"}, byName["Circle"].Interfaces)
	assert.Equal(t, []Member{{Name: "radius", Desc: "D"}}, byName["Circle"].Fields)
}

func TestLoadClassesErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"no name", "super: Foo\n", ErrSyntax},
		{"bad opcode", "name: A\nmethods:\n  - name: m\n    desc: ()V\n    code: |\n      FROB\n      RETURN\n", ErrUnsupportedOpcode},
		{"unbound label", "name: A\nmethods:\n  - name: m\n    desc: ()V\n    code: |\n      GOTO nowhere\n", ErrUnknownLabel},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadClasses(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
	_, err := LoadClasses(strings.NewReader("name: [unterminated\n"))
	assert.Error(t, err)
}
