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

package xo

import (
	"testing"

	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/core/frame"
	"github.com/stretchr/testify/assert"
)

func TestNarrowerThanPrimitives(t *testing.T) {
	t.Parallel()
	v := NewTypeVerifier(nil)
	object := frame.Ref(bytecode.ObjectClass)

	assert.True(t, v.IsNarrowerThan(frame.DoubleType, frame.DoubleType))
	assert.False(t, v.IsNarrowerThan(frame.DoubleType, frame.IntType))
	assert.False(t, v.IsNarrowerThan(frame.IntType, frame.DoubleType))
	assert.False(t, v.IsNarrowerThan(frame.IntType, object))
	assert.False(t, v.IsNarrowerThan(object, frame.IntType))
	assert.True(t, v.IsNarrowerThan(frame.BogusType, frame.BogusType))
	assert.False(t, v.IsNarrowerThan(frame.TopType, frame.BogusType))
}

func TestNarrowerThanNull(t *testing.T) {
	t.Parallel()
	v := NewTypeVerifier(nil)
	object := frame.Ref(bytecode.ObjectClass)

	assert.True(t, v.IsNarrowerThan(frame.NullType, object))
	assert.False(t, v.IsNarrowerThan(object, frame.NullType))
	assert.False(t, v.IsNarrowerThan(frame.NullType, frame.FloatType))
	assert.False(t, v.IsNarrowerThan(frame.FloatType, frame.NullType))
	assert.True(t, v.IsNarrowerThan(frame.NullType, frame.NullType))
}

func TestNarrowerThanUninitialized(t *testing.T) {
	t.Parallel()
	v := NewTypeVerifier(nil)
	object := frame.Uninitialized(3, bytecode.ObjectClass)
	integer := frame.Uninitialized(3, "java/lang/Integer")

	assert.True(t, v.IsNarrowerThan(object, object))
	assert.False(t, v.IsNarrowerThan(frame.NullType, object))
	assert.False(t, v.IsNarrowerThan(integer, object))
	assert.False(t, v.IsNarrowerThan(object, frame.Ref(bytecode.ObjectClass)))
	assert.True(t, v.IsNarrowerThan(frame.ThisType, frame.ThisType))
}

func TestNarrowerThanObjects(t *testing.T) {
	t.Parallel()
	h, _ := loadHierarchy(t)
	v := NewTypeVerifier(h)

	tests := []struct {
		a, b string
		want bool
	}{
		{"Circle", bytecode.ObjectClass, true},
		{bytecode.ObjectClass, "Circle", false},
		{"Circle", "Shape", true},
		{"Square", "Shape", true},
		{"Shape", "Circle", false},
		{"Square", "Circle", false},
		{"java/lang/String", "Shape", false},
		{"[[[LCircle;", "[[[Ljava/lang/Object;", true},
		{"[[[Ljava/lang/Object;", "[[[LCircle;", false},
		{"[[LCircle;", "[[[Ljava/lang/Object;", false},
		{"[[[Ljava/lang/Object;", "[[LCircle;", false},
		{"Unknown", bytecode.ObjectClass, true},
		{bytecode.ObjectClass, "Unknown", false},
	}
	for _, tt := range tests {
		got := v.IsNarrowerThan(frame.Ref(tt.a), frame.Ref(tt.b))
		assert.Equal(t, tt.want, got, "%s <= %s", tt.a, tt.b)
	}
}

func TestNarrowerThanList(t *testing.T) {
	t.Parallel()
	h, _ := loadHierarchy(t)
	v := NewTypeVerifier(h)

	wide := []frame.Type{frame.IntType, frame.Ref("Shape")}
	narrow := []frame.Type{frame.IntType, frame.Ref("Circle")}
	assert.True(t, v.ListNarrowerThan(narrow, wide))
	assert.False(t, v.ListNarrowerThan(wide, narrow))
	assert.True(t, v.ListNarrowerThan(nil, []frame.Type{}))
	assert.Panics(t, func() { v.ListNarrowerThan(nil, []frame.Type{frame.LongType}) })
}

func TestNarrowerThanMap(t *testing.T) {
	t.Parallel()
	h, _ := loadHierarchy(t)
	v := NewTypeVerifier(h)

	writes := map[int]frame.Type{1: frame.IntType, 3: frame.Ref("Circle"), 4: frame.Ref("Shape")}
	reads := map[int]frame.Type{1: frame.IntType, 3: frame.Ref("Shape"), 5: frame.Ref("Shape")}
	assert.True(t, v.MapNarrowerThan(writes, reads, false))
	assert.False(t, v.MapNarrowerThan(writes, reads, true))

	writes[5] = frame.NullType
	assert.True(t, v.MapNarrowerThan(writes, reads, false))
	assert.True(t, v.MapNarrowerThan(writes, reads, true))

	writes[1] = frame.FloatType
	assert.False(t, v.MapNarrowerThan(writes, reads, false))
}

func TestNarrowerThanAlias(t *testing.T) {
	t.Parallel()
	h, _ := loadHierarchy(t)
	fact, factLong := frame.Ref("Fact"), frame.Ref("FactLong")

	v := NewTypeVerifier(h)
	assert.False(t, v.IsNarrowerThan(fact, factLong))
	assert.False(t, v.IsNarrowerThan(factLong, fact))
	assert.Equal(t, "FactLong", v.Resolve("FactLong"))

	v = NewTypeVerifier(h).Alias("FactLong", "Fact")
	assert.True(t, v.IsNarrowerThan(fact, factLong))
	assert.True(t, v.IsNarrowerThan(factLong, fact))
	assert.Equal(t, "Fact", v.Resolve("FactLong"))
	assert.Same(t, h, v.Hierarchy())
}
