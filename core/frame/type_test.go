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

package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedTypeSymbols(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code int
		want string
	}{
		{0, "T"},
		{1, "I"},
		{2, "F"},
		{3, "D"},
		{4, "J"},
		{5, "N"},
		{6, "U"},
		{-1, "X"},
	}
	seen := make(map[string]bool)
	for _, tt := range tests {
		typ, err := FromRaw(tt.code)
		require.NoError(t, err)
		assert.Equal(t, tt.want, typ.String())
		assert.False(t, seen[tt.want], "duplicate symbol %s", tt.want)
		seen[tt.want] = true
	}
	assert.Len(t, seen, 8)
}

func TestUnknownTypeCode(t *testing.T) {
	t.Parallel()
	for _, code := range []int{7, 8, -2, 100} {
		_, err := FromRaw(code)
		if !errors.Is(err, ErrUnknownType) {
			t.Errorf("code %d: have error %v, want %v", code, err, ErrUnknownType)
		}
	}
	_, err := FromRaw(3.5)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestFromRawReference(t *testing.T) {
	t.Parallel()
	typ, err := FromRaw("java/lang/String")
	require.NoError(t, err)
	assert.Equal(t, Ref("java/lang/String"), typ)
	assert.True(t, typ.IsReference())
	assert.False(t, typ.IsUninitialized())
}

func TestListString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "F java/lang/String", ListString([]Type{FloatType, Ref("java/lang/String")}))
	assert.Equal(t, "", ListString(nil))
}

func TestMapString(t *testing.T) {
	t.Parallel()
	m := map[int]Type{
		6: NullType,
		2: Ref("[[I"),
		4: LongType,
	}
	assert.Equal(t, "2:[[I 4:J 6:N", MapString(m))
	assert.Equal(t, "", MapString(map[int]Type{}))
}

func TestUnify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b, want Type
	}{
		{IntType, IntType, IntType},
		{LongType, LongType, LongType},
		{Ref("a/B"), Ref("a/B"), Ref("a/B")},
		{Ref("a/B"), Ref("a/C"), BogusType},
		{IntType, LongType, BogusType},
		{NullType, Ref("a/B"), BogusType},
		{TopType, IntType, BogusType},
		{BogusType, BogusType, BogusType},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Unify(tt.a, tt.b), "%v ~ %v", tt.a, tt.b)
		assert.Equal(t, tt.want, Unify(tt.b, tt.a), "%v ~ %v", tt.b, tt.a)
	}
}

func TestUninitialized(t *testing.T) {
	t.Parallel()
	u := Uninitialized(12, "java/lang/Integer")
	assert.True(t, u.IsUninitialized())
	assert.Equal(t, "java/lang/Integer", u.UninitializedClass())
	assert.Equal(t, "U/12/java/lang/Integer", u.String())
	assert.True(t, ThisType.IsUninitialized())
}

func TestJoin(t *testing.T) {
	t.Parallel()
	a := NewFrame([]Type{IntType}, []Type{Ref("Fact"), IntType, IntType})
	b := NewFrame([]Type{IntType}, []Type{Ref("Fact"), IntType})

	j, err := Join(a, b, nil)
	require.NoError(t, err)
	assert.Equal(t, "stack [I], vars [Fact I X]", j.String())

	same, err := Join(a, a.Clone(), nil)
	require.NoError(t, err)
	assert.True(t, same.Equal(a))

	only, err := Join(nil, b, nil)
	require.NoError(t, err)
	assert.True(t, only.Equal(b))

	_, err = Join(a, NewFrame(nil, nil), nil)
	assert.ErrorIs(t, err, ErrStackHeight)
}
