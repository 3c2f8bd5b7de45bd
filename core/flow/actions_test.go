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

package flow

import (
	"sort"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/finchgp/bcxo/core/frame"
	"github.com/stretchr/testify/assert"
)

func action(pop, delta int, read, written, always []int) *FrameActions {
	return &FrameActions{
		stackDelta:    delta,
		popDepth:      pop,
		read:          newVarSet(read...),
		written:       newVarSet(written...),
		writtenAlways: newVarSet(always...),
	}
}

func sorted(s mapset.Set[int]) []int {
	out := s.ToSlice()
	sort.Ints(out)
	if out == nil {
		out = []int{}
	}
	return out
}

func TestCombineActions(t *testing.T) {
	t.Parallel()
	s1 := action(1, 2, []int{1}, []int{2, 3}, []int{2, 3})
	s2 := action(0, 2, []int{4}, []int{3}, []int{3})
	next := action(3, -1, []int{2, 3, 5}, []int{6}, []int{6})

	c := combineActions([]*FrameActions{s1, s2}, next, nil)
	assert.Equal(t, 1, c.StackDelta())
	assert.Equal(t, 1, c.PopDepth())
	assert.Equal(t, []int{1, 2, 4, 5}, sorted(c.read))
	assert.Equal(t, []int{2, 3, 6}, sorted(c.written))
	assert.Equal(t, []int{3, 6}, sorted(c.writtenAlways))

	former := action(0, 0, nil, nil, []int{6})
	c = combineActions([]*FrameActions{s1, s2}, next, former)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, sorted(c.read))
	assert.Equal(t, []int{6}, sorted(c.writtenAlways))

	// Deeper pops in next reach below what the sources pushed.
	c = combineActions([]*FrameActions{action(0, 1, nil, nil, nil)}, action(3, -2, nil, nil, nil), nil)
	assert.Equal(t, 2, c.PopDepth())
	assert.Equal(t, -1, c.StackDelta())

	c = combineActions(nil, next, s1)
	assert.True(t, c.equalAccesses(next))
	assert.False(t, c.equalAccesses(nil))
	assert.False(t, c.equalAccesses(s1))
}

func TestCombineDoesNotMutate(t *testing.T) {
	t.Parallel()
	s1 := action(0, 0, []int{1}, []int{2}, []int{2})
	next := action(0, 0, []int{3}, []int{4}, []int{4})
	combineActions([]*FrameActions{s1}, next, nil)
	assert.Equal(t, []int{1}, sorted(s1.read))
	assert.Equal(t, []int{2}, sorted(s1.writtenAlways))
	assert.Equal(t, []int{4}, sorted(next.written))
}

func TestStackSlices(t *testing.T) {
	t.Parallel()
	a := action(1, 1, nil, nil, nil).withFrames(
		&frame.Frame{Stack: []frame.Type{frame.IntType, frame.FloatType}},
		&frame.Frame{Stack: []frame.Type{frame.IntType, frame.LongType, frame.TopType}},
	)
	assert.Equal(t, []frame.Type{frame.FloatType}, a.StackPops(0))
	assert.Equal(t, []frame.Type{frame.IntType, frame.FloatType}, a.StackPops(2))
	assert.Nil(t, a.StackPops(3))
	assert.Equal(t, []frame.Type{frame.LongType, frame.TopType}, a.StackPushes(0))
	assert.Equal(t, []frame.Type{frame.IntType, frame.LongType, frame.TopType}, a.StackPushes(2))
	assert.Nil(t, a.StackPushes(3))
	assert.Equal(t, 2, a.EntryHeight())
}

func TestVarsToMap(t *testing.T) {
	t.Parallel()
	locals := []frame.Type{frame.IntType, frame.LongType, frame.TopType, frame.TopType}
	got := varsToMap(newVarSet(0, 1, 2, 3, 5), locals)
	assert.Equal(t, "0:I 1:J 2:T 3:X 5:X", frame.MapString(got))

	got = varsToMap(newVarSet(2), locals)
	assert.Equal(t, "2:X", frame.MapString(got))
	assert.Empty(t, varsToMap(newVarSet(), locals))
}

func TestEmptyActions(t *testing.T) {
	t.Parallel()
	assert.Empty(t, EmptyActions.StackPops(0))
	assert.Empty(t, EmptyActions.StackPushes(0))
	assert.Empty(t, EmptyActions.VarsRead())
	assert.Zero(t, EmptyActions.EntryHeight())
	assert.Equal(t, "Empty frame action\n", EmptyActions.String())
}
