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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerFact(t *testing.T) {
	t.Parallel()
	h, fact, _ := factPair(t)
	c, err := NewChecker(fact, fact, NewTypeVerifier(h))
	require.NoError(t, err)
	assert.Same(t, fact, c.Destination())
	assert.Same(t, fact, c.Source())

	tests := []struct {
		name               string
		alpha, beta        [2]int
		stack, locals, all bool
		reasons            []string
	}{
		{
			// fact(n-1) call replaced by a load of the accumulator.
			name:  "call by load",
			alpha: [2]int{6, 11}, beta: [2]int{15, 16},
			stack: true, locals: true, all: true,
		},
		{
			// IMUL needs two ints the call site does not provide.
			name:  "call by multiply",
			alpha: [2]int{6, 11}, beta: [2]int{11, 12},
			stack: false, locals: true, all: false,
			reasons: []string{ReasonPopDepth},
		},
		{
			// Dropping the initialization of the accumulator leaves the
			// final load unassigned.
			name:  "drop initialization",
			alpha: [2]int{0, 3}, beta: [2]int{0, 0},
			stack: true, locals: false, all: false,
			reasons: []string{ReasonLaterReads},
		},
		{
			name:  "empty by empty",
			alpha: [2]int{0, 0}, beta: [2]int{0, 0},
			stack: true, locals: true, all: true,
		},
		{
			name:  "identity",
			alpha: [2]int{5, 13}, beta: [2]int{5, 13},
			stack: true, locals: true, all: true,
		},
	}
	for _, tt := range tests {
		alpha := section(t, fact, tt.alpha[0], tt.alpha[1])
		beta := section(t, fact, tt.beta[0], tt.beta[1])
		assert.Equal(t, tt.stack, c.StackCompatible(alpha, beta), tt.name)
		assert.Equal(t, tt.locals, c.LocalsCompatible(alpha, beta), tt.name)
		assert.True(t, c.MembersCompatible(alpha, beta), tt.name)
		assert.Equal(t, tt.all, c.IsCompatible(alpha, beta), tt.name)
		assert.Equal(t, tt.reasons, c.Explain(alpha, beta), tt.name)

		// Checks have no side effects.
		assert.Equal(t, tt.all, c.IsCompatible(alpha, beta), tt.name)
	}
}

func TestCheckerCrossClass(t *testing.T) {
	t.Parallel()
	h, fact, factLong := factPair(t)
	alpha := section(t, fact, 6, 7)        // ALOAD 0 as Fact
	beta := section(t, factLong, 8, 9)     // ALOAD 0 as FactLong
	call := section(t, factLong, 12, 13)   // INVOKEVIRTUAL FactLong.fact (J)J
	selfCall := section(t, fact, 10, 11)   // INVOKEVIRTUAL Fact.fact (I)I
	longLoad := section(t, factLong, 7, 8) // LLOAD 1

	// FactLong reads as Fact without the caller aliasing it.
	v := NewTypeVerifier(h)
	c, err := NewChecker(fact, factLong, v)
	require.NoError(t, err)
	assert.True(t, c.IsCompatible(alpha, beta))
	assert.Nil(t, c.Explain(alpha, beta))
	assert.Equal(t, "FactLong", v.Resolve("FactLong"))

	// A long does not fit where a reference was pushed.
	assert.False(t, c.StackCompatible(alpha, longLoad))

	// Fact has no fact(J)J.
	assert.False(t, c.MembersCompatible(alpha, call))
	assert.False(t, c.IsCompatible(alpha, call))
	reasons := c.Explain(alpha, call)
	require.NotEmpty(t, reasons)
	assert.Equal(t, ReasonUnresolvedMember+" FactLong.fact (J)J", reasons[len(reasons)-1])

	// An alias set by the caller wins.
	circle, err := NewChecker(fact, factLong, NewTypeVerifier(h).Alias("FactLong", "Circle"))
	require.NoError(t, err)
	assert.False(t, circle.IsCompatible(alpha, beta))
	assert.Equal(t, []string{ReasonPushes, ReasonSourceReads}, circle.Explain(alpha, beta))

	self, err := NewChecker(fact, fact, NewTypeVerifier(h))
	require.NoError(t, err)
	assert.True(t, self.MembersCompatible(alpha, selfCall))
}

func TestCheckerUnknownDestinationClass(t *testing.T) {
	t.Parallel()
	m := straightLine(t, "noop", 8)
	c, err := NewChecker(m, m, NewTypeVerifier(nil))
	require.NoError(t, err)

	alpha, beta := section(t, m, 1, 3), section(t, m, 2, 6)
	assert.True(t, c.IsCompatible(alpha, beta))
	assert.True(t, c.MembersCompatible(alpha, beta))
}
