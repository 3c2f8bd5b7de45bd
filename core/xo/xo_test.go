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
	"fmt"
	"strings"
	"testing"

	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/core/flow"
	"github.com/stretchr/testify/require"
)

const fixtureFile = "../bytecode/testdata/classes.yaml"

func loadHierarchy(t *testing.T) (*bytecode.Hierarchy, map[string]*bytecode.Class) {
	t.Helper()
	classes, err := bytecode.LoadClassFile(fixtureFile)
	require.NoError(t, err)
	byName := make(map[string]*bytecode.Class, len(classes))
	for _, c := range classes {
		byName[c.Name] = c
	}
	return bytecode.NewHierarchy(classes...), byName
}

func analyzeFixture(t *testing.T, h *bytecode.Hierarchy, class, name, desc string) *bytecode.AnalyzedMethod {
	t.Helper()
	c, ok := h.Lookup(class)
	require.True(t, ok, "no class %s", class)
	m := c.FindMethod(name, desc)
	require.NotNil(t, m, "no method %s.%s%s", class, name, desc)
	am, err := bytecode.Analyze(m, h)
	require.NoError(t, err)
	return am
}

// factPair returns Fact.fact(I)I and FactLong.fact(J)J analyzed against the
// fixture classes.
func factPair(t *testing.T) (*bytecode.Hierarchy, *bytecode.AnalyzedMethod, *bytecode.AnalyzedMethod) {
	t.Helper()
	h, _ := loadHierarchy(t)
	return h, analyzeFixture(t, h, "Fact", "fact", "(I)I"), analyzeFixture(t, h, "FactLong", "fact", "(J)J")
}

// straightLine builds a static method of n instructions: NOPs followed by
// RETURN. Every range of the NOPs is a legal section.
func straightLine(t *testing.T, name string, n int) *bytecode.AnalyzedMethod {
	t.Helper()
	src := strings.Repeat("nop\n", n-1) + "return\n"
	m, err := bytecode.ParseMethodBody("Synthetic", name, "()V", true, src)
	require.NoError(t, err)
	require.Equal(t, n, m.Len())
	am, err := bytecode.Analyze(m, nil)
	require.NoError(t, err)
	return am
}

// intChain builds Ints.chain(I)I, 224 instructions: a NOP, then 17 if/else
// blocks, block i deriving local i+1 from local i, then the return of
// local 17.
func intChain(t *testing.T) *bytecode.AnalyzedMethod {
	t.Helper()
	const blocks = 17
	var sb strings.Builder
	sb.WriteString("nop\n")
	for i := 0; i < blocks; i++ {
		fmt.Fprintf(&sb, "iload %d\nifeq else%d\n", i, i)
		fmt.Fprintf(&sb, "iload %d\niconst_1\niadd\nistore %d\ngoto end%d\n", i, i+1, i)
		fmt.Fprintf(&sb, "else%d:\niload %d\niconst_2\nisub\nistore %d\nend%d:\n", i, i, i+1, i)
	}
	fmt.Fprintf(&sb, "iload %d\nireturn\n", blocks)
	return analyzeBody(t, "Ints", "chain", "(I)I", sb.String(), 224)
}

// floatChain builds Floats.chain(F)F, 251 instructions: 16 if/else blocks
// comparing local i against zero, a straight-line block, then the return
// of local 17.
func floatChain(t *testing.T) *bytecode.AnalyzedMethod {
	t.Helper()
	const blocks = 16
	var sb strings.Builder
	for i := 0; i < blocks; i++ {
		fmt.Fprintf(&sb, "fload %d\nfconst_0\nfcmpl\nifeq else%d\n", i, i)
		fmt.Fprintf(&sb, "fload %d\nfconst_1\nfadd\nfstore %d\ngoto end%d\n", i, i+1, i)
		fmt.Fprintf(&sb, "else%d:\nfload %d\nfconst_2\nfsub\nfstore %d\nend%d:\n", i, i, i+1, i)
	}
	fmt.Fprintf(&sb, "fload %d\nfconst_2\nfmul\nfload %d\nfload %d\nfmul\nfadd\nfneg\nfstore %d\n",
		blocks, blocks, blocks, blocks+1)
	fmt.Fprintf(&sb, "fload %d\nfreturn\n", blocks+1)
	return analyzeBody(t, "Floats", "chain", "(F)F", sb.String(), 251)
}

func analyzeBody(t *testing.T, owner, name, desc, src string, n int) *bytecode.AnalyzedMethod {
	t.Helper()
	m, err := bytecode.ParseMethodBody(owner, name, desc, true, src)
	require.NoError(t, err)
	require.Equal(t, n, m.Len())
	am, err := bytecode.Analyze(m, nil)
	require.NoError(t, err)
	return am
}

func section(t *testing.T, m *bytecode.AnalyzedMethod, start, end int) flow.CodeSection {
	t.Helper()
	s, err := flow.NewCodeSection(m, start, end)
	require.NoError(t, err)
	return s
}
