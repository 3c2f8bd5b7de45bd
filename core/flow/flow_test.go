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
	"testing"

	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/stretchr/testify/require"
)

const fixtureFile = "../bytecode/testdata/classes.yaml"

// loopSwitch has a backward branch, a switch and nested forward branches.
const loopSwitch = `
  iconst_0
  istore 1
loop:
  .frame
  iload 1
  bipush 10
  if_icmpge done
  iload 0
  tableswitch 0..2 [a b c] default next
a:
  .frame
  iinc 1 1
  goto next
b:
  .frame
  iinc 1 2
c:
  .frame
  iinc 1 3
  goto loop
next:
  .frame
  iinc 1 1
  goto loop
done:
  .frame
  iload 1
  ireturn
end:
`

func analyzeFixture(t *testing.T, class, name, desc string) *bytecode.AnalyzedMethod {
	t.Helper()
	classes, err := bytecode.LoadClassFile(fixtureFile)
	require.NoError(t, err)
	h := bytecode.NewHierarchy(classes...)
	for _, c := range classes {
		if c.Name != class {
			continue
		}
		m := c.FindMethod(name, desc)
		require.NotNil(t, m)
		am, err := bytecode.Analyze(m, h)
		require.NoError(t, err)
		return am
	}
	t.Fatalf("no class %s", class)
	return nil
}

func analyzeSource(t *testing.T, desc string, static bool, src string) *bytecode.AnalyzedMethod {
	t.Helper()
	m, err := bytecode.ParseMethodBody("Test", "m", desc, static, src)
	require.NoError(t, err)
	am, err := bytecode.Analyze(m, nil)
	require.NoError(t, err)
	return am
}

func fact(t *testing.T) *bytecode.AnalyzedMethod {
	return analyzeFixture(t, "Fact", "fact", "(I)I")
}

func factLong(t *testing.T) *bytecode.AnalyzedMethod {
	return analyzeFixture(t, "FactLong", "fact", "(J)J")
}
