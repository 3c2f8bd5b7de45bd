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
	"testing"

	"github.com/stretchr/testify/require"
)

func loadFixtures(t *testing.T) map[string]*Class {
	t.Helper()
	classes, err := LoadClassFile("testdata/classes.yaml")
	require.NoError(t, err)
	byName := make(map[string]*Class, len(classes))
	for _, c := range classes {
		byName[c.Name] = c
	}
	return byName
}

func fixtureMethod(t *testing.T, class, name, desc string) (*Method, *Hierarchy) {
	t.Helper()
	byName := loadFixtures(t)
	var all []*Class
	for _, c := range byName {
		all = append(all, c)
	}
	c, ok := byName[class]
	require.True(t, ok, "no class %s", class)
	m := c.FindMethod(name, desc)
	require.NotNil(t, m, "no method %s.%s%s", class, name, desc)
	return m, NewHierarchy(all...)
}
