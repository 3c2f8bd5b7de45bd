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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCache(t *testing.T) {
	t.Parallel()
	c, err := NewIndexCache(2)
	require.NoError(t, err)

	m := fact(t)
	hits, misses := cacheHitCounter.Count(), cacheMissCounter.Count()

	x1, err := c.SectionIndex(m, RoleSource)
	require.NoError(t, err)
	x2, err := c.SectionIndex(m, RoleSource)
	require.NoError(t, err)
	assert.Same(t, x1, x2)

	x3, err := c.SectionIndex(m, RoleDestination)
	require.NoError(t, err)
	assert.NotSame(t, x1, x3)
	assert.Equal(t, 126, x3.Len())
	assert.Equal(t, 2, c.Len())

	assert.GreaterOrEqual(t, cacheHitCounter.Count()-hits, int64(1))
	assert.GreaterOrEqual(t, cacheMissCounter.Count()-misses, int64(2))

	c.Remove(m)
	assert.Equal(t, 0, c.Len())

	_, err = NewIndexCache(0)
	assert.Error(t, err)
}

func TestCachedSectionIndex(t *testing.T) {
	t.Parallel()
	x, err := CachedSectionIndex(factLong(t), RoleSource)
	require.NoError(t, err)
	assert.Equal(t, 127, x.Len())
	assert.Equal(t, RoleSource, x.Role())
	assert.Equal(t, "FactLong.fact(J)J", x.Name())
}

func TestIndexCacheRebindsSections(t *testing.T) {
	t.Parallel()
	c, err := NewIndexCache(4)
	require.NoError(t, err)

	// Two analyses of the same code share one cache entry.
	m1 := analyzeSource(t, "(I)I", true, loopSwitch)
	m2 := analyzeSource(t, "(I)I", true, loopSwitch)
	require.NotSame(t, m1, m2)
	require.Equal(t, m1.Fingerprint(), m2.Fingerprint())

	x1, err := c.SectionIndex(m1, RoleDestination)
	require.NoError(t, err)
	x2, err := c.SectionIndex(m2, RoleDestination)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	assert.Same(t, m1, x1.Method())
	assert.Same(t, m2, x2.Method())
	assert.Equal(t, x1.Len(), x2.Len())
	assert.Equal(t, x1.Sizes(), x2.Sizes())
	x2.Each(func(s CodeSection) bool {
		assert.Same(t, m2, s.Method, "%v", s)
		if s.Start < m2.Len() {
			assert.Same(t, m2.FrameAt(s.Start), s.Entry, "%v", s)
		}
		return true
	})
	x1.Each(func(s CodeSection) bool {
		assert.Same(t, m1, s.Method, "%v", s)
		return true
	})

	// The same analysis gets the cached index back.
	x3, err := c.SectionIndex(m1, RoleDestination)
	require.NoError(t, err)
	assert.Same(t, x1, x3)
}
