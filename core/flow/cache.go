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
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/finchgp/bcxo/common"
	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/metrics"
)

const (
	// Section indexes are small compared to analyses, a few thousand
	// methods fit comfortably.
	indexCacheCap = 4096
)

var (
	cacheHitCounter  = metrics.NewRegisteredCounter("flow/cache/hit", nil)
	cacheMissCounter = metrics.NewRegisteredCounter("flow/cache/miss", nil)
)

type indexKey struct {
	hash      common.Hash
	hierarchy *bytecode.Hierarchy
	role      Role
}

// IndexCache memoizes section indexes by method fingerprint and role. A
// hit on an identical method analyzed separately against the same
// hierarchy returns a copy whose sections refer to the caller's analysis.
type IndexCache struct {
	cache *lru.Cache[indexKey, *SectionIndex]
}

// Global index cache instance
var indexCache *IndexCache

func init() {
	var err error
	if indexCache, err = NewIndexCache(indexCacheCap); err != nil {
		panic(err)
	}
}

// NewIndexCache creates a cache holding at most size indexes.
func NewIndexCache(size int) (*IndexCache, error) {
	c, err := lru.New[indexKey, *SectionIndex](size)
	if err != nil {
		return nil, err
	}
	return &IndexCache{cache: c}, nil
}

// SectionIndex returns the cached index of m for role, building it on a
// miss.
func (c *IndexCache) SectionIndex(m *bytecode.AnalyzedMethod, role Role) (*SectionIndex, error) {
	key := indexKey{hash: m.Fingerprint(), hierarchy: m.Hierarchy(), role: role}
	if x, ok := c.cache.Get(key); ok {
		cacheHitCounter.Inc(1)
		if x.method != m {
			x = x.rebind(m)
		}
		return x, nil
	}
	cacheMissCounter.Inc(1)
	x, err := BuildSectionIndex(m, role)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, x)
	return x, nil
}

// Remove drops the indexes of m for both roles.
func (c *IndexCache) Remove(m *bytecode.AnalyzedMethod) {
	for _, role := range []Role{RoleDestination, RoleSource} {
		c.cache.Remove(indexKey{hash: m.Fingerprint(), hierarchy: m.Hierarchy(), role: role})
	}
}

// Len returns the number of cached indexes.
func (c *IndexCache) Len() int {
	return c.cache.Len()
}

// CachedSectionIndex returns the index of m for role from the global cache.
func CachedSectionIndex(m *bytecode.AnalyzedMethod, role Role) (*SectionIndex, error) {
	return indexCache.SectionIndex(m, role)
}
