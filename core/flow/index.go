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
	"time"

	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/metrics"
)

var indexTimer = metrics.NewRegisteredTimer("flow/index", nil)

// SectionIndex holds the legal sections of one method and role, grouped by
// size. Sizes are ascending and always start with 0, since the empty
// section at index 0 is legal for every method.
type SectionIndex struct {
	method *bytecode.AnalyzedMethod
	name   string
	role   Role
	sizes  []int
	bySize map[int][]CodeSection
	total  int
}

func newSectionIndex(m *bytecode.AnalyzedMethod, role Role, sections []CodeSection) *SectionIndex {
	x := &SectionIndex{
		method: m,
		name:   m.FullName(),
		role:   role,
		bySize: make(map[int][]CodeSection),
		total:  len(sections),
	}
	for _, s := range sections {
		size := s.Size()
		if _, ok := x.bySize[size]; !ok {
			x.sizes = append(x.sizes, size)
		}
		x.bySize[size] = append(x.bySize[size], s)
	}
	sort.Ints(x.sizes)
	return x
}

// BuildSectionIndex analyzes the branches of m and indexes the sections
// legal for the given role.
func BuildSectionIndex(m *bytecode.AnalyzedMethod, role Role) (*SectionIndex, error) {
	start := time.Now()
	defer indexTimer.UpdateSince(start)

	a, err := NewBranchAnalyzer(m, role)
	if err != nil {
		return nil, err
	}
	return a.Index(), nil
}

// rebind returns a copy of x whose sections refer to m, an analysis of the
// same code.
func (x *SectionIndex) rebind(m *bytecode.AnalyzedMethod) *SectionIndex {
	c := &SectionIndex{
		method: m,
		name:   x.name,
		role:   x.role,
		sizes:  x.sizes,
		bySize: make(map[int][]CodeSection, len(x.bySize)),
		total:  x.total,
	}
	for size, sections := range x.bySize {
		rebound := make([]CodeSection, len(sections))
		for i, s := range sections {
			rebound[i] = s.rebind(m)
		}
		c.bySize[size] = rebound
	}
	return c
}

// Method returns the analysis the sections refer to.
func (x *SectionIndex) Method() *bytecode.AnalyzedMethod { return x.method }

// Name returns the full name of the indexed method.
func (x *SectionIndex) Name() string { return x.name }

// Role returns the role the sections are legal for.
func (x *SectionIndex) Role() Role { return x.role }

// Sizes returns the distinct section sizes in ascending order.
func (x *SectionIndex) Sizes() []int { return x.sizes }

// Sections returns the sections of the given size in enumeration order.
func (x *SectionIndex) Sections(size int) []CodeSection { return x.bySize[size] }

// Len returns the total number of sections.
func (x *SectionIndex) Len() int { return x.total }

// MaxSize returns the size of the largest section.
func (x *SectionIndex) MaxSize() int {
	if len(x.sizes) == 0 {
		return 0
	}
	return x.sizes[len(x.sizes)-1]
}

// Each calls fn for every section by ascending size until fn returns false.
func (x *SectionIndex) Each(fn func(CodeSection) bool) {
	for _, size := range x.sizes {
		for _, s := range x.bySize[size] {
			if !fn(s) {
				return
			}
		}
	}
}
