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
	"fmt"

	"github.com/finchgp/bcxo/core/bytecode"
)

// Role selects which branches delimit the legal sections of a method.
type Role int

const (
	// RoleDestination admits sections no outside branch jumps into. These
	// are the sections a crossover may remove.
	RoleDestination Role = iota
	// RoleSource admits sections no inside branch jumps out of. These are
	// the sections a crossover may insert.
	RoleSource
)

func (r Role) String() string {
	switch r {
	case RoleDestination:
		return "destination"
	case RoleSource:
		return "source"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// BranchAnalyzer enumerates the code sections of a method that are closed
// under its branches. Only instructions before the trailing return take
// part; the return itself is never covered.
type BranchAnalyzer struct {
	method *bytecode.AnalyzedMethod
	role   Role

	// offsets[i] is the furthest index a range starting at i must reach to
	// contain every branch it starts; backOffsets[i] the earliest index a
	// range containing i must start at.
	offsets     []int
	backOffsets []int
}

// NewBranchAnalyzer computes the aggregated branch offsets of m.
func NewBranchAnalyzer(m *bytecode.AnalyzedMethod, role Role) (*BranchAnalyzer, error) {
	last, err := m.IndexBeforeReturn()
	if err != nil {
		return nil, err
	}
	n := last + 1
	offsets := make([]int, n)
	backOffsets := make([]int, n)
	for i := range offsets {
		offsets[i] = i
		backOffsets[i] = i
	}
	for i := 0; i < n; i++ {
		for _, branch := range m.LabelNext(i) {
			from, to := i, branch
			if role == RoleDestination {
				from, to = branch, i
			}
			if from >= n || to >= n {
				return nil, fmt.Errorf("%w: %s branch %d -> %d leaves [0,%d)", ErrInvalidSection, m.FullName(), i, branch, n)
			}
			offsets[from] = max(offsets[from], to)
			backOffsets[from] = min(backOffsets[from], to)
		}
	}
	aggregateForward(offsets)
	aggregateBackward(backOffsets)

	return &BranchAnalyzer{
		method:      m,
		role:        role,
		offsets:     offsets,
		backOffsets: backOffsets,
	}, nil
}

// aggregateForward rewrites offsets so that offsets[i] is the smallest
// index >= i such that no cell in between points further. Negative cells
// stand for "no branch". Runs in linear time.
func aggregateForward(offsets []int) {
	for i := 0; i < len(offsets); i++ {
		aggregateIndexes(i, offsets, 1)
		i = offsets[i]
	}
}

// aggregateBackward is aggregateForward for backward offsets.
func aggregateBackward(offsets []int) {
	for i := len(offsets) - 1; i >= 0; i-- {
		aggregateIndexes(i, offsets, -1)
		i = offsets[i]
	}
}

func aggregateIndexes(index int, offsets []int, inc int) {
	next := offsets[index]
	if next < 0 {
		offsets[index] = index
		return
	}
	// Walk the nested regions until leaving the outer one.
	runner := index + inc
	for runner*inc <= next*inc {
		aggregateIndexes(runner, offsets, inc)
		runner = offsets[runner] + inc
	}
	offsets[index] = runner - inc
}

// extendRange grows the inclusive range [start,end] to the next legal end,
// returning -1 when the range cannot grow or a branch reaches before start.
func extendRange(start, end int, offsets, backOffsets []int) int {
	if end+1 >= len(offsets) {
		return -1
	}
	newEnd := offsets[end+1]
	for i := end + 1; i <= newEnd; i++ {
		if backOffsets[i] < start {
			return -1
		}
	}
	return newEnd
}

// each calls fn with every legal inclusive range in enumeration order: for
// each start, the empty range first, then every legal extension. The
// empty range past the last index closes the enumeration.
func (a *BranchAnalyzer) each(fn func(start, end int)) {
	n := len(a.offsets)
	start, end := 0, -1
	fn(start, end)
	for start < n {
		end = extendRange(start, end, a.offsets, a.backOffsets)
		if end == -1 {
			end = start
			start++
		}
		fn(start, end)
	}
}

// Sections returns every legal section in enumeration order.
func (a *BranchAnalyzer) Sections() []CodeSection {
	var out []CodeSection
	a.each(func(start, end int) {
		s, err := NewCodeSection(a.method, start, end+1)
		if err != nil {
			panic(err) // ranges are bounded by the index before return
		}
		out = append(out, s)
	})
	return out
}

// Index groups the legal sections by size.
func (a *BranchAnalyzer) Index() *SectionIndex {
	return newSectionIndex(a.method, a.role, a.Sections())
}

// BranchesCount returns the number of branches leaving instructions of s,
// whatever the analyzer role.
func (a *BranchAnalyzer) BranchesCount(s CodeSection) int {
	n := 0
	for i := s.Start; i < s.End; i++ {
		n += len(a.method.LabelNext(i))
	}
	return n
}

// Role returns the role the analyzer was built for.
func (a *BranchAnalyzer) Role() Role { return a.role }

// Method returns the analyzed method.
func (a *BranchAnalyzer) Method() *bytecode.AnalyzedMethod { return a.method }

// Name returns the full name of the analyzed method.
func (a *BranchAnalyzer) Name() string { return a.method.FullName() }
