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
	"github.com/willf/bitset"
)

// CodeAccesses computes the combined frame actions of instruction ranges of
// one method by propagating per-instruction actions along control flow.
type CodeAccesses struct {
	method  *bytecode.AnalyzedMethod
	last    int
	actions []*FrameActions
	params  *FrameActions
}

// NewCodeAccesses prepares the per-instruction actions of m. An
// instruction has no action if it is unreachable, has no successor, or its
// first successor is unreachable.
func NewCodeAccesses(m *bytecode.AnalyzedMethod) (*CodeAccesses, error) {
	last, err := m.IndexBeforeReturn()
	if err != nil {
		return nil, err
	}
	ca := &CodeAccesses{
		method:  m,
		last:    last,
		actions: make([]*FrameActions, m.Len()),
	}
	for i := range ca.actions {
		before := m.DataAt(i)
		next := m.Next(i)
		if before == nil || len(next) == 0 {
			continue
		}
		first := next[0]
		for _, n := range next[1:] {
			first = min(first, n)
		}
		if after := m.DataAt(first); after != nil {
			ca.actions[i] = NewFrameActions(before, after)
		}
	}
	params := m.ParametersFrame()
	ca.params = NewFrameActions(params, params)
	return ca, nil
}

// Method returns the method the accesses are computed for.
func (ca *CodeAccesses) Method() *bytecode.AnalyzedMethod { return ca.method }

// ParametersActions returns the action of the implicit parameter writes on
// method entry.
func (ca *CodeAccesses) ParametersActions() *FrameActions { return ca.params }

// Tail returns the actions of the code from start up to the instruction
// before the trailing return.
func (ca *CodeAccesses) Tail(start int) (*FrameActions, error) {
	return ca.Section(start, ca.last+1, false)
}

// Head returns the actions of the code before start, counting the
// parameter writes on method entry.
func (ca *CodeAccesses) Head(end int) (*FrameActions, error) {
	return ca.Section(0, end, true)
}

// Section returns the combined actions of the instructions [start, end)
// along every path entering at start and leaving to end. With useParams the
// parameter writes are prepended, which requires start 0. It returns nil
// when the range cannot be entered or left: the frame at either boundary is
// unreachable, or end is not reachable from start without leaving the
// range early.
func (ca *CodeAccesses) Section(start, end int, useParams bool) (*FrameActions, error) {
	m := ca.method
	if start < 0 || start > end || end > m.Len() {
		return nil, fmt.Errorf("%w: [%d,%d) in %s", ErrInvalidSection, start, end, m.FullName())
	}
	if useParams && start != 0 {
		return nil, fmt.Errorf("%w: parameter writes need start 0, have %d", ErrInvalidSection, start)
	}
	if start == end {
		if useParams {
			return ca.params, nil
		}
		return EmptyActions, nil
	}
	if end == m.Len() {
		return nil, nil
	}
	before, after := m.DataAt(start), m.DataAt(end)
	if before == nil || after == nil {
		return nil, nil
	}

	var (
		last     = end - 1
		actions  = make([]*FrameActions, m.Len())
		incoming = make([]*bitset.BitSet, m.Len())
		queued   = bitset.New(uint(m.Len()))
		queue    = []int{start}
		exits    bool
	)
	queued.Set(uint(start))
	for len(queue) > 0 {
		index := queue[0]
		queue = queue[1:]
		queued.Clear(uint(index))

		next := ca.actions[index]
		if next == nil {
			continue
		}
		var sources []*FrameActions
		if in := incoming[index]; in != nil {
			for src, ok := in.NextSet(0); ok; src, ok = in.NextSet(src + 1) {
				sources = append(sources, actions[src])
			}
		}
		if useParams && index == start {
			sources = append(sources, ca.params)
		}
		combined := combineActions(sources, next, actions[index])
		if combined.equalAccesses(actions[index]) {
			continue
		}
		actions[index] = combined
		for _, dest := range m.Next(index) {
			if index == last && dest == end {
				exits = true
				continue
			}
			if incoming[dest] == nil {
				incoming[dest] = bitset.New(uint(m.Len()))
			}
			incoming[dest].Set(uint(index))
			if !queued.Test(uint(dest)) {
				queue = append(queue, dest)
				queued.Set(uint(dest))
			}
		}
	}
	if !exits {
		return nil, nil
	}
	return actions[last].withFrames(before.Frame, after.Frame), nil
}
