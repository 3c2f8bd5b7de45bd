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
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/core/frame"
)

// FrameActions summarizes what a piece of code does to the operand stack
// and the local variables: how deep it pops, its net stack effect, the
// variables it may read before writing, the variables it may write and
// those it writes on every path.
//
// Sets are never mutated once an action is built.
type FrameActions struct {
	before *frame.Frame
	after  *frame.Frame

	stackDelta    int
	popDepth      int
	read          mapset.Set[int]
	written       mapset.Set[int]
	writtenAlways mapset.Set[int]
}

var emptyFrame = &frame.Frame{}

// EmptyActions is the action of an empty section.
var EmptyActions = &FrameActions{
	before:        emptyFrame,
	after:         emptyFrame,
	read:          newVarSet(),
	written:       newVarSet(),
	writtenAlways: newVarSet(),
}

func newVarSet(vars ...int) mapset.Set[int] {
	return mapset.NewThreadUnsafeSet[int](vars...)
}

// NewFrameActions builds the action of a single instruction from the data
// before it and the data before one of its successors.
func NewFrameActions(before, after *bytecode.FrameData) *FrameActions {
	written := newVarSet(before.Writes...)
	return &FrameActions{
		before:        before.Frame,
		after:         after.Frame,
		stackDelta:    len(after.Frame.Stack) - len(before.Frame.Stack),
		popDepth:      before.PopDepth,
		read:          newVarSet(before.Reads...),
		written:       written,
		writtenAlways: written,
	}
}

// combineActions appends next to the already combined actions of all the
// paths reaching it. formerNext is the result of an earlier combination at
// the same instruction, or nil; always-written variables only shrink across
// iterations. The result carries no frames.
func combineActions(sources []*FrameActions, next, formerNext *FrameActions) *FrameActions {
	if len(sources) == 0 {
		return &FrameActions{
			stackDelta:    next.stackDelta,
			popDepth:      next.popDepth,
			read:          next.read,
			written:       next.written,
			writtenAlways: next.writtenAlways,
		}
	}
	c := &FrameActions{
		stackDelta: sources[0].stackDelta + next.stackDelta,
		popDepth:   -1,
	}
	for _, first := range sources {
		// All paths agree on the stack height, so the deltas match.
		c.popDepth = max(c.popDepth, first.popDepth, next.popDepth-first.stackDelta)
	}

	read := sources[0].read.Clone()
	always := sources[0].writtenAlways.Clone()
	for _, first := range sources[1:] {
		read = read.Union(first.read)
		always = always.Intersect(first.writtenAlways)
	}
	if formerNext != nil {
		always = always.Intersect(formerNext.writtenAlways)
	}
	c.read = read.Union(next.read.Difference(always))
	c.writtenAlways = always.Union(next.writtenAlways)

	written := next.written.Clone()
	for _, first := range sources {
		written = written.Union(first.written)
	}
	c.written = written
	return c
}

// equalAccesses reports whether both actions pop as deep and touch the same
// variables.
func (a *FrameActions) equalAccesses(o *FrameActions) bool {
	if o == nil {
		return false
	}
	return a.popDepth == o.popDepth &&
		a.read.Equal(o.read) &&
		a.written.Equal(o.written) &&
		a.writtenAlways.Equal(o.writtenAlways)
}

// withFrames returns a copy of a bound to the frames around the code it
// summarizes.
func (a *FrameActions) withFrames(before, after *frame.Frame) *FrameActions {
	c := *a
	c.before, c.after = before, after
	return &c
}

// PopDepth returns the number of stack slots below the entry height the
// code reaches.
func (a *FrameActions) PopDepth() int { return a.popDepth }

// StackDelta returns the net change of the stack height.
func (a *FrameActions) StackDelta() int { return a.stackDelta }

// EntryHeight returns the stack height before the code. It is 0 for
// EmptyActions, which is bound to no frame.
func (a *FrameActions) EntryHeight() int { return len(a.before.Stack) }

// StackPops returns the entry stack slots consumed, at least minDepth deep.
// It returns nil if the entry stack is not that deep.
func (a *FrameActions) StackPops(minDepth int) []frame.Type {
	depth := max(a.popDepth, minDepth)
	if depth > len(a.before.Stack) {
		return nil
	}
	return a.before.Stack[len(a.before.Stack)-depth:]
}

// StackPushes returns the exit stack slots produced above the consumed
// ones, at least minDepth deep.
func (a *FrameActions) StackPushes(minDepth int) []frame.Type {
	depth := max(a.popDepth, minDepth)
	from := len(a.before.Stack) - depth
	if depth > len(a.before.Stack) || from > len(a.after.Stack) {
		return nil
	}
	return a.after.Stack[from:]
}

// VarsRead maps the variables read before written to their entry types.
func (a *FrameActions) VarsRead() map[int]frame.Type {
	return varsToMap(a.read, a.before.Locals)
}

// VarsWritten maps the variables possibly written to their exit types.
func (a *FrameActions) VarsWritten() map[int]frame.Type {
	return varsToMap(a.written, a.after.Locals)
}

// VarsWrittenAlways maps the variables written on every path to their exit
// types.
func (a *FrameActions) VarsWrittenAlways() map[int]frame.Type {
	return varsToMap(a.writtenAlways, a.after.Locals)
}

// varsToMap types each variable by locals. Variables past the locals are
// Top, and a Top that is not the upper half of a long or double becomes
// Bogus.
func varsToMap(vars mapset.Set[int], locals []frame.Type) map[int]frame.Type {
	keys := vars.ToSlice()
	sort.Ints(keys)
	m := make(map[int]frame.Type, len(keys))
	for i, v := range keys {
		t := frame.TopType
		if v < len(locals) {
			t = locals[v]
		}
		if t == frame.TopType {
			wideHalf := i > 0 && keys[i-1] == v-1 && m[v-1].IsWide()
			if !wideHalf {
				t = frame.BogusType
			}
		}
		m[v] = t
	}
	return m
}

func (a *FrameActions) String() string {
	var sb strings.Builder
	line := func(label, value string) {
		sb.WriteString(label)
		sb.WriteString(value)
		sb.WriteByte('\n')
	}
	if pops := a.StackPops(0); len(pops) > 0 {
		line("stack pops:    ", frame.ListString(pops))
	}
	if pushes := a.StackPushes(0); len(pushes) > 0 {
		line("stack pushes:  ", frame.ListString(pushes))
	}
	if read := a.VarsRead(); len(read) > 0 {
		line("vars read:     ", frame.MapString(read))
	}
	if always := a.VarsWrittenAlways(); len(always) > 0 {
		line("vars written!: ", frame.MapString(always))
	}
	if !a.written.Equal(a.writtenAlways) {
		line("vars written:  ", frame.MapString(a.VarsWritten()))
	}
	if sb.Len() == 0 {
		line("Empty frame action", "")
	}
	return sb.String()
}
