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
	"fmt"
	"strings"

	"github.com/finchgp/bcxo/common"
	"github.com/finchgp/bcxo/core/frame"
	"github.com/willf/bitset"
)

// FrameData describes the frame in force before an instruction together
// with the stack and local variable accesses the instruction performs.
type FrameData struct {
	Frame *frame.Frame

	// PopDepth is the number of stack slots the instruction consumes,
	// counting the extra copies of an object a constructor call initializes.
	PopDepth int
	Reads    []int
	Writes   []int
}

// AnalyzedMethod is a method together with the frame before each of its
// instructions and its control flow successors. Unreachable instructions
// have a nil frame.
type AnalyzedMethod struct {
	*Method

	hierarchy   *Hierarchy
	frames      []*frame.Frame
	data        []*FrameData
	next        [][]int
	labelNext   [][]int
	params      *FrameData
	fingerprint common.Hash
}

// Analyze derives per-instruction frames by abstract interpretation from
// the method entry. Types meeting at a join point are merged with h.Join,
// or collapse to Bogus on mismatch when h is nil.
func Analyze(m *Method, h *Hierarchy) (*AnalyzedMethod, error) {
	if m.labels == nil {
		if err := m.bindLabels(); err != nil {
			return nil, fmt.Errorf("%s: %w", m.FullName(), err)
		}
	}
	params, err := m.ParameterTypes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.FullName(), err)
	}
	am := &AnalyzedMethod{
		Method:    m,
		hierarchy: h,
		frames:    make([]*frame.Frame, m.Len()),
		data:      make([]*FrameData, m.Len()),
	}
	writes := make([]int, len(params))
	for i := range writes {
		writes[i] = i
	}
	am.params = &FrameData{Frame: frame.NewFrame(nil, params), Writes: writes}

	if err := am.successors(); err != nil {
		return nil, fmt.Errorf("%s: %w", m.FullName(), err)
	}
	if m.Len() > 0 {
		if err := am.propagate(am.params.Frame.Clone()); err != nil {
			return nil, fmt.Errorf("%s: %w", m.FullName(), err)
		}
	}
	// Pseudo-instructions the walk never reached take the frame of what
	// follows them.
	for i := m.Len() - 2; i >= 0; i-- {
		if am.frames[i] == nil && m.Instructions[i].IsPseudo() {
			am.frames[i] = am.frames[i+1]
		}
	}
	for i := range m.Instructions {
		if f := am.frames[i]; f != nil {
			am.data[i] = frameData(&m.Instructions[i], f)
		}
	}
	am.fingerprint = fingerprint(m)
	return am, nil
}

func (am *AnalyzedMethod) successors() error {
	n := am.Len()
	am.next = make([][]int, n)
	am.labelNext = make([][]int, n)
	for i := range am.Instructions {
		in := &am.Instructions[i]
		var targets []int
		for _, l := range in.BranchTargets() {
			idx, _ := am.LabelIndex(l)
			targets = appendUnique(targets, idx)
		}
		switch {
		case in.Op == GOTO:
			am.next[i] = targets
			am.labelNext[i] = targets
		case in.Op.IsConditional():
			if i+1 >= n {
				return fmt.Errorf("%w: %s at index %d falls off the end", ErrNoReturn, in.Op, i)
			}
			am.next[i] = appendUnique([]int{i + 1}, targets...)
			am.labelNext[i] = targets
		case in.Op.IsReturn() || in.Op == ATHROW:
		case in.Kind == KindTableSwitch || in.Kind == KindLookupSwitch:
			am.next[i] = targets
			am.labelNext[i] = targets
		case i == n-1:
			if !in.IsPseudo() {
				return fmt.Errorf("%w: %s at index %d falls off the end", ErrNoReturn, in.Op, i)
			}
		default:
			am.next[i] = []int{i + 1}
		}
	}
	return nil
}

func appendUnique(s []int, vs ...int) []int {
outer:
	for _, v := range vs {
		for _, x := range s {
			if x == v {
				continue outer
			}
		}
		s = append(s, v)
	}
	return s
}

// propagate runs the worklist until the frames reach a fixpoint.
func (am *AnalyzedMethod) propagate(entry *frame.Frame) error {
	var join frame.JoinFunc = frame.Unify
	if am.hierarchy != nil {
		join = am.hierarchy.Join
	}
	am.frames[0] = entry
	worklist := []int{0}
	inWorklist := bitset.New(uint(am.Len()))
	inWorklist.Set(0)

	for len(worklist) > 0 {
		curr := worklist[0]
		worklist = worklist[1:]
		inWorklist.Clear(uint(curr))

		out := am.frames[curr]
		if !am.Instructions[curr].IsPseudo() {
			var err error
			if out, err = am.execute(curr, out); err != nil {
				return fmt.Errorf("index %d (%s): %w", curr, &am.Instructions[curr], err)
			}
		}
		for _, succ := range am.next[curr] {
			old := am.frames[succ]
			merged, err := frame.Join(old, out, join)
			if err != nil {
				return fmt.Errorf("index %d: %w", succ, err)
			}
			if old != nil && old.Equal(merged) {
				continue
			}
			am.frames[succ] = merged
			if !inWorklist.Test(uint(succ)) {
				worklist = append(worklist, succ)
				inWorklist.Set(uint(succ))
			}
		}
	}
	return nil
}

func frameData(in *Instruction, f *frame.Frame) *FrameData {
	d := &FrameData{Frame: f}
	if in.IsPseudo() {
		return d
	}
	d.PopDepth = popDepth(in, f)
	switch in.Op {
	case IINC:
		d.Reads = []int{in.Var}
		d.Writes = []int{in.Var}
	case LLOAD, DLOAD:
		d.Reads = []int{in.Var, in.Var + 1}
	case ILOAD, FLOAD, ALOAD:
		d.Reads = []int{in.Var}
	case LSTORE, DSTORE:
		d.Writes = []int{in.Var, in.Var + 1}
	case ISTORE, FSTORE, ASTORE:
		d.Writes = []int{in.Var}
	}
	return d
}

func popDepth(in *Instruction, f *frame.Frame) int {
	switch in.Op {
	case INVOKEVIRTUAL, INVOKEINTERFACE, INVOKESPECIAL, INVOKESTATIC:
		mt, err := ParseMethodDescriptor(in.Desc)
		if err != nil {
			return 0
		}
		d := mt.ArgumentSlots()
		if in.Op == INVOKESTATIC {
			return d
		}
		d++
		if in.Op == INVOKESPECIAL && in.Name == "<init>" && d <= len(f.Stack) {
			// Every copy of the receiver is replaced by the initialized
			// type, so the pops reach down to its first occurrence.
			recv := f.Stack[len(f.Stack)-d]
			for k, t := range f.Stack {
				if t == recv {
					d = len(f.Stack) - k
					break
				}
			}
		}
		return d
	case PUTFIELD:
		return 1 + DescriptorSlots(in.Desc)
	case PUTSTATIC:
		return DescriptorSlots(in.Desc)
	case MULTIANEWARRAY:
		return in.Operand
	}
	return opTable[in.Op].pops
}

func fingerprint(m *Method) common.Hash {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s.%s%s static=%t\n", m.Owner, m.Name, m.Desc, m.Static)
	for i := range m.Instructions {
		sb.WriteString(m.Instructions[i].String())
		sb.WriteByte('\n')
	}
	return common.Keccak256Hash([]byte(sb.String()))
}

// Hierarchy returns the class hierarchy the method was analyzed against.
func (am *AnalyzedMethod) Hierarchy() *Hierarchy { return am.hierarchy }

// FrameAt returns the frame before instruction i, nil if unreachable.
func (am *AnalyzedMethod) FrameAt(i int) *frame.Frame { return am.frames[i] }

// DataAt returns the frame data of instruction i, nil if unreachable.
func (am *AnalyzedMethod) DataAt(i int) *FrameData { return am.data[i] }

// ParametersFrame returns the frame data of the method entry: an empty stack and
// locals holding the receiver and arguments, all of them written.
func (am *AnalyzedMethod) ParametersFrame() *FrameData { return am.params }

// Next returns the indexes control may flow to after instruction i.
func (am *AnalyzedMethod) Next(i int) []int { return am.next[i] }

// LabelNext returns the jump and switch targets of instruction i.
func (am *AnalyzedMethod) LabelNext(i int) []int { return am.labelNext[i] }

// Fingerprint identifies the method by signature and instruction text.
func (am *AnalyzedMethod) Fingerprint() common.Hash { return am.fingerprint }

// IndexBeforeReturn returns the index of the instruction preceding the
// final return, which is the last index a crossover section may cover.
func (am *AnalyzedMethod) IndexBeforeReturn() (int, error) {
	return IndexBeforeReturn(am.Method)
}

// IndexBeforeReturn locates the last instruction before the trailing
// return of m. A trailing label after the return is allowed.
func IndexBeforeReturn(m *Method) (int, error) {
	last := m.Len() - 1
	if last >= 0 && m.Instructions[last].Kind == KindLabel {
		if last >= 1 && m.Instructions[last-1].Op.IsReturn() {
			return last - 2, nil
		}
	}
	if last >= 0 && m.Instructions[last].Op.IsReturn() {
		return last - 1, nil
	}
	return 0, fmt.Errorf("%s: %w", m.FullName(), ErrNoReturn)
}
