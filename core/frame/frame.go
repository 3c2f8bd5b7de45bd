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

package frame

import (
	"errors"
	"fmt"
)

// ErrStackHeight is returned when two frames meeting at a join point have
// operand stacks of different heights.
var ErrStackHeight = errors.New("inconsistent stack height")

// JoinFunc merges two slot types arriving at the same program point.
type JoinFunc func(a, b Type) Type

// Frame is the abstract state before an instruction. Long and double values
// take two slots, the second of which is Top.
type Frame struct {
	Stack  []Type
	Locals []Type
}

// NewFrame returns a frame with copies of the given slices.
func NewFrame(stack, locals []Type) *Frame {
	return &Frame{
		Stack:  append([]Type(nil), stack...),
		Locals: append([]Type(nil), locals...),
	}
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	return NewFrame(f.Stack, f.Locals)
}

// Local returns the type of local slot i, Top when the slot is beyond the
// tracked locals.
func (f *Frame) Local(i int) Type {
	if i < len(f.Locals) {
		return f.Locals[i]
	}
	return TopType
}

// Equal reports whether both frames hold identical slots.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	return equalTypes(f.Stack, o.Stack) && equalTypes(trimTop(f.Locals), trimTop(o.Locals))
}

func (f *Frame) String() string {
	if f == nil {
		return "<unreachable>"
	}
	return fmt.Sprintf("stack [%s], vars [%s]", ListString(f.Stack), ListString(f.Locals))
}

// Join merges two frames slot by slot. A nil frame stands for "not yet
// reached" and yields a copy of the other one. Stack heights must agree.
func Join(a, b *Frame, join JoinFunc) (*Frame, error) {
	if a == nil {
		if b == nil {
			return nil, nil
		}
		return b.Clone(), nil
	}
	if b == nil {
		return a.Clone(), nil
	}
	if len(a.Stack) != len(b.Stack) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrStackHeight, len(a.Stack), len(b.Stack))
	}
	if join == nil {
		join = Unify
	}
	out := &Frame{Stack: make([]Type, len(a.Stack))}
	for i := range a.Stack {
		out.Stack[i] = join(a.Stack[i], b.Stack[i])
	}
	n := len(a.Locals)
	if len(b.Locals) > n {
		n = len(b.Locals)
	}
	out.Locals = make([]Type, n)
	for i := 0; i < n; i++ {
		out.Locals[i] = join(a.Local(i), b.Local(i))
	}
	return out, nil
}

func equalTypes(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// trimTop drops trailing Top slots, which carry no information.
func trimTop(ts []Type) []Type {
	for len(ts) > 0 && ts[len(ts)-1] == TopType {
		ts = ts[:len(ts)-1]
	}
	return ts
}
