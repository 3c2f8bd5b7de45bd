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
	"errors"
	"fmt"

	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/core/frame"
)

// ErrInvalidSection is returned for index ranges that do not fit the method.
var ErrInvalidSection = errors.New("invalid code section")

// CodeSection is the half-open instruction range [Start, End) of a method.
// Entry is the frame before Start and Exit the frame before End; either is
// nil when unreachable. An empty section (Start == End) marks an insertion
// point.
type CodeSection struct {
	Method *bytecode.AnalyzedMethod
	Start  int
	End    int
	Entry  *frame.Frame
	Exit   *frame.Frame
}

// NewCodeSection validates the range against m and captures its boundary
// frames.
func NewCodeSection(m *bytecode.AnalyzedMethod, start, end int) (CodeSection, error) {
	if start < 0 || start > end || end > m.Len() {
		return CodeSection{}, fmt.Errorf("%w: [%d,%d) in %d instructions", ErrInvalidSection, start, end, m.Len())
	}
	s := CodeSection{Method: m, Start: start, End: end}
	if start < m.Len() {
		s.Entry = m.FrameAt(start)
	}
	if end < m.Len() {
		s.Exit = m.FrameAt(end)
	}
	return s, nil
}

func (s CodeSection) rebind(m *bytecode.AnalyzedMethod) CodeSection {
	s.Method, s.Entry, s.Exit = m, nil, nil
	if s.Start < m.Len() {
		s.Entry = m.FrameAt(s.Start)
	}
	if s.End < m.Len() {
		s.Exit = m.FrameAt(s.End)
	}
	return s
}

// Size returns the number of instructions, pseudo-instructions included.
func (s CodeSection) Size() int { return s.End - s.Start }

// IsEmpty reports whether the section covers no instructions.
func (s CodeSection) IsEmpty() bool { return s.Start == s.End }

// Last returns the inclusive index of the last covered instruction, which
// is Start-1 for an empty section.
func (s CodeSection) Last() int { return s.End - 1 }

// Instructions returns the covered instructions.
func (s CodeSection) Instructions() []bytecode.Instruction {
	if s.Method == nil {
		return nil
	}
	return s.Method.Instructions[s.Start:s.End]
}

func (s CodeSection) String() string {
	if s.Method == nil {
		return fmt.Sprintf("[%d,%d)", s.Start, s.End)
	}
	return fmt.Sprintf("%s[%d,%d)", s.Method.FullName(), s.Start, s.End)
}
