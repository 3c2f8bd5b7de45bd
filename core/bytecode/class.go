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

	"github.com/finchgp/bcxo/core/frame"
)

// ObjectClass is the root of every class hierarchy.
const ObjectClass = "java/lang/Object"

// Member is a declared field or method signature.
type Member struct {
	Name   string
	Desc   string
	Static bool
}

// Class is the metadata of one class together with its methods.
type Class struct {
	Name       string
	Super      string
	Interfaces []string
	Interface  bool
	Fields     []Member
	Methods    []*Method
}

// FindMethod returns the method with the given name and descriptor.
func (c *Class) FindMethod(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Desc == desc {
			return m
		}
	}
	return nil
}

func (c *Class) declaresField(name, desc string) bool {
	for _, f := range c.Fields {
		if f.Name == name && f.Desc == desc {
			return true
		}
	}
	return false
}

func (c *Class) declaresMethod(name, desc string) bool {
	return c.FindMethod(name, desc) != nil
}

// Method is an immutable instruction sequence with its signature.
type Method struct {
	Owner        string
	Name         string
	Desc         string
	Static       bool
	Instructions []Instruction

	labels map[Label]int
}

// FullName returns the dotted owner, the name and the descriptor.
func (m *Method) FullName() string {
	return fmt.Sprintf("%s.%s%s", dotted(m.Owner), m.Name, m.Desc)
}

func dotted(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c == '/' {
			b[i] = '.'
		}
	}
	return string(b)
}

// Len returns the number of instructions, pseudo-instructions included.
func (m *Method) Len() int { return len(m.Instructions) }

// LabelIndex returns the index of the pseudo-instruction binding l.
func (m *Method) LabelIndex(l Label) (int, bool) {
	i, ok := m.labels[l]
	return i, ok
}

// ParameterTypes returns the local slots holding the receiver and the
// arguments on method entry.
func (m *Method) ParameterTypes() ([]frame.Type, error) {
	mt, err := ParseMethodDescriptor(m.Desc)
	if err != nil {
		return nil, err
	}
	var locals []frame.Type
	if !m.Static {
		if m.Name == "<init>" && m.Owner != ObjectClass {
			locals = append(locals, frame.ThisType)
		} else {
			locals = append(locals, frame.Ref(m.Owner))
		}
	}
	for _, a := range mt.Args {
		locals = append(locals, DescriptorTypes(a)...)
	}
	return locals, nil
}

// bindLabels indexes the label pseudo-instructions and checks that every
// referenced label is bound exactly once.
func (m *Method) bindLabels() error {
	m.labels = make(map[Label]int)
	for i := range m.Instructions {
		in := &m.Instructions[i]
		if in.Kind != KindLabel {
			continue
		}
		if _, dup := m.labels[in.Label]; dup {
			return fmt.Errorf("%w: %s bound twice", ErrUnknownLabel, in.Label)
		}
		m.labels[in.Label] = i
	}
	for i := range m.Instructions {
		for _, l := range m.Instructions[i].BranchTargets() {
			if _, ok := m.labels[l]; !ok {
				return fmt.Errorf("%w: %s at index %d", ErrUnknownLabel, l, i)
			}
		}
	}
	return nil
}
