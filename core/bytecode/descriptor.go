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
	"errors"
	"fmt"
	"strings"

	"github.com/finchgp/bcxo/core/frame"
)

var ErrBadDescriptor = errors.New("malformed descriptor")

// MethodType is a parsed method descriptor.
type MethodType struct {
	Args   []string // field descriptors
	Return string   // field descriptor, "V" for void
}

// ParseMethodDescriptor splits a method descriptor such as "(IJLjava/lang/String;)V".
func ParseMethodDescriptor(desc string) (MethodType, error) {
	if !strings.HasPrefix(desc, "(") {
		return MethodType{}, fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}
	var mt MethodType
	rest := desc[1:]
	for {
		if rest == "" {
			return MethodType{}, fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
		}
		if rest[0] == ')' {
			rest = rest[1:]
			break
		}
		arg, n, err := nextFieldDescriptor(rest)
		if err != nil {
			return MethodType{}, fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
		}
		mt.Args = append(mt.Args, arg)
		rest = rest[n:]
	}
	if rest == "V" {
		mt.Return = rest
		return mt, nil
	}
	ret, n, err := nextFieldDescriptor(rest)
	if err != nil || n != len(rest) {
		return MethodType{}, fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}
	mt.Return = ret
	return mt, nil
}

func nextFieldDescriptor(s string) (string, int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i == len(s) {
		return "", 0, ErrBadDescriptor
	}
	switch s[i] {
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		return s[:i+1], i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 2 {
			return "", 0, ErrBadDescriptor
		}
		return s[:i+end+1], i + end + 1, nil
	}
	return "", 0, ErrBadDescriptor
}

// ArgumentSlots returns the number of stack slots taken by the arguments.
func (mt MethodType) ArgumentSlots() int {
	n := 0
	for _, a := range mt.Args {
		n += DescriptorSlots(a)
	}
	return n
}

// DescriptorSlots returns 2 for long and double, 0 for void, 1 otherwise.
func DescriptorSlots(desc string) int {
	switch desc {
	case "J", "D":
		return 2
	case "V", "":
		return 0
	}
	return 1
}

// DescriptorTypes converts a field descriptor into the slot types it
// occupies on the stack or in the locals.
func DescriptorTypes(desc string) []frame.Type {
	switch desc {
	case "V", "":
		return nil
	case "Z", "B", "C", "S", "I":
		return []frame.Type{frame.IntType}
	case "F":
		return []frame.Type{frame.FloatType}
	case "J":
		return []frame.Type{frame.LongType, frame.TopType}
	case "D":
		return []frame.Type{frame.DoubleType, frame.TopType}
	}
	return []frame.Type{frame.Ref(InternalName(desc))}
}

// InternalName converts an object field descriptor to an internal name.
// Array descriptors are their own internal names.
func InternalName(desc string) string {
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}
	return desc
}

// ArrayOf returns the internal name of an array whose elements are of the
// given class or array internal name.
func ArrayOf(elem string) string {
	if strings.HasPrefix(elem, "[") {
		return "[" + elem
	}
	return "[L" + elem + ";"
}
