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
	"strconv"
	"strings"
)

// Label identifies a position in a method's instruction sequence. Labels are
// bound by a KindLabel pseudo-instruction.
type Label int

func (l Label) String() string { return "L" + strconv.Itoa(int(l)) }

// ClassConst is an LDC operand naming a class literal.
type ClassConst string

// Instruction is one element of a method's instruction sequence. Only the
// fields relevant to its Kind are set.
type Instruction struct {
	Op   OpCode
	Kind Kind

	Operand int    // BIPUSH, SIPUSH, NEWARRAY type code, IINC increment, MULTIANEWARRAY dims, line number
	Var     int    // local variable slot for KindVar and KindIinc
	Class   string // KindType class, KindMultiANewArray descriptor

	Owner string // KindField, KindMethod
	Name  string
	Desc  string

	Const interface{} // int32, int64, float32, float64, string or ClassConst

	Label   Label   // KindLabel binding, KindLine anchor, KindJump target
	Default Label   // switch default target
	Targets []Label // switch case targets
	Min     int     // TABLESWITCH low key
	Keys    []int   // LOOKUPSWITCH keys
}

// IsPseudo reports whether the instruction is a label, line number or frame
// marker rather than an executable instruction.
func (in *Instruction) IsPseudo() bool {
	return in.Op == Pseudo
}

// IsMemberRef reports whether the instruction references a field or method.
func (in *Instruction) IsMemberRef() bool {
	return in.Kind == KindField || in.Kind == KindMethod
}

// BranchTargets returns the labels the instruction may jump to, not
// including fall through.
func (in *Instruction) BranchTargets() []Label {
	switch in.Kind {
	case KindJump:
		return []Label{in.Label}
	case KindTableSwitch, KindLookupSwitch:
		out := make([]Label, 0, len(in.Targets)+1)
		out = append(out, in.Targets...)
		return append(out, in.Default)
	}
	return nil
}

// String renders the instruction in the assembler's listing syntax.
func (in *Instruction) String() string {
	switch in.Kind {
	case KindLabel:
		return in.Label.String() + ":"
	case KindLine:
		return fmt.Sprintf("LINE %d %s", in.Operand, in.Label)
	case KindFrame:
		return "FRAME"
	}
	name := in.Op.String()
	switch in.Kind {
	case KindInt:
		if in.Op == NEWARRAY {
			if s, ok := arrayTypeNames[in.Operand]; ok {
				return name + " " + s
			}
		}
		return fmt.Sprintf("%s %d", name, in.Operand)
	case KindVar:
		return fmt.Sprintf("%s %d", name, in.Var)
	case KindIinc:
		return fmt.Sprintf("%s %d %d", name, in.Var, in.Operand)
	case KindType:
		return name + " " + in.Class
	case KindMultiANewArray:
		return fmt.Sprintf("%s %s %d", name, in.Class, in.Operand)
	case KindField:
		return fmt.Sprintf("%s %s.%s : %s", name, in.Owner, in.Name, in.Desc)
	case KindMethod:
		return fmt.Sprintf("%s %s.%s %s", name, in.Owner, in.Name, in.Desc)
	case KindJump:
		return name + " " + in.Label.String()
	case KindLdc:
		return name + " " + constString(in.Const)
	case KindTableSwitch:
		return fmt.Sprintf("%s %d..%d [%s] default %s", name, in.Min, in.Min+len(in.Targets)-1, labelList(in.Targets), in.Default)
	case KindLookupSwitch:
		pairs := make([]string, len(in.Keys))
		for i, k := range in.Keys {
			pairs[i] = fmt.Sprintf("%d:%s", k, in.Targets[i])
		}
		return fmt.Sprintf("%s [%s] default %s", name, strings.Join(pairs, " "), in.Default)
	}
	return name
}

func labelList(ls []Label) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = l.String()
	}
	return strings.Join(parts, " ")
}

func constString(c interface{}) string {
	switch c := c.(type) {
	case string:
		return strconv.Quote(c)
	case int32:
		return strconv.Itoa(int(c))
	case int64:
		return strconv.FormatInt(c, 10) + "L"
	case float32:
		return strconv.FormatFloat(float64(c), 'g', -1, 32) + "F"
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64) + "D"
	case ClassConst:
		return string(c) + ".class"
	}
	return fmt.Sprintf("%v", c)
}
