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

	"github.com/finchgp/bcxo/core/frame"
)

var (
	ErrUnknownLabel      = errors.New("unknown label")
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrNoReturn          = errors.New("method does not end in *RETURN")

	// ErrStackHeight is reported when paths meet with different stack depths.
	ErrStackHeight = frame.ErrStackHeight
)

// MethodBuilder assembles an instruction sequence. Labels may be referenced
// before they are marked; Build checks that all of them are bound.
type MethodBuilder struct {
	method    *Method
	nextLabel Label
	err       error
}

// NewMethodBuilder starts a method of the given owner class.
func NewMethodBuilder(owner, name, desc string, static bool) *MethodBuilder {
	return &MethodBuilder{
		method: &Method{Owner: owner, Name: name, Desc: desc, Static: static},
	}
}

// NewLabel allocates a fresh label.
func (b *MethodBuilder) NewLabel() Label {
	l := b.nextLabel
	b.nextLabel++
	return l
}

// Mark binds l at the current position.
func (b *MethodBuilder) Mark(l Label) *MethodBuilder {
	if l >= b.nextLabel {
		b.nextLabel = l + 1
	}
	return b.emit(Instruction{Op: Pseudo, Kind: KindLabel, Label: l})
}

// Line records a source line number anchored at l.
func (b *MethodBuilder) Line(line int, l Label) *MethodBuilder {
	return b.emit(Instruction{Op: Pseudo, Kind: KindLine, Operand: line, Label: l})
}

// Frame records a stack map frame marker.
func (b *MethodBuilder) Frame() *MethodBuilder {
	return b.emit(Instruction{Op: Pseudo, Kind: KindFrame})
}

// Op emits an instruction without operands.
func (b *MethodBuilder) Op(op OpCode) *MethodBuilder {
	return b.emitKind(op, KindInsn, Instruction{})
}

// Int emits BIPUSH, SIPUSH or NEWARRAY.
func (b *MethodBuilder) Int(op OpCode, operand int) *MethodBuilder {
	return b.emitKind(op, KindInt, Instruction{Operand: operand})
}

// Var emits a local variable load or store.
func (b *MethodBuilder) Var(op OpCode, slot int) *MethodBuilder {
	return b.emitKind(op, KindVar, Instruction{Var: slot})
}

// Iinc emits IINC.
func (b *MethodBuilder) Iinc(slot, incr int) *MethodBuilder {
	return b.emitKind(IINC, KindIinc, Instruction{Var: slot, Operand: incr})
}

// Type emits NEW, ANEWARRAY, CHECKCAST or INSTANCEOF.
func (b *MethodBuilder) Type(op OpCode, class string) *MethodBuilder {
	return b.emitKind(op, KindType, Instruction{Class: class})
}

// Field emits a field access.
func (b *MethodBuilder) Field(op OpCode, owner, name, desc string) *MethodBuilder {
	return b.emitKind(op, KindField, Instruction{Owner: owner, Name: name, Desc: desc})
}

// Invoke emits a method invocation.
func (b *MethodBuilder) Invoke(op OpCode, owner, name, desc string) *MethodBuilder {
	if _, err := ParseMethodDescriptor(desc); err != nil {
		b.fail(err)
	}
	return b.emitKind(op, KindMethod, Instruction{Owner: owner, Name: name, Desc: desc})
}

// Jump emits GOTO or a conditional branch.
func (b *MethodBuilder) Jump(op OpCode, target Label) *MethodBuilder {
	return b.emitKind(op, KindJump, Instruction{Label: target})
}

// Ldc emits a constant load.
func (b *MethodBuilder) Ldc(c interface{}) *MethodBuilder {
	switch c.(type) {
	case int32, int64, float32, float64, string, ClassConst:
	default:
		b.fail(fmt.Errorf("ldc: unsupported constant %T", c))
	}
	return b.emitKind(LDC, KindLdc, Instruction{Const: c})
}

// TableSwitch emits TABLESWITCH over keys min..min+len(targets)-1.
func (b *MethodBuilder) TableSwitch(min int, dflt Label, targets ...Label) *MethodBuilder {
	return b.emitKind(TABLESWITCH, KindTableSwitch, Instruction{Min: min, Default: dflt, Targets: targets})
}

// LookupSwitch emits LOOKUPSWITCH; keys and targets are parallel.
func (b *MethodBuilder) LookupSwitch(dflt Label, keys []int, targets []Label) *MethodBuilder {
	if len(keys) != len(targets) {
		b.fail(fmt.Errorf("lookupswitch: %d keys, %d targets", len(keys), len(targets)))
	}
	return b.emitKind(LOOKUPSWITCH, KindLookupSwitch, Instruction{Default: dflt, Keys: keys, Targets: targets})
}

// MultiANewArray emits MULTIANEWARRAY.
func (b *MethodBuilder) MultiANewArray(desc string, dims int) *MethodBuilder {
	return b.emitKind(MULTIANEWARRAY, KindMultiANewArray, Instruction{Class: desc, Operand: dims})
}

// Build finishes the method.
func (b *MethodBuilder) Build() (*Method, error) {
	if b.err != nil {
		return nil, b.err
	}
	m := b.method
	if err := m.bindLabels(); err != nil {
		return nil, fmt.Errorf("%s: %w", m.FullName(), err)
	}
	return m, nil
}

func (b *MethodBuilder) emitKind(op OpCode, kind Kind, in Instruction) *MethodBuilder {
	if !op.Valid() {
		b.fail(fmt.Errorf("%w: %s", ErrUnsupportedOpcode, op))
		return b
	}
	if op.Kind() != kind {
		b.fail(fmt.Errorf("%s does not take %s operands", op, kindNames[kind]))
		return b
	}
	in.Op, in.Kind = op, kind
	return b.emit(in)
}

func (b *MethodBuilder) emit(in Instruction) *MethodBuilder {
	b.method.Instructions = append(b.method.Instructions, in)
	return b
}

func (b *MethodBuilder) fail(err error) {
	if b.err == nil {
		b.err = fmt.Errorf("instruction %d: %w", len(b.method.Instructions), err)
	}
}

var kindNames = map[Kind]string{
	KindInsn:           "no",
	KindInt:            "int",
	KindVar:            "var",
	KindType:           "type",
	KindField:          "field",
	KindMethod:         "method",
	KindJump:           "jump",
	KindLdc:            "constant",
	KindIinc:           "iinc",
	KindTableSwitch:    "tableswitch",
	KindLookupSwitch:   "lookupswitch",
	KindMultiANewArray: "multianewarray",
}
