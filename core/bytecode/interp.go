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

var (
	tI  = []frame.Type{frame.IntType}
	tF  = []frame.Type{frame.FloatType}
	tJ  = []frame.Type{frame.LongType, frame.TopType}
	tD  = []frame.Type{frame.DoubleType, frame.TopType}
	tN  = []frame.Type{frame.NullType}
	tV  = []frame.Type(nil)
	str = frame.Ref("java/lang/String")
	cls = frame.Ref("java/lang/Class")
)

// effect is the stack behaviour of an operand-free instruction: pop slots,
// then push types.
type effect struct {
	pop  int
	push []frame.Type
}

var simpleEffects = make(map[OpCode]effect)

func init() {
	set := func(push []frame.Type, pop int, ops ...OpCode) {
		for _, op := range ops {
			simpleEffects[op] = effect{pop: pop, push: push}
		}
	}
	set(tV, 0, NOP, GOTO, RETURN)
	set(tN, 0, ACONST_NULL)
	set(tI, 0, ICONST_M1, ICONST_0, ICONST_1, ICONST_2, ICONST_3, ICONST_4, ICONST_5, BIPUSH, SIPUSH)
	set(tJ, 0, LCONST_0, LCONST_1)
	set(tF, 0, FCONST_0, FCONST_1, FCONST_2)
	set(tD, 0, DCONST_0, DCONST_1)

	set(tI, 2, IALOAD, BALOAD, CALOAD, SALOAD)
	set(tJ, 2, LALOAD)
	set(tF, 2, FALOAD)
	set(tD, 2, DALOAD)
	set(tV, 3, IASTORE, FASTORE, AASTORE, BASTORE, CASTORE, SASTORE)
	set(tV, 4, LASTORE, DASTORE)
	set(tV, 1, POP)
	set(tV, 2, POP2)

	set(tI, 2, IADD, ISUB, IMUL, IDIV, IREM, ISHL, ISHR, IUSHR, IAND, IOR, IXOR)
	set(tJ, 4, LADD, LSUB, LMUL, LDIV, LREM, LAND, LOR, LXOR)
	set(tJ, 3, LSHL, LSHR, LUSHR)
	set(tF, 2, FADD, FSUB, FMUL, FDIV, FREM)
	set(tD, 4, DADD, DSUB, DMUL, DDIV, DREM)
	set(tI, 1, INEG, F2I, I2B, I2C, I2S, ARRAYLENGTH)
	set(tJ, 2, LNEG, D2L)
	set(tF, 1, FNEG, I2F)
	set(tD, 2, DNEG, L2D)
	set(tJ, 1, I2L, F2L)
	set(tD, 1, I2D, F2D)
	set(tI, 2, L2I, D2I, FCMPL, FCMPG)
	set(tF, 2, L2F, D2F)
	set(tI, 4, LCMP, DCMPL, DCMPG)

	set(tV, 1, IFEQ, IFNE, IFLT, IFGE, IFGT, IFLE, IFNULL, IFNONNULL)
	set(tV, 2, IF_ICMPEQ, IF_ICMPNE, IF_ICMPLT, IF_ICMPGE, IF_ICMPGT, IF_ICMPLE, IF_ACMPEQ, IF_ACMPNE)
	set(tV, 1, TABLESWITCH, LOOKUPSWITCH, IRETURN, FRETURN, ARETURN, ATHROW, MONITORENTER, MONITOREXIT)
	set(tV, 2, LRETURN, DRETURN)
}

// machine applies one instruction to a copy of the incoming frame.
type machine struct {
	stack  []frame.Type
	locals []frame.Type
}

func (s *machine) pop(n int) ([]frame.Type, error) {
	if n > len(s.stack) {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrStackUnderflow, n, len(s.stack))
	}
	out := append([]frame.Type(nil), s.stack[len(s.stack)-n:]...)
	s.stack = s.stack[:len(s.stack)-n]
	return out, nil
}

func (s *machine) push(ts ...frame.Type) {
	s.stack = append(s.stack, ts...)
}

func (s *machine) local(v int) frame.Type {
	if v < len(s.locals) {
		return s.locals[v]
	}
	return frame.TopType
}

func (s *machine) store(v int, ts ...frame.Type) {
	for len(s.locals) < v+len(ts) {
		s.locals = append(s.locals, frame.TopType)
	}
	// Overwriting the second half of a long or double invalidates it.
	if v > 0 && s.locals[v-1].IsWide() {
		s.locals[v-1] = frame.TopType
	}
	copy(s.locals[v:], ts)
}

// replace substitutes every occurrence of from, used when a constructor
// initializes an object.
func (s *machine) replace(from, to frame.Type) {
	for i, t := range s.stack {
		if t == from {
			s.stack[i] = to
		}
	}
	for i, t := range s.locals {
		if t == from {
			s.locals[i] = to
		}
	}
}

// execute computes the frame after instruction i given the frame before it.
func (am *AnalyzedMethod) execute(i int, in *frame.Frame) (*frame.Frame, error) {
	insn := &am.Instructions[i]
	s := &machine{
		stack:  append([]frame.Type(nil), in.Stack...),
		locals: append([]frame.Type(nil), in.Locals...),
	}
	op := insn.Op
	if e, ok := simpleEffects[op]; ok {
		if _, err := s.pop(e.pop); err != nil {
			return nil, err
		}
		s.push(e.push...)
		return &frame.Frame{Stack: s.stack, Locals: s.locals}, nil
	}
	var err error
	switch op {
	case LDC:
		err = s.ldc(insn.Const)
	case ILOAD:
		s.push(tI...)
	case FLOAD:
		s.push(tF...)
	case LLOAD:
		s.push(tJ...)
	case DLOAD:
		s.push(tD...)
	case ALOAD:
		s.push(s.local(insn.Var))
	case ISTORE, FSTORE, ASTORE:
		var v []frame.Type
		if v, err = s.pop(1); err == nil {
			s.store(insn.Var, v...)
		}
	case LSTORE, DSTORE:
		var v []frame.Type
		if v, err = s.pop(2); err == nil {
			s.store(insn.Var, v...)
		}
	case IINC:
		s.store(insn.Var, frame.IntType)
	case AALOAD:
		var v []frame.Type
		if v, err = s.pop(2); err == nil {
			s.push(elementType(v[0]))
		}
	case DUP, DUP_X1, DUP_X2, DUP2, DUP2_X1, DUP2_X2, SWAP:
		err = s.shuffle(op)
	case GETSTATIC:
		s.push(DescriptorTypes(insn.Desc)...)
	case PUTSTATIC:
		_, err = s.pop(DescriptorSlots(insn.Desc))
	case GETFIELD:
		if _, err = s.pop(1); err == nil {
			s.push(DescriptorTypes(insn.Desc)...)
		}
	case PUTFIELD:
		_, err = s.pop(DescriptorSlots(insn.Desc) + 1)
	case INVOKEVIRTUAL, INVOKESPECIAL, INVOKESTATIC, INVOKEINTERFACE:
		err = am.invoke(s, insn)
	case NEW:
		s.push(frame.Uninitialized(i, insn.Class))
	case NEWARRAY:
		desc, ok := arrayTypeDescriptors[insn.Operand]
		if !ok {
			return nil, fmt.Errorf("%w: newarray type %d", ErrUnsupportedOpcode, insn.Operand)
		}
		if _, err = s.pop(1); err == nil {
			s.push(frame.Ref(desc))
		}
	case ANEWARRAY:
		if _, err = s.pop(1); err == nil {
			s.push(frame.Ref(ArrayOf(insn.Class)))
		}
	case CHECKCAST:
		if _, err = s.pop(1); err == nil {
			s.push(frame.Ref(insn.Class))
		}
	case INSTANCEOF:
		if _, err = s.pop(1); err == nil {
			s.push(tI...)
		}
	case MULTIANEWARRAY:
		if _, err = s.pop(insn.Operand); err == nil {
			s.push(frame.Ref(insn.Class))
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOpcode, op)
	}
	if err != nil {
		return nil, err
	}
	return &frame.Frame{Stack: s.stack, Locals: s.locals}, nil
}

func (s *machine) ldc(c interface{}) error {
	switch c.(type) {
	case int32:
		s.push(tI...)
	case float32:
		s.push(tF...)
	case int64:
		s.push(tJ...)
	case float64:
		s.push(tD...)
	case string:
		s.push(str)
	case ClassConst:
		s.push(cls)
	default:
		return fmt.Errorf("%w: ldc %T", ErrUnsupportedOpcode, c)
	}
	return nil
}

// shuffle implements the slot-level DUP and SWAP family.
func (s *machine) shuffle(op OpCode) error {
	n := opTable[op].pops
	v, err := s.pop(n)
	if err != nil {
		return err
	}
	switch op {
	case DUP:
		s.push(v[0], v[0])
	case DUP_X1:
		s.push(v[1], v[0], v[1])
	case DUP_X2:
		s.push(v[2], v[0], v[1], v[2])
	case DUP2:
		s.push(v[0], v[1], v[0], v[1])
	case DUP2_X1:
		s.push(v[1], v[2], v[0], v[1], v[2])
	case DUP2_X2:
		s.push(v[2], v[3], v[0], v[1], v[2], v[3])
	case SWAP:
		s.push(v[1], v[0])
	}
	return nil
}

func (am *AnalyzedMethod) invoke(s *machine, insn *Instruction) error {
	mt, err := ParseMethodDescriptor(insn.Desc)
	if err != nil {
		return err
	}
	if _, err := s.pop(mt.ArgumentSlots()); err != nil {
		return err
	}
	if insn.Op != INVOKESTATIC {
		recv, err := s.pop(1)
		if err != nil {
			return err
		}
		if insn.Op == INVOKESPECIAL && insn.Name == "<init>" {
			r := recv[0]
			switch {
			case r.Kind == frame.UninitializedThis:
				s.replace(r, frame.Ref(am.Owner))
			case r.IsUninitialized():
				s.replace(r, frame.Ref(r.UninitializedClass()))
			}
		}
	}
	s.push(DescriptorTypes(mt.Return)...)
	return nil
}

func elementType(arr frame.Type) frame.Type {
	switch {
	case arr.Kind == frame.Null:
		return frame.NullType
	case arr.IsReference() && len(arr.Name) > 1 && arr.Name[0] == '[':
		if ts := DescriptorTypes(arr.Name[1:]); len(ts) == 1 && ts[0].IsReference() {
			return ts[0]
		}
	}
	return frame.Ref(ObjectClass)
}
