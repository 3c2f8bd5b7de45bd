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
)

// OpCode is a JVM instruction opcode. Pseudo-instructions (labels, line
// numbers and stack map frames) carry the Pseudo opcode.
type OpCode int

const Pseudo OpCode = -1

// Constants
const (
	NOP OpCode = iota
	ACONST_NULL
	ICONST_M1
	ICONST_0
	ICONST_1
	ICONST_2
	ICONST_3
	ICONST_4
	ICONST_5
	LCONST_0
	LCONST_1
	FCONST_0
	FCONST_1
	FCONST_2
	DCONST_0
	DCONST_1
	BIPUSH
	SIPUSH
	LDC
)

// Loads
const (
	ILOAD OpCode = 21 + iota
	LLOAD
	FLOAD
	DLOAD
	ALOAD
)

const (
	IALOAD OpCode = 46 + iota
	LALOAD
	FALOAD
	DALOAD
	AALOAD
	BALOAD
	CALOAD
	SALOAD
)

// Stores
const (
	ISTORE OpCode = 54 + iota
	LSTORE
	FSTORE
	DSTORE
	ASTORE
)

const (
	IASTORE OpCode = 79 + iota
	LASTORE
	FASTORE
	DASTORE
	AASTORE
	BASTORE
	CASTORE
	SASTORE
)

// Stack manipulation
const (
	POP OpCode = 87 + iota
	POP2
	DUP
	DUP_X1
	DUP_X2
	DUP2
	DUP2_X1
	DUP2_X2
	SWAP
)

// Arithmetic and logic
const (
	IADD OpCode = 96 + iota
	LADD
	FADD
	DADD
	ISUB
	LSUB
	FSUB
	DSUB
	IMUL
	LMUL
	FMUL
	DMUL
	IDIV
	LDIV
	FDIV
	DDIV
	IREM
	LREM
	FREM
	DREM
	INEG
	LNEG
	FNEG
	DNEG
	ISHL
	LSHL
	ISHR
	LSHR
	IUSHR
	LUSHR
	IAND
	LAND
	IOR
	LOR
	IXOR
	LXOR
	IINC
)

// Conversions and comparisons
const (
	I2L OpCode = 133 + iota
	I2F
	I2D
	L2I
	L2F
	L2D
	F2I
	F2L
	F2D
	D2I
	D2L
	D2F
	I2B
	I2C
	I2S
	LCMP
	FCMPL
	FCMPG
	DCMPL
	DCMPG
)

// Control
const (
	IFEQ OpCode = 153 + iota
	IFNE
	IFLT
	IFGE
	IFGT
	IFLE
	IF_ICMPEQ
	IF_ICMPNE
	IF_ICMPLT
	IF_ICMPGE
	IF_ICMPGT
	IF_ICMPLE
	IF_ACMPEQ
	IF_ACMPNE
	GOTO
	JSR
	RET
	TABLESWITCH
	LOOKUPSWITCH
	IRETURN
	LRETURN
	FRETURN
	DRETURN
	ARETURN
	RETURN
)

// References
const (
	GETSTATIC OpCode = 178 + iota
	PUTSTATIC
	GETFIELD
	PUTFIELD
	INVOKEVIRTUAL
	INVOKESPECIAL
	INVOKESTATIC
	INVOKEINTERFACE
	INVOKEDYNAMIC
	NEW
	NEWARRAY
	ANEWARRAY
	ARRAYLENGTH
	ATHROW
	CHECKCAST
	INSTANCEOF
	MONITORENTER
	MONITOREXIT
	_
	MULTIANEWARRAY
	IFNULL
	IFNONNULL
)

// Kind is the operand shape of an instruction.
type Kind int

const (
	KindInsn Kind = iota
	KindInt
	KindVar
	KindType
	KindField
	KindMethod
	KindJump
	KindLdc
	KindIinc
	KindTableSwitch
	KindLookupSwitch
	KindMultiANewArray
	KindLabel
	KindLine
	KindFrame
)

type opInfo struct {
	name  string
	kind  Kind
	pops  int // pop depth; operand-dependent opcodes are resolved in popDepth
	valid bool
}

var opTable [256]opInfo

func def(op OpCode, name string, kind Kind, pops int) {
	opTable[op] = opInfo{name: name, kind: kind, pops: pops, valid: true}
}

func init() {
	def(NOP, "NOP", KindInsn, 0)
	def(ACONST_NULL, "ACONST_NULL", KindInsn, 0)
	for op, name := range []string{"ICONST_M1", "ICONST_0", "ICONST_1", "ICONST_2", "ICONST_3", "ICONST_4", "ICONST_5",
		"LCONST_0", "LCONST_1", "FCONST_0", "FCONST_1", "FCONST_2", "DCONST_0", "DCONST_1"} {
		def(ICONST_M1+OpCode(op), name, KindInsn, 0)
	}
	def(BIPUSH, "BIPUSH", KindInt, 0)
	def(SIPUSH, "SIPUSH", KindInt, 0)
	def(LDC, "LDC", KindLdc, 0)

	def(ILOAD, "ILOAD", KindVar, 0)
	def(LLOAD, "LLOAD", KindVar, 0)
	def(FLOAD, "FLOAD", KindVar, 0)
	def(DLOAD, "DLOAD", KindVar, 0)
	def(ALOAD, "ALOAD", KindVar, 0)

	for op, name := range []string{"IALOAD", "LALOAD", "FALOAD", "DALOAD", "AALOAD", "BALOAD", "CALOAD", "SALOAD"} {
		def(IALOAD+OpCode(op), name, KindInsn, 2)
	}

	def(ISTORE, "ISTORE", KindVar, 1)
	def(LSTORE, "LSTORE", KindVar, 2)
	def(FSTORE, "FSTORE", KindVar, 1)
	def(DSTORE, "DSTORE", KindVar, 2)
	def(ASTORE, "ASTORE", KindVar, 1)

	def(IASTORE, "IASTORE", KindInsn, 3)
	def(LASTORE, "LASTORE", KindInsn, 4)
	def(FASTORE, "FASTORE", KindInsn, 3)
	def(DASTORE, "DASTORE", KindInsn, 4)
	def(AASTORE, "AASTORE", KindInsn, 3)
	def(BASTORE, "BASTORE", KindInsn, 3)
	def(CASTORE, "CASTORE", KindInsn, 3)
	def(SASTORE, "SASTORE", KindInsn, 3)

	def(POP, "POP", KindInsn, 1)
	def(POP2, "POP2", KindInsn, 2)
	def(DUP, "DUP", KindInsn, 1)
	def(DUP_X1, "DUP_X1", KindInsn, 2)
	def(DUP_X2, "DUP_X2", KindInsn, 3)
	def(DUP2, "DUP2", KindInsn, 2)
	def(DUP2_X1, "DUP2_X1", KindInsn, 3)
	def(DUP2_X2, "DUP2_X2", KindInsn, 4)
	def(SWAP, "SWAP", KindInsn, 2)

	// Binary operators alternate I, L, F, D.
	for i, base := range []string{"ADD", "SUB", "MUL", "DIV", "REM"} {
		op := IADD + OpCode(4*i)
		def(op, "I"+base, KindInsn, 2)
		def(op+1, "L"+base, KindInsn, 4)
		def(op+2, "F"+base, KindInsn, 2)
		def(op+3, "D"+base, KindInsn, 4)
	}
	def(INEG, "INEG", KindInsn, 1)
	def(LNEG, "LNEG", KindInsn, 2)
	def(FNEG, "FNEG", KindInsn, 1)
	def(DNEG, "DNEG", KindInsn, 2)
	for i, base := range []string{"SHL", "SHR", "USHR"} {
		op := ISHL + OpCode(2*i)
		def(op, "I"+base, KindInsn, 2)
		def(op+1, "L"+base, KindInsn, 3)
	}
	for i, base := range []string{"AND", "OR", "XOR"} {
		op := IAND + OpCode(2*i)
		def(op, "I"+base, KindInsn, 2)
		def(op+1, "L"+base, KindInsn, 4)
	}
	def(IINC, "IINC", KindIinc, 0)

	def(I2L, "I2L", KindInsn, 1)
	def(I2F, "I2F", KindInsn, 1)
	def(I2D, "I2D", KindInsn, 1)
	def(L2I, "L2I", KindInsn, 2)
	def(L2F, "L2F", KindInsn, 2)
	def(L2D, "L2D", KindInsn, 2)
	def(F2I, "F2I", KindInsn, 1)
	def(F2L, "F2L", KindInsn, 1)
	def(F2D, "F2D", KindInsn, 1)
	def(D2I, "D2I", KindInsn, 2)
	def(D2L, "D2L", KindInsn, 2)
	def(D2F, "D2F", KindInsn, 2)
	def(I2B, "I2B", KindInsn, 1)
	def(I2C, "I2C", KindInsn, 1)
	def(I2S, "I2S", KindInsn, 1)
	def(LCMP, "LCMP", KindInsn, 4)
	def(FCMPL, "FCMPL", KindInsn, 2)
	def(FCMPG, "FCMPG", KindInsn, 2)
	def(DCMPL, "DCMPL", KindInsn, 4)
	def(DCMPG, "DCMPG", KindInsn, 4)

	for op, name := range []string{"IFEQ", "IFNE", "IFLT", "IFGE", "IFGT", "IFLE"} {
		def(IFEQ+OpCode(op), name, KindJump, 1)
	}
	for op, name := range []string{"IF_ICMPEQ", "IF_ICMPNE", "IF_ICMPLT", "IF_ICMPGE", "IF_ICMPGT", "IF_ICMPLE", "IF_ACMPEQ", "IF_ACMPNE"} {
		def(IF_ICMPEQ+OpCode(op), name, KindJump, 2)
	}
	def(GOTO, "GOTO", KindJump, 0)
	def(TABLESWITCH, "TABLESWITCH", KindTableSwitch, 1)
	def(LOOKUPSWITCH, "LOOKUPSWITCH", KindLookupSwitch, 1)
	def(IRETURN, "IRETURN", KindInsn, 1)
	def(LRETURN, "LRETURN", KindInsn, 2)
	def(FRETURN, "FRETURN", KindInsn, 1)
	def(DRETURN, "DRETURN", KindInsn, 2)
	def(ARETURN, "ARETURN", KindInsn, 1)
	def(RETURN, "RETURN", KindInsn, 0)

	def(GETSTATIC, "GETSTATIC", KindField, 0)
	def(PUTSTATIC, "PUTSTATIC", KindField, 0)
	def(GETFIELD, "GETFIELD", KindField, 1)
	def(PUTFIELD, "PUTFIELD", KindField, 0)
	def(INVOKEVIRTUAL, "INVOKEVIRTUAL", KindMethod, 0)
	def(INVOKESPECIAL, "INVOKESPECIAL", KindMethod, 0)
	def(INVOKESTATIC, "INVOKESTATIC", KindMethod, 0)
	def(INVOKEINTERFACE, "INVOKEINTERFACE", KindMethod, 0)
	def(NEW, "NEW", KindType, 0)
	def(NEWARRAY, "NEWARRAY", KindInt, 1)
	def(ANEWARRAY, "ANEWARRAY", KindType, 1)
	def(ARRAYLENGTH, "ARRAYLENGTH", KindInsn, 1)
	def(ATHROW, "ATHROW", KindInsn, 1)
	def(CHECKCAST, "CHECKCAST", KindType, 1)
	def(INSTANCEOF, "INSTANCEOF", KindType, 1)
	def(MONITORENTER, "MONITORENTER", KindInsn, 1)
	def(MONITOREXIT, "MONITOREXIT", KindInsn, 1)
	def(MULTIANEWARRAY, "MULTIANEWARRAY", KindMultiANewArray, 0)
	def(IFNULL, "IFNULL", KindJump, 1)
	def(IFNONNULL, "IFNONNULL", KindJump, 1)

	for i, info := range opTable {
		if info.valid {
			opByName[info.name] = OpCode(i)
		}
	}
}

var opByName = make(map[string]OpCode)

// Valid reports whether op is a supported real instruction.
func (op OpCode) Valid() bool {
	return op >= 0 && int(op) < len(opTable) && opTable[op].valid
}

func (op OpCode) String() string {
	if op == Pseudo {
		return "PSEUDO"
	}
	if op.Valid() {
		return opTable[op].name
	}
	return fmt.Sprintf("opcode 0x%x", int(op))
}

// Kind returns the operand shape of op.
func (op OpCode) Kind() Kind {
	if !op.Valid() {
		return KindInsn
	}
	return opTable[op].kind
}

// OpCodeByName looks up a mnemonic, case insensitive.
func OpCodeByName(name string) (OpCode, bool) {
	op, ok := opByName[strings.ToUpper(name)]
	return op, ok
}

// IsReturn reports whether op is one of the *RETURN instructions.
func (op OpCode) IsReturn() bool {
	return op >= IRETURN && op <= RETURN
}

// IsConditional reports whether op is a two-way branch.
func (op OpCode) IsConditional() bool {
	return (op >= IFEQ && op <= IF_ACMPNE) || op == IFNULL || op == IFNONNULL
}

// Array type codes of the NEWARRAY operand.
const (
	T_BOOLEAN = 4
	T_CHAR    = 5
	T_FLOAT   = 6
	T_DOUBLE  = 7
	T_BYTE    = 8
	T_SHORT   = 9
	T_INT     = 10
	T_LONG    = 11
)

var arrayTypeDescriptors = map[int]string{
	T_BOOLEAN: "[Z",
	T_CHAR:    "[C",
	T_FLOAT:   "[F",
	T_DOUBLE:  "[D",
	T_BYTE:    "[B",
	T_SHORT:   "[S",
	T_INT:     "[I",
	T_LONG:    "[J",
}

var arrayTypeNames = map[int]string{
	T_BOOLEAN: "T_BOOLEAN",
	T_CHAR:    "T_CHAR",
	T_FLOAT:   "T_FLOAT",
	T_DOUBLE:  "T_DOUBLE",
	T_BYTE:    "T_BYTE",
	T_SHORT:   "T_SHORT",
	T_INT:     "T_INT",
	T_LONG:    "T_LONG",
}
