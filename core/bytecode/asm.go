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
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is returned for malformed assembler input.
var ErrSyntax = errors.New("syntax error")

// ParseMethodBody assembles a method from its textual listing. The syntax is
// the one produced by Instruction.String: one instruction per line,
// mnemonics case insensitive, "name:" binding a label, "#" or "//" starting
// a comment. Label names are free-form identifiers.
func ParseMethodBody(owner, name, desc string, static bool, src string) (*Method, error) {
	p := &asmParser{
		b:      NewMethodBuilder(owner, name, desc, static),
		labels: make(map[string]Label),
	}
	sc := bufio.NewScanner(strings.NewReader(src))
	for lineNo := 1; sc.Scan(); lineNo++ {
		if err := p.line(sc.Text()); err != nil {
			return nil, fmt.Errorf("%s.%s%s line %d: %w", owner, name, desc, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p.b.Build()
}

type asmParser struct {
	b      *MethodBuilder
	labels map[string]Label
}

func (p *asmParser) label(name string) Label {
	if l, ok := p.labels[name]; ok {
		return l
	}
	l := p.b.NewLabel()
	p.labels[name] = l
	return l
}

func stripComment(s string) string {
	if i := strings.Index(s, "//"); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '#'); i >= 0 && !strings.Contains(s[:i], "\"") {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func (p *asmParser) line(raw string) error {
	s := stripComment(raw)
	if s == "" {
		return nil
	}
	fields := strings.Fields(s)
	if len(fields) == 1 && strings.HasSuffix(s, ":") {
		p.b.Mark(p.label(strings.TrimSuffix(s, ":")))
		return nil
	}
	mnemonic := strings.ToUpper(strings.TrimPrefix(fields[0], "."))
	args := fields[1:]

	switch mnemonic {
	case "LINE":
		if len(args) < 1 {
			return fmt.Errorf("%w: line needs a number", ErrSyntax)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		var anchor Label
		if len(args) > 1 {
			anchor = p.label(args[1])
		}
		p.b.Line(n, anchor)
		return nil
	case "FRAME":
		p.b.Frame()
		return nil
	}

	op, ok := OpCodeByName(mnemonic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedOpcode, fields[0])
	}
	switch op.Kind() {
	case KindInsn:
		if len(args) != 0 {
			return fmt.Errorf("%w: %s takes no operands", ErrSyntax, op)
		}
		p.b.Op(op)
	case KindInt:
		if len(args) != 1 {
			return fmt.Errorf("%w: %s takes one operand", ErrSyntax, op)
		}
		n, err := p.intOperand(op, args[0])
		if err != nil {
			return err
		}
		p.b.Int(op, n)
	case KindVar:
		n, err := p.ints(args, 1)
		if err != nil {
			return err
		}
		p.b.Var(op, n[0])
	case KindIinc:
		n, err := p.ints(args, 2)
		if err != nil {
			return err
		}
		p.b.Iinc(n[0], n[1])
	case KindType:
		if len(args) != 1 {
			return fmt.Errorf("%w: %s takes a class", ErrSyntax, op)
		}
		p.b.Type(op, args[0])
	case KindMultiANewArray:
		if len(args) != 2 {
			return fmt.Errorf("%w: %s takes a descriptor and dimensions", ErrSyntax, op)
		}
		dims, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		p.b.MultiANewArray(args[0], dims)
	case KindField, KindMethod:
		return p.member(op, args)
	case KindJump:
		if len(args) != 1 {
			return fmt.Errorf("%w: %s takes a label", ErrSyntax, op)
		}
		p.b.Jump(op, p.label(args[0]))
	case KindLdc:
		c, err := parseConst(strings.TrimSpace(s[len(fields[0]):]))
		if err != nil {
			return err
		}
		p.b.Ldc(c)
	case KindTableSwitch:
		return p.tableSwitch(args)
	case KindLookupSwitch:
		return p.lookupSwitch(args)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedOpcode, op)
	}
	return nil
}

func (p *asmParser) ints(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%w: want %d integer operands, have %d", ErrSyntax, n, len(args))
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		out[i] = v
	}
	return out, nil
}

func (p *asmParser) intOperand(op OpCode, arg string) (int, error) {
	if op == NEWARRAY {
		for code, name := range arrayTypeNames {
			if strings.EqualFold(arg, name) || strings.EqualFold("T_"+arg, name) {
				return code, nil
			}
		}
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return n, nil
}

// member parses "Owner.name desc", allowing an optional ":" before a field
// descriptor.
func (p *asmParser) member(op OpCode, args []string) error {
	if len(args) == 3 && args[1] == ":" {
		args = []string{args[0], args[2]}
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: %s takes Owner.name and a descriptor", ErrSyntax, op)
	}
	dot := strings.LastIndexByte(args[0], '.')
	if dot <= 0 || dot == len(args[0])-1 {
		return fmt.Errorf("%w: bad member %q", ErrSyntax, args[0])
	}
	owner, name, desc := args[0][:dot], args[0][dot+1:], args[1]
	if op.Kind() == KindField {
		p.b.Field(op, owner, name, desc)
	} else {
		p.b.Invoke(op, owner, name, desc)
	}
	return nil
}

// tableSwitch parses "min[..max] [targets...] default label".
func (p *asmParser) tableSwitch(args []string) error {
	args = splitBrackets(args)
	if len(args) < 3 || !strings.EqualFold(args[len(args)-2], "default") {
		return fmt.Errorf("%w: tableswitch min targets... default label", ErrSyntax)
	}
	lo := args[0]
	if i := strings.Index(lo, ".."); i >= 0 {
		lo = lo[:i]
	}
	min, err := strconv.Atoi(lo)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	var targets []Label
	for _, a := range args[1 : len(args)-2] {
		targets = append(targets, p.label(a))
	}
	p.b.TableSwitch(min, p.label(args[len(args)-1]), targets...)
	return nil
}

// lookupSwitch parses "[key:label...] default label".
func (p *asmParser) lookupSwitch(args []string) error {
	args = splitBrackets(args)
	if len(args) < 2 || !strings.EqualFold(args[len(args)-2], "default") {
		return fmt.Errorf("%w: lookupswitch key:label... default label", ErrSyntax)
	}
	var (
		keys    []int
		targets []Label
	)
	for _, a := range args[:len(args)-2] {
		i := strings.IndexByte(a, ':')
		if i <= 0 {
			return fmt.Errorf("%w: bad case %q", ErrSyntax, a)
		}
		k, err := strconv.Atoi(a[:i])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		keys = append(keys, k)
		targets = append(targets, p.label(a[i+1:]))
	}
	p.b.LookupSwitch(p.label(args[len(args)-1]), keys, targets)
	return nil
}

func splitBrackets(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		a = strings.Trim(a, "[]")
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func parseConst(s string) (interface{}, error) {
	switch {
	case s == "":
		return nil, fmt.Errorf("%w: ldc needs a constant", ErrSyntax)
	case strings.HasPrefix(s, "\""):
		v, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return v, nil
	case strings.HasSuffix(s, ".class"):
		return ClassConst(strings.TrimSuffix(s, ".class")), nil
	case strings.HasSuffix(s, "L"):
		v, err := strconv.ParseInt(strings.TrimSuffix(s, "L"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return v, nil
	case strings.HasSuffix(s, "F"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "F"), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return float32(v), nil
	case strings.HasSuffix(s, "D"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "D"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return v, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return int32(v), nil
}
