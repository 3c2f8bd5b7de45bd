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

// Package frame models the abstract type state of the operand stack and the
// local variables at a program point.
package frame

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownType is returned when a raw type value is outside the fixed
// enumeration of type codes.
var ErrUnknownType = errors.New("unknown type")

// UninitializedPrefix starts the name of a reference produced by NEW before
// its constructor has run.
const UninitializedPrefix = "U/"

// Kind enumerates the type tags. The numeric values of the fixed tags are
// the raw codes accepted by FromRaw.
type Kind int

const (
	Bogus             Kind = -1
	Top               Kind = 0
	Int               Kind = 1
	Float             Kind = 2
	Double            Kind = 3
	Long              Kind = 4
	Null              Kind = 5
	UninitializedThis Kind = 6
	Reference         Kind = 7
)

var kindSymbols = map[Kind]string{
	Top:               "T",
	Int:               "I",
	Float:             "F",
	Double:            "D",
	Long:              "J",
	Null:              "N",
	UninitializedThis: "U",
	Bogus:             "X",
}

// Type is a single stack or local slot type. The zero value is Top.
type Type struct {
	Kind Kind
	Name string // class or array descriptor, Reference only
}

var (
	TopType    = Type{Kind: Top}
	IntType    = Type{Kind: Int}
	FloatType  = Type{Kind: Float}
	DoubleType = Type{Kind: Double}
	LongType   = Type{Kind: Long}
	NullType   = Type{Kind: Null}
	ThisType   = Type{Kind: UninitializedThis}
	BogusType  = Type{Kind: Bogus}
)

// Ref returns the reference type with the given internal name.
func Ref(name string) Type {
	return Type{Kind: Reference, Name: name}
}

// Uninitialized returns the reference type of an object allocated by the NEW
// instruction at index site whose constructor has not been called yet.
func Uninitialized(site int, class string) Type {
	return Ref(fmt.Sprintf("%s%d/%s", UninitializedPrefix, site, class))
}

// FromRaw converts a raw type value into a Type. Integers are interpreted as
// the fixed type codes, strings as reference names.
func FromRaw(v interface{}) (Type, error) {
	switch v := v.(type) {
	case Type:
		return v, nil
	case string:
		return Ref(v), nil
	case int:
		return fromCode(v)
	case int32:
		return fromCode(int(v))
	case int64:
		return fromCode(int(v))
	case Kind:
		return fromCode(int(v))
	}
	return Type{}, fmt.Errorf("%w: %v (%T)", ErrUnknownType, v, v)
}

func fromCode(code int) (Type, error) {
	k := Kind(code)
	if _, ok := kindSymbols[k]; !ok {
		return Type{}, fmt.Errorf("%w: code %d", ErrUnknownType, code)
	}
	return Type{Kind: k}, nil
}

// IsReference reports whether t is a class or array reference, initialized
// or not.
func (t Type) IsReference() bool { return t.Kind == Reference }

// IsUninitialized reports whether t is the result of NEW before <init>, or
// the uninitialized receiver of a constructor.
func (t Type) IsUninitialized() bool {
	return t.Kind == UninitializedThis || (t.Kind == Reference && strings.HasPrefix(t.Name, UninitializedPrefix))
}

// UninitializedClass returns the class named by an uninitialized NEW
// reference.
func (t Type) UninitializedClass() string {
	if t.Kind != Reference || !strings.HasPrefix(t.Name, UninitializedPrefix) {
		return ""
	}
	rest := t.Name[len(UninitializedPrefix):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i+1:]
	}
	return rest
}

// IsWide reports whether t occupies two slots.
func (t Type) IsWide() bool { return t.Kind == Long || t.Kind == Double }

// String renders t as its one-letter symbol, or its name for references.
func (t Type) String() string {
	if t.Kind == Reference {
		return t.Name
	}
	if s, ok := kindSymbols[t.Kind]; ok {
		return s
	}
	return fmt.Sprintf("?%d", int(t.Kind))
}

// Unify returns the type that two slot types agree on. Identical types
// unify to themselves, references only when their names match exactly, and
// every other pairing yields Bogus.
func Unify(a, b Type) Type {
	if a == b {
		return a
	}
	return BogusType
}

// ListString renders a type sequence separated by spaces.
func ListString(types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// MapString renders a slot->type mapping as "index:type" pairs in ascending
// index order, separated by spaces.
func MapString(types map[int]Type) string {
	keys := make([]int, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d:%s", k, types[k])
	}
	return strings.Join(parts, " ")
}
