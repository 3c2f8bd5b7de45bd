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

package xo

import (
	"fmt"
	"maps"
	"strings"

	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/core/frame"
)

// TypeVerifier decides the is-same-or-narrower-than relation between slot
// types. Aliased class names are viewed as the class they map to, so code
// taken from a sibling class can refer to its own class.
type TypeVerifier struct {
	hierarchy *bytecode.Hierarchy
	aliases   map[string]string
}

// NewTypeVerifier returns a verifier over the classes of h. A nil h knows
// no classes.
func NewTypeVerifier(h *bytecode.Hierarchy) *TypeVerifier {
	return &TypeVerifier{hierarchy: h, aliases: make(map[string]string)}
}

// Alias makes the verifier treat references to alt as references to class.
func (v *TypeVerifier) Alias(alt, class string) *TypeVerifier {
	if alt != class {
		v.aliases[alt] = class
	}
	return v
}

// withAlias returns v, or a copy of v mapping alt to class when alt is
// neither class nor already aliased.
func (v *TypeVerifier) withAlias(alt, class string) *TypeVerifier {
	if _, ok := v.aliases[alt]; ok || alt == class {
		return v
	}
	c := &TypeVerifier{hierarchy: v.hierarchy, aliases: maps.Clone(v.aliases)}
	c.aliases[alt] = class
	return c
}

// Hierarchy returns the classes the verifier resolves against.
func (v *TypeVerifier) Hierarchy() *bytecode.Hierarchy { return v.hierarchy }

// Resolve maps an aliased class name to the class it stands for.
func (v *TypeVerifier) Resolve(class string) string {
	if to, ok := v.aliases[class]; ok {
		return to
	}
	return class
}

func isAllocation(t frame.Type) bool {
	return t.Kind == frame.Reference && strings.HasPrefix(t.Name, frame.UninitializedPrefix)
}

// IsNarrowerThan reports whether a value of type a may stand where type b
// is expected. Non-reference tags, Bogus included, must be equal.
// References allocated but not yet constructed must be equal as well, and
// Null is narrower than any other reference.
func (v *TypeVerifier) IsNarrowerThan(a, b frame.Type) bool {
	switch {
	case a.IsReference() && b.IsReference():
		if isAllocation(a) || isAllocation(b) {
			return a == b
		}
		return v.hierarchy.IsAssignableFrom(v.Resolve(b.Name), v.Resolve(a.Name))
	case a.Kind == frame.Null && b.IsReference():
		return !isAllocation(b)
	case a.IsReference() || b.IsReference():
		return false
	}
	return a == b
}

// ListNarrowerThan compares two type lists element by element. Lists of
// different lengths are a programming error.
func (v *TypeVerifier) ListNarrowerThan(as, bs []frame.Type) bool {
	if len(as) != len(bs) {
		panic(fmt.Sprintf("type lists of different lengths: %d and %d", len(as), len(bs)))
	}
	for i := range as {
		if !v.IsNarrowerThan(as[i], bs[i]) {
			return false
		}
	}
	return true
}

// MapNarrowerThan reports whether every read variable is written with a
// narrower type. Reads without a write fail only when strict is set.
func (v *TypeVerifier) MapNarrowerThan(writes, reads map[int]frame.Type, strict bool) bool {
	for k, read := range reads {
		write, ok := writes[k]
		if !ok {
			if strict {
				return false
			}
			continue
		}
		if !v.IsNarrowerThan(write, read) {
			return false
		}
	}
	return true
}
