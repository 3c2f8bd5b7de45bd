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
	"strings"

	"github.com/finchgp/bcxo/core/frame"
)

// Hierarchy is a closed set of known classes used for assignability and
// member resolution. Classes outside the set are opaque: they are only
// assignable to themselves and to java/lang/Object, and declare nothing.
type Hierarchy struct {
	classes map[string]*Class
}

// NewHierarchy builds a hierarchy over the given classes.
func NewHierarchy(classes ...*Class) *Hierarchy {
	h := &Hierarchy{classes: make(map[string]*Class, len(classes))}
	for _, c := range classes {
		h.Add(c)
	}
	return h
}

// Add registers c, replacing any class of the same name.
func (h *Hierarchy) Add(c *Class) {
	h.classes[c.Name] = c
}

// Lookup returns the known class with the given internal name.
func (h *Hierarchy) Lookup(name string) (*Class, bool) {
	if h == nil {
		return nil, false
	}
	c, ok := h.classes[name]
	return c, ok
}

// IsAssignableFrom reports whether a value of internal type from can be
// stored in a slot of internal type to.
func (h *Hierarchy) IsAssignableFrom(to, from string) bool {
	if to == from || to == ObjectClass {
		return true
	}
	if strings.HasPrefix(from, "[") {
		if strings.HasPrefix(to, "[") {
			te, fe := to[1:], from[1:]
			if isPrimitiveDescriptor(te) || isPrimitiveDescriptor(fe) {
				return te == fe
			}
			return h.IsAssignableFrom(InternalName(te), InternalName(fe))
		}
		return to == "java/lang/Cloneable" || to == "java/io/Serializable"
	}
	seen := make(map[string]bool)
	return h.reaches(from, to, seen)
}

func (h *Hierarchy) reaches(from, to string, seen map[string]bool) bool {
	if from == to {
		return true
	}
	if seen[from] {
		return false
	}
	seen[from] = true
	c, ok := h.Lookup(from)
	if !ok {
		return false
	}
	if c.Super != "" && h.reaches(c.Super, to, seen) {
		return true
	}
	for _, itf := range c.Interfaces {
		if h.reaches(itf, to, seen) {
			return true
		}
	}
	return false
}

// CommonSuperclass returns the most specific known class both a and b are
// assignable to.
func (h *Hierarchy) CommonSuperclass(a, b string) string {
	if h.IsAssignableFrom(a, b) {
		return a
	}
	if h.IsAssignableFrom(b, a) {
		return b
	}
	if strings.HasPrefix(a, "[") || strings.HasPrefix(b, "[") {
		return ObjectClass
	}
	seen := make(map[string]bool)
	for cur := a; cur != "" && !seen[cur]; {
		seen[cur] = true
		if h.IsAssignableFrom(cur, b) {
			return cur
		}
		c, ok := h.Lookup(cur)
		if !ok {
			break
		}
		cur = c.Super
	}
	return ObjectClass
}

// Join merges two slot types at a control flow join point, widening
// initialized references to their common superclass. Other mismatches
// collapse to Bogus.
func (h *Hierarchy) Join(a, b frame.Type) frame.Type {
	if a == b {
		return a
	}
	aRef := a.IsReference() && !a.IsUninitialized()
	bRef := b.IsReference() && !b.IsUninitialized()
	switch {
	case aRef && bRef:
		return frame.Ref(h.CommonSuperclass(a.Name, b.Name))
	case a.Kind == frame.Null && bRef:
		return b
	case b.Kind == frame.Null && aRef:
		return a
	}
	return frame.BogusType
}

// ResolveField reports whether owner or one of its known supertypes declares
// the field.
func (h *Hierarchy) ResolveField(owner, name, desc string) bool {
	return h.resolve(owner, make(map[string]bool), func(c *Class) bool {
		return c.declaresField(name, desc)
	})
}

// ResolveMethod reports whether owner or one of its known supertypes
// declares the method.
func (h *Hierarchy) ResolveMethod(owner, name, desc string) bool {
	return h.resolve(owner, make(map[string]bool), func(c *Class) bool {
		return c.declaresMethod(name, desc)
	})
}

// objectClass declares the methods every class inherits, used when the
// hierarchy does not carry java/lang/Object itself.
var objectClass = &Class{
	Name: ObjectClass,
	Methods: []*Method{
		{Owner: ObjectClass, Name: "<init>", Desc: "()V"},
		{Owner: ObjectClass, Name: "equals", Desc: "(Ljava/lang/Object;)Z"},
		{Owner: ObjectClass, Name: "hashCode", Desc: "()I"},
		{Owner: ObjectClass, Name: "toString", Desc: "()Ljava/lang/String;"},
		{Owner: ObjectClass, Name: "getClass", Desc: "()Ljava/lang/Class;"},
		{Owner: ObjectClass, Name: "clone", Desc: "()Ljava/lang/Object;"},
		{Owner: ObjectClass, Name: "finalize", Desc: "()V"},
		{Owner: ObjectClass, Name: "notify", Desc: "()V"},
		{Owner: ObjectClass, Name: "notifyAll", Desc: "()V"},
		{Owner: ObjectClass, Name: "wait", Desc: "()V"},
		{Owner: ObjectClass, Name: "wait", Desc: "(J)V"},
		{Owner: ObjectClass, Name: "wait", Desc: "(JI)V"},
	},
}

func (h *Hierarchy) resolve(name string, seen map[string]bool, declares func(*Class) bool) bool {
	if seen[name] {
		return false
	}
	seen[name] = true
	c, ok := h.Lookup(name)
	if !ok && name == ObjectClass {
		c, ok = objectClass, true
	}
	if !ok {
		return false
	}
	if declares(c) {
		return true
	}
	if c.Super != "" && h.resolve(c.Super, seen, declares) {
		return true
	}
	for _, itf := range c.Interfaces {
		if h.resolve(itf, seen, declares) {
			return true
		}
	}
	return false
}

func isPrimitiveDescriptor(d string) bool {
	return len(d) == 1
}
