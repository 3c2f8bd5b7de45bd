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
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// classDoc is the YAML form of a class: metadata plus one assembler listing
// per method. A stream may hold several documents.
type classDoc struct {
	Name       string      `yaml:"name"`
	Super      string      `yaml:"super"`
	Interfaces []string    `yaml:"interfaces"`
	Interface  bool        `yaml:"interface"`
	Fields     []memberDoc `yaml:"fields"`
	Methods    []methodDoc `yaml:"methods"`
}

type memberDoc struct {
	Name   string `yaml:"name"`
	Desc   string `yaml:"desc"`
	Static bool   `yaml:"static"`
}

type methodDoc struct {
	memberDoc `yaml:",inline"`
	Code      string `yaml:"code"`
}

// LoadClasses decodes every class document in r.
func LoadClasses(r io.Reader) ([]*Class, error) {
	dec := yaml.NewDecoder(r)
	var classes []*Class
	for {
		var doc classDoc
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode class: %w", err)
		}
		c, err := doc.class()
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}

// LoadClassFile reads the class documents of a YAML file.
func LoadClassFile(path string) ([]*Class, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes, err := LoadClasses(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return classes, nil
}

func (d *classDoc) class() (*Class, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("%w: class without name", ErrSyntax)
	}
	c := &Class{
		Name:       d.Name,
		Super:      d.Super,
		Interfaces: d.Interfaces,
		Interface:  d.Interface,
	}
	if c.Super == "" && c.Name != ObjectClass {
		c.Super = ObjectClass
	}
	for _, f := range d.Fields {
		c.Fields = append(c.Fields, Member{Name: f.Name, Desc: f.Desc, Static: f.Static})
	}
	for _, md := range d.Methods {
		m, err := ParseMethodBody(c.Name, md.Name, md.Desc, md.Static, md.Code)
		if err != nil {
			return nil, err
		}
		c.Methods = append(c.Methods, m)
	}
	return c, nil
}
