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
	"math"
	"strings"

	"github.com/finchgp/bcxo/core/flow"
	"github.com/finchgp/bcxo/params"
)

// Rand is the random source a Finder draws from. *rand.Rand of
// golang.org/x/exp/rand satisfies it.
type Rand interface {
	Intn(n int) int
	NormFloat64() float64
}

// Strategy picks one section of an index. Every index holds at least the
// empty section, so a strategy always has something to return.
type Strategy func(idx *flow.SectionIndex, rnd Rand) flow.CodeSection

func pickOfSize(idx *flow.SectionIndex, size int, rnd Rand) flow.CodeSection {
	sections := idx.Sections(size)
	return sections[rnd.Intn(len(sections))]
}

// Uniform picks a size among the distinct section sizes with equal
// probability, then a section of that size.
func Uniform(idx *flow.SectionIndex, rnd Rand) flow.CodeSection {
	sizes := idx.Sizes()
	return pickOfSize(idx, sizes[rnd.Intn(len(sizes))], rnd)
}

// GaussianRank picks the size at rank round(|N(0,1)| * sizes / factor) of
// the ascending size list, clamped to the largest size.
func GaussianRank(factor float64) Strategy {
	return func(idx *flow.SectionIndex, rnd Rand) flow.CodeSection {
		sizes := idx.Sizes()
		rank := int(math.Round(math.Abs(rnd.NormFloat64()) * float64(len(sizes)) / factor))
		return pickOfSize(idx, sizes[min(rank, len(sizes)-1)], rnd)
	}
}

// GaussianSize picks the size closest to |N(0,1)| * sigma instructions.
func GaussianSize(sigma float64) Strategy {
	return func(idx *flow.SectionIndex, rnd Rand) flow.CodeSection {
		target := math.Abs(rnd.NormFloat64()) * sigma

		// Distances to the target decrease and then increase along the
		// ascending sizes, so the scan stops at the first increase.
		sizes := idx.Sizes()
		best, diff := sizes[0], math.Inf(1)
		for _, size := range sizes {
			d := math.Abs(float64(size) - target)
			if d >= diff {
				break
			}
			best, diff = size, d
		}
		return pickOfSize(idx, best, rnd)
	}
}

// StrategyByName returns the strategy named by params.Strategy*, configured
// from cfg.
func StrategyByName(name string, cfg params.CrossoverConfig) (Strategy, error) {
	switch name {
	case params.StrategyUniform:
		return Uniform, nil
	case params.StrategyGaussianRank:
		return GaussianRank(cfg.Factor), nil
	case params.StrategyGaussianSize:
		return GaussianSize(cfg.Sigma), nil
	}
	return nil, fmt.Errorf("%w: unknown strategy %q, want one of %s", ErrInvalidConfig, name, strings.Join(params.StrategyNames(), ", "))
}
