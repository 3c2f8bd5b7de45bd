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
	"errors"
	"sync"
	"testing"

	"github.com/finchgp/bcxo/core/flow"
	"github.com/finchgp/bcxo/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

type checkerFunc func(alpha, beta flow.CodeSection) bool

func (f checkerFunc) IsCompatible(alpha, beta flow.CodeSection) bool { return f(alpha, beta) }

var (
	never    = checkerFunc(func(alpha, beta flow.CodeSection) bool { return false })
	onlyNoop = checkerFunc(func(alpha, beta flow.CodeSection) bool { return alpha.IsEmpty() && beta.IsEmpty() })
)

func TestFinderFact(t *testing.T) {
	t.Parallel()
	h, fact, factLong := factPair(t)
	checker, err := NewChecker(fact, factLong, NewTypeVerifier(h))
	require.NoError(t, err)

	cfg := params.DefaultCrossoverConfig
	cfg.Tries = 10000
	cfg.MaxSize = 50
	f, err := NewFinder(fact, factLong, checker, rand.New(rand.NewSource(1234)), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, flow.RoleDestination, f.Destinations().Role())
	assert.Equal(t, flow.RoleSource, f.Sources().Role())

	p, ok := f.Search()
	require.True(t, ok)
	assert.True(t, checker.IsCompatible(p.Alpha, p.Beta), "%v", p)
	assert.LessOrEqual(t, fact.Len()-p.Alpha.Size()+p.Beta.Size(), cfg.MaxSize)
	assert.GreaterOrEqual(t, f.Attempts(), 1)
	assert.LessOrEqual(t, f.Attempts(), cfg.Tries)
}

func TestFinderExhausted(t *testing.T) {
	t.Parallel()
	_, fact, factLong := factPair(t)
	cfg := params.DefaultCrossoverConfig
	cfg.Tries = 25

	before := exhaustedCounter.Snapshot().Count()
	f, err := NewFinder(fact, factLong, never, rand.New(rand.NewSource(1)), cfg, nil)
	require.NoError(t, err)
	p, ok := f.Search()
	assert.False(t, ok)
	assert.Equal(t, Proposal{}, p)
	assert.Equal(t, cfg.Tries, f.Attempts())
	assert.Greater(t, exhaustedCounter.Snapshot().Count(), before)
}

func TestFinderSizeBudget(t *testing.T) {
	t.Parallel()
	_, fact, factLong := factPair(t)
	cfg := params.DefaultCrossoverConfig
	cfg.Tries = 200
	cfg.MaxSize = fact.Len()

	var (
		mu      sync.Mutex
		checked []Proposal
	)
	record := checkerFunc(func(alpha, beta flow.CodeSection) bool {
		mu.Lock()
		defer mu.Unlock()
		checked = append(checked, Proposal{alpha, beta})
		return false
	})
	f, err := NewFinder(fact, factLong, record, rand.New(rand.NewSource(7)), cfg, Uniform)
	require.NoError(t, err)
	_, ok := f.Search()
	assert.False(t, ok)

	// Pairs growing the destination never reach the checker.
	assert.Less(t, len(checked), cfg.Tries)
	for _, p := range checked {
		assert.LessOrEqual(t, p.Beta.Size(), p.Alpha.Size(), "%v", p)
	}
}

func TestFinderInvalidConfig(t *testing.T) {
	t.Parallel()
	_, fact, factLong := factPair(t)

	cfg := params.DefaultCrossoverConfig
	cfg.Tries = 0
	_, err := NewFinder(fact, factLong, never, rand.New(rand.NewSource(1)), cfg, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	cfg = params.DefaultCrossoverConfig
	cfg.Strategy = "roulette"
	_, err = NewFinder(fact, factLong, never, rand.New(rand.NewSource(1)), cfg, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

// Every non-empty source section of the float chain reads a float local or
// moves floats on the stack, so only an empty or label-only beta fits the
// int chain. Uniform spreads its draws over hundreds of sizes and rarely
// picks one; a narrow Gaussian on sizes does most of the time.
func TestFinderStrategiesOnLargeMethods(t *testing.T) {
	t.Parallel()
	dest, src := intChain(t), floatChain(t)
	checker, err := NewChecker(dest, src, NewTypeVerifier(nil))
	require.NoError(t, err)

	const seeds = 30
	run := func(strategy string) int {
		cfg := params.DefaultCrossoverConfig
		cfg.Tries = 200
		cfg.MaxSize = 276
		cfg.Sigma = 1
		cfg.Strategy = strategy
		found := 0
		for seed := uint64(1); seed <= seeds; seed++ {
			f, err := NewFinder(dest, src, checker, rand.New(rand.NewSource(seed)), cfg, nil)
			require.NoError(t, err)
			p, ok := f.Search()
			if !ok {
				continue
			}
			found++
			assert.True(t, p.Beta.IsEmpty() || (p.Beta.Size() == 1 && p.Beta.Instructions()[0].IsPseudo()), "%v", p)
		}
		return found
	}
	assert.LessOrEqual(t, run(params.StrategyUniform), 3)
	assert.Equal(t, seeds, run(params.StrategyGaussianSize))

	// Float code never replaces int code.
	load := section(t, src, 0, 1)    // FLOAD 0
	compare := section(t, src, 0, 3) // FLOAD 0, FCONST_0, FCMPL
	assert.False(t, checker.IsCompatible(section(t, dest, 1, 2), load))
	assert.False(t, checker.IsCompatible(section(t, dest, 1, 2), compare))
	assert.True(t, checker.IsCompatible(section(t, dest, 1, 1), section(t, src, 0, 0)))
}

func TestProposalString(t *testing.T) {
	t.Parallel()
	_, fact, factLong := factPair(t)
	p := Proposal{Alpha: section(t, fact, 6, 11), Beta: section(t, factLong, 8, 9)}
	assert.Equal(t, p.Alpha.String()+" <- "+p.Beta.String(), p.String())
}
