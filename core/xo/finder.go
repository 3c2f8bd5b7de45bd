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

	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/core/flow"
	"github.com/finchgp/bcxo/log"
	"github.com/finchgp/bcxo/metrics"
	"github.com/finchgp/bcxo/params"
)

// ErrInvalidConfig is returned for a crossover configuration that cannot
// drive a search.
var ErrInvalidConfig = params.ErrInvalidConfig

var (
	attemptCounter   = metrics.NewRegisteredCounter("xo/attempts", nil)
	foundCounter     = metrics.NewRegisteredCounter("xo/found", nil)
	exhaustedCounter = metrics.NewRegisteredCounter("xo/exhausted", nil)
	oversizeCounter  = metrics.NewRegisteredCounter("xo/oversize", nil)
	configLabel      = metrics.GetOrRegisterLabel("xo/config", nil)

	rejectLog   = &log.EveryN{N: 100}
	oversizeLog = &log.EveryN{N: 100}
)

// Compatibility decides whether a destination section may be replaced by a
// source section.
type Compatibility interface {
	IsCompatible(alpha, beta flow.CodeSection) bool
}

// Proposal is a compatible pair: Alpha is removed from the destination and
// Beta, taken from the source, is inserted in its place.
type Proposal struct {
	Alpha flow.CodeSection
	Beta  flow.CodeSection
}

func (p Proposal) String() string {
	return fmt.Sprintf("%v <- %v", p.Alpha, p.Beta)
}

// Finder runs a bounded random search for a compatible proposal. A Finder
// owns its random source and must not be shared between goroutines.
type Finder struct {
	alphas   *flow.SectionIndex
	betas    *flow.SectionIndex
	destLen  int
	checker  Compatibility
	rnd      Rand
	cfg      params.CrossoverConfig
	strategy Strategy
	attempts int
}

// NewFinder indexes the destination sections and the source sections. A
// nil strategy is chosen by cfg.Strategy.
func NewFinder(dest, src *bytecode.AnalyzedMethod, checker Compatibility, rnd Rand, cfg params.CrossoverConfig, strategy Strategy) (*Finder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		var err error
		if strategy, err = StrategyByName(cfg.Strategy, cfg); err != nil {
			return nil, err
		}
	}
	alphas, err := flow.CachedSectionIndex(dest, flow.RoleDestination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	betas, err := flow.CachedSectionIndex(src, flow.RoleSource)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	configLabel.Mark(map[string]any{
		"tries":    cfg.Tries,
		"maxSize":  cfg.MaxSize,
		"strategy": cfg.Strategy,
		"sigma":    cfg.Sigma,
		"factor":   cfg.Factor,
	})
	return &Finder{
		alphas:   alphas,
		betas:    betas,
		destLen:  dest.Len(),
		checker:  checker,
		rnd:      rnd,
		cfg:      cfg,
		strategy: strategy,
	}, nil
}

// Search samples up to cfg.Tries section pairs and returns the first one
// that fits the size budget and passes the checker. It reports false when
// the budget is exhausted.
func (f *Finder) Search() (Proposal, bool) {
	f.attempts = 0
	for t := 1; t <= f.cfg.Tries; t++ {
		f.attempts = t
		attemptCounter.Inc(1)

		alpha := f.strategy(f.alphas, f.rnd)
		beta := f.strategy(f.betas, f.rnd)

		// Approximate: frame markers of the merged code are not counted.
		if f.cfg.MaxSize != 0 && f.destLen-alpha.Size()+beta.Size() > f.cfg.MaxSize {
			oversizeCounter.Inc(1)
			log.DebugBy(oversizeLog, "Crossover attempt oversize", "alpha", alpha, "beta", beta,
				"size", f.destLen-alpha.Size()+beta.Size(), "max", f.cfg.MaxSize)
			continue
		}
		if f.checker.IsCompatible(alpha, beta) {
			foundCounter.Inc(1)
			log.Trace("Crossover found", "dest", f.alphas.Name(), "src", f.betas.Name(), "attempts", t,
				"alpha", alpha, "beta", beta)
			return Proposal{Alpha: alpha, Beta: beta}, true
		}
		log.TraceBy(rejectLog, "Crossover attempt rejected", "alpha", alpha, "beta", beta, "attempt", t)
	}
	exhaustedCounter.Inc(1)
	log.Warn("Compatible crossover not found", "dest", f.alphas.Name(), "src", f.betas.Name(), "tries", f.cfg.Tries)
	return Proposal{}, false
}

// Attempts returns the number of pairs the last Search sampled.
func (f *Finder) Attempts() int { return f.attempts }

// Destinations returns the index alpha sections are drawn from.
func (f *Finder) Destinations() *flow.SectionIndex { return f.alphas }

// Sources returns the index beta sections are drawn from.
func (f *Finder) Sources() *flow.SectionIndex { return f.betas }
