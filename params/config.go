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

package params

import (
	"errors"
	"fmt"
)

// Strategy names accepted by CrossoverConfig.Strategy.
const (
	StrategyUniform      = "uniform"
	StrategyGaussianRank = "gaussian-rank"
	StrategyGaussianSize = "gaussian-size"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid crossover config")

// CrossoverConfig holds the knobs of a crossover search.
type CrossoverConfig struct {
	// Tries bounds the number of section pairs sampled per search.
	Tries int

	// MaxSize bounds the approximate length of the offspring method:
	// destination length minus removed plus inserted instructions. Zero
	// disables the check.
	MaxSize int

	// Sigma is the standard deviation, in instructions, of the section size
	// drawn by the gaussian-size strategy.
	Sigma float64

	// Factor divides the number of distinct section sizes to obtain the
	// standard deviation of the rank drawn by the gaussian-rank strategy.
	Factor float64

	Strategy string

	// Seed initializes the random source of the command line tools. Zero
	// picks a time-based seed.
	Seed uint64 `toml:",omitempty"`
}

// DefaultCrossoverConfig contains the default search settings.
var DefaultCrossoverConfig = CrossoverConfig{
	Tries:    1000,
	Sigma:    8,
	Factor:   4,
	Strategy: StrategyUniform,
}

// Validate checks that every field is usable.
func (c *CrossoverConfig) Validate() error {
	switch {
	case c.Tries <= 0:
		return fmt.Errorf("%w: tries must be positive, have %d", ErrInvalidConfig, c.Tries)
	case c.MaxSize < 0:
		return fmt.Errorf("%w: max size must not be negative, have %d", ErrInvalidConfig, c.MaxSize)
	case !(c.Sigma > 0):
		return fmt.Errorf("%w: sigma must be positive, have %v", ErrInvalidConfig, c.Sigma)
	case !(c.Factor > 0):
		return fmt.Errorf("%w: factor must be positive, have %v", ErrInvalidConfig, c.Factor)
	}
	switch c.Strategy {
	case StrategyUniform, StrategyGaussianRank, StrategyGaussianSize:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	return nil
}

// Description returns a human-readable description of the config.
func (c *CrossoverConfig) Description() string {
	var banner string

	banner += fmt.Sprintf("Strategy:  %s\n", c.Strategy)
	switch c.Strategy {
	case StrategyGaussianRank:
		banner += fmt.Sprintf(" - factor: %v\n", c.Factor)
	case StrategyGaussianSize:
		banner += fmt.Sprintf(" - sigma:  %v\n", c.Sigma)
	}
	banner += fmt.Sprintf("Tries:     %d\n", c.Tries)
	if c.MaxSize == 0 {
		banner += "Max size:  unlimited\n"
	} else {
		banner += fmt.Sprintf("Max size:  %d\n", c.MaxSize)
	}
	return banner
}

func (c *CrossoverConfig) String() string {
	return fmt.Sprintf("{Strategy: %v Tries: %v MaxSize: %v Sigma: %v Factor: %v Seed: %v}",
		c.Strategy, c.Tries, c.MaxSize, c.Sigma, c.Factor, c.Seed)
}

// StrategyNames lists the accepted strategy names.
func StrategyNames() []string {
	return []string{StrategyUniform, StrategyGaussianRank, StrategyGaussianSize}
}
