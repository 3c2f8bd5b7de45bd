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
	"context"
	"errors"
	"testing"

	"github.com/finchgp/bcxo/core/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurvey(t *testing.T) {
	t.Parallel()
	h, fact, _ := factPair(t)
	checker, err := NewChecker(fact, fact, NewTypeVerifier(h))
	require.NoError(t, err)
	alphas, err := flow.CachedSectionIndex(fact, flow.RoleDestination)
	require.NoError(t, err)
	betas, err := flow.CachedSectionIndex(fact, flow.RoleSource)
	require.NoError(t, err)

	res, err := Survey(context.Background(), checker, alphas, betas)
	require.NoError(t, err)
	assert.Equal(t, alphas.Len()*betas.Len(), res.Pairs)

	want := make(map[int]int)
	total := 0
	alphas.Each(func(alpha flow.CodeSection) bool {
		betas.Each(func(beta flow.CodeSection) bool {
			if checker.IsCompatible(alpha, beta) {
				want[alpha.Size()]++
				total++
			}
			return true
		})
		return true
	})
	assert.Equal(t, total, res.Compatible)
	assert.Equal(t, want, res.BySize)
	assert.Positive(t, res.Compatible)
	assert.Less(t, res.Compatible, res.Pairs)

	sizes := res.Sizes()
	assert.IsIncreasing(t, sizes)
	assert.Equal(t, 0, sizes[0])
}

func TestSurveyCancelled(t *testing.T) {
	t.Parallel()
	m := straightLine(t, "cancelled", 16)
	idx, err := flow.CachedSectionIndex(m, flow.RoleDestination)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Survey(ctx, onlyNoop, idx, idx)
	assert.True(t, errors.Is(err, context.Canceled))
}
