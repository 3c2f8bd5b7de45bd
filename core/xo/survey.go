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
	"sort"
	"sync"
	"sync/atomic"

	"github.com/finchgp/bcxo/common/gopool"
	"github.com/finchgp/bcxo/core/flow"
)

// SurveyResult counts the compatible pairs among all pairs of two indexes.
type SurveyResult struct {
	Pairs      int
	Compatible int

	// BySize maps an alpha section size to the compatible pairs whose
	// alpha has that size.
	BySize map[int]int
}

// Sizes returns the alpha sizes with at least one compatible pair, in
// ascending order.
func (r *SurveyResult) Sizes() []int {
	sizes := make([]int, 0, len(r.BySize))
	for size := range r.BySize {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	return sizes
}

// Survey checks every alpha of alphas against every beta of betas in
// parallel. The checker must be safe for concurrent use.
func Survey(ctx context.Context, checker Compatibility, alphas, betas *flow.SectionIndex) (*SurveyResult, error) {
	var as, bs []flow.CodeSection
	alphas.Each(func(s flow.CodeSection) bool { as = append(as, s); return true })
	betas.Each(func(s flow.CodeSection) bool { bs = append(bs, s); return true })

	var (
		compatible int64
		mu         sync.Mutex
		bySize     = make(map[int]int)
	)
	err := gopool.ForEach(ctx, len(as), func(i int) {
		alpha := as[i]
		var n int
		for _, beta := range bs {
			if checker.IsCompatible(alpha, beta) {
				n++
			}
		}
		if n == 0 {
			return
		}
		atomic.AddInt64(&compatible, int64(n))
		mu.Lock()
		bySize[alpha.Size()] += n
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	return &SurveyResult{
		Pairs:      len(as) * len(bs),
		Compatible: int(compatible),
		BySize:     bySize,
	}, nil
}
