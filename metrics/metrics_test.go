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

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredCounter(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	c := NewRegisteredCounter("xo/attempts", r)
	c.Inc(3)
	again := NewRegisteredCounter("xo/attempts", r)
	assert.Equal(t, int64(3), again.Count())

	var names []string
	r.Each(func(name string, _ interface{}) { names = append(names, name) })
	assert.Equal(t, []string{"xo/attempts"}, names)

	r.Unregister("xo/attempts")
	assert.Nil(t, r.Get("xo/attempts"))
}

func TestTimerMeasure(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	timer := NewRegisteredTimer("flow/index", r)
	Measure(timer, func() { time.Sleep(time.Millisecond) })
	assert.Equal(t, int64(1), timer.Count())
	assert.GreaterOrEqual(t, timer.Max(), int64(time.Millisecond))
}

func TestLabel(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	l := GetOrRegisterLabel("xo/config", r)
	l.Mark(map[string]any{"tries": 1000, "strategy": "uniform"})
	l.Mark(map[string]any{"strategy": "gaussian-size"})

	snap := GetOrRegisterLabel("xo/config", r).Snapshot()
	require.Len(t, snap.Value(), 2)
	assert.Equal(t, "gaussian-size", snap.Value()["strategy"])

	// Snapshots do not follow later marks.
	l.Mark(map[string]any{"tries": 5})
	assert.Equal(t, 1000, snap.Value()["tries"])
}
