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

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestTerminalHandler(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	l := NewLogger(NewTerminalHandlerWithLevel(&out, LevelDebug, false))

	l.Trace("hidden")
	l.Info("Crossover found", "dest", "Fact.fact(I)I", "attempts", 3)
	l.With("src", "FactLong.fact(J)J").Warn("Compatible crossover not found", "err", errors.New("no luck"))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "INFO ["), lines[0])
	assert.Contains(t, lines[0], "] Crossover found")
	assert.True(t, strings.HasSuffix(lines[0], " dest=Fact.fact(I)I attempts=3"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "WARN ["), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], ` src=FactLong.fact(J)J err="no luck"`), lines[1])
}

func TestOddArguments(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	l := NewLogger(NewTerminalHandler(&out, false))
	l.Info("odd", "key")
	assert.Contains(t, out.String(), "key=<nil> LOG_ERROR=")
}

func TestJSONHandlerLevelNames(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	l := NewLogger(JSONHandlerWithLevel(&out, LevelTrace))
	l.Trace("tick", "n", 1)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, "trace", rec["level"])
	assert.Equal(t, "tick", rec["msg"])
	assert.Equal(t, float64(1), rec["n"])
}

func TestLogfmtHandlerFilters(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	l := NewLogger(LogfmtHandlerWithLevel(&out, slog.LevelWarn))
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	l.Info("quiet")
	l.Error("loud")
	assert.NotContains(t, out.String(), "quiet")
	assert.Contains(t, out.String(), "level=error")
}

func TestLvlFromString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"eror", LevelError},
		{"crit", LevelCrit},
	}
	for _, tt := range tests {
		lvl, err := LvlFromString(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, lvl, tt.in)
	}
	_, err := LvlFromString("loud")
	assert.Error(t, err)
}

func TestEveryN(t *testing.T) {
	t.Parallel()
	e := &EveryN{N: 3}
	var hits int
	for i := 0; i < 9; i++ {
		if e.check() {
			hits++
		}
	}
	assert.Equal(t, 3, hits)

	var nilFilter *EveryN
	assert.True(t, nilFilter.check())
	assert.True(t, (&EveryN{}).check())
}
