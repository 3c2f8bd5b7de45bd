package log

import (
	"sync/atomic"

	"golang.org/x/exp/slog"
)

// LoggerFilter decides whether a rate limited record is written.
type LoggerFilter interface {
	check() bool
}

// EveryN lets one record out of N through, starting with the N-th. A nil
// or zero EveryN lets every record through. It is safe for concurrent use.
type EveryN struct {
	N       uint32
	counter atomic.Uint32
}

func (e *EveryN) check() bool {
	if e == nil || e.N == 0 {
		return true
	}
	return e.counter.Add(1)%e.N == 0
}

var _ LoggerFilter = (*EveryN)(nil)

// TraceBy writes a trace record through the root logger if filter allows it.
func TraceBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, LevelTrace, msg, ctx)
}

// DebugBy writes a debug record through the root logger if filter allows it.
func DebugBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, LevelDebug, msg, ctx)
}

func writeBy(filter LoggerFilter, lvl slog.Level, msg string, ctx []interface{}) {
	if filter == nil || filter.check() {
		Root().Write(lvl, msg, ctx...)
	}
}
