// Package monitoring holds the package-level diagnostic loggers shared by the
// sweep pipeline. Tests may redirect or mute them.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the diagnostic logger. It defaults to log.Printf but may be
// replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

var debugEnabled atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug enables or disables Debugf output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether Debugf currently emits anything.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf logs through Logf when debug logging is enabled.
func Debugf(format string, v ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	Logf(format, v...)
}
