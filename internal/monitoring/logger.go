// Package monitoring is the operator-visible diagnostic channel for
// the protocol layer. Transaction timeouts and discarded stream frames
// are reported here rather than returned as wrapped errors, so polling
// loops can keep running while still being heard.
package monitoring

import (
	"log"
	"os"
)

// defaultLogger prefixes driver diagnostics so they stand out from the
// host application's own log lines.
var defaultLogger = log.New(os.Stderr, "sf40: ", log.LstdFlags)

// Logf is the package-level diagnostic logger. It defaults to the
// prefixed logger above but may be replaced by SetLogger. Tests or
// embedding applications can redirect or mute it.
var Logf func(format string, v ...interface{}) = defaultLogger.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Reset restores the prefixed default logger.
func Reset() {
	Logf = defaultLogger.Printf
}
