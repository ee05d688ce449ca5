// Package monitoring holds the diagnostic logger shared by the counting,
// detector and storage packages.
package monitoring

import (
	"io"
	"log"
)

// Logf receives per-event diagnostics such as confirmations, skipped lines and
// lagging subscribers. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. A nil f discards diagnostics, which the counter's
// -quiet flag relies on.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput sends diagnostics to w with the standard log flags.
func SetOutput(w io.Writer) {
	SetLogger(log.New(w, "", log.LstdFlags).Printf)
}
