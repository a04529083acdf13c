package app

import "log"

// Logf is the pipeline's diagnostic logger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. A nil f silences the pipeline.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
