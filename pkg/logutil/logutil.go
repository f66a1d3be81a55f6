// Package logutil provides logging utilities for the runtime packages.
//
// Loggers are cheap to create and write to a process-wide sink, which
// discards everything until SetOutput is called. Library packages hold a
// package-level logger; binaries decide where the output goes.
package logutil

import (
	"io"
	"log"
	"sync"
)

var (
	mu      sync.Mutex
	out     io.Writer = io.Discard
	loggers []*log.Logger
)

// GetLogger returns a Logger with the given prefix, writing to the shared
// sink.
func GetLogger(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	logger := log.New(out, prefix, log.LstdFlags)
	loggers = append(loggers, logger)
	return logger
}

// SetOutput redirects all loggers, current and future, to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	for _, logger := range loggers {
		logger.SetOutput(w)
	}
}
