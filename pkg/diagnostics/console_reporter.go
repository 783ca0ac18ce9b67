package diagnostics

import (
	"log"
	"sync"
	"time"
)

// ConsoleReporter logs panics and errors through the standard log package
// (stderr unless its output was redirected). It is the default
// reporter and is primarily meant for development; verbose mode also prints
// the stack trace attached to the context, when present.
type ConsoleReporter struct {
	verbose bool
	mu      sync.Mutex
}

// NewConsoleReporter builds a console reporter. In verbose mode, reports
// carrying a stack trace print it.
func NewConsoleReporter(verbose bool) *ConsoleReporter {
	return &ConsoleReporter{verbose: verbose}
}

func (r *ConsoleReporter) ReportPanic(value any, context string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.Printf("[FATAL] panic in %s: %v", context, value)
}

func (r *ConsoleReporter) ReportError(err error, ctx ErrorContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.Printf("[ERROR] %s: %v", ctx.Component, err)
	if r.verbose && len(ctx.StackTrace) > 0 {
		log.Printf("stack trace:\n%s", ctx.StackTrace)
	}
}

// Flush is a no-op: console output is immediate.
func (r *ConsoleReporter) Flush(timeout time.Duration) bool {
	return true
}
