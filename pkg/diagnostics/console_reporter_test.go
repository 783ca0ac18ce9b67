package diagnostics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConsoleReporterMethodsDoNotPanic(t *testing.T) {
	r := NewConsoleReporter(true)
	assert.NotPanics(t, func() {
		r.ReportPanic("boom", "recipe.Dispatcher.ProcessInput")
		r.ReportError(errors.New("bad recipe"), ErrorContext{Component: "builder", StackTrace: []byte("trace")})
	})
}

func TestConsoleReporterFlushAlwaysCompletes(t *testing.T) {
	r := NewConsoleReporter(false)
	assert.True(t, r.Flush(time.Second))
}
