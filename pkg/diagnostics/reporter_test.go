package diagnostics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecognitionPanicErrorMessage(t *testing.T) {
	err := &RecognitionPanicError{Context: "recipe.Dispatcher.ProcessInput", PanicValue: "boom"}
	assert.Contains(t, err.Error(), "recipe.Dispatcher.ProcessInput")
}

func TestSetErrorReporterNilResetsToConsole(t *testing.T) {
	SetErrorReporter(&mockReporter{})
	SetErrorReporter(nil)

	_, ok := GetErrorReporter().(*ConsoleReporter)
	assert.True(t, ok)
}

func TestSetAndGetErrorReporter(t *testing.T) {
	mock := &mockReporter{}
	SetErrorReporter(mock)
	defer SetErrorReporter(nil)

	retrieved, ok := GetErrorReporter().(*mockReporter)
	require.True(t, ok)
	assert.Same(t, mock, retrieved)
}

func TestMockReporterRecordsReports(t *testing.T) {
	mock := &mockReporter{}
	SetErrorReporter(mock)
	defer SetErrorReporter(nil)

	GetErrorReporter().ReportPanic("store corruption", "recipe.Dispatcher.ProcessInput")
	GetErrorReporter().ReportError(errors.New("boom"), ErrorContext{Component: "dispatcher"})

	assert.Equal(t, 1, mock.panics)
	assert.Equal(t, 1, mock.errors)
	assert.Equal(t, "dispatcher", mock.lastContext.Component)
}

type mockReporter struct {
	panics      int
	errors      int
	lastContext ErrorContext
}

func (m *mockReporter) ReportPanic(value any, context string) { m.panics++ }
func (m *mockReporter) ReportError(err error, ctx ErrorContext) {
	m.errors++
	m.lastContext = ctx
}
func (m *mockReporter) Flush(timeout time.Duration) bool { return true }
