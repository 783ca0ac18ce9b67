package diagnostics

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryReporter sends panics and errors to Sentry with tags, extras, and
// breadcrumbs attached, via the Sentry Hub API.
type SentryReporter struct {
	hub *sentry.Hub
}

// SentryOption configures the underlying Sentry client at construction.
type SentryOption func(*sentry.ClientOptions)

func WithBeforeSend(fn func(*sentry.Event, *sentry.EventHint) *sentry.Event) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.BeforeSend = fn }
}

func WithDebug(debug bool) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Debug = debug }
}

func WithEnvironment(environment string) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Environment = environment }
}

func WithRelease(release string) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Release = release }
}

// NewSentryReporter initializes the Sentry SDK with dsn and opts and
// returns a reporter bound to the resulting hub. An empty dsn disables
// sending, which is useful in tests.
func NewSentryReporter(dsn string, opts ...SentryOption) (*SentryReporter, error) {
	clientOpts := sentry.ClientOptions{Dsn: dsn}
	for _, opt := range opts {
		opt(&clientOpts)
	}
	if err := sentry.Init(clientOpts); err != nil {
		return nil, fmt.Errorf("diagnostics: sentry init: %w", err)
	}
	return &SentryReporter{hub: sentry.CurrentHub()}, nil
}

func (r *SentryReporter) ReportPanic(value any, context string) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("context", context)
		scope.SetExtra("panic_value", value)
		addBreadcrumbs(scope, GetBreadcrumbs())
		r.hub.CaptureException(fmt.Errorf("panic in %s: %v", context, value))
	})
}

func (r *SentryReporter) ReportError(err error, ctx ErrorContext) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		if ctx.Component != "" {
			scope.SetTag("component", ctx.Component)
		}
		for key, value := range ctx.Tags {
			scope.SetTag(key, value)
		}
		for key, value := range ctx.Extra {
			scope.SetExtra(key, value)
		}
		addBreadcrumbs(scope, ctx.Breadcrumbs)
		r.hub.CaptureException(err)
	})
}

func addBreadcrumbs(scope *sentry.Scope, crumbs []Breadcrumb) {
	for _, bc := range crumbs {
		scope.AddBreadcrumb(&sentry.Breadcrumb{
			Type:      bc.Type,
			Category:  bc.Category,
			Message:   bc.Message,
			Level:     sentry.Level(bc.Level),
			Timestamp: bc.Timestamp,
			Data:      bc.Data,
		}, MaxBreadcrumbs)
	}
}

// Flush blocks until pending events are sent or timeout elapses, returning
// whether it completed before the timeout.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
