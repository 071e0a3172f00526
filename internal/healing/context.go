// internal/healing/context.go
package healing

import "context"

type reporterKey struct{}

// WithReporter returns a context carrying r. Locators built without an
// explicit reporter record into the context's reporter.
func WithReporter(ctx context.Context, r *Reporter) context.Context {
	return context.WithValue(ctx, reporterKey{}, r)
}

// ReporterFromContext returns the reporter stored by WithReporter, or nil.
func ReporterFromContext(ctx context.Context) *Reporter {
	r, _ := ctx.Value(reporterKey{}).(*Reporter)
	return r
}
