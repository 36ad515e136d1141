// Package httputil centralizes HTTP client construction for the interview
// client so REST calls share timeout defaults and tracing.
package httputil

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultRecordsTimeout is the HTTP timeout for job, resume and interview
// record lookups made before a session opens.
const DefaultRecordsTimeout = 15 * time.Second

// NewHTTPClient returns an *http.Client configured with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewTracedClient returns a client whose transport records a client span per
// request and propagates the trace context in outgoing headers.
func NewTracedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		),
	}
}
