// Package testutil provides shared test helper utilities.
package testutil

import (
	"net/http/httptest"
	"strings"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// WSURL converts an httptest server URL to its WebSocket equivalent.
func WSURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}
