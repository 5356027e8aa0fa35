// Package httpx holds the HTTP client seam shared by network lookups.
package httpx

import "net/http"

// Doer is the minimal HTTP client interface used across packages.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UserAgent identifies paperman to remote services.
const UserAgent = "paperman/1 (citation manager)"

// SetUA sets UserAgent on the request.
func SetUA(req *http.Request) {
	if req != nil {
		req.Header.Set("User-Agent", UserAgent)
	}
}
