// Package doi imports citations from doi.org by content negotiation.
package doi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"paperman/src/internal/bibtex"
	"paperman/src/internal/httpx"
	"paperman/src/internal/record"
)

// DefaultBaseURL is the doi.org resolver.
const DefaultBaseURL = "https://doi.org/"

// ErrNotDOI reports an identifier with no DOI in it.
var ErrNotDOI = errors.New("not a DOI")

var doiRegex = regexp.MustCompile(`(?i)10\.\d{4,9}/[-._;()/:A-Z0-9<>\[\]]+`)

// Extract pulls the bare DOI out of s, which may be a DOI, a doi: URI or a
// resolver URL. It returns "" when s holds no DOI.
func Extract(s string) string {
	s = strings.TrimSpace(s)
	if u, err := url.QueryUnescape(s); err == nil {
		s = u
	}
	return doiRegex.FindString(s)
}

// Client fetches BibTeX for a DOI.
type Client struct {
	HTTP    httpx.Doer
	BaseURL string
}

// New returns a Client for base with a request timeout. An empty base uses
// DefaultBaseURL.
func New(base string, timeout time.Duration) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{HTTP: &http.Client{Timeout: timeout}, BaseURL: base}
}

// Fetch asks the resolver for the BibTeX of id and parses it into records.
func (c *Client) Fetch(ctx context.Context, id string) (record.Store, error) {
	d := Extract(id)
	if d == "" {
		return nil, fmt.Errorf("doi %q: %w", id, ErrNotDOI)
	}
	u := strings.TrimRight(c.BaseURL, "/") + "/" + d
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-bibtex; charset=utf-8")
	httpx.SetUA(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("doi %s: %w", d, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("doi %s: http %d: %s", d, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("doi %s: read body: %w", d, err)
	}
	recs, err := bibtex.Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("doi %s: %w", d, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("doi %s: response held no entries", d)
	}
	return recs, nil
}
