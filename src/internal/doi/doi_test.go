package doi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type testHTTP struct {
	status int
	body   string
	req    *http.Request
}

func (t *testHTTP) Do(req *http.Request) (*http.Response, error) {
	t.req = req
	return &http.Response{StatusCode: t.status, Body: io.NopCloser(strings.NewReader(t.body)), Header: make(http.Header)}, nil
}

type failingHTTP struct{}

func (failingHTTP) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("network down")
}

const sampleBib = ` @article{Doe_2023, title={A Sample Article}, volume={10}, DOI={10.1234/sample}, journal={Journal of Things}, author={Doe, Jane Q. and Smith, John}, year={2023}, pages={10–20} }`

func TestFetch_Success(t *testing.T) {
	h := &testHTTP{status: 200, body: sampleBib}
	c := &Client{HTTP: h, BaseURL: DefaultBaseURL}

	recs, err := c.Fetch(context.Background(), "https://doi.org/10.1234/sample")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := h.req.URL.String(); got != "https://doi.org/10.1234/sample" {
		t.Fatalf("url: %q", got)
	}
	if got := h.req.Header.Get("Accept"); !strings.HasPrefix(got, "application/x-bibtex") {
		t.Fatalf("accept header: %q", got)
	}
	r, ok := recs["Doe_2023"]
	if !ok {
		t.Fatalf("missing entry: %v", recs.Keys())
	}
	if title, _ := r.Text("title"); title != "A Sample Article" {
		t.Fatalf("title: %q", title)
	}
	if typ, _ := r.Text("entry_type"); typ != "article" {
		t.Fatalf("entry_type: %q", typ)
	}
	if d, _ := r.Text("doi"); d != "10.1234/sample" {
		t.Fatalf("doi: %q", d)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	c := &Client{HTTP: &testHTTP{status: 404, body: "DOI Not Found"}, BaseURL: DefaultBaseURL}
	_, err := c.Fetch(context.Background(), "10.1234/missing")
	if err == nil || !strings.Contains(err.Error(), "http 404") {
		t.Fatalf("expected http 404 error, got %v", err)
	}
}

func TestFetch_TransportError(t *testing.T) {
	c := &Client{HTTP: failingHTTP{}, BaseURL: DefaultBaseURL}
	if _, err := c.Fetch(context.Background(), "10.1234/x"); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestFetch_BadBody(t *testing.T) {
	for _, body := range []string{"", "<html>nope</html>", "@article{k, title={x"} {
		c := &Client{HTTP: &testHTTP{status: 200, body: body}, BaseURL: DefaultBaseURL}
		if _, err := c.Fetch(context.Background(), "10.1234/x"); err == nil {
			t.Fatalf("expected error for body %q", body)
		}
	}
}

func TestFetch_NotDOI(t *testing.T) {
	c := New("", 0)
	_, err := c.Fetch(context.Background(), "not-a-doi")
	if !errors.Is(err, ErrNotDOI) {
		t.Fatalf("want ErrNotDOI, got %v", err)
	}
}

func TestExtract(t *testing.T) {
	cases := map[string]string{
		"10.1000/xyz123":                         "10.1000/xyz123",
		" doi:10.1000/XYZ.9 ":                    "10.1000/XYZ.9",
		"https://doi.org/10.1145/3368089.3409741": "10.1145/3368089.3409741",
		"https://doi.org/10.1000%2Fabc":           "10.1000/abc",
		"nothing here":                           "",
	}
	for in, want := range cases {
		if got := Extract(in); got != want {
			t.Fatalf("Extract(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	c := New("", 0)
	if c.BaseURL != DefaultBaseURL || c.HTTP == nil {
		t.Fatalf("defaults: %+v", c)
	}
}
