package provider

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// capturedRequest is one request seen by a fake vendor.
type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   map[string]any
}

// fakeVendor records requests and answers through a route table keyed by
// "METHOD /path".
type fakeVendor struct {
	*httptest.Server

	mu       sync.Mutex
	requests []capturedRequest
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeVendor(t *testing.T, routes map[string]fakeResponse) *fakeVendor {
	t.Helper()
	f := &fakeVendor{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		f.mu.Unlock()

		resp, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"no route"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeVendor) Requests() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.requests...)
}

func (f *fakeVendor) Last() capturedRequest {
	reqs := f.Requests()
	if len(reqs) == 0 {
		return capturedRequest{}
	}
	return reqs[len(reqs)-1]
}

var fixedNow = time.Unix(1_700_000_000, 0).Add(24 * time.Hour)

func testOptions(p ID, baseURL string) Options {
	return Options{
		BaseURLs: map[ID]string{p: baseURL},
		Now:      func() time.Time { return fixedNow },
	}
}

func ptr[T any](v T) *T { return &v }
