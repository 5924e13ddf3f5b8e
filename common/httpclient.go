package common

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HttpClient is an interface for HTTP operations against external services
// (the Telegram file CDN, the remote enhancement provider). It allows mocking
// or custom transport layers in testing.
type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
	Get(url string) (*http.Response, error)
	Post(url, contentType string, body io.Reader) (*http.Response, error)
	PostForm(url string, data url.Values) (*http.Response, error)
	Head(url string) (*http.Response, error)
	CloseIdleConnections()
}

// HTTPError is a custom error that captures unexpected status codes and response bodies.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, string(e.Body))
}

// userAgentRoundTripper is a custom RoundTripper that adds a User-Agent header.
type userAgentRoundTripper struct {
	Wrapped   http.RoundTripper
	UserAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone request to avoid mutating the original
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.UserAgent)
	return rt.Wrapped.RoundTrip(clone)
}

// Implementation of HttpClient that wraps a standard *http.Client.
type httpClient struct {
	client *http.Client
}

// DefaultTimeout bounds every outbound request. Long-running remote work
// (prediction polling) is bounded by the caller's context on top of this.
const DefaultTimeout = 30 * time.Second

// NewHttpClient returns a new HttpClient with a bounded timeout and a custom
// User-Agent. No retry logic: failed calls surface to the caller, which reports
// them to the user instead of retrying.
func NewHttpClient(userAgent string, base *http.Client) HttpClient {
	if base.Transport == nil {
		base.Transport = http.DefaultTransport
	}
	base.Transport = &userAgentRoundTripper{
		Wrapped:   base.Transport,
		UserAgent: userAgent,
	}
	if base.Timeout == 0 {
		base.Timeout = DefaultTimeout
	}

	return &httpClient{client: base}
}

// Implementation of the interface:

func (h *httpClient) Do(req *http.Request) (*http.Response, error) {
	return h.client.Do(req)
}

func (h *httpClient) Get(url string) (*http.Response, error) {
	return h.client.Get(url)
}

func (h *httpClient) Post(url, contentType string, body io.Reader) (*http.Response, error) {
	return h.client.Post(url, contentType, body)
}

func (h *httpClient) PostForm(url string, data url.Values) (*http.Response, error) {
	return h.client.PostForm(url, data)
}

func (h *httpClient) Head(url string) (*http.Response, error) {
	return h.client.Head(url)
}

func (h *httpClient) CloseIdleConnections() {
	h.client.CloseIdleConnections()
}
