// Package apiclient talks to the studio API with cookie sessions and
// refreshes an expired access token transparently.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

// ErrRefreshFailed is returned to every request that was waiting on a refresh that did not succeed.
var ErrRefreshFailed = errors.New("session refresh failed")

// RefreshError carries the refresh endpoint's status when it rejected the session.
type RefreshError struct {
	StatusCode int
	Err        error
}

func (e *RefreshError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", ErrRefreshFailed, e.Err)
	}
	return fmt.Sprintf("%v: status %d", ErrRefreshFailed, e.StatusCode)
}

func (e *RefreshError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrRefreshFailed, e.Err}
	}
	return []error{ErrRefreshFailed}
}

// Gateway sends API requests with the session cookies attached. A 401 on a
// request that has not been retried triggers at most one concurrent refresh;
// every request that failed meanwhile waits for it and replays once.
type Gateway struct {
	baseURL     string
	http        *http.Client
	refreshPath string
	// paths whose 401 is an answer, not an expired session
	noRefresh map[string]bool

	// OnAuthFailure runs once per failed refresh, e.g. to send the user to the login page.
	OnAuthFailure func(err error)

	flight singleflight.Group

	mu         sync.Mutex
	generation uint64
	lastErr    error
}

type GatewayOption func(*Gateway)

// WithHTTPClient replaces the underlying client. Its Jar is replaced when nil.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) { g.http = c }
}

func WithAuthFailureHandler(fn func(err error)) GatewayOption {
	return func(g *Gateway) { g.OnAuthFailure = fn }
}

// NewGateway creates a gateway rooted at baseURL, e.g. "http://localhost:8080/api".
func NewGateway(baseURL string, opts ...GatewayOption) (*Gateway, error) {
	g := &Gateway{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 15 * time.Second},
		refreshPath: "/auth/refresh",
		noRefresh: map[string]bool{
			"/auth/refresh": true,
			"/auth/login":   true,
			"/auth/signup":  true,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.http.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		g.http.Jar = jar
	}
	return g, nil
}

func (g *Gateway) BaseURL() string { return g.baseURL }

// NewRequest builds a request for an API path such as "/booking".
func (g *Gateway) NewRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req. The body is buffered so the request can be replayed after a refresh.
// A replayed request is returned as is, even when it is rejected again.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		b, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("buffer request body: %w", err)
		}
		body = b
	}

	seen := g.currentGeneration()
	resp, err := g.send(req, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || g.noRefresh[g.apiPath(req)] {
		return resp, nil
	}
	drain(resp)

	if err := g.refresh(req.Context(), seen); err != nil {
		return nil, err
	}
	return g.send(req, body)
}

func (g *Gateway) send(req *http.Request, body []byte) (*http.Response, error) {
	out := req.Clone(req.Context())
	if body != nil {
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
		out.ContentLength = int64(len(body))
	}
	return g.http.Do(out)
}

func (g *Gateway) apiPath(req *http.Request) string {
	return strings.TrimPrefix(req.URL.String(), g.baseURL)
}

func (g *Gateway) currentGeneration() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generation
}

// refresh makes sure a refresh newer than seen has settled and returns its outcome.
func (g *Gateway) refresh(ctx context.Context, seen uint64) error {
	ch := g.flight.DoChan("refresh", func() (any, error) {
		g.mu.Lock()
		if g.generation > seen {
			err := g.lastErr
			g.mu.Unlock()
			return nil, err
		}
		g.mu.Unlock()

		err := g.callRefresh(context.WithoutCancel(ctx))

		g.mu.Lock()
		g.generation++
		g.lastErr = err
		g.mu.Unlock()

		if err != nil && g.OnAuthFailure != nil {
			g.OnAuthFailure(err)
		}
		return nil, err
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) callRefresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+g.refreshPath, nil)
	if err != nil {
		return &RefreshError{Err: err}
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return &RefreshError{Err: err}
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return &RefreshError{StatusCode: resp.StatusCode}
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
