package resilience

import (
	"fmt"
	"net/http"
)

// Transport is an http.RoundTripper that consults a Breaker before each
// request. 5xx responses and transport errors count as failures; a request is
// attempted at most once.
type Transport struct {
	Base    http.RoundTripper
	Breaker *Breaker
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Breaker == nil {
		return base.RoundTrip(req)
	}
	ctx := req.Context()
	if !t.Breaker.Allow(ctx) {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrOpenCircuit)
	}
	resp, err := base.RoundTrip(req)
	t.Breaker.Report(ctx, err == nil && resp.StatusCode < http.StatusInternalServerError)
	return resp, err
}
