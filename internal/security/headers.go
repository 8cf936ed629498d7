package security

import (
	"net/http"
	"strconv"
)

// Headers sets response hardening headers, including Cache-Control: no-store.
type Headers struct {
	Enable                bool
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
}

var baseHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "no-referrer",
	"Cache-Control":          "no-store",
}

func (h Headers) hsts() string {
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 365 * 24 * 60 * 60
	}
	value := "max-age=" + strconv.Itoa(maxAge)
	if h.HSTSIncludeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

// Middleware applies h to every response when enabled.
func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Enable {
			next.ServeHTTP(w, r)
			return
		}
		for name, value := range baseHeaders {
			w.Header().Set(name, value)
		}
		if h.EnableHSTS && r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", h.hsts())
		}
		next.ServeHTTP(w, r)
	})
}
