package server

import (
	"fmt"
	"net/http"
	"time"
)

// XFrameOptions controls whether browsers may render responses in a frame.
type XFrameOptions string

const (
	XFrameOptionsNone       XFrameOptions = ""
	XFrameOptionsDeny       XFrameOptions = "DENY"
	XFrameOptionsSameOrigin XFrameOptions = "SAMEORIGIN"
)

// SecurityHeaders are set on every response. The login routes set cookies and
// redirect, so they must not be framed or sniffed.
type SecurityHeaders struct {
	XFrameOptions XFrameOptions

	// Strict-Transport-Security max-age. Zero omits the header.
	HSTSExpiration        time.Duration
	HSTSIncludeSubdomains bool
}

// WithSecurityHeaders overrides the headers read from server.security.*.
func WithSecurityHeaders(h SecurityHeaders) Option {
	return func(s *Server) {
		s.security = h
	}
}

func (h SecurityHeaders) headers() map[string]string {
	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	if h.XFrameOptions != XFrameOptionsNone {
		headers["X-Frame-Options"] = string(h.XFrameOptions)
	}
	if h.HSTSExpiration > 0 {
		v := fmt.Sprintf("max-age=%.0f", h.HSTSExpiration.Seconds())
		if h.HSTSIncludeSubdomains {
			v += "; includeSubDomains"
		}
		headers["Strict-Transport-Security"] = v
	}
	return headers
}

// Wrap returns next with the headers applied to every response.
func (h SecurityHeaders) Wrap(next http.Handler) http.Handler {
	headers := h.headers()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}
