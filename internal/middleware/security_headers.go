package middleware

import (
	"net/http"
)

// SecurityHeadersMiddleware sets the headers the kiosk display needs. The
// display may use the camera of its own origin only.
type SecurityHeadersMiddleware struct {
	tlsEnabled bool
}

func NewSecurityHeadersMiddleware(tlsEnabled bool) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{tlsEnabled: tlsEnabled}
}

func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "camera=(self), microphone=(), geolocation=()")

		if m.tlsEnabled {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		csp := "default-src 'self'; " +
			"img-src 'self' data: blob:; " +
			"media-src 'self' blob:; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'self'; " +
			"form-action 'none'"

		w.Header().Set("Content-Security-Policy", csp)

		next.ServeHTTP(w, r)
	})
}
