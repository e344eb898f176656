package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// SecurityHeaders adds response headers suited to a JSON-RPC endpoint.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Never render inside a frame
		w.Header().Set("X-Frame-Options", "DENY")

		// Search results are per request; never cache them
		w.Header().Set("Cache-Control", "no-store")

		w.Header().Set("Referrer-Policy", "no-referrer")

		// HSTS: enforce HTTPS (only if using TLS)
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security",
				"max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// OriginGuard rejects browser requests whose Origin is neither a loopback
// host nor listed in allowed. Requests without an Origin header (CLI and
// desktop MCP clients) pass through.
//
// A local MCP endpoint reachable from any web page is open to DNS rebinding,
// so cross-origin callers must be listed explicitly:
//
//	middleware.OriginGuard([]string{"https://app.example.com"})
func OriginGuard(allowed []string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSuffix(strings.ToLower(o), "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && !originAllowed(origin, set) {
				http.Error(w, "Origin not allowed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed reports whether origin is loopback or in the allow set.
func originAllowed(origin string, set map[string]struct{}) bool {
	if _, ok := set[strings.TrimSuffix(strings.ToLower(origin), "/")]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return isLoopback(u.Hostname())
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
