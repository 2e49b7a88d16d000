package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenkeeper"
)

// ClientIP stores the caller address on the request context. With
// trustProxy set, X-Forwarded-For and X-Real-IP take precedence over
// RemoteAddr; only enable it behind a proxy that overwrites those headers.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := RemoteIP(r, trustProxy); ip != "" {
				r = r.WithContext(tokenkeeper.WithClientIP(r.Context(), ip))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RemoteIP returns the caller address, or "" when none can be parsed.
func RemoteIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}
