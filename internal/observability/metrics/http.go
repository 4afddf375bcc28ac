package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Middleware returns HTTP middleware for request metrics.
func Middleware(next http.Handler) http.Handler {
	if !enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			duration := time.Since(start).Seconds()

			// Normalize path to avoid high cardinality from IDs
			path := normalizePath(r.URL.Path)

			httpRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(rw.status),
			).Inc()

			httpDuration.WithLabelValues(
				r.Method,
				path,
			).Observe(duration)
		}()

		next.ServeHTTP(rw, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures status code.
func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// normalizePath converts dynamic path segments to placeholders to avoid
// high cardinality metrics. For example:
//
//	/api/v1/deployments/1/0xabc... -> /api/v1/deployments/{id}/{address}
func normalizePath(path string) string {
	if path == "/health" || path == "/metrics" {
		return path
	}

	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return path
	}

	parts := strings.Split(rest, "/")
	normalized := []string{"/api/v1", parts[0]}
	for _, part := range parts[1:] {
		switch {
		case part == "":
			continue
		case isAddress(part):
			normalized = append(normalized, "{address}")
		case isLikelyID(part):
			normalized = append(normalized, "{id}")
		default:
			normalized = append(normalized, part)
		}
	}
	return strings.Join(normalized, "/")
}

// isAddress returns true for 0x-prefixed hex strings (addresses, tx hashes).
func isAddress(segment string) bool {
	hex, ok := strings.CutPrefix(strings.ToLower(segment), "0x")
	return ok && isHex(hex)
}

// isLikelyID returns true if segment looks like an identifier
func isLikelyID(segment string) bool {
	// UUIDs with dashes
	if strings.Count(segment, "-") >= 4 {
		return true
	}
	// Pure numbers (chain IDs)
	return isNumeric(segment)
}

// isHex returns true if string is hexadecimal (supports both upper and lowercase)
func isHex(s string) bool {
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return false
		}
	}
	return len(s) > 0
}

// isNumeric returns true if string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
