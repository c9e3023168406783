package api

import (
	"crypto/subtle"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const adminTokenHeader = "X-Admin-Token"

// loggingMiddleware logs HTTP requests using slog. Headers are never logged.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// rateLimit throttles question requests per client address
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.deps.Limiter == nil || s.deps.RateLimit <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		d := s.deps.Limiter.Allow(key, s.deps.RateLimit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			retry := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			slog.Warn("rate limit exceeded", "client", key, "limit", d.Limit)
			respondError(w, http.StatusTooManyRequests, msgTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey is the caller address without its port. It is the socket peer
// unless the server trusts proxy headers, in which case RealIP has rewritten it.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requireAdminToken rejects requests whose X-Admin-Token does not match token
func requireAdminToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(adminTokenHeader))
			if len(got) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
				slog.Warn("admin route rejected", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				respondError(w, http.StatusUnauthorized, msgAdminUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
