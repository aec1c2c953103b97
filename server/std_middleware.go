package server

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/dietitian-server/internal/config"
	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	throttleIdleTTL = 5 * time.Minute
	maxBodyBytes    = 1 << 20
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// APIMiddleware is the chain every JSON route runs through, outermost first.
func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.MetricsMiddleware,
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.SecurityHeadersMiddleware,
		s.CorsMiddleware,
		s.ThrottleMiddleware,
		s.MaxBodyMiddleware,
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next(sw, r)

		event := log.Info()
		if sw.code >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.code).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) MetricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := s.svc.Metrics
		m.HTTPInFlight.Inc()
		defer m.HTTPInFlight.Dec()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(sw.code)
		m.HTTPRequests.WithLabelValues(r.Method, route, status).Inc()
		m.HTTPRequestSeconds.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("recovered from panic")
				respondError(w, r, apperrors.ErrInternal)
			}
		}()
		next(w, r)
	}
}

func (s *Server) SecurityHeadersMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		if s.env == config.EnvProduction {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next(w, r)
	}
}

func (s *Server) CorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	allowedOrigins := s.config.GetAllowedOrigins()
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// No Origin header = same-origin request, no CORS headers needed
		if origin == "" {
			next(w, r)
			return
		}

		isAllowed := allowedOrigins.IsAllowedOrigin(origin)
		if isAllowed {
			// Credentials are only ever allowed for a named origin
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			if isAllowed {
				w.Header().Set("Access-Control-Allow-Methods", s.config.GetAllowedMethods())
				w.Header().Set("Access-Control-Allow-Headers", s.config.GetAllowedHeaders())
				w.Header().Set("Access-Control-Max-Age", "86400")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

type throttleBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// ThrottleMiddleware is a coarse per-IP token bucket in front of every route. The
// per-action limits of the request pipeline apply on top of it.
func (s *Server) ThrottleMiddleware(next http.HandlerFunc) http.HandlerFunc {
	rps := s.config.GetThrottleRPS()
	burst := s.config.GetThrottleBurst()
	return func(w http.ResponseWriter, r *http.Request) {
		if rps <= 0 {
			next(w, r)
			return
		}
		if !s.throttleAllow(s.clientIP(r), rate.Limit(rps), burst) {
			s.svc.Metrics.RateLimitRejected.WithLabelValues("throttle").Inc()
			respondError(w, r, apperrors.ErrRateLimited)
			return
		}
		next(w, r)
	}
}

func (s *Server) throttleAllow(ip string, limit rate.Limit, burst int) bool {
	s.throttleLock.Lock()
	defer s.throttleLock.Unlock()

	now := time.Now()
	b, ok := s.throttles[ip]
	if !ok {
		b = &throttleBucket{lim: rate.NewLimiter(limit, burst)}
		s.throttles[ip] = b
	}
	b.seen = now
	return b.lim.Allow()
}

// SweepThrottles drops buckets idle for longer than the throttle TTL.
func (s *Server) SweepThrottles() int {
	s.throttleLock.Lock()
	defer s.throttleLock.Unlock()

	removed := 0
	now := time.Now()
	for ip, b := range s.throttles {
		if now.Sub(b.seen) > throttleIdleTTL {
			delete(s.throttles, ip)
			removed++
		}
	}
	return removed
}

// RunThrottleSweeper calls SweepThrottles every interval until ctx is done.
func (s *Server) RunThrottleSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepThrottles()
		}
	}
}

func (s *Server) MaxBodyMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next(w, r)
	}
}

// clientIP is the peer address, unless the peer is a trusted proxy. Then the
// X-Forwarded-For chain is walked from the right and the first untrusted hop wins.
func (s *Server) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !s.trustedProxies.Contains(peer) {
		return host
	}

	xff := r.Header.Values("X-Forwarded-For")
	if len(xff) == 0 {
		return host
	}
	hops := strings.Split(strings.Join(xff, ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return host
		}
		if !s.trustedProxies.Contains(hop) || i == 0 {
			return hop.Unmap().String()
		}
	}
	return host
}
