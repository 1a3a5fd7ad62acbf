package server

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/internal/config"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chainedMiddleWare := []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.MetricsMiddleware,
		s.RecoverMiddleware,
		s.CorsMiddleware,
	}
	chainedMiddleWare = append(chainedMiddleWare, mw...)
	return chainedMiddleWare
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env == "DEV" {
			logRoute(r.Method, r.URL.Path)
		}
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Str("path", r.URL.Path).Msg("handler panic")
				writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
			}
		}()
		next(w, r)
	}
}

// corsPolicy is the CORS configuration resolved once at startup.
type corsPolicy struct {
	origins  config.AllowedOrigins
	wildcard bool
	methods  string
	headers  string
}

func newCorsPolicy(cfg config.CorsConfig) corsPolicy {
	origins := cfg.GetAllowedOrigins()
	return corsPolicy{
		origins:  origins,
		wildcard: origins.IsAllowedOrigin("*"),
		methods:  cfg.GetAllowedMethods(),
		headers:  cfg.GetAllowedHeaders(),
	}
}

// apply sets the response headers for origin and reports whether the origin
// may call the API. Credentials are never allowed with the wildcard.
func (p corsPolicy) apply(h http.Header, origin string) bool {
	switch {
	case p.origins.IsAllowedOrigin(origin):
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
	case p.wildcard:
		h.Set("Access-Control-Allow-Origin", "*")
	default:
		return false
	}
	return true
}

func (s *Server) CorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next(w, r)
			return
		}

		allowed := s.cors.apply(w.Header(), origin)
		if r.Method != http.MethodOptions {
			next(w, r)
			return
		}

		// Preflight. A disallowed origin gets no CORS headers and the browser blocks it.
		if allowed {
			w.Header().Set("Access-Control-Allow-Methods", s.cors.methods)
			w.Header().Set("Access-Control-Allow-Headers", s.cors.headers)
			w.Header().Set("Access-Control-Max-Age", "86400")
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
