// Package server is a development auth gateway serving the OTP login API.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/internal/config"
)

// Server routes the gateway API onto an auth.Service.
type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.Service
	metrics *metrics
	cors    corsPolicy
}

func New(cfg config.Config, repos auth.Repos) (*Server, error) {
	authService, err := auth.NewService(repos, cfg, auth.WithCodeLogging(cfg.GetEnv() == "DEV"))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create auth service: %w", err)
	}

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		auth:    authService,
		metrics: newMetrics(),
		cors:    newCorsPolicy(cfg),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		logRoute(method, path)
	}
	log.Info().Str("allowed_origins", s.cors.origins.String()).Int("routes", len(s.routes)).Msg("auth gateway routes registered")
}
