package httpserver

import (
	"net/http"

	"github.com/Chunshan-Theta/HeyGenInterface/internal/config"
)

// Server bundles the HTTP router and its dependencies.
type Server struct {
	Router http.Handler
}

// NewServer constructs the HTTP server with all routes registered.
func NewServer(cfg config.Config) *Server {
	e := New()
	NewHandlers(cfg).Register(e)
	return &Server{Router: e}
}
