// Package admin serves a small read-only HTTP surface over a packer: the
// registered message types and the process metrics.
package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linchenxuan/strixwire/log"
	"github.com/linchenxuan/strixwire/network/packer"
	"github.com/linchenxuan/strixwire/plugin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const _shutdownTimeout = 5 * time.Second

// Server is the admin HTTP server.
type Server struct {
	packer   *packer.Packer
	router   *gin.Engine
	metrics  http.Handler
	plugins  *plugin.Manager
	appeared time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler serves h on /metrics instead of the default Prometheus registry.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.metrics = h
		}
	}
}

// WithPlugins lists the instances of mgr on /plugins.
func WithPlugins(mgr *plugin.Manager) Option {
	return func(s *Server) {
		s.plugins = mgr
	}
}

// New creates a server over p with its routes registered.
func New(p *packer.Packer, opts ...Option) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	s := &Server{
		packer:   p,
		router:   r,
		metrics:  promhttp.Handler(),
		appeared: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("admin server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), _shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("admin server stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := log.Debug()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", c.Writer.Size()).
			Msg("http_request")
	}
}
