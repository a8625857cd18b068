// Package api serves the watch daemon's HTTP endpoints: health,
// Prometheus metrics and a read-only JSON view of the queue snapshot.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/postq/internal/control"
	"github.com/foxzi/postq/internal/headers"
	"github.com/foxzi/postq/internal/metrics"
	"github.com/foxzi/postq/internal/queue"
)

// Server is the HTTP server of the watch daemon.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      *queue.Store
	loader     *headers.Loader
	dispatcher *control.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	startTime  time.Time
	allowedIPs []*net.IPNet
}

// NewServer creates the watch HTTP server. allowedIPs restricts access
// to the listed IPs or CIDRs; empty means no restriction.
func NewServer(store *queue.Store, loader *headers.Loader, dispatcher *control.Dispatcher, m *metrics.Metrics, allowedIPs []string, logger *slog.Logger) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		store:      store,
		loader:     loader,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		startTime:  time.Now(),
	}

	s.parseAllowedIPs(allowedIPs)
	s.setupRoutes()
	return s
}

func (s *Server) parseAllowedIPs(allowedIPs []string) {
	for _, ipStr := range allowedIPs {
		ipStr = strings.TrimSpace(ipStr)
		if ipStr == "" {
			continue
		}

		if strings.Contains(ipStr, "/") {
			_, ipNet, err := net.ParseCIDR(ipStr)
			if err != nil {
				s.logger.Warn("invalid CIDR in allowed_ips", "cidr", ipStr, "error", err)
				continue
			}
			s.allowedIPs = append(s.allowedIPs, ipNet)
			continue
		}

		ip := net.ParseIP(ipStr)
		if ip == nil {
			s.logger.Warn("invalid IP in allowed_ips", "ip", ipStr)
			continue
		}
		var mask net.IPMask
		if ip.To4() != nil {
			mask = net.CIDRMask(32, 32)
		} else {
			mask = net.CIDRMask(128, 128)
		}
		s.allowedIPs = append(s.allowedIPs, &net.IPNet{IP: ip, Mask: mask})
	}
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.ipFilterMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/queue", s.handleQueue)
		r.Get("/queue/{id}", s.handleMessage)
		r.Post("/actions", s.handleActions)
	})
}

// ipFilterMiddleware rejects clients outside the allowed networks.
func (s *Server) ipFilterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowedIPs) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip != nil {
			for _, ipNet := range s.allowedIPs {
				if ipNet.Contains(ip) {
					next.ServeHTTP(w, r)
					return
				}
			}
		}

		s.logger.Warn("request from disallowed IP", "ip", host, "path", r.URL.Path)
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting watch HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down watch HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
