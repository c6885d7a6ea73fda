// Package gateway routes client traffic to downstream services behind
// per-service circuit breakers.
package gateway

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vidstream-labs/searchcore/internal/breaker"
	"github.com/vidstream-labs/searchcore/internal/metrics"
)

// Service identifies one downstream dependency by its stable name and base URL.
type Service struct {
	Name    string
	BaseURL string
}

// Route prefixes owned by each downstream service.
var routePrefixes = map[string]string{
	"auth":      "/api/v1/auth",
	"video":     "/api/v1/videos",
	"search":    "/api/v1/search",
	"analytics": "/api/v1/analytics",
}

// Server proxies gateway routes through the breaker registry.
type Server struct {
	router     chi.Router
	registry   *breaker.Registry
	client     *http.Client
	services   map[string]Service
	retryAfter time.Duration
	logger     *zap.Logger
}

// NewServer constructs the gateway. Each configured service gets its own
// breaker from the registry, looked up once and reused per request.
func NewServer(
	registry *breaker.Registry,
	services []Service,
	clientTimeout time.Duration,
	retryAfter time.Duration,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		registry:   registry,
		client:     &http.Client{Timeout: clientTimeout},
		services:   make(map[string]Service, len(services)),
		retryAfter: retryAfter,
		logger:     logger,
	}
	for _, svc := range services {
		s.services[svc.Name] = svc
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	for name := range s.services {
		prefix, ok := routePrefixes[name]
		if !ok {
			continue
		}
		handler := s.proxyHandler(name)
		r.HandleFunc(prefix, handler)
		r.HandleFunc(prefix+"/*", handler)
	}

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  "api-gateway",
		"breakers": s.registry.Snapshots(),
	})
}

func (s *Server) proxyHandler(name string) http.HandlerFunc {
	svc := s.services[name]
	br := s.registry.Get(name)

	return func(w http.ResponseWriter, r *http.Request) {
		var resp *http.Response
		err := br.Call(r.Context(), func() error {
			downstream, err := s.forward(r, svc)
			if err != nil {
				return err
			}
			resp = downstream
			return nil
		})
		if err != nil {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			outcome := "degraded"
			if errors.Is(err, breaker.ErrCircuitOpen) {
				outcome = "rejected"
			} else {
				s.logger.Warn("downstream call failed",
					zap.String("service", name),
					zap.Error(err),
				)
			}
			metrics.ObserveGatewayRequest(name, outcome)
			s.writeDegraded(w, name)
			return
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		metrics.ObserveGatewayRequest(name, "proxied")
		copyHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			s.logger.Warn("copy downstream response failed",
				zap.String("service", name),
				zap.Error(err),
			)
		}
	}
}

// forward performs the outbound call. Transport failures, timeouts, and 5xx
// responses count as breaker failures; 4xx responses pass through untouched
// because they indicate a client problem, not an unhealthy dependency.
func (s *Server) forward(r *http.Request, svc Service) (*http.Response, error) {
	target := strings.TrimRight(svc.BaseURL, "/") + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		return nil, fmt.Errorf("build downstream request: %w", err)
	}
	copyHeaders(req.Header, r.Header)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", svc.Name, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s returned %d", svc.Name, resp.StatusCode)
	}
	return resp, nil
}

func (s *Server) writeDegraded(w http.ResponseWriter, name string) {
	if s.retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.retryAfter.Seconds())))
	}
	s.writeJSON(w, http.StatusServiceUnavailable, degradedPayload(name))
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		switch key {
		case "Connection", "Keep-Alive", "Transfer-Encoding", "Upgrade":
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
