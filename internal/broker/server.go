// Package broker implements the HTTP surface: the SSE subscribe endpoint,
// the publish endpoint, and the health/admin/statistics endpoints (spec
// §6). The broker is the only component that mutates the connection
// registry (spec §2.5), and every handler here does so only through the
// registry's public operations.
package broker

import (
	"log"
	"net/http"
	"time"

	"github.com/coachpo/logbroker/internal/brokererr"
	"github.com/coachpo/logbroker/internal/config"
	"github.com/coachpo/logbroker/internal/idgen"
	"github.com/coachpo/logbroker/internal/principal"
	"github.com/coachpo/logbroker/internal/ratelimit"
	"github.com/coachpo/logbroker/internal/registry"
	"github.com/coachpo/logbroker/internal/svcauth"
)

// Server wires the broker's dependencies and exposes an http.Handler.
type Server struct {
	registry *registry.Registry
	resolver principal.Resolver
	auth     svcauth.Authenticator
	cfg      config.Config
	limiter  *ratelimit.PerToken
	clock    idgen.Clock
	ids      idgen.Source
	logger   *log.Logger
	started  time.Time
}

// Deps bundles the Server's external collaborators. Resolver and
// Authenticator are the two interfaces spec §2 marks as external: this
// module never constructs a production implementation of either, only the
// reference implementations used for local running and tests.
type Deps struct {
	Registry *registry.Registry
	Resolver principal.Resolver
	Auth     svcauth.Authenticator
	Config   config.Config
	Clock    idgen.Clock
	IDs      idgen.Source
	Logger   *log.Logger
}

// NewServer constructs a Server from its dependencies, applying defaults for
// anything left zero.
func NewServer(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = idgen.SystemClock{}
	}
	if d.IDs == nil {
		d.IDs = idgen.UUIDSource{}
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	rate := d.Config.PublishRatePerToken
	burst := d.Config.PublishBurst
	if rate <= 0 {
		rate = 50
	}
	if burst <= 0 {
		burst = 100
	}
	return &Server{
		registry: d.Registry,
		resolver: d.Resolver,
		auth:     d.Auth,
		cfg:      d.Config,
		limiter:  ratelimit.New(rate, burst),
		clock:    d.Clock,
		ids:      d.IDs,
		logger:   d.Logger,
		started:  d.Clock.Now(),
	}
}

// Handler returns the broker's complete HTTP surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/logs/stream", s.handleSubscribe)
	mux.HandleFunc("POST /api/logs/publish", s.handlePublish)
	mux.HandleFunc("POST /test/logs", s.handlePublish)
	mux.HandleFunc("GET /api/logs/channels/{channel}/count", s.handleChannelCount)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /admin/logs/stats", s.handleStats)
	mux.HandleFunc("/", s.handleNotFound)
	return s.withCORS(mux)
}

// Shutdown signals every live connection's writer to stop (spec §5: "server
// shutdown: all writers are signalled").
func (s *Server) Shutdown() {
	s.registry.Shutdown()
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.cfg.AllowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Service-Token, X-User-Id, X-Workspaces, X-Permissions")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeErr(w, brokererr.NotFound("unknown path"))
}
