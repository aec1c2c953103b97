package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/jrsteele09/dietitian-server/audit"
	"github.com/jrsteele09/dietitian-server/auth"
	"github.com/jrsteele09/dietitian-server/authz"
	"github.com/jrsteele09/dietitian-server/entitlements"
	"github.com/jrsteele09/dietitian-server/internal/config"
	"github.com/jrsteele09/dietitian-server/internal/metrics"
	"github.com/jrsteele09/dietitian-server/organizations"
	"github.com/jrsteele09/dietitian-server/ratelimit"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Services are the components the HTTP surface dispatches to.
type Services struct {
	Auth          *auth.AuthService
	Gate          *authz.Gate
	Entitlements  *entitlements.Resolver
	Limiter       *ratelimit.Limiter
	Organizations organizations.Repo
	Audit         *audit.Recorder
	Metrics       *metrics.Metrics
}

type Server struct {
	env    string // Environment ("DEV" or "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	svc    Services

	trustedProxies config.TrustedProxies

	throttleLock sync.Mutex
	throttles    map[string]*throttleBucket
}

func New(cfg config.Config, svc Services) (*Server, error) {
	proxies, err := cfg.GetTrustedProxies()
	if err != nil {
		return nil, errors.Wrap(err, "[Server New]")
	}
	if svc.Auth == nil || svc.Gate == nil || svc.Entitlements == nil || svc.Limiter == nil {
		return nil, errors.New("[Server New] auth, gate, entitlements and limiter are required")
	}
	if svc.Organizations == nil || svc.Audit == nil {
		return nil, errors.New("[Server New] organizations repo and audit recorder are required")
	}
	if svc.Metrics == nil {
		svc.Metrics = metrics.NewUnregistered()
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		svc:       svc,
		throttles: make(map[string]*throttleBucket),

		trustedProxies: proxies,
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
	if s.env != config.EnvDevelopment {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
