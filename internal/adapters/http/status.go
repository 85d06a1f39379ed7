package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardlink/cardlink/pkg/lifecycle"
	"github.com/cardlink/cardlink/pkg/log"
)

// StatusSource is the part of a session the status endpoint reports on.
// *session.Session satisfies it.
type StatusSource interface {
	State() lifecycle.State
	Identity() (username, address string)
}

// Status is the /healthz response body.
type Status struct {
	State     string `json:"state"`
	Connected bool   `json:"connected"`
	Username  string `json:"username"`
	Server    string `json:"server"`
}

// NewRouter serves /healthz from src and /metrics from gatherer.
// /healthz answers 503 once the session is PermanentlyFailed.
func NewRouter(src StatusSource, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		state := src.State()
		user, addr := src.Identity()
		body := Status{
			State:     state.String(),
			Connected: state == lifecycle.StateConnected,
			Username:  user,
			Server:    addr,
		}

		w.Header().Set("Content-Type", "application/json")
		if state.Terminal() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// StatusServer runs the status router on its own listener.
type StatusServer struct {
	srv    *http.Server
	ln     net.Listener
	logger log.Logger
}

// NewStatusServer listens on addr. Use ":0" for an ephemeral port.
func NewStatusServer(addr string, handler http.Handler, logger log.Logger) (*StatusServer, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &StatusServer{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger.With(log.String("component", "status")),
	}, nil
}

// Addr returns the listening address.
func (s *StatusServer) Addr() string { return s.ln.Addr().String() }

// Start serves in a background goroutine.
func (s *StatusServer) Start() {
	s.logger.Info("status server listening", log.String("addr", s.Addr()))
	go func() {
		if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", log.Err(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
