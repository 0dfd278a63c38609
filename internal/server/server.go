// Package server exposes the todo list over HTTP/JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/order"
)

const shutdownGrace = 5 * time.Second

// Server serves order.Todos over HTTP.
type Server struct {
	todos   order.Todos
	cfg     config.ServerConfig
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
	handler http.Handler
}

// New builds a Server. It does not listen until Run or Serve is called.
func New(todos order.Todos, cfg config.ServerConfig, log *zap.Logger) (*Server, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		todos:   todos,
		cfg:     cfg,
		timeout: timeout,
		log:     log,
		now:     time.Now,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog, s.authenticate, s.deadline)

	r.Methods(http.MethodGet).Path(api.PathHealth).HandlerFunc(s.health)
	r.Methods(http.MethodGet).Path(api.PathTodos).HandlerFunc(s.list)
	r.Methods(http.MethodPost).Path(api.PathTodos).HandlerFunc(s.create)
	r.Methods(http.MethodPatch).Path(api.PathTodos + "/{id}").HandlerFunc(s.update)
	r.Methods(http.MethodDelete).Path(api.PathTodos + "/{id}").HandlerFunc(s.remove)
	r.Methods(http.MethodPut).Path(api.PathTodos + "/{id}/position").HandlerFunc(s.reorder)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, req, http.StatusNotFound, api.ErrorBody{Code: api.CodeNotFound, Message: "no such route"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, req, http.StatusMethodNotAllowed, api.ErrorBody{Code: api.CodeBadRequest, Message: "method not allowed"})
	})

	return s.newCORS().Handler(r)
}

func (s *Server) newCORS() *cors.Cors {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", api.HeaderRequestID},
		ExposedHeaders: []string{api.HeaderRequestID},
		MaxAge:         600,
	}
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" {
			opts.AllowOriginFunc = func(string) bool { return true }
			return cors.New(opts)
		}
	}
	opts.AllowedOrigins = s.cfg.CORSOrigins
	return cors.New(opts)
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.log.Info("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
