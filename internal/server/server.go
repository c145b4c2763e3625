// Package server exposes open repository snapshots over HTTP and pushes a
// notification over a websocket whenever one of them changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kurobon/quickgit/internal/config"
	"github.com/kurobon/quickgit/internal/git"
	"github.com/kurobon/quickgit/internal/state"
)

const shutdownTimeout = 5 * time.Second

// Options configures the HTTP surface.
type Options struct {
	Addr string
	// ContextLines is used by diff endpoints when the request has no
	// context parameter.
	ContextLines   int
	Watch          bool
	Debounce       time.Duration
	AllowedOrigins []string
}

// OptionsFromConfig maps the application configuration onto server options.
func OptionsFromConfig(cfg *config.Config) Options {
	lines := cfg.Diff.ContextLines
	if cfg.Diff.FullContext {
		lines = git.FullContext
	}
	return Options{
		Addr:           cfg.Server.Addr,
		ContextLines:   lines,
		Watch:          cfg.Watch.Enabled,
		Debounce:       cfg.Watch.Debounce,
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
	}
}

type Server struct {
	registry *state.Registry
	router   chi.Router
	hub      *Hub
	watchers *watchSet
	opts     Options
	log      zerolog.Logger
}

func NewServer(reg *state.Registry, opts Options, log zerolog.Logger) *Server {
	log = log.With().Str("component", "server").Logger()
	s := &Server{
		registry: reg,
		hub:      NewHub(log),
		watchers: newWatchSet(),
		opts:     opts,
		log:      log,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on the configured address, fans out notifications and
// watches every registered repository until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	s.startWatching(ctx)

	g.Go(func() error {
		return s.hub.Run(ctx)
	})
	g.Go(func() error {
		s.log.Info().Str("addr", s.opts.Addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info().Msg("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.watchers.wait()
	return err
}

// publish tells websocket clients that a snapshot has a new generation.
func (s *Server) publish(key string, snap *state.Snapshot) {
	s.hub.Publish(Event{Type: EventSnapshot, Repo: key, Generation: snap.Generation()})
}
