package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kurobon/quickgit/internal/identity"
	"github.com/kurobon/quickgit/internal/state"
)

type ctxKey int

const (
	snapshotKey ctxKey = iota
	repoKey
)

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/ping", s.handlePing)
	r.Get("/api/ws", s.hub.ServeHTTP)

	r.Route("/api/repos", func(r chi.Router) {
		r.Get("/", s.handleListRepos)
		r.Post("/", s.handleOpenRepo)

		r.Route("/{repo}", func(r chi.Router) {
			r.Use(s.withSnapshot)
			r.Get("/", s.handleView)
			r.Delete("/", s.handleCloseRepo)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/select", s.handleSelect)

			r.Post("/branches", s.handleCreateBranch)
			r.Patch("/branches/{handle}", s.handleRenameBranch)
			r.Delete("/branches/{handle}", s.handleDeleteBranch)
			r.Post("/branches/{handle}/checkout", s.handleCheckoutBranch)

			r.Post("/commits/{id}/checkout", s.handleCheckoutCommit)
			r.Get("/commits/{id}/diff", s.handleCommitDiff)
			r.Get("/diff/{a}/{b}", s.handleRangeDiff)
			r.Get("/workdir-diff", s.handleWorkdirDiff)

			r.Post("/reset", s.handleReset)
			r.Post("/commit", s.handleCommit)
			r.Post("/index", s.handleAddToIndex)
			r.Delete("/index", s.handleRemoveFromIndex)
		})
	})
	s.router = r
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "pong",
		"system":  "quickgit",
	})
}

// withSnapshot resolves {repo} and stores the snapshot on the request context.
func (s *Server) withSnapshot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "repo")
		snap, ok := s.registry.Get(key)
		if !ok {
			s.writeError(w, r, notOpen(key))
			return
		}
		ctx := context.WithValue(r.Context(), snapshotKey, snap)
		ctx = context.WithValue(ctx, repoKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func snapshotFrom(r *http.Request) (string, *state.Snapshot) {
	key, _ := r.Context().Value(repoKey).(string)
	snap, _ := r.Context().Value(snapshotKey).(*state.Snapshot)
	return key, snap
}

type repoSummary struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Generation uint64 `json:"generation"`
}

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	repos := []repoSummary{}
	for _, key := range s.registry.List() {
		snap, ok := s.registry.Get(key)
		if !ok {
			continue
		}
		repos = append(repos, repoSummary{
			Key:        key,
			Name:       snap.Name(),
			Path:       snap.Path(),
			Generation: snap.Generation(),
		})
	}
	writeJSON(w, http.StatusOK, repos)
}

type openRequest struct {
	Path string `json:"path"`
}

type openResponse struct {
	Key  string     `json:"key"`
	View state.View `json:"view"`
}

func (s *Server) handleOpenRepo(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Path == "" {
		s.writeError(w, r, invalid(errMissing("path")))
		return
	}

	key, snap, created, err := s.registry.OpenOnce(req.Path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, openResponse{Key: key, View: snap.View()})
		return
	}
	s.log.Info().Str("repo", key).Str("path", snap.Path()).Msg("repository opened")
	s.watch(key, snap)
	writeJSON(w, http.StatusCreated, openResponse{Key: key, View: snap.View()})
}

func (s *Server) handleCloseRepo(w http.ResponseWriter, r *http.Request) {
	key, _ := snapshotFrom(r)
	s.unwatch(key)
	if err := s.registry.Close(key); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	_, snap := snapshotFrom(r)
	writeJSON(w, http.StatusOK, snap.View())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	key, snap := snapshotFrom(r)
	if err := snap.Refresh(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, http.StatusOK, key, snap, mutationResult{})
}

type selectRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	_, snap := snapshotFrom(r)
	var req selectRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := identity.Zero
	if req.ID != "" {
		var err error
		if id, err = identity.ParseAny(req.ID); err != nil {
			s.writeError(w, r, invalid(err))
			return
		}
	}
	if err := snap.Select(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.View())
}

// mutationResult is returned by every endpoint that changes a snapshot.
type mutationResult struct {
	Handle string     `json:"handle,omitempty"`
	ID     string     `json:"id,omitempty"`
	View   state.View `json:"view"`
}

func (s *Server) respondMutation(w http.ResponseWriter, status int, key string, snap *state.Snapshot, res mutationResult) {
	s.publish(key, snap)
	res.View = snap.View()
	writeJSON(w, status, res)
}
