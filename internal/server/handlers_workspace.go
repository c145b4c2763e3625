package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/kurobon/quickgit/internal/git"
)

type commitRequest struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	key, snap := snapshotFrom(r)
	var req commitRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := snap.Commit(req.Summary, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, http.StatusCreated, key, snap, mutationResult{ID: id.String()})
}

type indexRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleAddToIndex(w http.ResponseWriter, r *http.Request) {
	key, snap := snapshotFrom(r)
	var req indexRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Path == "" {
		s.writeError(w, r, invalid(errMissing("path")))
		return
	}

	if err := snap.AddToIndex(req.Path); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, http.StatusOK, key, snap, mutationResult{})
}

func (s *Server) handleRemoveFromIndex(w http.ResponseWriter, r *http.Request) {
	key, snap := snapshotFrom(r)
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeError(w, r, invalid(errMissing("path")))
		return
	}

	if err := snap.RemoveFromIndex(path); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, http.StatusOK, key, snap, mutationResult{})
}

// contextLines reads ?context=N or ?context=full, falling back to the
// configured default.
func (s *Server) contextLines(r *http.Request) (int, error) {
	v := r.URL.Query().Get("context")
	switch v {
	case "":
		return s.opts.ContextLines, nil
	case "full":
		return git.FullContext, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, invalid(fmt.Errorf("invalid context %q", v))
	}
	return n, nil
}

func (s *Server) handleCommitDiff(w http.ResponseWriter, r *http.Request) {
	_, snap := snapshotFrom(r)
	id, err := commitParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lines, err := s.contextLines(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	d, err := snap.DiffCommit(id, lines)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRangeDiff(w http.ResponseWriter, r *http.Request) {
	_, snap := snapshotFrom(r)
	from, err := commitParam(r, "a")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := commitParam(r, "b")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lines, err := s.contextLines(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	d, err := snap.DiffCommits(from, to, lines)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type workdirDiff struct {
	Staged   *git.Diff `json:"staged"`
	Unstaged *git.Diff `json:"unstaged"`
}

func (s *Server) handleWorkdirDiff(w http.ResponseWriter, r *http.Request) {
	_, snap := snapshotFrom(r)
	lines, err := s.contextLines(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	staged, unstaged, err := snap.DiffWorkdir(lines)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workdirDiff{Staged: staged, Unstaged: unstaged})
}
