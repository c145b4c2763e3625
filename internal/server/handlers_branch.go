package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kurobon/quickgit/internal/identity"
	"github.com/kurobon/quickgit/internal/state"
)

func branchParam(r *http.Request) (state.BranchHandle, error) {
	h, err := state.ParseBranchHandle(chi.URLParam(r, "handle"))
	if err != nil {
		return state.BranchHandle{}, invalid(err)
	}
	return h, nil
}

func commitParam(r *http.Request, name string) (identity.ID, error) {
	id, err := identity.ParseAny(chi.URLParam(r, name))
	if err != nil {
		return identity.Zero, invalid(err)
	}
	return id, nil
}

type createBranchRequest struct {
	Name string `json:"name"`
	// Commit defaults to HEAD.
	Commit string `json:"commit"`
}

func (s *Server) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	key, snap := snapshotFrom(r)
	var req createBranchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	at := snap.HeadID()
	if req.Commit != "" {
		var err error
		if at, err = identity.ParseAny(req.Commit); err != nil {
			s.writeError(w, r, invalid(err))
			return
		}
	}

	h, err := snap.CreateBranch(req.Name, at)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, http.StatusCreated, key, snap, mutationResult{Handle: h.String()})
}

type renameBranchRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenameBranch(w http.ResponseWriter, r *http.Request) {
	key, snap := snapshotFrom(r)
	h, err := branchParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req renameBranchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	renamed, err := snap.RenameBranch(h, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, http.StatusOK, key, snap, mutationResult{Handle: renamed.String()})
}

func (s *Server) handleDeleteBranch(w http.ResponseWriter, r *http.Request) {
	key, snap := snapshotFrom(r)
	h, err := branchParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := snap.DeleteBranch(h); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, http.StatusOK, key, snap, mutationResult{})
}

type checkoutRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleCheckoutBranch(w http.ResponseWriter, r *http.Request) {
	key, snap := snapshotFrom(r)
	h, err := branchParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req checkoutRequest
	if err := decodeOptional(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := snap.CheckoutBranch(h, req.Force); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, http.StatusOK, key, snap, mutationResult{Handle: h.String()})
}

func (s *Server) handleCheckoutCommit(w http.ResponseWriter, r *http.Request) {
	key, snap := snapshotFrom(r)
	id, err := commitParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req checkoutRequest
	if err := decodeOptional(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := snap.CheckoutCommit(id, req.Force); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, http.StatusOK, key, snap, mutationResult{ID: id.String()})
}

type resetRequest struct {
	Commit string `json:"commit"`
	// Mode is soft, mixed or hard; empty means mixed.
	Mode string `json:"mode"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	key, snap := snapshotFrom(r)
	var req resetRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Commit == "" {
		s.writeError(w, r, invalid(errMissing("commit")))
		return
	}
	id, err := identity.ParseAny(req.Commit)
	if err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	mode, err := state.ParseResetMode(req.Mode)
	if err != nil {
		s.writeError(w, r, invalid(err))
		return
	}

	if err := snap.Reset(id, mode); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondMutation(w, http.StatusOK, key, snap, mutationResult{ID: id.String()})
}
