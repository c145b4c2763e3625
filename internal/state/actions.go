package state

import (
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/kurobon/quickgit/internal/git"
	"github.com/kurobon/quickgit/internal/identity"
	"github.com/kurobon/quickgit/internal/logging"
)

// Every mutation calls the engine first and only touches the indices once the
// engine call has succeeded.

// CreateBranch creates a local branch at the commit id.
func (s *Snapshot) CreateBranch(name string, at identity.ID) (BranchHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer logging.Stopwatch(s.log, "branch create")()

	if err := git.ValidateBranchName(name); err != nil {
		return BranchHandle{}, err
	}
	target, ok := s.commit(at)
	if !ok {
		return BranchHandle{}, ErrUnknownCommit
	}

	refName := plumbing.NewBranchReferenceName(name)
	if err := s.ensureAbsent(refName); err != nil {
		return BranchHandle{}, git.Engine("create branch", err)
	}
	ref := plumbing.NewHashReference(refName, target.Hash)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return BranchHandle{}, git.Engine("create branch", err)
	}

	h := s.track(ref, Local)
	s.bump()
	s.log.Info().Str("branch", name).Str("at", target.ShortHash).Msg("branch created")
	return h, nil
}

// RenameBranch renames a local branch. The old handle is retired and a new
// one returned; if the branch was checked out, HEAD follows it.
func (s *Snapshot) RenameBranch(h BranchHandle, newName string) (BranchHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer logging.Stopwatch(s.log, "branch rename")()

	if err := git.ValidateBranchName(newName); err != nil {
		return BranchHandle{}, err
	}
	rec, ok := s.branches.get(h)
	if !ok {
		return BranchHandle{}, ErrUnknownBranch
	}
	if rec.Kind != Local {
		return BranchHandle{}, git.Engine("rename branch", fmt.Errorf("cannot rename remote-tracking branch %s", rec.ShortName()))
	}

	oldName := rec.Ref.Name()
	newRefName := plumbing.NewBranchReferenceName(newName)
	if newRefName == oldName {
		return h, nil
	}
	if err := s.ensureAbsent(newRefName); err != nil {
		return BranchHandle{}, git.Engine("rename branch", err)
	}

	newRef := plumbing.NewHashReference(newRefName, rec.Ref.Hash())
	if err := s.repo.Storer.SetReference(newRef); err != nil {
		return BranchHandle{}, git.Engine("rename branch", err)
	}
	if err := s.repo.Storer.RemoveReference(oldName); err != nil {
		_ = s.repo.Storer.RemoveReference(newRefName)
		return BranchHandle{}, git.Engine("rename branch", err)
	}
	wasHead := h == s.headBranch
	if wasHead {
		if err := s.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, newRefName)); err != nil {
			// the rename itself went through; resync everything from disk
			s.log.Error().Err(err).Msg("HEAD not moved to renamed branch")
			_ = s.fill()
			return BranchHandle{}, git.Engine("rename branch", err)
		}
	}
	s.moveBranchConfig(oldName.Short(), newName)

	// swap the new handle into the old one's bucket position
	next := s.branches.alloc(newBranchRecord(newRef, Local))
	tip := identity.FromReference(newRef)
	bucket := s.heads[tip]
	for i, other := range bucket {
		if other == h {
			bucket[i] = next
		}
	}
	s.branches.release(h)
	if wasHead {
		s.headBranch = next
	}

	s.bump()
	s.log.Info().Str("from", oldName.Short()).Str("to", newName).Msg("branch renamed")
	return next, nil
}

// DeleteBranch removes a branch. The checked out branch cannot be deleted.
func (s *Snapshot) DeleteBranch(h BranchHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer logging.Stopwatch(s.log, "branch delete")()

	rec, ok := s.branches.get(h)
	if !ok {
		return ErrUnknownBranch
	}
	if h == s.headBranch {
		return ErrDeleteHeadBranch
	}

	if err := s.repo.Storer.RemoveReference(rec.Ref.Name()); err != nil {
		return git.Engine("delete branch", err)
	}
	if rec.Kind == Local {
		s.removeBranchConfig(rec.ShortName())
	}

	name := rec.ShortName()
	s.untrack(h)
	s.bump()
	s.log.Info().Str("branch", name).Msg("branch deleted")
	return nil
}

// CheckoutBranch checks out a local branch and points HEAD at it. A
// remote-tracking branch is checked out detached at its tip. Without force a
// dirty worktree makes the engine refuse.
func (s *Snapshot) CheckoutBranch(h BranchHandle, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer logging.Stopwatch(s.log, "checkout branch")()

	rec, ok := s.branches.get(h)
	if !ok {
		return ErrUnknownBranch
	}

	opts := &gogit.CheckoutOptions{Force: force}
	if rec.Kind == Local {
		opts.Branch = rec.Ref.Name()
	} else {
		opts.Hash = rec.Ref.Hash()
	}
	if err := s.checkout(opts); err != nil {
		return err
	}
	s.log.Info().Str("branch", rec.ShortName()).Bool("force", force).Msg("checked out")
	return nil
}

// CheckoutCommit detaches HEAD at the commit id.
func (s *Snapshot) CheckoutCommit(id identity.ID, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer logging.Stopwatch(s.log, "checkout commit")()

	target, ok := s.commit(id)
	if !ok {
		return ErrUnknownCommit
	}
	if err := s.checkout(&gogit.CheckoutOptions{Hash: target.Hash, Force: force}); err != nil {
		return err
	}
	s.log.Info().Str("commit", target.ShortHash).Bool("force", force).Msg("checked out detached")
	return nil
}

func (s *Snapshot) checkout(opts *gogit.CheckoutOptions) error {
	w, err := s.repo.Worktree()
	if err != nil {
		return git.Engine("checkout", err)
	}
	if !opts.Force {
		if err := ensureClean(w); err != nil {
			return git.Engine("checkout", err)
		}
	}
	if err := w.Checkout(opts); err != nil {
		return git.Engine("checkout", err)
	}
	s.resolveHead()
	s.refreshStatusQuiet()
	s.bump()
	return nil
}

// ensureClean refuses staged or unstaged changes to tracked paths. go-git only
// checks the worktree against the index and would reset staged edits away.
func ensureClean(w *gogit.Worktree) error {
	status, err := w.Status()
	if err != nil {
		return err
	}
	for path, fs := range status {
		if fs.Staging == gogit.Untracked && fs.Worktree == gogit.Untracked {
			continue
		}
		if fs.Staging != gogit.Unmodified || fs.Worktree != gogit.Unmodified {
			return fmt.Errorf("%w: %s", gogit.ErrUnstagedChanges, path)
		}
	}
	return nil
}

// Reset moves the checked out branch (or a detached HEAD) to the commit id.
// ResetHard discards working tree changes.
func (s *Snapshot) Reset(id identity.ID, mode ResetMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer logging.Stopwatch(s.log, "reset "+mode.String())()

	target, ok := s.commit(id)
	if !ok {
		return ErrUnknownCommit
	}
	w, err := s.repo.Worktree()
	if err != nil {
		return git.Engine("reset", err)
	}
	if err := w.Reset(&gogit.ResetOptions{Commit: target.Hash, Mode: mode.engineMode()}); err != nil {
		return git.Engine("reset", err)
	}

	if hb := s.headBranch; !hb.IsZero() {
		s.refileFromRepo(hb, target.Hash)
	}
	s.resolveHead()
	s.refreshStatusQuiet()
	s.bump()
	s.log.Info().Str("commit", target.ShortHash).Stringer("mode", mode).Msg("reset")
	return nil
}

// Commit records the index as a new commit on HEAD. The new record is put at
// the front of the sequence without re-walking history.
func (s *Snapshot) Commit(summary, description string) (identity.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer logging.Stopwatch(s.log, "commit")()

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return identity.Zero, ErrEmptySummary
	}
	sig, err := git.ResolveSignature(s.repo, s.signature)
	if err != nil {
		return identity.Zero, git.Engine("commit", err)
	}

	msg := summary
	if description = strings.TrimSpace(description); description != "" {
		msg += "\n\n" + description
	}

	w, err := s.repo.Worktree()
	if err != nil {
		return identity.Zero, git.Engine("commit", err)
	}
	born := s.head != identity.Zero
	hash, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return identity.Zero, git.Engine("commit", err)
	}
	id := identity.FromHash(hash)

	c, err := s.repo.CommitObject(hash)
	if err != nil || !born {
		// the first commit on an unborn branch creates the branch itself
		return id, s.fill()
	}

	rec := newCommitRecord(c)
	s.commits = append(s.commits, nil)
	copy(s.commits[1:], s.commits)
	s.commits[0] = rec
	for k := range s.commitIndex {
		s.commitIndex[k]++
	}
	s.commitIndex[rec.ID] = 0

	if hb := s.headBranch; !hb.IsZero() {
		s.refileFromRepo(hb, hash)
	}
	s.resolveHead()
	s.refreshStatusQuiet()
	s.bump()
	s.log.Info().Str("commit", rec.ShortHash).Str("summary", rec.Summary).Msg("committed")
	return rec.ID, nil
}

// refileFromRepo re-reads a branch reference after the engine moved it and
// refiles the handle. fallback is the tip the engine was asked to set.
func (s *Snapshot) refileFromRepo(h BranchHandle, fallback plumbing.Hash) {
	rec, ok := s.branches.get(h)
	if !ok {
		return
	}
	ref, err := s.repo.Storer.Reference(rec.Ref.Name())
	if err != nil {
		ref = plumbing.NewHashReference(rec.Ref.Name(), fallback)
	}
	s.moveBranch(h, ref)
}

func (s *Snapshot) ensureAbsent(name plumbing.ReferenceName) error {
	_, err := s.repo.Storer.Reference(name)
	switch {
	case err == nil:
		return fmt.Errorf("a branch named %q already exists", name.Short())
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return nil
	default:
		return err
	}
}

// moveBranchConfig carries [branch "old"] tracking settings over to the new
// name, as git branch -m does.
func (s *Snapshot) moveBranchConfig(oldName, newName string) {
	cfg, err := s.repo.Config()
	if err != nil {
		return
	}
	b, ok := cfg.Branches[oldName]
	if !ok {
		return
	}
	delete(cfg.Branches, oldName)
	b.Name = newName
	cfg.Branches[newName] = b
	if err := s.repo.Storer.SetConfig(cfg); err != nil {
		s.log.Warn().Err(err).Str("branch", newName).Msg("branch config not moved")
	}
}

func (s *Snapshot) removeBranchConfig(name string) {
	cfg, err := s.repo.Config()
	if err != nil {
		return
	}
	if _, ok := cfg.Branches[name]; !ok {
		return
	}
	delete(cfg.Branches, name)
	if err := s.repo.Storer.SetConfig(cfg); err != nil {
		s.log.Warn().Err(err).Str("branch", name).Msg("branch config not removed")
	}
}

func (s *Snapshot) refreshStatusQuiet() {
	if err := s.refreshStatus(); err != nil {
		s.log.Debug().Err(err).Msg("status refresh failed")
	}
}
