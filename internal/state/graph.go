package state

import (
	"errors"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/kurobon/quickgit/internal/git"
	"github.com/kurobon/quickgit/internal/identity"
	"github.com/kurobon/quickgit/internal/logging"
)

// Refresh drops every record and rebuilds the snapshot from the repository.
func (s *Snapshot) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fill()
}

// RefreshStatus only recounts uncommitted files.
func (s *Snapshot) RefreshStatus() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshStatus(); err != nil {
		return err
	}
	s.bump()
	return nil
}

func (s *Snapshot) fill() error {
	defer logging.Stopwatch(s.log, "fill")()

	s.clear()
	s.name = displayName(s.path)

	if err := s.refreshStatus(); err != nil {
		// bare repositories have no status; the count is informational
		s.log.Debug().Err(err).Msg("status unavailable")
	}

	seeds, err := s.populateBranches()
	if err != nil {
		s.bump()
		return err
	}
	if head, err := s.repo.Head(); err == nil {
		seeds = append(seeds, head.Hash())
	}

	s.populateCommits(seeds)
	s.resolveHead()
	s.bump()

	s.log.Debug().
		Int("commits", len(s.commits)).
		Int("branches", s.branches.len()).
		Str("head", s.head.String()).
		Msg("snapshot filled")
	return nil
}

// populateBranches tracks every direct local or remote branch that resolves
// to a commit and returns their tips as walk seeds. References that fail to
// resolve are skipped and remembered, so stale does not count them as moved.
func (s *Snapshot) populateBranches() ([]plumbing.Hash, error) {
	iter, err := s.repo.References()
	if err != nil {
		return nil, git.Engine("list references", err)
	}

	var refs []*plumbing.Reference
	err = iter.ForEach(func(r *plumbing.Reference) error {
		if r.Type() != plumbing.HashReference {
			return nil // symbolic, e.g. refs/remotes/origin/HEAD
		}
		if _, ok := branchKind(r.Name()); ok {
			refs = append(refs, r)
		}
		return nil
	})
	if err != nil {
		return nil, git.Engine("list references", err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name() < refs[j].Name() })

	seeds := make([]plumbing.Hash, 0, len(refs))
	for _, r := range refs {
		if _, err := s.repo.CommitObject(r.Hash()); err != nil {
			s.log.Warn().Err(err).Str("ref", r.Name().String()).Msg("skipping reference")
			s.skipped[r.Name()] = r.Hash()
			continue
		}
		kind, _ := branchKind(r.Name())
		s.track(r, kind)
		seeds = append(seeds, r.Hash())
	}
	return seeds, nil
}

// track creates a record for ref and files it under its tip's bucket.
func (s *Snapshot) track(ref *plumbing.Reference, kind BranchKind) BranchHandle {
	h := s.branches.alloc(newBranchRecord(ref, kind))
	id := identity.FromReference(ref)
	s.heads[id] = append(s.heads[id], h)
	return h
}

// untrack removes h from its bucket and retires it.
func (s *Snapshot) untrack(h BranchHandle) {
	rec, ok := s.branches.get(h)
	if !ok {
		return
	}
	s.unlinkHead(rec.Tip(), h)
	s.branches.release(h)
}

// moveBranch points a live record at ref and refiles it under the new tip.
// The handle is kept.
func (s *Snapshot) moveBranch(h BranchHandle, ref *plumbing.Reference) {
	rec, ok := s.branches.get(h)
	if !ok {
		return
	}
	s.unlinkHead(rec.Tip(), h)
	rec.Ref = ref
	id := identity.FromReference(ref)
	s.heads[id] = append(s.heads[id], h)
}

// unlinkHead drops h from the bucket of id, deleting the bucket when h was
// its last member.
func (s *Snapshot) unlinkHead(id identity.ID, h BranchHandle) {
	bucket := s.heads[id]
	for i, other := range bucket {
		if other != h {
			continue
		}
		if len(bucket) == 1 {
			delete(s.heads, id)
			return
		}
		s.heads[id] = append(bucket[:i:i], bucket[i+1:]...)
		return
	}
}

// resolveHead follows the repository's HEAD. A detached or unborn HEAD leaves
// the head branch null.
func (s *Snapshot) resolveHead() {
	s.head = identity.Zero
	s.headBranch = BranchHandle{}

	ref, err := s.repo.Head()
	if err != nil {
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			s.log.Warn().Err(err).Msg("cannot resolve HEAD")
		}
		return
	}
	s.head = identity.FromHash(ref.Hash())
	if ref.Name().IsBranch() {
		s.headBranch = s.findBranch(ref.Name())
	}
}

func (s *Snapshot) findBranch(name plumbing.ReferenceName) BranchHandle {
	var found BranchHandle
	s.branches.each(func(rec *BranchRecord) {
		if found.IsZero() && rec.Name == name.String() {
			found = rec.Handle
		}
	})
	return found
}

// refreshStatus recounts paths that differ between HEAD, index and worktree.
func (s *Snapshot) refreshStatus() error {
	w, err := s.repo.Worktree()
	if err != nil {
		return git.Engine("worktree", err)
	}
	status, err := w.Status()
	if err != nil {
		return git.Engine("status", err)
	}

	n := 0
	for _, fs := range status {
		if fs.Staging != gogit.Unmodified || fs.Worktree != gogit.Unmodified {
			n++
		}
	}
	s.uncommitted = n
	return nil
}

// Stale reports whether branches or HEAD moved in the repository since the
// snapshot last looked, e.g. because another tool ran git.
func (s *Snapshot) Stale() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale()
}

func (s *Snapshot) stale() (bool, error) {
	iter, err := s.repo.References()
	if err != nil {
		return false, git.Engine("list references", err)
	}
	live := make(map[string]plumbing.Hash)
	err = iter.ForEach(func(r *plumbing.Reference) error {
		if _, ok := branchKind(r.Name()); !ok || r.Type() != plumbing.HashReference {
			return nil
		}
		if h, ok := s.skipped[r.Name()]; ok && h == r.Hash() {
			return nil
		}
		live[r.Name().String()] = r.Hash()
		return nil
	})
	if err != nil {
		return false, git.Engine("list references", err)
	}

	moved := s.branches.len() != len(live)
	for name, h := range s.skipped {
		if r, err := s.repo.Reference(name, false); err != nil || r.Hash() != h {
			moved = true
		}
	}
	s.branches.each(func(rec *BranchRecord) {
		if h, ok := live[rec.Name]; !ok || h != rec.Ref.Hash() {
			moved = true
		}
	})
	if moved {
		return true, nil
	}

	head, branch := identity.Zero, ""
	if ref, err := s.repo.Head(); err == nil {
		head = identity.FromHash(ref.Hash())
		if ref.Name().IsBranch() {
			branch = ref.Name().String()
		}
	}
	current := ""
	if rec, ok := s.branches.get(s.headBranch); ok {
		current = rec.Name
	}
	return head != s.head || branch != current, nil
}

// Sync refills the snapshot if the repository moved underneath it and
// otherwise only recounts the working tree status. It reports whether a
// refill happened; handles stay valid when it did not.
func (s *Snapshot) Sync() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale, err := s.stale()
	if err != nil || stale {
		return true, s.fill()
	}
	if err := s.refreshStatus(); err != nil {
		return false, err
	}
	s.bump()
	return false, nil
}
