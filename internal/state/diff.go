package state

import (
	"github.com/kurobon/quickgit/internal/git"
	"github.com/kurobon/quickgit/internal/identity"
)

// Diffs are read-only: they look commits up through the snapshot but never
// change it.

// DiffCommit diffs the commit id against its first parent.
func (s *Snapshot) DiffCommit(id identity.ID, contextLines int) (*git.Diff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.commit(id)
	if !ok {
		return nil, ErrUnknownCommit
	}
	return git.CommitDiff(rec.Commit, contextLines)
}

// DiffCommits diffs from the commit oldID to newID.
func (s *Snapshot) DiffCommits(oldID, newID identity.ID, contextLines int) (*git.Diff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, ok := s.commit(oldID)
	if !ok {
		return nil, ErrUnknownCommit
	}
	to, ok := s.commit(newID)
	if !ok {
		return nil, ErrUnknownCommit
	}
	return git.CommitsDiff(from.Commit, to.Commit, contextLines)
}

// DiffWorkdir returns the staged and unstaged changes.
func (s *Snapshot) DiffWorkdir(contextLines int) (staged, unstaged *git.Diff, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return git.WorkdirDiff(s.repo, contextLines)
}
