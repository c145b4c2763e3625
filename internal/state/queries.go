package state

import (
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/kurobon/quickgit/internal/identity"
)

// Commits returns the commit sequence, newest first. The slice is a copy; the
// records are shared and must be treated as read-only.
func (s *Snapshot) Commits() []*CommitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*CommitRecord(nil), s.commits...)
}

// CommitByID looks a commit up in the snapshot.
func (s *Snapshot) CommitByID(id identity.ID) (*CommitRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commit(id)
}

func (s *Snapshot) commit(id identity.ID) (*CommitRecord, bool) {
	i, ok := s.commitIndex[id]
	if !ok {
		return nil, false
	}
	return s.commits[i], true
}

func (s *Snapshot) CommitAt(i int) (*CommitRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.commits) {
		return nil, false
	}
	return s.commits[i], true
}

// IndexOf returns the position of id in the commit sequence, or -1.
func (s *Snapshot) IndexOf(id identity.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.commitIndex[id]; ok {
		return i
	}
	return -1
}

// Branches lists live branches, local before remote, by name.
func (s *Snapshot) Branches() []*BranchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedBranches()
}

func (s *Snapshot) sortedBranches() []*BranchRecord {
	out := make([]*BranchRecord, 0, s.branches.len())
	s.branches.each(func(rec *BranchRecord) { out = append(out, rec) })
	sortBranches(out)
	return out
}

func (s *Snapshot) Branch(h BranchHandle) (*BranchRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.branches.get(h)
}

// BranchesAt returns the handles whose tip is id, in the order they arrived.
func (s *Snapshot) BranchesAt(id identity.ID) []BranchHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]BranchHandle(nil), s.heads[id]...)
}

// BranchByName accepts a full reference name or a short one ("main",
// "origin/main"). Local branches win over remote ones on a short name.
func (s *Snapshot) BranchByName(name string) (*BranchRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, full := range []plumbing.ReferenceName{
		plumbing.ReferenceName(name),
		plumbing.NewBranchReferenceName(name),
		plumbing.ReferenceName("refs/remotes/" + name),
	} {
		if h := s.findBranch(full); !h.IsZero() {
			rec, _ := s.branches.get(h)
			return rec, true
		}
	}
	return nil, false
}

// HeadID is the commit HEAD resolves to, or identity.Zero when unborn.
func (s *Snapshot) HeadID() identity.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// HeadBranch is the checked out branch; the null handle means detached.
func (s *Snapshot) HeadBranch() BranchHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headBranch
}

// Detached reports whether HEAD points directly at a commit.
func (s *Snapshot) Detached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headBranch.IsZero() && s.head != identity.Zero
}

// Select moves the UI cursor. Selecting an unknown id fails.
func (s *Snapshot) Select(id identity.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.commitIndex[id]; !ok && id != identity.Zero {
		return ErrUnknownCommit
	}
	s.selected = id
	return nil
}

func (s *Snapshot) Selected() identity.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}
