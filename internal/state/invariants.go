package state

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/kurobon/quickgit/internal/identity"
)

// CheckInvariants cross-checks the indices against each other and against the
// repository's HEAD. It returns every violation found, joined.
func (s *Snapshot) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error

	// commit index is a bijection onto the sequence
	if len(s.commitIndex) != len(s.commits) {
		errs = append(errs, fmt.Errorf("commit index has %d entries for %d commits", len(s.commitIndex), len(s.commits)))
	}
	for i, c := range s.commits {
		if j, ok := s.commitIndex[c.ID]; !ok || j != i {
			errs = append(errs, fmt.Errorf("commit %s at %d indexed at %d (present=%v)", c.ShortHash, i, j, ok))
		}
	}

	// every live branch sits in exactly the bucket of its tip, buckets are non-empty
	seen := make(map[BranchHandle]identity.ID)
	for id, bucket := range s.heads {
		if len(bucket) == 0 {
			errs = append(errs, fmt.Errorf("empty branch bucket for %s", id))
		}
		for _, h := range bucket {
			rec, ok := s.branches.get(h)
			if !ok {
				errs = append(errs, fmt.Errorf("bucket %s holds stale handle %s", id, h))
				continue
			}
			if prev, dup := seen[h]; dup {
				errs = append(errs, fmt.Errorf("branch %s listed under %s and %s", rec.Name, prev, id))
			}
			seen[h] = id
			if rec.Tip() != id {
				errs = append(errs, fmt.Errorf("branch %s filed under %s but points at %s", rec.Name, id, rec.Tip()))
			}
		}
	}
	if len(seen) != s.branches.len() {
		errs = append(errs, fmt.Errorf("%d live branches but %d filed in buckets", s.branches.len(), len(seen)))
	}

	// HEAD agrees with the repository
	want, wantBranch := identity.Zero, plumbing.ReferenceName("")
	if ref, err := s.repo.Head(); err == nil {
		want = identity.FromHash(ref.Hash())
		if ref.Name().IsBranch() {
			wantBranch = ref.Name()
		}
	} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		errs = append(errs, fmt.Errorf("resolve HEAD: %w", err))
	}
	if s.head != want {
		errs = append(errs, fmt.Errorf("HEAD is %s but repository HEAD is %s", s.head, want))
	}
	rec, live := s.branches.get(s.headBranch)
	switch {
	case !s.headBranch.IsZero() && !live:
		errs = append(errs, fmt.Errorf("HEAD branch handle %s is stale", s.headBranch))
	case live && rec.Name != wantBranch.String():
		errs = append(errs, fmt.Errorf("HEAD branch is %s but repository HEAD is on %q", rec.Name, wantBranch))
	case !live && wantBranch != "" && !s.findBranch(wantBranch).IsZero():
		errs = append(errs, fmt.Errorf("HEAD is on %s but no HEAD branch is recorded", wantBranch))
	}

	return errors.Join(errs...)
}
