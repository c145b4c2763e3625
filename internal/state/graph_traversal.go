package state

import (
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// populateCommits walks the union of history reachable from seeds, once per
// commit, and rebuilds the commit sequence ordered by author time, newest
// first. Equal times keep walk order. Commits that fail to load are skipped
// together with their ancestry on that path.
func (s *Snapshot) populateCommits(seeds []plumbing.Hash) {
	var collected []*object.Commit
	seen := make(map[plumbing.Hash]struct{})

	queue := append([]plumbing.Hash(nil), seeds...)
	for len(queue) > 0 {
		if s.maxCommits > 0 && len(collected) >= s.maxCommits {
			break
		}
		current := queue[0]
		queue = queue[1:]

		if _, ok := seen[current]; ok {
			continue
		}
		seen[current] = struct{}{}

		c, err := s.repo.CommitObject(current)
		if err != nil {
			s.log.Debug().Err(err).Str("commit", current.String()).Msg("skipping commit")
			continue
		}
		collected = append(collected, c)
		queue = append(queue, c.ParentHashes...)
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Author.When.After(collected[j].Author.When)
	})

	s.commits = make([]*CommitRecord, 0, len(collected))
	for _, c := range collected {
		rec := newCommitRecord(c)
		if _, dup := s.commitIndex[rec.ID]; dup {
			continue
		}
		s.commitIndex[rec.ID] = len(s.commits)
		s.commits = append(s.commits, rec)
	}
}
