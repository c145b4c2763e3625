package state

import (
	"sort"
	"time"

	"github.com/kurobon/quickgit/internal/identity"
	"github.com/kurobon/quickgit/internal/palette"
)

// View is a self-contained copy of a snapshot for serialisation.
type View struct {
	Name             string       `json:"name"`
	Path             string       `json:"path"`
	Generation       uint64       `json:"generation"`
	UncommittedFiles int          `json:"uncommittedFiles"`
	Head             HeadView     `json:"head"`
	Selected         string       `json:"selected,omitempty"`
	Commits          []CommitView `json:"commits"`
	Branches         []BranchView `json:"branches"`
}

type HeadView struct {
	ID       string `json:"id,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Handle   string `json:"handle,omitempty"`
	Detached bool   `json:"detached"`
}

type CommitView struct {
	ID         string    `json:"id"`
	Hash       string    `json:"hash"`
	ShortHash  string    `json:"shortHash"`
	Summary    string    `json:"summary"`
	AuthorName string    `json:"author"`
	AuthorDate string    `json:"date"`
	Time       time.Time `json:"time"`
	Parents    []string  `json:"parents,omitempty"`
	// Branches holds the handles of branches pointing here.
	Branches []string `json:"branches,omitempty"`
}

type BranchView struct {
	Handle    string       `json:"handle"`
	Name      string       `json:"name"`
	ShortName string       `json:"shortName"`
	Kind      BranchKind   `json:"kind"`
	Color     palette.RGBA `json:"color"`
	Tip       string       `json:"tip"`
	Head      bool         `json:"head"`
}

// View copies the snapshot under a single read lock.
func (s *Snapshot) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		Name:             s.name,
		Path:             s.path,
		Generation:       s.generation,
		UncommittedFiles: s.uncommitted,
		Commits:          make([]CommitView, 0, len(s.commits)),
		Branches:         make([]BranchView, 0, s.branches.len()),
	}
	if s.head != identity.Zero {
		v.Head.ID = s.head.String()
	}
	if rec, ok := s.branches.get(s.headBranch); ok {
		v.Head.Branch = rec.ShortName()
		v.Head.Handle = rec.Handle.String()
	} else {
		v.Head.Detached = s.head != identity.Zero
	}
	if s.selected != identity.Zero {
		v.Selected = s.selected.String()
	}

	for _, c := range s.commits {
		cv := CommitView{
			ID:         c.ID.String(),
			Hash:       c.Hash.String(),
			ShortHash:  c.ShortHash,
			Summary:    c.Summary,
			AuthorName: c.AuthorName,
			AuthorDate: c.AuthorDate,
			Time:       c.Time,
		}
		for _, p := range c.Parents {
			cv.Parents = append(cv.Parents, p.String())
		}
		for _, h := range s.heads[c.ID] {
			cv.Branches = append(cv.Branches, h.String())
		}
		v.Commits = append(v.Commits, cv)
	}

	for _, rec := range s.sortedBranches() {
		v.Branches = append(v.Branches, BranchView{
			Handle:    rec.Handle.String(),
			Name:      rec.Name,
			ShortName: rec.ShortName(),
			Kind:      rec.Kind,
			Color:     rec.Color,
			Tip:       rec.Tip().String(),
			Head:      rec.Handle == s.headBranch,
		})
	}
	return v
}

func sortBranches(recs []*BranchRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Kind != recs[j].Kind {
			return recs[i].Kind < recs[j].Kind
		}
		return recs[i].Name < recs[j].Name
	})
}
