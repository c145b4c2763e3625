package state

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/kurobon/quickgit/internal/identity"
	"github.com/kurobon/quickgit/internal/palette"
)

// Display widths of the bounded commit fields. The stored strings are at most
// width-1 bytes long.
const (
	SummaryWidth = 128
	AuthorWidth  = 40
	DateLayout   = "02 Jan 2006 15:04:05"
)

// BranchKind tells local branches from remote-tracking ones.
type BranchKind int

const (
	Local BranchKind = iota
	Remote
)

func (k BranchKind) String() string {
	if k == Remote {
		return "remote"
	}
	return "local"
}

func (k BranchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ResetMode selects how much of the working state a reset rewrites.
type ResetMode int

const (
	ResetSoft ResetMode = iota
	ResetMixed
	ResetHard
)

func (m ResetMode) String() string {
	switch m {
	case ResetSoft:
		return "soft"
	case ResetMixed:
		return "mixed"
	case ResetHard:
		return "hard"
	default:
		return fmt.Sprintf("ResetMode(%d)", int(m))
	}
}

// ParseResetMode accepts "soft", "mixed" or "hard".
func ParseResetMode(s string) (ResetMode, error) {
	switch strings.ToLower(s) {
	case "soft":
		return ResetSoft, nil
	case "mixed", "":
		return ResetMixed, nil
	case "hard":
		return ResetHard, nil
	}
	return 0, fmt.Errorf("unknown reset mode %q", s)
}

func (m ResetMode) engineMode() gogit.ResetMode {
	switch m {
	case ResetSoft:
		return gogit.SoftReset
	case ResetHard:
		return gogit.HardReset
	default:
		return gogit.MixedReset
	}
}

// CommitRecord is one commit of the snapshot's history.
type CommitRecord struct {
	ID          identity.ID
	Hash        plumbing.Hash
	ShortHash   string
	Summary     string
	Message     string
	AuthorName  string
	AuthorEmail string
	AuthorDate  string
	Time        time.Time
	Parents     []identity.ID
	Commit      *object.Commit
}

func newCommitRecord(c *object.Commit) *CommitRecord {
	parents := make([]identity.ID, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, identity.FromHash(p))
	}
	return &CommitRecord{
		ID:          identity.FromHash(c.Hash),
		Hash:        c.Hash,
		ShortHash:   identity.Short(c.Hash),
		Summary:     bounded(firstLine(c.Message), SummaryWidth),
		Message:     c.Message,
		AuthorName:  bounded(c.Author.Name, AuthorWidth),
		AuthorEmail: c.Author.Email,
		AuthorDate:  c.Author.When.Local().Format(DateLayout),
		Time:        c.Author.When,
		Parents:     parents,
		Commit:      c,
	}
}

func firstLine(msg string) string {
	msg = strings.TrimLeft(msg, "\r\n")
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

// bounded cuts s to fit a buffer of width bytes including a terminator,
// never splitting a rune.
func bounded(s string, width int) string {
	limit := width - 1
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// BranchRecord is one branch reference tracked by the snapshot.
type BranchRecord struct {
	Handle BranchHandle
	Name   string
	Kind   BranchKind
	Color  palette.RGBA
	Ref    *plumbing.Reference
}

func newBranchRecord(ref *plumbing.Reference, kind BranchKind) *BranchRecord {
	name := ref.Name().String()
	return &BranchRecord{
		Name:  name,
		Kind:  kind,
		Color: palette.Color(name),
		Ref:   ref,
	}
}

// ShortName drops the refs/heads/ or refs/remotes/ prefix.
func (b *BranchRecord) ShortName() string {
	return plumbing.ReferenceName(b.Name).Short()
}

// Tip is the identifier of the commit the branch points to.
func (b *BranchRecord) Tip() identity.ID {
	return identity.FromReference(b.Ref)
}

func branchKind(name plumbing.ReferenceName) (BranchKind, bool) {
	switch {
	case name.IsBranch():
		return Local, true
	case name.IsRemote():
		return Remote, true
	}
	return 0, false
}
