// Package state keeps an indexed in-memory mirror of a repository's commits
// and branches, and keeps it consistent across mutating operations.
package state

import (
	"path/filepath"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"

	"github.com/kurobon/quickgit/internal/git"
	"github.com/kurobon/quickgit/internal/identity"
)

// Snapshot mirrors one repository. Every exported method takes the snapshot's
// lock, so callers on different goroutines never observe a half-updated index.
type Snapshot struct {
	mu sync.RWMutex

	repo        *gogit.Repository
	name        string
	path        string
	uncommitted int

	commits     []*CommitRecord
	commitIndex map[identity.ID]int
	heads       map[identity.ID][]BranchHandle
	branches    branchArena
	skipped     map[plumbing.ReferenceName]plumbing.Hash

	head       identity.ID
	headBranch BranchHandle
	selected   identity.ID
	generation uint64

	log        zerolog.Logger
	maxCommits int
	signature  git.Identity
}

// Option configures a Snapshot.
type Option func(*Snapshot)

// WithLogger makes the snapshot log fills and mutations. The default is silent.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Snapshot) { s.log = l }
}

// WithMaxCommits caps the history walk. Zero means unbounded.
func WithMaxCommits(n int) Option {
	return func(s *Snapshot) { s.maxCommits = n }
}

// WithSignature sets the identity used for commits when the repository's
// git config has none.
func WithSignature(id git.Identity) Option {
	return func(s *Snapshot) { s.signature = id }
}

// New builds a snapshot of repo and fills it. path is the working directory
// the repository was opened from and only feeds the display name.
func New(repo *gogit.Repository, path string, opts ...Option) (*Snapshot, error) {
	s := &Snapshot{
		repo:        repo,
		path:        path,
		commitIndex: make(map[identity.ID]int),
		heads:       make(map[identity.ID][]BranchHandle),
		skipped:     make(map[plumbing.ReferenceName]plumbing.Hash),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("repo", displayName(path)).Logger()

	if err := s.fill(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens the repository containing path (walking up to find .git) and
// snapshots it.
func Open(path string, opts ...Option) (*Snapshot, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	repo, err := gogit.PlainOpenWithOptions(abs, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, git.Engine("open "+abs, err)
	}

	root := abs
	if w, err := repo.Worktree(); err == nil {
		root = w.Filesystem.Root()
	}
	return New(repo, root, opts...)
}

// displayName is the last path component, ignoring trailing separators.
func displayName(path string) string {
	path = strings.TrimRight(path, `/\`)
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

// Repository exposes the underlying engine handle for read-only use such as
// diffs. Callers must not move references behind the snapshot's back.
func (s *Snapshot) Repository() *gogit.Repository {
	return s.repo
}

func (s *Snapshot) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Snapshot) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// UncommittedFiles is the number of paths with staged or unstaged changes as
// of the last status refresh.
func (s *Snapshot) UncommittedFiles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uncommitted
}

// Generation increases after every successful fill or mutation.
func (s *Snapshot) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Snapshot) bump() {
	s.generation++
}

// Close releases every record. The snapshot must not be used afterwards.
func (s *Snapshot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	s.bump()
}

func (s *Snapshot) clear() {
	for _, c := range s.commits {
		c.Commit = nil
	}
	s.commits = nil
	s.commitIndex = make(map[identity.ID]int)
	s.heads = make(map[identity.ID][]BranchHandle)
	s.skipped = make(map[plumbing.ReferenceName]plumbing.Hash)
	s.branches.releaseAll()
	s.head = identity.Zero
	s.headBranch = BranchHandle{}
}
