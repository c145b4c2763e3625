package state

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"

	"github.com/kurobon/quickgit/internal/git"
	"github.com/kurobon/quickgit/internal/identity"
)

var testSignature = git.Identity{Name: "Tester", Email: "tester@example.com"}

// fixture is an in-memory repository whose commits are addressed by label.
type fixture struct {
	t    *testing.T
	repo *gogit.Repository
	w    *gogit.Worktree
	tick int
	hash map[string]plumbing.Hash
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	isolateGlobalConfig(t)

	repo, err := gogit.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))))
	w, err := repo.Worktree()
	require.NoError(t, err)
	return &fixture{t: t, repo: repo, w: w, hash: make(map[string]plumbing.Hash)}
}

// isolateGlobalConfig keeps the developer's ~/.gitconfig out of the test.
func isolateGlobalConfig(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
}

func (f *fixture) write(path, content string) {
	f.t.Helper()
	require.NoError(f.t, util.WriteFile(f.w.Filesystem, path, []byte(content), 0o644))
}

// commit writes <label>.txt and commits it on whatever HEAD is.
func (f *fixture) commit(label string) plumbing.Hash {
	f.t.Helper()
	f.write(label+".txt", label+"\n")
	_, err := f.w.Add(label + ".txt")
	require.NoError(f.t, err)

	f.tick++
	h, err := f.w.Commit(label, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  testSignature.Name,
			Email: testSignature.Email,
			When:  time.Date(2024, 3, 1, 12, f.tick, 0, 0, time.UTC),
		},
	})
	require.NoError(f.t, err)
	f.hash[label] = h
	return h
}

func (f *fixture) id(label string) identity.ID {
	f.t.Helper()
	h, ok := f.hash[label]
	require.True(f.t, ok, "no commit labelled %s", label)
	return identity.FromHash(h)
}

func (f *fixture) setBranch(name, label string) {
	f.t.Helper()
	require.NoError(f.t, f.repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), f.hash[label])))
}

func (f *fixture) checkout(branch string) {
	f.t.Helper()
	require.NoError(f.t, f.w.Checkout(&gogit.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)}))
}

func (f *fixture) detach(label string) {
	f.t.Helper()
	require.NoError(f.t, f.w.Checkout(&gogit.CheckoutOptions{Hash: f.hash[label]}))
}

func (f *fixture) snapshot(opts ...Option) *Snapshot {
	f.t.Helper()
	opts = append([]Option{WithSignature(testSignature)}, opts...)
	s, err := New(f.repo, "/work/demo/", opts...)
	require.NoError(f.t, err)
	require.NoError(f.t, s.CheckInvariants())
	return s
}

// scenarioRepo builds
//
//	main:    C1 - C2 - C3
//	feature:            \ - C4 - C5
//
// with HEAD on main.
func scenarioRepo(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.commit("C1")
	f.commit("C2")
	f.commit("C3")
	f.setBranch("feature", "C3")
	f.checkout("feature")
	f.commit("C4")
	f.commit("C5")
	f.checkout("main")
	return f
}

func commitIDs(s *Snapshot) []identity.ID {
	var ids []identity.ID
	for _, c := range s.Commits() {
		ids = append(ids, c.ID)
	}
	return ids
}

func branchNames(s *Snapshot, hs []BranchHandle) []string {
	var names []string
	for _, h := range hs {
		if rec, ok := s.Branch(h); ok {
			names = append(names, rec.ShortName())
		}
	}
	return names
}

func mustBranch(t *testing.T, s *Snapshot, name string) *BranchRecord {
	t.Helper()
	rec, ok := s.BranchByName(name)
	require.True(t, ok, "branch %s not tracked", name)
	return rec
}
