package state

import (
	"testing"

	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurobon/quickgit/internal/git"
	"github.com/kurobon/quickgit/internal/identity"
)

func TestCreateBranch(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	gen := s.Generation()

	h, err := s.CreateBranch("topic", f.id("C3"))
	require.NoError(t, err)
	require.NoError(t, s.CheckInvariants())

	rec, ok := s.Branch(h)
	require.True(t, ok)
	assert.Equal(t, "refs/heads/topic", rec.Name)
	assert.Equal(t, Local, rec.Kind)
	assert.ElementsMatch(t, []string{"main", "topic"}, branchNames(s, s.BranchesAt(f.id("C3"))))
	assert.Greater(t, s.Generation(), gen)

	ref, err := f.repo.Reference(plumbing.NewBranchReferenceName("topic"), false)
	require.NoError(t, err)
	assert.Equal(t, f.hash["C3"], ref.Hash())
}

func TestCreateBranch_Rejections(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	gen := s.Generation()

	_, err := s.CreateBranch("bad..name", f.id("C3"))
	assert.ErrorIs(t, err, ErrInvalidBranchName)
	assert.True(t, IsValidation(err))
	assert.False(t, git.IsEngineError(err))

	_, err = s.CreateBranch("topic", identity.FromString("missing"))
	assert.ErrorIs(t, err, ErrUnknownCommit)

	_, err = s.CreateBranch("feature", f.id("C1"))
	require.Error(t, err)
	assert.True(t, git.IsEngineError(err))
	assert.False(t, IsValidation(err))

	assert.Equal(t, gen, s.Generation(), "failed mutations leave the snapshot untouched")
	assert.Len(t, s.Branches(), 2)
	require.NoError(t, s.CheckInvariants())
}

func TestRenameBranch(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	topic, err := s.CreateBranch("topic", f.id("C3"))
	require.NoError(t, err)

	renamed, err := s.RenameBranch(topic, "topic2")
	require.NoError(t, err)
	require.NoError(t, s.CheckInvariants())

	_, ok := s.Branch(topic)
	assert.False(t, ok, "old handle is retired")
	rec, ok := s.Branch(renamed)
	require.True(t, ok)
	assert.Equal(t, "refs/heads/topic2", rec.Name)
	assert.NotEqual(t, topic, renamed)

	bucket := s.BranchesAt(f.id("C3"))
	assert.Contains(t, bucket, renamed)
	assert.NotContains(t, bucket, topic)
	assert.ElementsMatch(t, []string{"main", "topic2"}, branchNames(s, bucket))

	_, err = f.repo.Reference(plumbing.NewBranchReferenceName("topic"), false)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)

	_, err = s.RenameBranch(topic, "again")
	assert.ErrorIs(t, err, ErrUnknownBranch)
}

func TestRenameBranch_HeadFollows(t *testing.T) {
	f := scenarioRepo(t)
	cfg, err := f.repo.Config()
	require.NoError(t, err)
	cfg.Branches["main"] = &config.Branch{Name: "main", Remote: "origin", Merge: plumbing.NewBranchReferenceName("main")}
	require.NoError(t, f.repo.Storer.SetConfig(cfg))
	s := f.snapshot()

	main := s.HeadBranch()
	trunk, err := s.RenameBranch(main, "trunk")
	require.NoError(t, err)
	require.NoError(t, s.CheckInvariants())

	assert.Equal(t, trunk, s.HeadBranch())
	head, err := f.repo.Reference(plumbing.HEAD, false)
	require.NoError(t, err)
	assert.Equal(t, plumbing.NewBranchReferenceName("trunk"), head.Target())

	cfg, err = f.repo.Config()
	require.NoError(t, err)
	assert.NotContains(t, cfg.Branches, "main")
	assert.Equal(t, "origin", cfg.Branches["trunk"].Remote)
}

func TestRenameBranch_Rejections(t *testing.T) {
	f := scenarioRepo(t)
	require.NoError(t, f.repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", "main"), f.hash["C2"])))
	s := f.snapshot()
	feature := mustBranch(t, s, "feature").Handle

	_, err := s.RenameBranch(feature, "")
	assert.ErrorIs(t, err, ErrInvalidBranchName)

	_, err = s.RenameBranch(feature, "main")
	assert.True(t, git.IsEngineError(err))

	_, err = s.RenameBranch(mustBranch(t, s, "origin/main").Handle, "local")
	assert.True(t, git.IsEngineError(err))

	same, err := s.RenameBranch(feature, "feature")
	require.NoError(t, err)
	assert.Equal(t, feature, same)
	require.NoError(t, s.CheckInvariants())
}

func TestDeleteBranch(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	feature := mustBranch(t, s, "feature").Handle

	require.NoError(t, s.DeleteBranch(feature))
	require.NoError(t, s.CheckInvariants())

	_, ok := s.Branch(feature)
	assert.False(t, ok)
	assert.Empty(t, s.BranchesAt(f.id("C5")))
	s.mu.RLock()
	_, bucket := s.heads[f.id("C5")]
	s.mu.RUnlock()
	assert.False(t, bucket, "emptied bucket is removed")

	_, err := f.repo.Reference(plumbing.NewBranchReferenceName("feature"), false)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
	assert.Len(t, s.Commits(), 5, "history stays until the next refill")

	assert.ErrorIs(t, s.DeleteBranch(feature), ErrUnknownBranch)
}

func TestDeleteBranch_RefusesHead(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	err := s.DeleteBranch(s.HeadBranch())
	assert.ErrorIs(t, err, ErrDeleteHeadBranch)
	assert.True(t, IsValidation(err))

	_, err = f.repo.Reference(plumbing.NewBranchReferenceName("main"), false)
	assert.NoError(t, err)
}

func TestCheckoutBranch(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	feature := mustBranch(t, s, "feature").Handle

	require.NoError(t, s.CheckoutBranch(feature, false))
	require.NoError(t, s.CheckInvariants())
	assert.Equal(t, f.id("C5"), s.HeadID())
	assert.Equal(t, feature, s.HeadBranch())

	_, err := f.w.Filesystem.Stat("C5.txt")
	assert.NoError(t, err)
}

func TestCheckoutBranch_Remote(t *testing.T) {
	f := scenarioRepo(t)
	require.NoError(t, f.repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", "main"), f.hash["C2"])))
	s := f.snapshot()

	require.NoError(t, s.CheckoutBranch(mustBranch(t, s, "origin/main").Handle, false))
	require.NoError(t, s.CheckInvariants())
	assert.Equal(t, f.id("C2"), s.HeadID())
	assert.True(t, s.Detached())
}

func TestCheckout_DirtyWorktree(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	f.write("C3.txt", "local edit\n")

	err := s.CheckoutCommit(f.id("C1"), false)
	require.Error(t, err)
	assert.True(t, git.IsEngineError(err))
	assert.ErrorIs(t, err, gogit.ErrUnstagedChanges)
	assert.Equal(t, f.id("C3"), s.HeadID(), "HEAD unchanged after a refused checkout")

	require.NoError(t, s.CheckoutCommit(f.id("C1"), true))
	require.NoError(t, s.CheckInvariants())
	assert.Equal(t, f.id("C1"), s.HeadID())
	assert.True(t, s.HeadBranch().IsZero())
	assert.True(t, s.Detached())
}

func TestCheckout_StagedChangesRefused(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	main := s.HeadBranch()
	f.write("C3.txt", "staged edit\n")
	require.NoError(t, s.AddToIndex("C3.txt"))

	err := s.CheckoutBranch(mustBranch(t, s, "feature").Handle, false)
	require.Error(t, err)
	assert.True(t, git.IsEngineError(err))
	assert.ErrorIs(t, err, gogit.ErrUnstagedChanges)
	assert.Equal(t, f.id("C3"), s.HeadID())
	assert.Equal(t, main, s.HeadBranch())

	data, err := util.ReadFile(f.w.Filesystem, "C3.txt")
	require.NoError(t, err)
	assert.Equal(t, "staged edit\n", string(data))
	assert.Equal(t, 1, s.UncommittedFiles())
	require.NoError(t, s.CheckInvariants())
}

func TestCheckout_UntrackedFilesAllowed(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	f.write("scratch.txt", "untracked\n")

	require.NoError(t, s.CheckoutCommit(f.id("C1"), false))
	require.NoError(t, s.CheckInvariants())
	assert.Equal(t, f.id("C1"), s.HeadID())
}

func TestCheckout_UnknownTargets(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	assert.ErrorIs(t, s.CheckoutCommit(identity.FromString("x"), false), ErrUnknownCommit)
	assert.ErrorIs(t, s.CheckoutBranch(BranchHandle{}, false), ErrUnknownBranch)
}

func TestReset_Hard_DeletesLastBucket(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	main := s.HeadBranch()

	require.NoError(t, s.Reset(f.id("C2"), ResetHard))
	require.NoError(t, s.CheckInvariants())

	s.mu.RLock()
	_, stillThere := s.heads[f.id("C3")]
	s.mu.RUnlock()
	assert.False(t, stillThere)

	assert.Equal(t, []BranchHandle{main}, s.BranchesAt(f.id("C2")))
	assert.Equal(t, f.id("C2"), s.HeadID())
	assert.Equal(t, main, s.HeadBranch(), "reset keeps the handle")

	rec, _ := s.Branch(main)
	assert.Equal(t, f.hash["C2"], rec.Ref.Hash())

	_, err := f.w.Filesystem.Stat("C3.txt")
	assert.Error(t, err, "hard reset removes C3's file")
	assert.Equal(t, 0, s.UncommittedFiles())
}

func TestReset_SharedBucketKeepsOtherBranches(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	topic, err := s.CreateBranch("topic", f.id("C3"))
	require.NoError(t, err)

	require.NoError(t, s.Reset(f.id("C1"), ResetMixed))
	require.NoError(t, s.CheckInvariants())

	assert.Equal(t, []BranchHandle{topic}, s.BranchesAt(f.id("C3")))
	assert.Equal(t, []string{"main"}, branchNames(s, s.BranchesAt(f.id("C1"))))
}

func TestReset_SoftKeepsWorktreeAndIndex(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	require.NoError(t, s.Reset(f.id("C2"), ResetSoft))
	require.NoError(t, s.CheckInvariants())

	_, err := f.w.Filesystem.Stat("C3.txt")
	assert.NoError(t, err)
	assert.Equal(t, 1, s.UncommittedFiles(), "C3.txt is staged again")
}

func TestReset_Detached(t *testing.T) {
	f := scenarioRepo(t)
	f.detach("C4")
	s := f.snapshot()
	before := s.View().Branches

	require.NoError(t, s.Reset(f.id("C3"), ResetHard))
	require.NoError(t, s.CheckInvariants())

	assert.Equal(t, f.id("C3"), s.HeadID())
	assert.True(t, s.HeadBranch().IsZero())
	assert.Equal(t, before, s.View().Branches, "no branch moves while detached")
}

func TestCommit_PrependsRecord(t *testing.T) {
	f := scenarioRepo(t)
	f.checkout("feature")
	s := f.snapshot()
	feature := s.HeadBranch()

	prior := make(map[identity.ID]int)
	for i, c := range s.Commits() {
		prior[c.ID] = i
	}

	f.write("notes.md", "hello\n")
	require.NoError(t, s.AddToIndex("notes.md"))
	id, err := s.Commit("subject", "body")
	require.NoError(t, err)
	require.NoError(t, s.CheckInvariants())

	assert.Equal(t, 0, s.IndexOf(id))
	for old, i := range prior {
		assert.Equal(t, i+1, s.IndexOf(old))
	}
	assert.Equal(t, prior[f.id("C5")]+1, s.IndexOf(f.id("C5")))
	assert.Equal(t, id, s.HeadID())
	assert.Equal(t, feature, s.HeadBranch())
	assert.Equal(t, []BranchHandle{feature}, s.BranchesAt(id))
	assert.Empty(t, s.BranchesAt(f.id("C5")))

	rec, ok := s.CommitByID(id)
	require.True(t, ok)
	assert.Equal(t, "subject", rec.Summary)
	assert.Equal(t, "subject\n\nbody", rec.Message)
	assert.Equal(t, []identity.ID{f.id("C5")}, rec.Parents)
	assert.Equal(t, "Tester", rec.AuthorName)
	assert.Equal(t, 0, s.UncommittedFiles())
}

func TestCommit_Detached(t *testing.T) {
	f := scenarioRepo(t)
	f.detach("C2")
	s := f.snapshot()

	f.write("x.txt", "x\n")
	require.NoError(t, s.AddToIndex("x.txt"))
	id, err := s.Commit("detached work", "")
	require.NoError(t, err)
	require.NoError(t, s.CheckInvariants())

	assert.Equal(t, id, s.HeadID())
	assert.Empty(t, s.BranchesAt(id))
	assert.Equal(t, "detached work", mustCommit(t, s, id).Message)
}

func TestCommit_UnbornBranch(t *testing.T) {
	f := newFixture(t)
	s := f.snapshot()

	f.write("README.md", "# demo\n")
	require.NoError(t, s.AddToIndex("README.md"))
	id, err := s.Commit("initial", "")
	require.NoError(t, err)
	require.NoError(t, s.CheckInvariants())

	assert.Equal(t, id, s.HeadID())
	assert.Equal(t, []string{"main"}, branchNames(s, s.BranchesAt(id)))
	assert.False(t, s.HeadBranch().IsZero())
}

func TestCommit_Rejections(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	_, err := s.Commit("   ", "body")
	assert.ErrorIs(t, err, ErrEmptySummary)

	bare, err := New(f.repo, "/work/demo") // no fallback identity, no user config
	require.NoError(t, err)
	f.write("y.txt", "y\n")
	require.NoError(t, bare.AddToIndex("y.txt"))
	_, err = bare.Commit("subject", "")
	assert.ErrorIs(t, err, git.ErrNoSignature)
	assert.True(t, git.IsEngineError(err))
	assert.Equal(t, 0, bare.IndexOf(f.id("C5")))
}

func mustCommit(t *testing.T, s *Snapshot, id identity.ID) *CommitRecord {
	t.Helper()
	rec, ok := s.CommitByID(id)
	require.True(t, ok)
	return rec
}

func TestMutationSequence_KeepsInvariants(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	check := func(step string) {
		t.Helper()
		require.NoError(t, s.CheckInvariants(), step)
	}

	a, err := s.CreateBranch("a", f.id("C1"))
	require.NoError(t, err)
	check("create a")
	b, err := s.CreateBranch("b", f.id("C1"))
	require.NoError(t, err)
	check("create b")

	require.NoError(t, s.CheckoutBranch(a, false))
	check("checkout a")
	a, err = s.RenameBranch(a, "a2")
	require.NoError(t, err)
	check("rename head")

	f.write("work.txt", "w\n")
	require.NoError(t, s.AddToIndex("work.txt"))
	_, err = s.Commit("on a2", "")
	require.NoError(t, err)
	check("commit")

	require.NoError(t, s.Reset(f.id("C1"), ResetHard))
	check("reset back")
	assert.ElementsMatch(t, []BranchHandle{a, b}, s.BranchesAt(f.id("C1")))

	require.NoError(t, s.DeleteBranch(b))
	check("delete b")
	require.NoError(t, s.CheckoutBranch(mustBranch(t, s, "main").Handle, false))
	check("checkout main")
	require.NoError(t, s.DeleteBranch(a))
	check("delete a2")

	ids := commitIDs(s)
	require.NoError(t, s.Refresh())
	check("refresh")
	assert.Subset(t, ids, commitIDs(s), "refresh drops the now unreachable commit")
}
