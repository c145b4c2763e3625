package state

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurobon/quickgit/internal/identity"
	"github.com/kurobon/quickgit/internal/palette"
)

func TestFill_BranchesShareHistory(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	assert.Equal(t, "demo", s.Name())
	assert.Equal(t, []identity.ID{f.id("C5"), f.id("C4"), f.id("C3"), f.id("C2"), f.id("C1")}, commitIDs(s))

	assert.Equal(t, []string{"main"}, branchNames(s, s.BranchesAt(f.id("C3"))))
	assert.Equal(t, []string{"feature"}, branchNames(s, s.BranchesAt(f.id("C5"))))
	assert.Empty(t, s.BranchesAt(f.id("C4")))

	assert.Equal(t, f.id("C3"), s.HeadID())
	head, ok := s.Branch(s.HeadBranch())
	require.True(t, ok)
	assert.Equal(t, "refs/heads/main", head.Name)
	assert.False(t, s.Detached())
	assert.Equal(t, uint64(1), s.Generation())
}

func TestFill_IndexBijection(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	for i, c := range s.Commits() {
		assert.Equal(t, i, s.IndexOf(c.ID))
		at, ok := s.CommitAt(i)
		require.True(t, ok)
		assert.Same(t, c, at)
	}
	assert.Equal(t, -1, s.IndexOf(identity.FromString("not-a-commit")))
	_, ok := s.CommitAt(len(s.Commits()))
	assert.False(t, ok)
}

func TestFill_Idempotent(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	before := commitIDs(s)
	head := s.HeadID()
	oldMain := mustBranch(t, s, "main").Handle
	oldRecord, _ := s.CommitByID(f.id("C3"))

	require.NoError(t, s.Refresh())
	require.NoError(t, s.CheckInvariants())

	assert.Equal(t, before, commitIDs(s))
	assert.Equal(t, head, s.HeadID())

	newRecord, _ := s.CommitByID(f.id("C3"))
	assert.NotSame(t, oldRecord, newRecord)
	assert.Nil(t, oldRecord.Commit, "refill releases the old engine handles")

	_, ok := s.Branch(oldMain)
	assert.False(t, ok, "handles from before a refill are stale")
	assert.NotEqual(t, oldMain, mustBranch(t, s, "main").Handle)
}

func TestFill_RemoteBranchesAndSkippedRefs(t *testing.T) {
	f := scenarioRepo(t)
	origin := plumbing.NewRemoteReferenceName("origin", "main")
	require.NoError(t, f.repo.Storer.SetReference(plumbing.NewHashReference(origin, f.hash["C2"])))
	require.NoError(t, f.repo.Storer.SetReference(
		plumbing.NewSymbolicReference(plumbing.NewRemoteHEADReferenceName("origin"), origin)))
	require.NoError(t, f.repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewTagReferenceName("v1"), f.hash["C1"])))
	// dangling branch: skipped, not fatal
	require.NoError(t, f.repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("broken"), plumbing.NewHash("1111111111111111111111111111111111111111"))))

	s := f.snapshot()

	remote := mustBranch(t, s, "origin/main")
	assert.Equal(t, Remote, remote.Kind)
	assert.Equal(t, "refs/remotes/origin/main", remote.Name)
	assert.Equal(t, []string{"origin/main"}, branchNames(s, s.BranchesAt(f.id("C2"))))

	_, ok := s.BranchByName("v1")
	assert.False(t, ok)
	_, ok = s.BranchByName("origin/HEAD")
	assert.False(t, ok)
	_, ok = s.BranchByName("broken")
	assert.False(t, ok)

	var names []string
	for _, b := range s.Branches() {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"refs/heads/feature", "refs/heads/main", "refs/remotes/origin/main"}, names)
	assert.Len(t, s.Commits(), 5)
}

func TestFill_DetachedHeadHistoryIsWalked(t *testing.T) {
	f := scenarioRepo(t)
	f.detach("C3")
	orphan := f.commit("C6") // reachable only from the detached HEAD

	s := f.snapshot()
	assert.Equal(t, identity.FromHash(orphan), s.HeadID())
	assert.True(t, s.HeadBranch().IsZero())
	assert.True(t, s.Detached())
	assert.Equal(t, 0, s.IndexOf(f.id("C6")))
}

func TestFill_MaxCommits(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot(WithMaxCommits(2))
	assert.Len(t, s.Commits(), 2)
	require.NoError(t, s.CheckInvariants())
}

func TestFill_UnbornRepository(t *testing.T) {
	f := newFixture(t)
	s := f.snapshot()

	assert.Empty(t, s.Commits())
	assert.Empty(t, s.Branches())
	assert.Equal(t, identity.Zero, s.HeadID())
	assert.True(t, s.HeadBranch().IsZero())
	assert.False(t, s.Detached())
}

func TestCommitRecord_DisplayFields(t *testing.T) {
	f := newFixture(t)
	f.commit("C1")
	s := f.snapshot()

	rec, ok := s.CommitByID(f.id("C1"))
	require.True(t, ok)
	assert.Equal(t, f.hash["C1"].String()[:7], rec.ShortHash)
	assert.Equal(t, "C1", rec.Summary)
	assert.Equal(t, "Tester", rec.AuthorName)
	assert.Equal(t, "tester@example.com", rec.AuthorEmail)
	assert.Equal(t, rec.Time.Local().Format(DateLayout), rec.AuthorDate)
	assert.Empty(t, rec.Parents)
	assert.NotNil(t, rec.Commit)
}

func TestBounded(t *testing.T) {
	assert.Equal(t, "short", bounded("short", SummaryWidth))
	assert.Len(t, bounded(strings.Repeat("a", 300), SummaryWidth), SummaryWidth-1)

	// a 3-byte rune straddling the limit is dropped whole
	s := strings.Repeat("a", 37) + "日本"
	got := bounded(s, AuthorWidth)
	assert.Equal(t, strings.Repeat("a", 37), got)

	assert.Equal(t, "subject", firstLine("\nsubject\n\nbody"))
	assert.Equal(t, "subject", firstLine("subject\r\nbody"))
}

func TestBranchRecord_Color(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	main := mustBranch(t, s, "main")
	assert.Equal(t, palette.Color("refs/heads/main"), main.Color)

	require.NoError(t, s.Refresh())
	assert.Equal(t, main.Color, mustBranch(t, s, "main").Color, "color is stable across refills")
}

func TestSelect(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	require.NoError(t, s.Select(f.id("C2")))
	assert.Equal(t, f.id("C2"), s.Selected())
	assert.ErrorIs(t, s.Select(identity.FromString("nope")), ErrUnknownCommit)
	assert.Equal(t, f.id("C2"), s.Selected())
	require.NoError(t, s.Select(identity.Zero))
}

func TestView(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	require.NoError(t, s.Select(f.id("C4")))

	v := s.View()
	assert.Equal(t, "demo", v.Name)
	assert.Equal(t, f.id("C3").String(), v.Head.ID)
	assert.Equal(t, "main", v.Head.Branch)
	assert.False(t, v.Head.Detached)
	assert.Equal(t, f.id("C4").String(), v.Selected)
	require.Len(t, v.Commits, 5)
	assert.Equal(t, f.hash["C5"].String(), v.Commits[0].Hash)
	assert.Equal(t, []string{mustBranch(t, s, "feature").Handle.String()}, v.Commits[0].Branches)
	require.Len(t, v.Branches, 2)
	assert.True(t, v.Branches[1].Head)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"local"`)
	assert.Contains(t, string(raw), `"color":"#`)
}

func TestCheckInvariants_DetectsCorruption(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	s.mu.Lock()
	s.heads[f.id("C1")] = nil
	s.commitIndex[f.id("C2")] = 0
	s.mu.Unlock()

	err := s.CheckInvariants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty branch bucket")
	assert.Contains(t, err.Error(), "indexed at 0")
}

func TestClose(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	main := mustBranch(t, s, "main").Handle

	s.Close()
	assert.Empty(t, s.Commits())
	_, ok := s.Branch(main)
	assert.False(t, ok)
}
