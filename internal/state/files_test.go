package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurobon/quickgit/internal/git"
)

func TestAddAndRemoveFromIndex_ModifiedFile(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()
	gen := s.Generation()

	f.write("C2.txt", "edited\n")
	require.NoError(t, s.AddToIndex("C2.txt"))
	assert.Equal(t, 1, s.UncommittedFiles())
	assert.Greater(t, s.Generation(), gen)

	staged, unstaged, err := git.WorkdirDiff(f.repo, git.DefaultContextLines)
	require.NoError(t, err)
	assert.Equal(t, []string{"C2.txt"}, staged.Paths())
	assert.Empty(t, unstaged.Patches)

	require.NoError(t, s.RemoveFromIndex("C2.txt"))
	staged, unstaged, err = git.WorkdirDiff(f.repo, git.DefaultContextLines)
	require.NoError(t, err)
	assert.Empty(t, staged.Patches)
	p, ok := unstaged.Find("C2.txt")
	require.True(t, ok)
	assert.Equal(t, git.StatusModified, p.Status)
	assert.Contains(t, p.Text, "+edited")

	require.NoError(t, s.CheckInvariants(), "staging never touches the indices")
}

func TestRemoveFromIndex_NewFileBecomesUntracked(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	f.write("new.txt", "fresh\n")
	require.NoError(t, s.AddToIndex("new.txt"))
	require.NoError(t, s.RemoveFromIndex("new.txt"))

	staged, unstaged, err := git.WorkdirDiff(f.repo, git.DefaultContextLines)
	require.NoError(t, err)
	assert.Empty(t, staged.Patches)
	p, ok := unstaged.Find("new.txt")
	require.True(t, ok)
	assert.Equal(t, git.StatusUntracked, p.Status)
}

func TestRemoveFromIndex_StagedDeletion(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	_, err := f.w.Remove("C1.txt")
	require.NoError(t, err)
	require.NoError(t, s.RemoveFromIndex("C1.txt"))

	staged, unstaged, err := git.WorkdirDiff(f.repo, git.DefaultContextLines)
	require.NoError(t, err)
	assert.Empty(t, staged.Patches)
	p, ok := unstaged.Find("C1.txt")
	require.True(t, ok)
	assert.Equal(t, git.StatusDeleted, p.Status)
}

func TestRemoveFromIndex_Directory(t *testing.T) {
	f := scenarioRepo(t)
	s := f.snapshot()

	f.write("dir/a.txt", "a\n")
	f.write("dir/sub/b.txt", "b\n")
	f.write("C1.txt", "edited\n")
	require.NoError(t, s.AddToIndex("dir"))
	require.NoError(t, s.AddToIndex("C1.txt"))
	require.NoError(t, s.RemoveFromIndex("dir/"))

	staged, unstaged, err := git.WorkdirDiff(f.repo, git.DefaultContextLines)
	require.NoError(t, err)
	_, ok := staged.Find("dir/a.txt")
	assert.False(t, ok)
	_, ok = staged.Find("dir/sub/b.txt")
	assert.False(t, ok)
	_, ok = staged.Find("C1.txt")
	assert.True(t, ok, "paths outside the directory stay staged")

	p, ok := unstaged.Find("dir/a.txt")
	require.True(t, ok)
	assert.Equal(t, git.StatusUntracked, p.Status)

	assert.Error(t, s.RemoveFromIndex("nowhere"))
}
