package git

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// CommitDiff diffs a commit against its first parent. A root commit is
// compared with the empty tree.
func CommitDiff(c *object.Commit, contextLines int) (*Diff, error) {
	to, err := c.Tree()
	if err != nil {
		return nil, Engine("commit tree", err)
	}

	from := &object.Tree{}
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, Engine("parent lookup", err)
		}
		if from, err = parent.Tree(); err != nil {
			return nil, Engine("parent tree", err)
		}
	}
	return TreeDiff(from, to, contextLines)
}

// CommitsDiff diffs two arbitrary commits, old to new.
func CommitsDiff(oldCommit, newCommit *object.Commit, contextLines int) (*Diff, error) {
	from, err := oldCommit.Tree()
	if err != nil {
		return nil, Engine("commit tree", err)
	}
	to, err := newCommit.Tree()
	if err != nil {
		return nil, Engine("commit tree", err)
	}
	return TreeDiff(from, to, contextLines)
}

// TreeDiff diffs two trees with rename detection.
func TreeDiff(from, to *object.Tree, contextLines int) (*Diff, error) {
	opts := *object.DefaultDiffTreeOptions
	opts.DetectRenames = true

	changes, err := object.DiffTreeWithOptions(context.Background(), from, to, &opts)
	if err != nil {
		return nil, Engine("tree diff", err)
	}

	out := &Diff{Patches: make([]Patch, 0, len(changes))}
	for _, change := range changes {
		p, err := changePatch(change, contextLines)
		if err != nil {
			return nil, err
		}
		out.Patches = append(out.Patches, p)
	}
	return out, nil
}

func changePatch(change *object.Change, contextLines int) (Patch, error) {
	p := Patch{
		Status:  changeStatus(change),
		OldPath: change.From.Name,
		Path:    change.To.Name,
	}
	if p.Path == "" {
		p.Path = change.From.Name
	}
	if p.OldPath == p.Path {
		p.OldPath = ""
	}

	if from, to, err := change.Files(); err == nil {
		if from != nil {
			p.OldSize = from.Size
		}
		if to != nil {
			p.NewSize = to.Size
		}
	}

	patch, err := change.Patch()
	if err != nil {
		return Patch{}, Engine("patch "+p.Path, err)
	}
	for _, fp := range patch.FilePatches() {
		text, bin, err := renderFilePatch(fp, contextLines)
		if err != nil {
			return Patch{}, Engine("render "+p.Path, err)
		}
		p.Text += text
		p.Binary = p.Binary || bin
	}
	return p, nil
}

func changeStatus(change *object.Change) DeltaStatus {
	action, err := change.Action()
	if err != nil {
		return StatusUnmodified
	}
	switch action {
	case merkletrie.Insert:
		return StatusAdded
	case merkletrie.Delete:
		return StatusDeleted
	}

	if change.From.Name != change.To.Name {
		return StatusRenamed
	}
	fromMode, toMode := change.From.TreeEntry.Mode, change.To.TreeEntry.Mode
	if fromMode != toMode && (fromMode == filemode.Symlink || toMode == filemode.Symlink ||
		fromMode == filemode.Submodule || toMode == filemode.Submodule) {
		return StatusTypeChange
	}
	return StatusModified
}

// WorkdirDiff computes, in one status pass, the staged diff (HEAD tree to
// index) and the unstaged diff (index to working tree, untracked included).
func WorkdirDiff(repo *gogit.Repository, contextLines int) (staged, unstaged *Diff, err error) {
	w, err := repo.Worktree()
	if err != nil {
		return nil, nil, Engine("worktree", err)
	}
	status, err := w.Status()
	if err != nil {
		return nil, nil, Engine("status", err)
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, nil, Engine("index", err)
	}
	head, err := headTree(repo)
	if err != nil {
		return nil, nil, err
	}

	paths := make([]string, 0, len(status))
	for path := range status {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	staged, unstaged = &Diff{}, &Diff{}
	for _, path := range paths {
		fs := status[path]

		if fs.Staging != gogit.Unmodified && fs.Staging != gogit.Untracked {
			from, err := treeSide(head, path)
			if err != nil {
				return nil, nil, err
			}
			to, err := indexSide(repo, idx, path)
			if err != nil {
				return nil, nil, err
			}
			p, err := contentDiff(from, to, statusFromCode(fs.Staging), contextLines)
			if err != nil {
				return nil, nil, err
			}
			staged.Patches = append(staged.Patches, p)
		}

		if fs.Worktree != gogit.Unmodified {
			var from side
			if fs.Worktree != gogit.Untracked {
				if from, err = indexSide(repo, idx, path); err != nil {
					return nil, nil, err
				}
			}
			to, err := worktreeSide(w, path, from.mode)
			if err != nil {
				return nil, nil, err
			}
			p, err := contentDiff(from, to, statusFromCode(fs.Worktree), contextLines)
			if err != nil {
				return nil, nil, err
			}
			unstaged.Patches = append(unstaged.Patches, p)
		}
	}
	return staged, unstaged, nil
}

func contentDiff(from, to side, status DeltaStatus, contextLines int) (Patch, error) {
	path := to.path
	if !to.present {
		path = from.path
	}
	p := Patch{
		Status:  status,
		OldSize: int64(len(from.content)),
		NewSize: int64(len(to.content)),
		Path:    path,
	}
	if !from.present && !to.present {
		return p, nil
	}
	text, bin, err := renderFilePatch(newContentPatch(from, to), contextLines)
	if err != nil {
		return Patch{}, Engine("render "+path, err)
	}
	p.Text, p.Binary = text, bin
	return p, nil
}

func statusFromCode(c gogit.StatusCode) DeltaStatus {
	switch c {
	case gogit.Added:
		return StatusAdded
	case gogit.Deleted:
		return StatusDeleted
	case gogit.Modified, gogit.UpdatedButUnmerged:
		return StatusModified
	case gogit.Renamed:
		return StatusRenamed
	case gogit.Copied:
		return StatusCopied
	case gogit.Untracked:
		return StatusUntracked
	default:
		return StatusUnmodified
	}
}

func headTree(repo *gogit.Repository) (*object.Tree, error) {
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil // unborn branch: everything staged is an addition
	}
	if err != nil {
		return nil, Engine("resolve HEAD", err)
	}
	c, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, Engine("HEAD commit", err)
	}
	t, err := c.Tree()
	if err != nil {
		return nil, Engine("HEAD tree", err)
	}
	return t, nil
}

func treeSide(tree *object.Tree, path string) (side, error) {
	s := side{path: path}
	if tree == nil {
		return s, nil
	}
	f, err := tree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return s, nil
	}
	if err != nil {
		return s, Engine("tree lookup "+path, err)
	}
	content, err := f.Contents()
	if err != nil {
		return s, Engine("read "+path, err)
	}
	s.content, s.mode, s.present = []byte(content), f.Mode, true
	return s, nil
}

func indexSide(repo *gogit.Repository, idx *index.Index, path string) (side, error) {
	s := side{path: path}
	e, err := idx.Entry(path)
	if errors.Is(err, index.ErrEntryNotFound) {
		return s, nil
	}
	if err != nil {
		return s, Engine("index lookup "+path, err)
	}
	content, err := blobContent(repo, e.Hash)
	if err != nil {
		return s, Engine(fmt.Sprintf("read staged %s", path), err)
	}
	s.content, s.mode, s.present = content, e.Mode, true
	return s, nil
}

func worktreeSide(w *gogit.Worktree, path string, mode filemode.FileMode) (side, error) {
	s := side{path: path, mode: mode}
	if _, err := w.Filesystem.Lstat(path); err != nil {
		return s, nil // deleted from the working tree
	}
	content, err := util.ReadFile(w.Filesystem, path)
	if err != nil {
		return s, Engine("read "+path, err)
	}
	s.content, s.present = content, true
	return s, nil
}
