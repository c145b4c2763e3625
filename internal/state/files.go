package state

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/kurobon/quickgit/internal/git"
	"github.com/kurobon/quickgit/internal/logging"
)

// Staging never touches the commit or branch indices; the index itself is
// read back by the next workdir diff.

// AddToIndex stages path (a file, directory or deletion).
func (s *Snapshot) AddToIndex(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer logging.Stopwatch(s.log, "stage")()

	w, err := s.repo.Worktree()
	if err != nil {
		return git.Engine("stage", err)
	}
	if _, err := w.Add(path); err != nil {
		return git.Engine("stage "+path, err)
	}
	s.refreshStatusQuiet()
	s.bump()
	return nil
}

// RemoveFromIndex unstages path: its index entry goes back to what HEAD has,
// or is dropped if HEAD does not have it. A directory unstages every entry
// under it. The working tree is untouched.
func (s *Snapshot) RemoveFromIndex(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer logging.Stopwatch(s.log, "unstage")()

	idx, err := s.repo.Storer.Index()
	if err != nil {
		return git.Engine("unstage", err)
	}
	tree, err := s.headTree()
	if err != nil {
		return git.Engine("unstage "+path, err)
	}
	paths, err := unstagePaths(idx, tree, path)
	if err != nil {
		return git.Engine("unstage "+path, err)
	}
	for _, p := range paths {
		if err := unstageEntry(idx, tree, p); err != nil {
			return git.Engine("unstage "+p, err)
		}
	}

	if err := s.repo.Storer.SetIndex(idx); err != nil {
		return git.Engine("unstage "+path, err)
	}
	s.refreshStatusQuiet()
	s.bump()
	return nil
}

// unstagePaths expands path to the file paths to unstage. A path that is
// neither a file in the index or HEAD is treated as a directory and covers
// every entry below it on either side.
func unstagePaths(idx *index.Index, tree *object.Tree, path string) ([]string, error) {
	clean := strings.Trim(filepath.ToSlash(path), "/")
	if _, err := idx.Entry(clean); err == nil {
		return []string{clean}, nil
	}
	if tree != nil {
		if _, err := tree.File(clean); err == nil {
			return []string{clean}, nil
		}
	}

	prefix := clean + "/"
	seen := make(map[string]struct{})
	for _, e := range idx.Entries {
		if strings.HasPrefix(e.Name, prefix) {
			seen[e.Name] = struct{}{}
		}
	}
	if tree != nil {
		sub, err := tree.Tree(clean)
		switch {
		case err == nil:
			err = sub.Files().ForEach(func(f *object.File) error {
				seen[prefix+f.Name] = struct{}{}
				return nil
			})
			if err != nil {
				return nil, err
			}
		case !errors.Is(err, object.ErrDirectoryNotFound):
			return nil, err
		}
	}
	if len(seen) == 0 {
		return nil, index.ErrEntryNotFound
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// unstageEntry points the index entry for path back at HEAD's blob, or drops
// it when HEAD lacks the file.
func unstageEntry(idx *index.Index, tree *object.Tree, path string) error {
	var headFile *object.File
	if tree != nil {
		f, err := tree.File(path)
		if err != nil && !errors.Is(err, object.ErrFileNotFound) {
			return err
		}
		headFile = f
	}

	if headFile == nil {
		_, err := idx.Remove(path)
		if errors.Is(err, index.ErrEntryNotFound) {
			return nil
		}
		return err
	}
	e, err := idx.Entry(path)
	if errors.Is(err, index.ErrEntryNotFound) {
		e = idx.Add(path)
	} else if err != nil {
		return err
	}
	e.Hash = headFile.Hash
	e.Mode = headFile.Mode
	e.Size = uint32(headFile.Size)
	return nil
}

// headTree returns HEAD's tree, or nil when HEAD is unborn.
func (s *Snapshot) headTree() (*object.Tree, error) {
	ref, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	return c.Tree()
}
