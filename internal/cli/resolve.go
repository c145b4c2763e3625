package cli

import (
	"fmt"
	"strings"

	"github.com/kurobon/quickgit/internal/identity"
	"github.com/kurobon/quickgit/internal/state"
)

// resolveCommit turns a command line argument into a commit of the snapshot.
// It accepts HEAD, a branch name, a full or abbreviated hash, or an ID.
func resolveCommit(snap *state.Snapshot, arg string) (identity.ID, error) {
	if arg == "" || arg == "HEAD" {
		if id := snap.HeadID(); id != identity.Zero {
			return id, nil
		}
		return identity.Zero, fmt.Errorf("%w: HEAD is unborn", state.ErrUnknownCommit)
	}
	if rec, ok := snap.BranchByName(arg); ok {
		return rec.Tip(), nil
	}
	if id, err := identity.ParseAny(arg); err == nil {
		if _, ok := snap.CommitByID(id); ok {
			return id, nil
		}
	}

	prefix := strings.ToLower(arg)
	var found []identity.ID
	for _, c := range snap.Commits() {
		if strings.HasPrefix(c.Hash.String(), prefix) {
			found = append(found, c.ID)
		}
	}
	switch len(found) {
	case 0:
		return identity.Zero, fmt.Errorf("%w: %s", state.ErrUnknownCommit, arg)
	case 1:
		return found[0], nil
	default:
		return identity.Zero, fmt.Errorf("ambiguous commit %q matches %d commits", arg, len(found))
	}
}

func resolveBranch(snap *state.Snapshot, name string) (*state.BranchRecord, error) {
	rec, ok := snap.BranchByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", state.ErrUnknownBranch, name)
	}
	return rec, nil
}
