package state

import (
	"errors"

	"github.com/kurobon/quickgit/internal/git"
)

// Validation errors. These are reported before the engine is touched.
var (
	ErrInvalidBranchName = git.ErrInvalidBranchName
	ErrDeleteHeadBranch  = errors.New("cannot delete the checked out branch")
	ErrUnknownBranch     = errors.New("unknown branch")
	ErrUnknownCommit     = errors.New("unknown commit")
	ErrEmptySummary      = errors.New("commit summary is empty")
	ErrNotOpen           = errors.New("repository is not open")
)

// IsValidation reports whether err was rejected before reaching the engine.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidBranchName) ||
		errors.Is(err, ErrDeleteHeadBranch) ||
		errors.Is(err, ErrEmptySummary)
}

// IsNotFound reports whether err names a handle or id the snapshot does not know.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownBranch) ||
		errors.Is(err, ErrUnknownCommit) ||
		errors.Is(err, ErrNotOpen)
}
