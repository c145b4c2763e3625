package git

import (
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Identity is a fallback author used when the repository has no user configured.
type Identity struct {
	Name  string
	Email string
}

// ResolveSignature returns the author/committer signature for a new commit.
// The repository's merged config (local, global, system) wins; fallback is used
// only when it has no user name. Without either, ErrNoSignature is returned.
func ResolveSignature(repo *gogit.Repository, fallback Identity) (*object.Signature, error) {
	name, email := fallback.Name, fallback.Email

	if cfg, err := repo.ConfigScoped(config.SystemScope); err == nil {
		if n := strings.TrimSpace(cfg.User.Name); n != "" {
			name = n
			email = strings.TrimSpace(cfg.User.Email)
		}
	}

	if strings.TrimSpace(name) == "" {
		return nil, ErrNoSignature
	}
	return &object.Signature{
		Name:  name,
		Email: email,
		When:  time.Now(),
	}, nil
}

// ValidateBranchName applies git-check-ref-format rules to a short branch name.
func ValidateBranchName(name string) error {
	if name == "" || name == "HEAD" || strings.HasPrefix(name, "-") {
		return ErrInvalidBranchName
	}
	if err := plumbing.NewBranchReferenceName(name).Validate(); err != nil {
		return ErrInvalidBranchName
	}
	return nil
}
