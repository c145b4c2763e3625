package cli

import (
	"fmt"
	"io"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"
)

// newRefsCommand dumps raw references as the engine sees them, including the
// tags and symbolic refs the snapshot does not track.
func newRefsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refs",
		Short: "Print every reference and HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.open()
			if err != nil {
				return err
			}
			defer snap.Close()
			return dumpRefs(cmd.OutOrStdout(), snap.Repository())
		},
	}
}

func dumpRefs(w io.Writer, repo *gogit.Repository) error {
	iter, err := repo.References()
	if err != nil {
		return err
	}
	var refs []*plumbing.Reference
	if err := iter.ForEach(func(r *plumbing.Reference) error {
		refs = append(refs, r)
		return nil
	}); err != nil {
		return err
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name() < refs[j].Name() })

	for _, r := range refs {
		if r.Name() == plumbing.HEAD {
			continue
		}
		switch {
		case r.Type() == plumbing.SymbolicReference:
			fmt.Fprintf(w, "%s -> %s\n", r.Name(), r.Target())
		case r.Name().IsTag():
			if tag, err := repo.TagObject(r.Hash()); err == nil {
				fmt.Fprintf(w, "%s %s (annotated, target %s)\n", r.Name(), r.Hash(), tag.Target)
				continue
			}
			fmt.Fprintf(w, "%s %s\n", r.Name(), r.Hash())
		default:
			fmt.Fprintf(w, "%s %s\n", r.Name(), r.Hash())
		}
	}

	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		fmt.Fprintln(w, "HEAD (missing)")
		return nil
	}
	if head.Type() == plumbing.SymbolicReference {
		fmt.Fprintf(w, "HEAD -> %s\n", head.Target())
	} else {
		fmt.Fprintf(w, "HEAD %s (detached)\n", head.Hash())
	}
	return nil
}
