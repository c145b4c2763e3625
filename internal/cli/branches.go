package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kurobon/quickgit/internal/state"
)

var (
	headColor   = color.New(color.FgGreen, color.Bold)
	remoteColor = color.New(color.FgRed)
	hashColor   = color.New(color.FgYellow)
)

func newBranchesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "branches",
		Short: "List local and remote branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.open()
			if err != nil {
				return err
			}
			defer snap.Close()
			renderBranches(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func renderBranches(w io.Writer, snap *state.Snapshot) {
	if snap.Detached() {
		if c, ok := snap.CommitByID(snap.HeadID()); ok {
			fmt.Fprintf(w, "* %s %s\n", headColor.Sprintf("(HEAD detached at %s)", c.ShortHash), c.Summary)
		}
	}
	for _, rec := range snap.Branches() {
		marker, name := " ", rec.ShortName()
		switch {
		case rec.Handle == snap.HeadBranch():
			marker, name = "*", headColor.Sprint(name)
		case rec.Kind == state.Remote:
			name = remoteColor.Sprint(name)
		}
		tip := ""
		if c, ok := snap.CommitByID(rec.Tip()); ok {
			tip = hashColor.Sprint(c.ShortHash) + " " + c.Summary
		}
		fmt.Fprintf(w, "%s %s %s\n", marker, name, tip)
	}
}

func newBranchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Create, rename or delete a branch",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name> [commit]",
			Short: "Create a branch at a commit (default HEAD)",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				snap, err := a.open()
				if err != nil {
					return err
				}
				defer snap.Close()
				at := "HEAD"
				if len(args) == 2 {
					at = args[1]
				}
				id, err := resolveCommit(snap, at)
				if err != nil {
					return err
				}
				if _, err := snap.CreateBranch(args[0], id); err != nil {
					return err
				}
				c, _ := snap.CommitByID(id)
				fmt.Fprintf(cmd.OutOrStdout(), "Created branch %s at %s\n", args[0], c.ShortHash)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <old> <new>",
			Short: "Rename a local branch",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				snap, err := a.open()
				if err != nil {
					return err
				}
				defer snap.Close()
				rec, err := resolveBranch(snap, args[0])
				if err != nil {
					return err
				}
				if _, err := snap.RenameBranch(rec.Handle, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", rec.ShortName(), args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a branch",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				snap, err := a.open()
				if err != nil {
					return err
				}
				defer snap.Close()
				rec, err := resolveBranch(snap, args[0])
				if err != nil {
					return err
				}
				name := rec.ShortName()
				if err := snap.DeleteBranch(rec.Handle); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted branch %s\n", name)
				return nil
			},
		},
	)
	return cmd
}
