package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kurobon/quickgit/internal/state"
)

func newCheckoutCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "checkout <branch|commit>",
		Short: "Switch to a branch, or detach HEAD at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.open()
			if err != nil {
				return err
			}
			defer snap.Close()

			out := cmd.OutOrStdout()
			if rec, ok := snap.BranchByName(args[0]); ok {
				if err := snap.CheckoutBranch(rec.Handle, force); err != nil {
					return err
				}
				if rec.Kind == state.Remote {
					fmt.Fprintf(out, "HEAD is now detached at %s\n", rec.ShortName())
					return nil
				}
				fmt.Fprintf(out, "Switched to branch %s\n", rec.ShortName())
				return nil
			}

			id, err := resolveCommit(snap, args[0])
			if err != nil {
				return err
			}
			if err := snap.CheckoutCommit(id, force); err != nil {
				return err
			}
			c, _ := snap.CommitByID(id)
			fmt.Fprintf(out, "HEAD is now detached at %s %s\n", c.ShortHash, c.Summary)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "discard local changes")
	return cmd
}

var errNotConfirmed = errors.New("aborted")

func newResetCommand(a *app) *cobra.Command {
	var soft, hard, yes bool
	cmd := &cobra.Command{
		Use:   "reset <commit>",
		Short: "Move the current branch (or detached HEAD) to a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := state.ResetMixed
			switch {
			case soft && hard:
				return errors.New("--soft and --hard are mutually exclusive")
			case soft:
				mode = state.ResetSoft
			case hard:
				mode = state.ResetHard
			}

			snap, err := a.open()
			if err != nil {
				return err
			}
			defer snap.Close()
			id, err := resolveCommit(snap, args[0])
			if err != nil {
				return err
			}
			c, _ := snap.CommitByID(id)

			if mode == state.ResetHard && !yes {
				if err := confirm(fmt.Sprintf("Discard all local changes and reset to %s?", c.ShortHash)); err != nil {
					return err
				}
			}
			if err := snap.Reset(id, mode); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "HEAD is now at %s %s\n", c.ShortHash, c.Summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&soft, "soft", false, "keep index and working tree")
	cmd.Flags().BoolVar(&hard, "hard", false, "discard index and working tree changes")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on the terminal. Without a terminal the
// answer is no.
func confirm(message string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("%w: not a terminal, pass --yes to confirm", errNotConfirmed)
	}
	ok := false
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok); err != nil {
		return err
	}
	if !ok {
		return errNotConfirmed
	}
	return nil
}
