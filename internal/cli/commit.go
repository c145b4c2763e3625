package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCommitCommand(a *app) *cobra.Command {
	var summary, description string
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record the staged changes on HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.open()
			if err != nil {
				return err
			}
			defer snap.Close()

			id, err := snap.Commit(summary, description)
			if err != nil {
				return err
			}
			c, _ := snap.CommitByID(id)
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", c.ShortHash, c.Summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&summary, "message", "m", "", "commit summary")
	cmd.Flags().StringVarP(&description, "description", "d", "", "commit description")
	return cmd
}

func newAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Stage paths relative to the repository root",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.open()
			if err != nil {
				return err
			}
			defer snap.Close()

			var errs []error
			for _, p := range args {
				if err := snap.AddToIndex(p); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

func newUnstageCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unstage <path>...",
		Short: "Restore the index entry of paths from HEAD",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.open()
			if err != nil {
				return err
			}
			defer snap.Close()

			var errs []error
			for _, p := range args {
				if err := snap.RemoveFromIndex(p); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}
