package cli

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurobon/quickgit/internal/state"
)

func newLogCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List commits newest first with the branches pointing at them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.open()
			if err != nil {
				return err
			}
			defer snap.Close()
			renderLog(cmd.OutOrStdout(), snap, limit)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n commits (0 = all)")
	return cmd
}

func renderLog(w io.Writer, snap *state.Snapshot, limit int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Commit", "Summary", "Author", "Date", "Branches"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	head := snap.HeadID()
	for i, c := range snap.Commits() {
		if limit > 0 && i >= limit {
			break
		}
		var refs []string
		if c.ID == head && snap.Detached() {
			refs = append(refs, "HEAD")
		}
		for _, h := range snap.BranchesAt(c.ID) {
			if rec, ok := snap.Branch(h); ok {
				name := rec.ShortName()
				if h == snap.HeadBranch() {
					name = "HEAD -> " + name
				}
				refs = append(refs, name)
			}
		}
		table.Append([]string{c.ShortHash, c.Summary, c.AuthorName, c.AuthorDate, strings.Join(refs, ", ")})
	}
	table.Render()
}
