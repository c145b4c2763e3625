package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kurobon/quickgit/internal/git"
)

var (
	fileColor    = color.New(color.Bold)
	hunkColor    = color.New(color.FgCyan)
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
)

func newDiffCommand(a *app) *cobra.Command {
	var (
		staged       bool
		full         bool
		contextLines int
	)
	cmd := &cobra.Command{
		Use:   "diff [commit [commit]]",
		Short: "Show working tree, staged, commit or range changes",
		Long: `Without arguments diff shows unstaged changes (--staged for the index).
With one commit it shows that commit against its first parent, with two the
changes from the first to the second.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := a.contextLines()
			if cmd.Flags().Changed("context") {
				lines = contextLines
			}
			if full {
				lines = git.FullContext
			}

			snap, err := a.open()
			if err != nil {
				return err
			}
			defer snap.Close()

			var d *git.Diff
			switch len(args) {
			case 0:
				var unstaged *git.Diff
				d, unstaged, err = snap.DiffWorkdir(lines)
				if !staged {
					d = unstaged
				}
			case 1:
				id, rerr := resolveCommit(snap, args[0])
				if rerr != nil {
					return rerr
				}
				d, err = snap.DiffCommit(id, lines)
			case 2:
				from, rerr := resolveCommit(snap, args[0])
				if rerr != nil {
					return rerr
				}
				to, rerr := resolveCommit(snap, args[1])
				if rerr != nil {
					return rerr
				}
				d, err = snap.DiffCommits(from, to, lines)
			}
			if err != nil {
				return err
			}
			renderDiff(cmd.OutOrStdout(), d)
			return nil
		},
	}
	cmd.Flags().BoolVar(&staged, "staged", false, "show staged instead of unstaged changes")
	cmd.Flags().IntVarP(&contextLines, "context", "U", git.DefaultContextLines, "lines of context")
	cmd.Flags().BoolVar(&full, "full", false, "show whole files as context")
	return cmd
}

func renderDiff(w io.Writer, d *git.Diff) {
	for _, p := range d.Patches {
		header := fmt.Sprintf("%c %s", p.Status.Char(), p.Path)
		if p.OldPath != "" && p.OldPath != p.Path {
			header = fmt.Sprintf("%c %s -> %s", p.Status.Char(), p.OldPath, p.Path)
		}
		fileColor.Fprintln(w, header)
		if p.Binary {
			fmt.Fprintln(w, "Binary files differ")
			continue
		}

		sc := bufio.NewScanner(strings.NewReader(p.Text))
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "@@"):
				hunkColor.Fprintln(w, line)
			case strings.HasPrefix(line, "+"):
				addedColor.Fprintln(w, line)
			case strings.HasPrefix(line, "-"):
				removedColor.Fprintln(w, line)
			default:
				fmt.Fprintln(w, line)
			}
		}
	}
}
