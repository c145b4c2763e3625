// Package cli implements the quickgit command line.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kurobon/quickgit/internal/config"
	"github.com/kurobon/quickgit/internal/git"
	"github.com/kurobon/quickgit/internal/logging"
	"github.com/kurobon/quickgit/internal/state"
)

// app is shared by every subcommand once the root command has loaded the
// configuration.
type app struct {
	repoPath   string
	configFile string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
}

// NewRootCommand builds the command tree. Each call returns an independent
// tree, so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "quickgit",
		Short:         "Inspect and edit a git repository's branches and history",
		Long:          "quickgit keeps an indexed snapshot of a repository's commits and branches and edits them through git.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.repoPath, "repo", "C", ".", "path inside the repository")
	flags.StringVar(&a.configFile, "config", "", "config file (default ./quickgit.yaml or ~/.quickgit/quickgit.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newLogCommand(a),
		newBranchesCommand(a),
		newBranchCommand(a),
		newCheckoutCommand(a),
		newResetCommand(a),
		newCommitCommand(a),
		newAddCommand(a),
		newUnstageCommand(a),
		newDiffCommand(a),
		newRefsCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log.Level, logging.Format(cfg.Log.Format))
	return nil
}

// snapshotOptions maps the configuration onto snapshot options.
func (a *app) snapshotOptions() []state.Option {
	return []state.Option{
		state.WithLogger(a.log),
		state.WithMaxCommits(a.cfg.Walk.MaxCommits),
		state.WithSignature(git.Identity{Name: a.cfg.Signature.Name, Email: a.cfg.Signature.Email}),
	}
}

func (a *app) open() (*state.Snapshot, error) {
	snap, err := state.Open(a.repoPath, a.snapshotOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return snap, nil
}

func (a *app) contextLines() int {
	if a.cfg.Diff.FullContext {
		return git.FullContext
	}
	return a.cfg.Diff.ContextLines
}
