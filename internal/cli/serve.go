package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kurobon/quickgit/internal/server"
	"github.com/kurobon/quickgit/internal/state"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve open repositories over HTTP and websocket",
		Long: `serve opens the repositories listed in the config (plus --repo when given,
or the current directory when none are configured) and exposes them to the UI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := server.OptionsFromConfig(a.cfg)
			if addr != "" {
				opts.Addr = addr
			}
			if noWatch {
				opts.Watch = false
			}

			paths := append([]string(nil), a.cfg.Repositories...)
			if cmd.Flags().Changed("repo") || len(paths) == 0 {
				paths = append(paths, a.repoPath)
			}

			reg := state.NewRegistry(a.snapshotOptions()...)
			defer reg.CloseAll()
			for _, p := range paths {
				key, snap, err := reg.Open(p)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", p, err)
				}
				a.log.Info().Str("repo", key).Str("path", snap.Path()).Int("commits", len(snap.Commits())).Msg("repository opened")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.NewServer(reg, opts, a.log).Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch repositories for outside changes")
	return cmd
}
