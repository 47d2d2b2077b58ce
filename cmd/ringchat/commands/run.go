package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ringchat/internal/metrics"
	"ringchat/internal/ui"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the client and open the chat UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := wire.Start(ctx, passphrase); err != nil {
				return err
			}
			settings, err := wire.EffectiveSettings()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			var g errgroup.Group
			if wire.Presence != nil {
				g.Go(func() error {
					wire.Presence.Run(ctx)
					return nil
				})
			}
			if addr := wire.Config.MetricsAddr; addr != "" {
				g.Go(func() error {
					return metrics.Serve(ctx, addr, wire.Registry, wire.Log.Named("metrics"))
				})
			}

			opts := []ui.Option{
				ui.WithLogger(wire.Log.Named("ui")),
				ui.WithSettings(settings, wire.UpdateSettings),
			}
			if wire.Presence != nil {
				opts = append(opts, ui.WithRoom(wire.Presence))
			}
			if wire.Names != nil {
				opts = append(opts, ui.WithResolver(wire.Names))
			}
			err = ui.Run(ctx, ui.New(ctx, wire.Coordinator, opts...))
			if errors.Is(err, tea.ErrProgramKilled) {
				err = nil
			}
			cancel()
			return errors.Join(err, g.Wait())
		},
	}
}
