// Command stickerctl runs maintenance tasks against the sticker database
// and image storage.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/avenida-stickers/internal/app"
	"github.com/user/avenida-stickers/internal/config"
)

// cli carries what every subcommand needs once the root command has run.
type cli struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (c *cli) open(ctx context.Context) (*app.App, error) {
	return app.New(ctx, c.cfg, c.logger)
}

func rootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "stickerctl",
		Short:         "Avenida stickers maintenance CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = cfg.NewLogger()
			slog.SetDefault(c.logger)
			return nil
		},
	}

	root.AddCommand(
		sweepCommand(c),
		initConfigCommand(c),
		seedCommand(c),
		cleanUploadsCommand(c),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
