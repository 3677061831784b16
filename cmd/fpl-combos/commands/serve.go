package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/KasraH/fpl-combos/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := c.printer(cmd)
			if cmd.Flags().Changed("addr") {
				c.cfg.ListenAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg, c.logger)
			if err != nil {
				return p.Error("Failed to start", err.Error(), []string{"Check FPL_REDIS_URL and FPL_CACHE_DIR"})
			}
			defer a.Close()

			p.Step("Listening on %s", c.cfg.ListenAddr)
			if err := server.New(a.svc, c.logger).Run(ctx, c.cfg.ListenAddr); err != nil {
				return p.Error("Server stopped", err.Error(), nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (FPL_LISTEN_ADDR)")
	return cmd
}
