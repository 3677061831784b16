package commands

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/KasraH/fpl-combos/pkg/query"
	"github.com/spf13/cobra"
)

func newQueryCmd(c *cli) *cobra.Command {
	var lf loadFlags

	cmd := &cobra.Command{
		Use:   "query LEAGUE_ID PLAYER [PLAYER...]",
		Short: "Find the managers in a league who own every named player",
		Example: `  fpl-combos query 314 Salah Haaland
  fpl-combos query 314 "Bruno Fernandes" Saka --gameweek 12`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.printer(cmd)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg, c.logger)
			if err != nil {
				return p.Error("Failed to start", err.Error(), nil)
			}
			defer a.Close()

			if _, err := c.loadLeague(ctx, p, a, args[0], lf); err != nil {
				return err
			}

			analysis, err := a.svc.AnalyzeCombination(ctx, args[1:])
			if err != nil {
				var notFound *query.ItemNotFoundError
				if errors.As(err, &notFound) {
					return p.Error("Player not found", err.Error(), []string{
						"Run `fpl-combos search " + notFound.Name + "` and use the exact name",
					})
				}
				return p.Error("Query failed", err.Error(), nil)
			}

			p.Info("")
			p.Analysis(analysis)
			return nil
		},
	}
	lf.register(cmd)
	return cmd
}
