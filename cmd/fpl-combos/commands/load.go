package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/KasraH/fpl-combos/internal/printer"
	"github.com/KasraH/fpl-combos/pkg/fetch"
	"github.com/KasraH/fpl-combos/pkg/league"
	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/KasraH/fpl-combos/pkg/store"
	"github.com/spf13/cobra"
)

// loadFlags are shared by load and query.
type loadFlags struct {
	gameweek int
	refresh  bool
	batch    int
	workers  int
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.gameweek, "gameweek", 0, "gameweek to load (default: current)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore the cached record and fetch every manager")
	cmd.Flags().IntVar(&f.batch, "batch-size", 0, "custom batch size (with --workers)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "custom worker count (with --batch-size)")
}

func (f *loadFlags) options(p *printer.Printer) (league.LoadOptions, error) {
	opts := league.LoadOptions{
		Version:  roster.Version(f.gameweek),
		Refresh:  f.refresh,
		Progress: p.Progress,
	}
	if f.batch > 0 || f.workers > 0 {
		prof, err := fetch.CustomProfile(f.batch, f.workers)
		if err != nil {
			return opts, err
		}
		opts.Profile = &prof
	}
	return opts, nil
}

func parseLeagueID(s string) (roster.GroupID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("league id must be a positive number, got %q", s)
	}
	return roster.GroupID(id), nil
}

func newLoadCmd(c *cli) *cobra.Command {
	var lf loadFlags

	cmd := &cobra.Command{
		Use:   "load LEAGUE_ID",
		Short: "Fetch and cache every manager's squad in a league",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.printer(cmd)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg, c.logger)
			if err != nil {
				return p.Error("Failed to start", err.Error(), nil)
			}
			defer a.Close()

			_, err = c.loadLeague(ctx, p, a, args[0], lf)
			return err
		},
	}
	lf.register(cmd)
	return cmd
}

// loadLeague runs a load and prints its outcome. A cache write failure is
// reported as a warning.
func (c *cli) loadLeague(ctx context.Context, p *printer.Printer, a *app, arg string, lf loadFlags) (*league.LoadResult, error) {
	groupID, err := parseLeagueID(arg)
	if err != nil {
		return nil, p.Error("Invalid league id", err.Error(), nil)
	}
	opts, err := lf.options(p)
	if err != nil {
		return nil, p.Error("Invalid fetch settings", err.Error(), []string{"Set both --batch-size and --workers to positive values"})
	}

	p.Step("Loading league %d", groupID)
	res, err := a.svc.LoadLeague(ctx, groupID, opts)
	if err != nil {
		if res != nil && errors.Is(err, store.ErrCacheWrite) {
			p.LoadResult(res)
			p.Warning("League loaded but not saved: %v", err)
			return res, nil
		}
		if errors.Is(err, context.Canceled) {
			detail := "No data was saved for this run."
			if res != nil && res.Fetched > 0 {
				detail = fmt.Sprintf("Fetched %d squads before stopping; they were discarded and nothing was saved.", res.Fetched)
			}
			return nil, p.Error("Load interrupted", detail, nil)
		}
		return nil, p.Error(fmt.Sprintf("Failed to load league %d", groupID), err.Error(), []string{
			"Check the league id",
			"Retry with --profile conservative if the API is rate limiting",
		})
	}
	p.LoadResult(res)
	return res, nil
}
