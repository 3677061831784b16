package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/KasraH/fpl-combos/pkg/roster"
	"github.com/KasraH/fpl-combos/pkg/store"
	"github.com/spf13/cobra"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached league records",
	}
	cmd.AddCommand(
		newCacheListCmd(c),
		newCacheShowCmd(c),
		newCacheDeleteCmd(c),
		newCacheClearCmd(c),
		newCacheStatsCmd(c),
	)
	return cmd
}

func parseRecordKey(args []string) (roster.GroupID, roster.Version, error) {
	g, err := parseLeagueID(args[0])
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.Atoi(args[1])
	if err != nil || v <= 0 {
		return 0, 0, fmt.Errorf("gameweek must be a positive number, got %q", args[1])
	}
	return g, roster.Version(v), nil
}

func newCacheListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := c.printer(cmd)
			st, err := newStore(c.cfg, c.logger)
			if err != nil {
				return p.Error("Cannot open cache", err.Error(), nil)
			}
			metas, err := st.List()
			if err != nil {
				return p.Error("Cannot list cache", err.Error(), nil)
			}
			p.CacheList(metas, time.Now())
			return nil
		},
	}
}

func newCacheShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show LEAGUE_ID GAMEWEEK",
		Short: "Show one cached record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.printer(cmd)
			g, v, err := parseRecordKey(args)
			if err != nil {
				return p.Error("Invalid arguments", err.Error(), nil)
			}
			st, err := newStore(c.cfg, c.logger)
			if err != nil {
				return p.Error("Cannot open cache", err.Error(), nil)
			}
			d, err := st.Details(g, v)
			if errors.Is(err, store.ErrCacheMiss) {
				return p.Error("Not cached", fmt.Sprintf("No record for league %d gameweek %d", g, v), []string{"Run `fpl-combos cache list`"})
			}
			if err != nil {
				return p.Error("Cannot read record", err.Error(), nil)
			}
			p.CacheDetails(d, time.Now())
			return nil
		},
	}
}

func newCacheDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete LEAGUE_ID GAMEWEEK",
		Short: "Delete one cached record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.printer(cmd)
			g, v, err := parseRecordKey(args)
			if err != nil {
				return p.Error("Invalid arguments", err.Error(), nil)
			}
			st, err := newStore(c.cfg, c.logger)
			if err != nil {
				return p.Error("Cannot open cache", err.Error(), nil)
			}
			if err := st.Delete(g, v); err != nil {
				if errors.Is(err, store.ErrCacheMiss) {
					p.Warning("No record for league %d gameweek %d", g, v)
					return nil
				}
				return p.Error("Delete failed", err.Error(), nil)
			}
			p.Success("Deleted league %d gameweek %d", g, v)
			return nil
		},
	}
}

func newCacheClearCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := c.printer(cmd)
			if !yes {
				return p.Error("Refusing to clear the cache", "This deletes every cached league record.", []string{"Re-run with --yes"})
			}
			st, err := newStore(c.cfg, c.logger)
			if err != nil {
				return p.Error("Cannot open cache", err.Error(), nil)
			}
			n, err := st.ClearAll()
			if err != nil {
				return p.Error("Clear failed", err.Error(), nil)
			}
			p.Success("Removed %d cached records", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func newCacheStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := c.printer(cmd)
			st, err := newStore(c.cfg, c.logger)
			if err != nil {
				return p.Error("Cannot open cache", err.Error(), nil)
			}
			stats, err := st.Stats()
			if err != nil {
				return p.Error("Cannot read cache", err.Error(), nil)
			}
			p.CacheStats(stats)
			return nil
		},
	}
}
