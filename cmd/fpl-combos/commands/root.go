package commands

import (
	"fmt"

	"github.com/KasraH/fpl-combos/internal/config"
	"github.com/KasraH/fpl-combos/internal/printer"
	"github.com/KasraH/fpl-combos/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var versionString = "dev"

// globalFlags override the environment configuration for one invocation.
type globalFlags struct {
	cacheDir    string
	profile     string
	threshold   float64
	redisURL    string
	logLevel    string
	pretty      bool
	acceptStale bool
}

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	flags  globalFlags
	cfg    config.Config
	logger zerolog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "fpl-combos",
		Short: "Find which managers in a Fantasy Premier League mini-league own a player combination",
		Long: `fpl-combos fetches every manager's squad in a classic mini-league for a
gameweek, keeps them in a local cache and answers "who owns all of these
players?" queries against them.

Settings come from FPL_* environment variables; flags override them.`,
		Version:       versionString,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.configure(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.cacheDir, "cache-dir", "", "directory for cached league records (FPL_CACHE_DIR)")
	pf.StringVar(&c.flags.profile, "profile", "", "fetch profile: conservative, moderate, aggressive, maximum (FPL_PROFILE)")
	pf.Float64Var(&c.flags.threshold, "threshold", 0, "coverage threshold in (0, 1] (FPL_COVERAGE_THRESHOLD)")
	pf.StringVar(&c.flags.redisURL, "redis-url", "", "Redis URL for the shared response cache (FPL_REDIS_URL)")
	pf.StringVar(&c.flags.logLevel, "log-level", "", "debug, info, warn or error (FPL_LOG_LEVEL)")
	pf.BoolVar(&c.flags.pretty, "pretty", false, "human-readable logs (FPL_LOG_PRETTY)")
	pf.BoolVar(&c.flags.acceptStale, "accept-stale", true, "use cached records older than the freshness window (FPL_ACCEPT_STALE)")

	root.AddCommand(
		newServeCmd(c),
		newLoadCmd(c),
		newQueryCmd(c),
		newSearchCmd(c),
		newCacheCmd(c),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// SetVersionInfo sets the string printed by --version.
func SetVersionInfo(v, commit, date string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
}

func (c *cli) configure(cmd *cobra.Command) error {
	p := c.printer(cmd)

	cfg, err := config.Load()
	if err != nil {
		return p.Error("Invalid configuration", err.Error(), []string{"Check the FPL_* environment variables"})
	}

	f := cmd.Flags()
	if f.Changed("cache-dir") {
		cfg.CacheDir = c.flags.cacheDir
	}
	if f.Changed("profile") {
		cfg.Profile = c.flags.profile
	}
	if f.Changed("threshold") {
		cfg.CoverageThreshold = c.flags.threshold
	}
	if f.Changed("redis-url") {
		cfg.RedisURL = c.flags.redisURL
	}
	if f.Changed("log-level") {
		cfg.LogLevel = c.flags.logLevel
	}
	if f.Changed("pretty") {
		cfg.LogPretty = c.flags.pretty
	}
	if f.Changed("accept-stale") {
		cfg.AcceptStale = c.flags.acceptStale
	}
	if err := cfg.Validate(); err != nil {
		return p.Error("Invalid configuration", err.Error(), nil)
	}

	lc := cfg.Logging()
	lc.Output = cmd.ErrOrStderr()
	c.logger = logging.Setup(lc)

	c.cfg = cfg
	return nil
}

func (c *cli) printer(cmd *cobra.Command) *printer.Printer {
	return printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}
