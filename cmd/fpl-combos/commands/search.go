package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search players by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.printer(cmd)

			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return p.Error("Failed to start", err.Error(), nil)
			}
			defer a.Close()

			items, err := a.svc.SearchItems(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return p.Error("Search failed", err.Error(), []string{"Check your connection to the FPL API"})
			}
			p.Items(items)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	return cmd
}
