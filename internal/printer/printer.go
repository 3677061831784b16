// Package printer renders command output for terminals.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/KasraH/fpl-combos/pkg/catalog"
	"github.com/KasraH/fpl-combos/pkg/fetch"
	"github.com/KasraH/fpl-combos/pkg/league"
	"github.com/KasraH/fpl-combos/pkg/store"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

// Printer writes human-readable output. Errors go to Err.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// New returns a printer; nil writers mean stdout and stderr.
func New(out, errOut io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{Out: out, Err: errOut}
}

// Success prints a green line with a checkmark.
func (p *Printer) Success(format string, a ...any) {
	green.Fprintf(p.Out, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Info prints a plain line.
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.Out, format+"\n", a...)
}

// Warning prints a yellow line.
func (p *Printer) Warning(format string, a ...any) {
	yellow.Fprintf(p.Out, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Step prints a cyan progress line.
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprintf(p.Out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Error prints title, explanation and suggestions to Err and returns an
// error carrying only the title, for commands that silence cobra's own output.
func (p *Printer) Error(title, explanation string, suggestions []string) error {
	red.Fprintf(p.Err, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(p.Err, "%s\n", explanation)
	}
	if len(suggestions) > 0 {
		fmt.Fprintln(p.Err)
		if len(suggestions) == 1 {
			fmt.Fprintf(p.Err, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(p.Err, "Either:\n")
			for i, s := range suggestions {
				fmt.Fprintf(p.Err, "  %d. %s\n", i+1, s)
			}
		}
	}
	return fmt.Errorf("%s", title)
}

// Progress prints one fetch batch line.
func (p *Printer) Progress(pr fetch.Progress) {
	p.Step("Batch %d/%d: %d/%d succeeded (%.1f%%), %s elapsed, ETA %s",
		pr.Batch, pr.Batches, pr.Succeeded, pr.Attempted, pr.SuccessRate()*100,
		pr.Elapsed.Round(time.Second), pr.ETA.Round(time.Second))
}

// LoadResult prints the outcome of a league load.
func (p *Printer) LoadResult(r *league.LoadResult) {
	if r == nil {
		return
	}
	p.Success("%s", r.Message)
	if r.GroupName != "" {
		p.Info("  League:    %s", r.GroupName)
	}
	p.Info("  Gameweek:  %d", r.Version)
	if r.TotalMembers > 0 {
		p.Info("  Managers:  %d/%d (%.1f%%)", r.MemberCount, r.TotalMembers, r.Coverage*100)
	} else {
		p.Info("  Managers:  %d", r.MemberCount)
	}
	if r.Stale {
		p.Warning("Cached data is older than the freshness window")
	}
	if r.Upgraded {
		p.Info("  Cache record upgraded with league standings")
	}
	if r.Failed > 0 {
		p.Warning("%d managers could not be fetched", r.Failed)
	}
}

// Analysis prints a combination query result.
func (p *Printer) Analysis(a *league.Analysis) {
	if a == nil {
		return
	}
	bold.Fprintf(p.Out, "%s\n", strings.Join(a.PlayersFound, " + "))
	p.Info("%d of %d managers (%.2f%%) own this combination in gameweek %d",
		a.MatchCount, a.Scanned, a.Percentage, a.Version)
	if a.Result != nil && a.Result.Skipped > 0 {
		p.Warning("%d rosters were malformed and skipped", a.Result.Skipped)
	}
	if len(a.Rows) == 0 {
		return
	}
	fmt.Fprintln(p.Out)
	fmt.Fprintf(p.Out, "%-10s  %-24s  %-24s  %6s  %4s\n", "ID", "MANAGER", "TEAM", "TOTAL", "GW")
	for _, r := range a.Rows {
		fmt.Fprintf(p.Out, "%-10d  %-24s  %-24s  %6d  %4d\n",
			r.MemberID, truncate(r.ManagerName, 24), truncate(r.TeamName, 24), r.TotalPoints, r.RoundPoints)
	}
	if a.MatchCount > len(a.Rows) {
		p.Info("... and %d more", a.MatchCount-len(a.Rows))
	}
}

// Items prints catalog search results.
func (p *Printer) Items(items []catalog.Item) {
	if len(items) == 0 {
		p.Warning("No players found")
		return
	}
	for _, it := range items {
		fmt.Fprintf(p.Out, "%-6d  %-20s  %-28s  %-16s  %s\n", it.ID, it.WebName, it.FullName, it.Team, it.Position)
	}
}

// CacheList prints persisted records, newest first.
func (p *Printer) CacheList(metas []store.Meta, now time.Time) {
	if len(metas) == 0 {
		p.Info("No cached leagues")
		return
	}
	fmt.Fprintf(p.Out, "%-10s  %-4s  %-24s  %-14s  %s\n", "LEAGUE", "GW", "NAME", "MANAGERS", "AGE")
	for _, m := range metas {
		managers := fmt.Sprintf("%d", m.EntityCount)
		if m.TotalMembers > 0 {
			managers = fmt.Sprintf("%d/%d", m.EntityCount, m.TotalMembers)
		}
		name := m.GroupName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(p.Out, "%-10d  %-4d  %-24s  %-14s  %s\n",
			m.GroupID, m.Version, truncate(name, 24), managers, FormatAge(m.Age(now)))
	}
}

// CacheDetails prints one record's metadata.
func (p *Printer) CacheDetails(d store.Details, now time.Time) {
	bold.Fprintf(p.Out, "League %d, gameweek %d\n", d.Meta.GroupID, d.Meta.Version)
	if d.Meta.GroupName != "" {
		p.Info("  Name:      %s", d.Meta.GroupName)
	}
	p.Info("  Managers:  %d", d.Meta.EntityCount)
	if d.Meta.TotalMembers > 0 {
		p.Info("  League:    %d (%.1f%% cached)", d.Meta.TotalMembers, d.Coverage*100)
	} else {
		p.Warning("Legacy record without league size")
	}
	p.Info("  Cached:    %s (%s ago)", d.Meta.CreatedAt.Local().Format(time.DateTime), FormatAge(d.Meta.Age(now)))
	p.Info("  Size:      %s data, %s metadata", store.FormatSize(d.DataSize), store.FormatSize(d.InfoSize))
}

// CacheStats prints aggregate cache statistics.
func (p *Printer) CacheStats(s store.Stats) {
	if s.Records == 0 {
		p.Info("No cached leagues")
		return
	}
	p.Info("Records:        %d", s.Records)
	p.Info("Managers:       %d (avg %.1f per record)", s.TotalMembers, s.AvgMembers)
	p.Info("Disk usage:     %s", store.FormatSize(s.TotalBytes))
	p.Info("Oldest record:  %s", s.Oldest.Local().Format(time.DateTime))
	p.Info("Newest record:  %s", s.Newest.Local().Format(time.DateTime))
}

// FormatAge renders a duration coarsely: seconds, minutes, hours or days.
func FormatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
