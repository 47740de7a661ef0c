package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lineage/internal/graph"
	"github.com/papapumpkin/lineage/internal/referral"
	"github.com/papapumpkin/lineage/internal/telemetry"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the members with the most descendants",
	Long: `Lists the k members with the largest descendant counts, largest first.
Ties keep registration order.`,
	Args: cobra.NoArgs,
	RunE: runTop,
}

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "List members nobody referred",
	Args:  cobra.NoArgs,
	RunE:  runRoots,
}

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Summarise every referral tree by size and depth",
	Args:  cobra.NoArgs,
	RunE:  runCampaigns,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Recompute counts and check the forest's invariants",
	Args:  cobra.NoArgs,
	RunE:  runAudit,
}

var influenceCmd = &cobra.Command{
	Use:   "influence",
	Short: "Rank members by blended PageRank and betweenness",
	Args:  cobra.NoArgs,
	RunE:  runInfluence,
}

var pathCmd = &cobra.Command{
	Use:   "path <source> <target> <candidate>",
	Short: "Check whether candidate lies on a shortest source→target path",
	Long: `Treats referrals as undirected links and reports whether candidate lies
on at least one shortest path between source and target, together with the
fraction of shortest paths that pass through it.`,
	Args: cobra.ExactArgs(3),
	RunE: runPath,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List journal events in the order they are replayed",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	topCmd.Flags().IntP("k", "k", 10, "number of members to show")
	influenceCmd.Flags().IntP("n", "n", 10, "number of members to show (0 = all)")
	influenceCmd.Flags().Float64("alpha", 0, "PageRank weight in [0,1] (default from config)")

	rootCmd.AddCommand(topCmd, rootsCmd, campaignsCmd, auditCmd, influenceCmd, pathCmd, historyCmd)
}

func runTop(cmd *cobra.Command, _ []string) error {
	k, _ := cmd.Flags().GetInt("k")
	return withApp(cmd, func(a *app) error { return a.top(k) })
}

func (a *app) top(k int) error {
	f, err := a.loadForest()
	if err != nil {
		return err
	}
	board, err := f.Leaderboard(k)
	if err != nil {
		return err
	}
	_ = a.tel.Record(telemetry.KindQuery, "top", map[string]any{"k": k, "result": board})
	return a.out.Leaderboard(board)
}

func runRoots(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app) error {
		f, err := a.loadForest()
		if err != nil {
			return err
		}
		return a.out.Lines(f.Roots())
	})
}

func runCampaigns(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app) error {
		f, err := a.loadForest()
		if err != nil {
			return err
		}
		return a.out.Campaigns(f.Campaigns())
	})
}

func runAudit(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app) error { return a.audit() })
}

func (a *app) audit() error {
	f, err := a.loadForest()
	if err != nil {
		return err
	}
	start := time.Now()
	err = f.Audit()
	_ = a.tel.Record(telemetry.KindAudit, a.cfg.JournalPath, map[string]any{"ok": err == nil, "members": f.Len()})
	if err != nil {
		return err
	}
	if a.out.JSONMode() {
		return a.out.JSON(map[string]any{"ok": true, "members": f.Len(), "trees": len(f.Roots())})
	}
	a.out.Success("forest consistent: %d members in %d trees (%s)", f.Len(), len(f.Roots()), time.Since(start).Round(time.Microsecond))
	return nil
}

func runInfluence(cmd *cobra.Command, _ []string) error {
	n, _ := cmd.Flags().GetInt("n")
	return withApp(cmd, func(a *app) error {
		opts := referral.DefaultInfluenceOptions()
		opts.Alpha = a.cfg.Influence.Alpha
		opts.PageRank.Damping = a.cfg.Influence.Damping
		if cmd.Flags().Changed("alpha") {
			opts.Alpha, _ = cmd.Flags().GetFloat64("alpha")
			if opts.Alpha < 0 || opts.Alpha > 1 {
				return fmt.Errorf("%w: alpha must be in [0,1], got %g", referral.ErrInvalidArgument, opts.Alpha)
			}
		}
		return a.influence(opts, n)
	})
}

func (a *app) influence(opts referral.InfluenceOptions, n int) error {
	f, err := a.loadForest()
	if err != nil {
		return err
	}
	scores := f.Influence(opts)
	if n > 0 && len(scores) > n {
		scores = scores[:n]
	}
	return a.out.Influence(scores)
}

func runPath(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error { return a.path(args[0], args[1], args[2]) })
}

func (a *app) path(source, target, candidate string) error {
	f, err := a.loadForest()
	if err != nil {
		return err
	}
	res, err := f.IsOnShortestPath(source, target, candidate)
	if err != nil {
		return err
	}
	_ = a.tel.Record(telemetry.KindPathQuery, candidate, struct {
		Source string `json:"source"`
		Target string `json:"target"`
		graph.GeodesicResult
	}{source, target, res})
	return a.out.Path(source, target, candidate, res)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app) error {
		if _, err := a.loadForest(); err != nil {
			return err
		}
		events, err := a.journal.Events(a.ctx)
		if err != nil {
			return err
		}
		if a.out.JSONMode() {
			return a.out.JSON(events)
		}
		lines := make([]string, len(events))
		for i, e := range events {
			line := fmt.Sprintf("%5d  %s  %-8s %s", e.Seq, e.RecordedAt.Format(time.DateTime), e.Kind, e.Subject)
			if e.Object != "" {
				line += " → " + e.Object
			}
			lines[i] = line
		}
		return a.out.Lines(lines)
	})
}
