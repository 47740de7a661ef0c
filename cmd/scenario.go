package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lineage/internal/referral"
	"github.com/papapumpkin/lineage/internal/scenario"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run scripted referral scenarios from TOML files",
}

var scenarioRunCmd = &cobra.Command{
	Use:   "run <file.toml>",
	Short: "Run a scenario and report each step's outcome",
	Long: `Loads a scenario file and runs its members, referrals, queries,
simulations, target searches and bonus search in order. Rejected referrals
and missed targets are reported as failed steps, not errors.

By default the scenario runs against an empty in-memory forest. With
--persist it runs against the journal and records what it changes.
With --watch it re-runs whenever the file is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runScenario,
}

func init() {
	scenarioRunCmd.Flags().Bool("watch", false, "re-run when the file changes")
	scenarioRunCmd.Flags().Bool("persist", false, "run against the journal and record changes")

	scenarioCmd.AddCommand(scenarioRunCmd)
	rootCmd.AddCommand(scenarioCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	watch, _ := cmd.Flags().GetBool("watch")
	persist, _ := cmd.Flags().GetBool("persist")
	if watch && persist {
		return fmt.Errorf("--watch and --persist cannot be combined")
	}
	return withApp(cmd, func(a *app) error {
		if !watch {
			return a.runScenarioFile(a.ctx, args[0], persist)
		}
		ctx, stop := signal.NotifyContext(a.ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return a.watchScenario(ctx, args[0])
	})
}

// runScenarioFile loads and runs one scenario, printing its report.
func (a *app) runScenarioFile(ctx context.Context, path string, persist bool) error {
	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	model := a.cfg.Growth.Model()
	bonus := a.cfg.Growth.BonusOptions()
	opts := scenario.Options{
		Model:     &model,
		Bonus:     &bonus,
		Metrics:   a.met,
		Telemetry: a.tel,
		Logger:    a.log,
	}
	if persist {
		f, err := a.loadForest()
		if err != nil {
			return err
		}
		// The forest is handed to the runner for the duration of the run.
		opts.Forest = referral.NewSyncForest(f)
		opts.Recorder = a.journal
	}
	rep, err := scenario.Run(ctx, s, opts)
	if perr := a.out.ScenarioReport(rep); perr != nil && err == nil {
		err = perr
	}
	return err
}

// watchScenario runs the scenario now and again after every save until ctx
// is cancelled. Load errors are reported and the watch continues.
func (a *app) watchScenario(ctx context.Context, path string) error {
	w, err := scenario.NewWatcher(path)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	run := func() {
		if err := a.runScenarioFile(ctx, path, false); err != nil {
			a.out.Error(err.Error())
		}
	}
	run()
	a.out.Info("watching %s (Ctrl-C to stop)", w.File)
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if c.Removed {
				a.out.Warn("%s was removed; waiting for it to return", c.File)
				continue
			}
			a.log.WithField("file", c.File).Debug("scenario changed")
			run()
		}
	}
}
