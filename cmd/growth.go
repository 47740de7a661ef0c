package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lineage/internal/growth"
	"github.com/papapumpkin/lineage/internal/metrics"
	"github.com/papapumpkin/lineage/internal/telemetry"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Project expected cumulative hires day by day",
	Long: `Runs the cohort model: every active agent refers one new member per day
with probability p and retires after capacity successes. Unless --closed is
set, each day's hires join as new agents the following day.`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Find the first day expected cumulative hires reach a target",
	Args:  cobra.NoArgs,
	RunE:  runTarget,
}

var bonusCmd = &cobra.Command{
	Use:   "bonus",
	Short: "Find the smallest bonus that reaches a hiring target",
	Long: `Maps a bonus to a referral probability through an adoption curve and
searches multiples of 10 for the smallest bonus whose projection reaches
--hires within --days.`,
	Args: cobra.NoArgs,
	RunE: runBonus,
}

func init() {
	modelFlags := func(cmd *cobra.Command) {
		cmd.Flags().Int("initial", 0, "initial referrers (default from config)")
		cmd.Flags().Int("capacity", 0, "successes before an agent retires (default from config)")
		cmd.Flags().Bool("closed", false, "new hires never refer (closed cohort)")
	}

	simulateCmd.Flags().Float64("p", 0, "daily referral probability per agent")
	simulateCmd.Flags().Int("days", 30, "days to simulate")
	simulateCmd.Flags().Int("every", 1, "print every nth day")
	modelFlags(simulateCmd)
	_ = simulateCmd.MarkFlagRequired("p")

	targetCmd.Flags().Float64("p", 0, "daily referral probability per agent")
	targetCmd.Flags().Float64("target", 0, "cumulative hires to reach")
	targetCmd.Flags().Int("max-days", 0, "give up after this many days (default from config)")
	modelFlags(targetCmd)
	_ = targetCmd.MarkFlagRequired("p")
	_ = targetCmd.MarkFlagRequired("target")

	bonusCmd.Flags().Int("days", 0, "days available to reach the target")
	bonusCmd.Flags().Float64("hires", 0, "cumulative hires to reach")
	bonusCmd.Flags().String("curve", "", "adoption curve: logistic, linear or saturating (default from config)")
	bonusCmd.Flags().Float64("midpoint", 0, "logistic midpoint or saturating scale")
	bonusCmd.Flags().Float64("steepness", 0, "logistic steepness or linear slope")
	bonusCmd.Flags().Float64("ceiling", 0, "largest probability the curve reaches")
	bonusCmd.Flags().Int64("max-bonus", 0, "largest bonus considered (default from config)")
	bonusCmd.Flags().Float64("epsilon", 0, "slack subtracted from the target (default from config)")
	modelFlags(bonusCmd)
	_ = bonusCmd.MarkFlagRequired("days")
	_ = bonusCmd.MarkFlagRequired("hires")

	rootCmd.AddCommand(simulateCmd, targetCmd, bonusCmd)
}

// model returns the configured cohort model with any flag overrides.
func (a *app) model(cmd *cobra.Command) growth.Model {
	m := a.cfg.Growth.Model()
	if cmd.Flags().Changed("initial") {
		m.InitialReferrers, _ = cmd.Flags().GetInt("initial")
	}
	if cmd.Flags().Changed("capacity") {
		m.Capacity, _ = cmd.Flags().GetInt("capacity")
	}
	if cmd.Flags().Changed("closed") {
		m.ClosedCohort, _ = cmd.Flags().GetBool("closed")
	}
	return m
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	p, _ := cmd.Flags().GetFloat64("p")
	days, _ := cmd.Flags().GetInt("days")
	every, _ := cmd.Flags().GetInt("every")
	return withApp(cmd, func(a *app) error { return a.simulate(a.model(cmd), p, days, every) })
}

func (a *app) simulate(m growth.Model, p float64, days, every int) error {
	series, err := m.Simulate(p, days)
	a.met.ObserveSearch(metrics.KindSimulate, err)
	if err != nil {
		return err
	}
	_ = a.tel.Record(telemetry.KindSimulation, "", map[string]any{
		"p": p, "days": days, "model": m, "final": series[len(series)-1],
	})
	a.out.Title("Projected hires (p=" + strconv.FormatFloat(p, 'g', -1, 64) + ")")
	return a.out.Series(series, every)
}

func runTarget(cmd *cobra.Command, _ []string) error {
	p, _ := cmd.Flags().GetFloat64("p")
	target, _ := cmd.Flags().GetFloat64("target")
	return withApp(cmd, func(a *app) error {
		maxDays := a.cfg.Growth.MaxDays
		if cmd.Flags().Changed("max-days") {
			maxDays, _ = cmd.Flags().GetInt("max-days")
		}
		return a.target(a.model(cmd), p, target, maxDays)
	})
}

func (a *app) target(m growth.Model, p, target float64, maxDays int) error {
	day, err := m.DaysToTarget(p, target, maxDays)
	a.met.ObserveSearch(metrics.KindTarget, err)
	_ = a.tel.Record(telemetry.KindTargetSearch, "", map[string]any{
		"p": p, "target": target, "max_days": maxDays, "day": day, "outcome": metrics.SearchOutcome(err),
	})
	if err != nil {
		return err
	}
	if a.out.JSONMode() {
		return a.out.JSON(map[string]any{"p": p, "target": target, "day": day})
	}
	return a.out.KeyValue([2]string{"day", strconv.Itoa(day)})
}

func runBonus(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")
	hires, _ := cmd.Flags().GetFloat64("hires")
	return withApp(cmd, func(a *app) error {
		curve := a.cfg.Growth.AdoptionCurve()
		opts := a.cfg.Growth.BonusOptions()
		fl := cmd.Flags()
		if fl.Changed("curve") {
			curve.Kind, _ = fl.GetString("curve")
		}
		if fl.Changed("midpoint") {
			curve.Midpoint, _ = fl.GetFloat64("midpoint")
		}
		if fl.Changed("steepness") {
			curve.Steepness, _ = fl.GetFloat64("steepness")
		}
		if fl.Changed("ceiling") {
			curve.Ceiling, _ = fl.GetFloat64("ceiling")
		}
		if fl.Changed("max-bonus") {
			opts.MaxBonus, _ = fl.GetInt64("max-bonus")
		}
		if fl.Changed("epsilon") {
			opts.Epsilon, _ = fl.GetFloat64("epsilon")
		}
		return a.bonus(a.model(cmd), days, hires, curve, opts)
	})
}

func (a *app) bonus(m growth.Model, days int, hires float64, curve growth.Curve, opts growth.BonusOptions) error {
	adoption, err := curve.Func()
	if err != nil {
		return err
	}
	res, err := m.SearchBonus(days, hires, adoption, opts)
	a.met.ObserveSearch(metrics.KindBonus, err)
	a.met.ObserveBonusEvaluations(res.Evaluations)
	a.log.WithField("curve", curve.Kind).WithField("evaluations", res.Evaluations).Debug("bonus search finished")
	_ = a.tel.Record(telemetry.KindBonusSearch, curve.Kind, map[string]any{
		"days": days, "hires": hires, "result": res, "outcome": metrics.SearchOutcome(err),
	})
	if err != nil {
		return err
	}
	return a.out.BonusResult(res)
}
