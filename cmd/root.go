// Package cmd provides CLI commands for lineage.
//
// Every command that reads or changes the referral forest rebuilds it by
// replaying the SQLite journal; see app.go.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/lineage/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "lineage",
	Short: "Referral program registry, path analyzer and growth simulator",
	Long: `Lineage tracks who referred whom in a referral program. Members form a
forest: each candidate has at most one referrer and cycles are rejected.
It answers descendant counts, leaderboards and shortest-path questions, and
projects program growth under a per-agent referral probability and capacity.

State is persisted as an append-only journal (default .lineage/journal.db).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .lineage.toml)")
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.String("journal", "", "journal database path (default .lineage/journal.db)")
	pf.String("telemetry", "", "append JSONL telemetry events to this file")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.Bool("json", false, "print results as JSON")

	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("journal", pf.Lookup("journal"))
	_ = viper.BindPFlag("telemetry", pf.Lookup("telemetry"))
	_ = viper.BindPFlag("metrics_file", pf.Lookup("metrics-file"))
	_ = viper.BindPFlag("json", pf.Lookup("json"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".lineage")
		viper.SetConfigType("toml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("LINEAGE")
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
