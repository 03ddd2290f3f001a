package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"instabot/pkg/config"
	"instabot/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	username    string
	dryRun      bool
	storageKind string
	dataDir     string
	logLevel    string
	metricsAddr string
	noColor     bool
	notify      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "instabot",
	Short: "Paced follow, unfollow and like campaigns for an Instagram account",
	Long: `instabot runs follow, unfollow and like campaigns for one Instagram
account while keeping the account under hourly and daily action budgets.

Every action is recorded in a per-account history, so an interrupted
campaign can simply be started again.

Features:
  - Follow the followers of seed accounts or the likers of a post
  - Unfollow non-mutual, unknown or old follows
  - Eligibility filters on follower counts, ratios and privacy
  - Hourly and daily budgets with automatic cooldowns
  - JSON, SQLite or Badger history storage
  - Prometheus metrics and dry-run mode`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .instabot.yaml or $HOME/.config/instabot/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "", "account to run as")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log every action without performing it or recording history")
	rootCmd.PersistentFlags().StringVar(&storageKind, "storage", "", "history backend (memory, json, sqlite, badger)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "history location (default is the per-account data directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notify, "notify", false, "send a desktop notification when a campaign ends")

	rootCmd.SetVersionTemplate(`instabot {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// flagOverrides collects the global flags the user actually set.
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, v interface{}) {
		if cmd.Flags().Changed(name) {
			flags[name] = v
		}
	}
	set("username", username)
	set("dry-run", dryRun)
	set("storage", storageKind)
	set("data-dir", dataDir)
	set("log-level", logLevel)
	set("metrics-addr", metricsAddr)
	return flags
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
