package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"instabot/pkg/config"
	"instabot/pkg/session"
	"instabot/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage instabot configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (INSTABOT_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file containing every option at its default value.

The file is created as '.instabot.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = ".instabot.yaml"
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s", path)
		}

		cfg := config.DefaultConfig()
		cfg.MergeCommandLineFlags(flagOverrides(cmd))
		if err := cfg.Save(path); err != nil {
			return err
		}

		ui.PrintSuccess("Configuration file created: " + path)
		fmt.Fprintln(ui.Output, "\nNext steps:")
		fmt.Fprintln(ui.Output, "1. Set instagram.username and review the limits")
		fmt.Fprintln(ui.Output, "2. Run 'instabot session set' to store your session cookies")
		fmt.Fprintln(ui.Output, "3. Run 'instabot config validate' to check the configuration")
		return nil
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. Session cookies are
masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		display := *cfg
		masked := sessionFromConfig(cfg).Masked()
		if display.Instagram.SessionID != "" {
			display.Instagram.SessionID = masked.SessionID
		}
		if display.Instagram.CSRFToken != "" {
			display.Instagram.CSRFToken = masked.CSRFToken
		}

		data, err := yaml.Marshal(&display)
		if err != nil {
			return fmt.Errorf("failed to format configuration: %w", err)
		}
		ui.PrintHighlight("Current Configuration")
		fmt.Fprintln(ui.Output)
		fmt.Fprint(ui.Output, string(data))
		return nil
	},
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	Long: `Validate the configuration after merging every source.

This command checks:
  - YAML syntax
  - Required fields
  - Value ranges
  - That the hourly follow limit can reach the daily one within a work shift`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cfg.Instagram.SessionID == "" {
			s, err := session.NewDefaultManager(nil, nil)
			if err == nil {
				_, err = s.Load(cfg.Instagram.Username)
			}
			if err != nil {
				ui.PrintWarning("No session cookies configured or saved", "run 'instabot session set'")
			}
		}

		ui.PrintSuccess("Configuration is valid")
		fmt.Fprintln(ui.Output, "\nConfiguration summary:")
		ui.PrintInfo("  Account", cfg.Instagram.Username)
		ui.PrintInfo("  Follow limits", fmt.Sprintf("%d/hour, %d/day", cfg.Limits.MaxFollowsPerHour, cfg.Limits.MaxFollowsPerDay))
		ui.PrintInfo("  Like limit", fmt.Sprintf("%d/day", cfg.Limits.MaxLikesPerDay))
		ui.PrintInfo("  Unfollow grace period", cfg.Unfollow.DontUnfollowUntil.String())
		ui.PrintInfo("  Storage", cfg.Storage.Backend)
		ui.PrintInfo("  Dry run", fmt.Sprintf("%t", cfg.DryRun))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
}
