package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"instabot/pkg/config"
	"instabot/pkg/logger"
	"instabot/pkg/session"
	"instabot/pkg/ui"
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the saved login session",
	Long: `Manage the saved Instagram web session of an account.

Sessions are stored using:
  - System keychain (when available)
  - Encrypted file under the user config directory

A saved session is cleared automatically when Instagram blocks an action,
so a fresh one has to be set before the next run.`,
}

// sessionSetCmd represents the session set command
var sessionSetCmd = &cobra.Command{
	Use:   "set [username]",
	Short: "Save session cookies for an account",
	Long: `Save the sessionid and csrftoken cookies of a logged-in browser session.

To get these values:
1. Log into Instagram in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Copy the sessionid and csrftoken values`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessionSet,
}

// sessionClearCmd represents the session clear command
var sessionClearCmd = &cobra.Command{
	Use:   "clear [username]",
	Short: "Remove the saved session of an account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, sessions, err := sessionManager(cmd, args)
		if err != nil {
			return err
		}
		if err := sessions.Clear(cfg.Instagram.Username); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		ui.PrintSuccess("Session removed: " + cfg.Instagram.Username)
		return nil
	},
}

// sessionShowCmd represents the session show command
var sessionShowCmd = &cobra.Command{
	Use:   "show [username]",
	Short: "Show the session an account would run with",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, sessions, err := sessionManager(cmd, args)
		if err != nil {
			return err
		}
		s, err := sessions.Load(cfg.Instagram.Username)
		if err != nil {
			return err
		}
		masked := s.Masked()
		ui.PrintInfo("Username", masked.Username)
		ui.PrintInfo("Session ID", masked.SessionID)
		ui.PrintInfo("CSRF Token", masked.CSRFToken)
		if masked.UserAgent != "" {
			ui.PrintInfo("User Agent", masked.UserAgent)
		}
		if !masked.SavedAt.IsZero() {
			ui.PrintInfo("Saved", masked.SavedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionSetCmd, sessionClearCmd, sessionShowCmd)
}

// sessionManager loads the configuration, with an optional username
// argument taking precedence, and opens the session stores.
func sessionManager(cmd *cobra.Command, args []string) (*config.Config, *session.Manager, error) {
	flags := flagOverrides(cmd)
	if len(args) > 0 {
		flags["username"] = args[0]
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, err
	}
	sessions, err := session.NewDefaultManager(logger.GetLogger(), sessionFromConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, sessions, nil
}

func runSessionSet(cmd *cobra.Command, args []string) error {
	cfg, sessions, err := sessionManager(cmd, args)
	if err != nil {
		return err
	}
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprintln(ui.Output, "Enter your cookie values (they will be hidden as you type):")
	fmt.Fprint(ui.Output, "sessionid cookie value: ")
	sessionID, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read session ID: %w", err)
	}
	fmt.Fprint(ui.Output, "csrftoken cookie value: ")
	csrfToken, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read CSRF token: %w", err)
	}
	fmt.Fprint(ui.Output, "User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')

	s := &session.Session{
		Username:  cfg.Instagram.Username,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		UserAgent: strings.TrimSpace(userAgent),
	}
	if err := sessions.Save(s); err != nil {
		return err
	}

	masked := s.Masked()
	ui.PrintSuccess("Session saved: " + s.Username)
	ui.PrintInfo("Session ID", masked.SessionID)
	ui.PrintInfo("CSRF Token", masked.CSRFToken)
	return nil
}

// readSecret reads one line without echo when stdin is a terminal.
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Output)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
