// ABOUTME: Cobra command for interactive Twitter app credential setup.
// ABOUTME: Launches a bubbletea TUI wizard that validates via a real token refresh.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/tern/internal/config"
	"github.com/2389-research/tern/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect your Twitter developer app",
	Long: `Interactive wizard to configure OAuth2 client credentials.

Validation performs a real refresh-token grant; because the platform
rotates refresh tokens on every grant, the rotated token is what gets
saved to config.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(
		cfg.Twitter.ClientID,
		cfg.Twitter.ClientSecret,
		cfg.Twitter.RefreshToken,
	)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	clientID, clientSecret, refreshToken := final.Result()
	cfg.Twitter.ClientID = clientID
	cfg.Twitter.ClientSecret = clientSecret
	cfg.Twitter.RefreshToken = refreshToken

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
