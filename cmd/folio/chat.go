package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"folio/internal/client"
	"folio/internal/config"
	"folio/internal/report"
	"folio/internal/reveal"
	"folio/internal/tui"
)

var (
	chatServer   string
	chatNoStream bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat client",
	Long: `Open a terminal chat against a running folio server.

Key bindings:
  Enter   Send message
  1-6     Ask a suggested question (empty conversation only)
  Ctrl+R  Report a failed answer
  Ctrl+C  Quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		c := client.New(serverURL(cfg, chatServer), nil, logger)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		profile, err := c.Profile(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("reach server: %w", err)
		}

		reporter := report.NewClient(report.Config{URL: cfg.Report.URL, AccessKeyEnv: cfg.Report.AccessKeyEnv}, logger)
		m := tui.New(c, reporter, tui.Options{
			Profile:  profile,
			Owner:    ownerName(cfg, profile),
			Reveal:   revealConfig(cfg),
			NoStream: chatNoStream,
		})
		_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "", "Server URL (overrides client.server_url)")
	chatCmd.Flags().BoolVar(&chatNoStream, "no-stream", false, "Request complete replies instead of a stream")
}

func serverURL(cfg *config.AppConfig, flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Client.ServerURL
}

func ownerName(cfg *config.AppConfig, p client.Profile) string {
	if cfg.Prompt.Owner != "" {
		return cfg.Prompt.Owner
	}
	return p.Name
}

func revealConfig(cfg *config.AppConfig) reveal.Config {
	return reveal.Config{
		Tick:         cfg.Client.Tick(),
		CharsPerTick: cfg.Client.CharsPerTick,
		MinThinking:  cfg.Client.MinThinking(),
	}
}
