package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"folio/internal/config"
	"folio/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Portfolio chat assistant",
	Long: `folio answers questions about a portfolio owner. The server retrieves
the most relevant facts from a small corpus, asks an OpenAI-compatible model
to answer in the owner's voice and streams the reply. The chat and ask
commands consume that stream and reveal it at a steady typing pace.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML config file (default ./config.yaml, then ~/.config/folio/config.yaml)")
	rootCmd.AddCommand(serveCmd, chatCmd, askCmd, initCmd)
}

// loadConfig reads --config, or the default locations when it is unset.
func loadConfig() (*config.AppConfig, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

func newLogger(cfg *config.AppConfig) (*slog.Logger, error) {
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
