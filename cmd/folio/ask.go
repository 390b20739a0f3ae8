package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/client"
	"folio/internal/config"
	"folio/internal/reveal"
)

var (
	askServer   string
	askNoStream bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask one question and print the paced reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		c := client.New(serverURL(cfg, askServer), nil, logger)
		rc := revealConfig(cfg)
		rc.Owner = askOwner(ctx, cfg, c, logger)

		_, err = askOnce(ctx, c, rc, strings.Join(args, " "), !askNoStream, cmd.OutOrStdout())
		return err
	},
}

// askOwner names the owner in failure messages: the configured owner, else
// the server's profile name.
func askOwner(ctx context.Context, cfg *config.AppConfig, c *client.Client, logger *slog.Logger) string {
	if cfg.Prompt.Owner != "" {
		return cfg.Prompt.Owner
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	profile, err := c.Profile(ctx)
	if err != nil {
		logger.Debug("profile unavailable", "error", err)
	}
	return ownerName(cfg, profile)
}

// askOnce runs the request and the reveal together, so time spent waiting
// for the server counts toward the thinking floor.
func askOnce(ctx context.Context, c *client.Client, rc reveal.Config, question string, streaming bool, out io.Writer) (reveal.Snapshot, error) {
	events := c.Ask(ctx, question, streaming)
	p := &printer{out: out}
	snap, err := reveal.Run(ctx, rc, events, p.update)
	if err != nil {
		return snap, err
	}
	p.finish(snap)
	return snap, nil
}

func init() {
	askCmd.Flags().StringVar(&askServer, "server", "", "Server URL (overrides client.server_url)")
	askCmd.Flags().BoolVarP(&askNoStream, "no-stream", "n", false, "Request a complete reply instead of a stream")
}

// printer writes only the newly revealed part of each snapshot.
type printer struct {
	out     io.Writer
	printed int
}

func (p *printer) update(s reveal.Snapshot) {
	shown := []rune(s.Displayed)
	if len(shown) > p.printed {
		fmt.Fprint(p.out, string(shown[p.printed:]))
		p.printed = len(shown)
	}
}

func (p *printer) finish(s reveal.Snapshot) {
	p.update(s)
	if p.printed > 0 {
		fmt.Fprintln(p.out)
	}
	for _, m := range s.Messages {
		if m.IsError {
			fmt.Fprintln(p.out, m.Content)
		}
	}
}
