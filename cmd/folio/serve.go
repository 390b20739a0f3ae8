package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"folio/internal/chunker"
	"folio/internal/config"
	"folio/internal/corpus"
	"folio/internal/generation"
	"folio/internal/prompt"
	"folio/internal/retriever"
	"folio/internal/server"
	"folio/internal/service"
	"folio/internal/summarizer"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat HTTP server",
	Long: `Serve POST /api/chat, GET /api/profile and GET /healthz.

The model API key is read from the environment variable named by
generator.api_key_env (GROQ_API_KEY by default; a .env file is honored).
Without it the server still runs and answers with a short notice.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		srv, err := buildServer(cfg, logger)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func loadCorpus(cfg *config.AppConfig) (*corpus.Corpus, error) {
	switch {
	case cfg.Corpus.Path != "":
		return corpus.Load(cfg.Corpus.Path)
	case cfg.Corpus.Document != "":
		ch := chunker.NewSentenceChunker(cfg.Corpus.SentencesPerChunk, cfg.Corpus.OverlapSentences)
		return corpus.FromDocument(cfg.Corpus.Document, ch)
	default:
		return corpus.Default()
	}
}

// buildServer assembles corpus, retriever, prompt builder, relay and service.
func buildServer(cfg *config.AppConfig, logger *slog.Logger) (*server.Server, error) {
	c, err := loadCorpus(cfg)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	profile := c.Profile()
	owner := cfg.Prompt.Owner
	if owner == "" {
		owner = profile.FirstName()
	}

	relay, err := generation.New(generation.Config{
		BaseURL:     cfg.Generator.BaseURL,
		APIKeyEnv:   cfg.Generator.APIKeyEnv,
		Model:       cfg.Generator.Model,
		Temperature: &cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
		Timeout:     cfg.Generator.Timeout(),
	}, logger)
	if err != nil {
		return nil, err
	}

	builder := prompt.NewBuilder(owner, prompt.Mode(cfg.Prompt.Mode), c.Document())
	notice := fmt.Sprintf("AI is not configured. Please set %s for the server.", cfg.Generator.APIKeyEnv)
	svc := service.NewChatService(retriever.NewTFIDF(c.Chunks()), builder, relay, cfg.Retriever.TopK, notice, logger)

	summary, err := summarizer.NewFrequencySummarizer().Summarize(c.Text(), cfg.Summarizer.MaxSentences)
	if err != nil {
		logger.Warn("profile summary unavailable", "error", err)
	}
	logger.Info("corpus loaded", "chunks", c.Len(), "prompt_mode", builder.Mode())

	return server.New(svc, server.Profile{
		Name:        profile.Name,
		Title:       profile.Title,
		Summary:     summary,
		Suggestions: profile.Suggestions,
	}, server.Options{
		RatePerMinute:     cfg.Server.RateLimit.PerMinute,
		RateBurst:         cfg.Server.RateLimit.Burst,
		TrustForwardedFor: cfg.Server.TrustForwardedFor,
		Logger:            logger,
	}), nil
}
