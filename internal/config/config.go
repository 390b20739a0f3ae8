package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr      string          `yaml:"addr"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// TrustForwardedFor keys clients by X-Forwarded-For. Enable it only
	// behind a proxy that overwrites the header.
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`
}

// RateLimitConfig is a per-client token bucket. PerMinute <= 0 disables it.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

// CorpusConfig selects where chunks come from. With both fields empty the
// embedded corpus is used.
type CorpusConfig struct {
	Path              string `yaml:"path"`
	Document          string `yaml:"document"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// RetrieverConfig tunes retrieval.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// PromptConfig tunes prompt assembly.
type PromptConfig struct {
	Mode  string `yaml:"mode"`
	Owner string `yaml:"owner"`
}

// GeneratorConfig holds configuration for the OpenAI-compatible chat model.
type GeneratorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

func (g GeneratorConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// ClientConfig controls the terminal client and its reveal pacing.
type ClientConfig struct {
	ServerURL     string `yaml:"server_url"`
	TickMillis    int    `yaml:"tick_ms"`
	CharsPerTick  int    `yaml:"chars_per_tick"`
	MinThinkingMs int    `yaml:"min_thinking_ms"`
}

func (c ClientConfig) Tick() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}

func (c ClientConfig) MinThinking() time.Duration {
	return time.Duration(c.MinThinkingMs) * time.Millisecond
}

// ReportConfig configures the failure report relay.
type ReportConfig struct {
	URL          string `yaml:"url"`
	AccessKeyEnv string `yaml:"access_key_env"`
}

// SummarizerConfig sizes the profile introduction.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Retriever  RetrieverConfig  `yaml:"retriever"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Client     ClientConfig     `yaml:"client"`
	Report     ReportConfig     `yaml:"report"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	// Keys absent from the file keep their defaults; an explicit zero stays zero
	// where zero is meaningful.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/folio/config.yaml.
// If neither exists, defaults are returned without touching the disk.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := UserConfigPath()
	if err != nil {
		return Default(), "", nil
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return Default(), "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings that cannot work.
func (c *AppConfig) Validate() error {
	switch c.Prompt.Mode {
	case "retrieval", "full":
	default:
		return fmt.Errorf("unknown prompt mode %q", c.Prompt.Mode)
	}
	if c.Corpus.Path != "" && c.Corpus.Document != "" {
		return errors.New("corpus.path and corpus.document are mutually exclusive")
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		return fmt.Errorf("generator.temperature %v out of range [0, 2]", c.Generator.Temperature)
	}
	if c.Client.MinThinkingMs < 0 {
		return fmt.Errorf("client.min_thinking_ms %d is negative", c.Client.MinThinkingMs)
	}
	return nil
}

// UserConfigPath is ~/.config/folio/config.yaml.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "folio", "config.yaml"), nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{
		Server:    ServerConfig{RateLimit: RateLimitConfig{PerMinute: 20}},
		Generator: GeneratorConfig{Temperature: 0.7},
		Client:    ClientConfig{MinThinkingMs: 1000},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills settings whose zero value cannot work.
func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = 5
	}
	if cfg.Corpus.SentencesPerChunk == 0 {
		cfg.Corpus.SentencesPerChunk = 3
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 4
	}
	if cfg.Prompt.Mode == "" {
		cfg.Prompt.Mode = "retrieval"
	}
	g := &cfg.Generator
	if g.BaseURL == "" {
		g.BaseURL = "https://api.groq.com/openai/v1"
	}
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = "GROQ_API_KEY"
	}
	if g.Model == "" {
		g.Model = "llama-3.3-70b-versatile"
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = 1024
	}
	if g.TimeoutSecs == 0 {
		g.TimeoutSecs = 60
	}
	c := &cfg.Client
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:8080"
	}
	if c.TickMillis == 0 {
		c.TickMillis = 20
	}
	if c.CharsPerTick == 0 {
		c.CharsPerTick = 3
	}
	if cfg.Report.URL == "" {
		cfg.Report.URL = "https://api.web3forms.com/submit"
	}
	if cfg.Report.AccessKeyEnv == "" {
		cfg.Report.AccessKeyEnv = "WEB3FORMS_KEY"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
