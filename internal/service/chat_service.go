package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"folio/internal/domain"
	"folio/internal/generation"
)

// Texts returned to visitors instead of raw errors.
const (
	ErrorText = "Sorry, I encountered an error. Please try again."
	EmptyText = "I couldn't generate a response. Please try again."
)

// DefaultTopK is how many chunks feed one prompt.
const DefaultTopK = 4

// Answer is the outcome of a non-streaming chat turn.
type Answer struct {
	Text     string
	Sources  []domain.ScoredChunk
	Degraded bool
}

// ChatService turns a visitor question into a generated answer grounded on
// the retrieved chunks.
type ChatService struct {
	retriever domain.Retriever
	builder   domain.PromptBuilder
	generator domain.Generator
	topK      int
	notice    string
	logger    *slog.Logger
}

// NewChatService wires the pipeline. notice is the canned text returned when
// the generator is not configured.
func NewChatService(retriever domain.Retriever, builder domain.PromptBuilder, generator domain.Generator, topK int, notice string, logger *slog.Logger) *ChatService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if notice == "" {
		notice = "AI is not configured. Please set the API key for the server."
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ChatService{retriever: retriever, builder: builder, generator: generator, topK: topK, notice: notice, logger: logger}
}

// Configured reports whether answers can be generated at all.
func (s *ChatService) Configured() bool { return s.generator.Configured() }

// NotConfiguredText is the canned reply used while the generator is missing.
func (s *ChatService) NotConfiguredText() string { return s.notice }

// Prepare retrieves context for query and renders the system instruction.
func (s *ChatService) Prepare(query string) (string, []domain.ScoredChunk) {
	sources := s.retriever.Retrieve(query, s.topK)
	ids := make([]string, len(sources))
	for i, src := range sources {
		ids[i] = src.Chunk.ID
	}
	s.logger.Debug("retrieved context", "chunks", ids)
	return s.builder.Build(query, sources), sources
}

// Answer never fails: generation problems become a flagged canned reply.
func (s *ChatService) Answer(ctx context.Context, query string) Answer {
	system, sources := s.Prepare(query)
	if !s.generator.Configured() {
		return Answer{Text: s.notice, Sources: sources, Degraded: true}
	}
	text, err := s.generator.Generate(ctx, system, query)
	if err != nil {
		s.logger.Error("generation failed", "error", err)
		return Answer{Text: ErrorText, Sources: sources, Degraded: true}
	}
	if text == "" {
		return Answer{Text: EmptyText, Sources: sources}
	}
	return Answer{Text: text, Sources: sources}
}

// Stream relays fragments to fn as they arrive. It returns
// generation.ErrNotConfigured untouched so callers can fall back.
func (s *ChatService) Stream(ctx context.Context, query string, fn func(fragment string) error) error {
	if !s.generator.Configured() {
		return generation.ErrNotConfigured
	}
	system, _ := s.Prepare(query)
	if err := s.generator.Stream(ctx, system, query, fn); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("stream failed", "error", err)
		}
		return err
	}
	return nil
}
