package domain

import "context"

// Chunk is a single fact about the portfolio owner used for retrieval.
// Category is metadata only and never takes part in scoring.
type Chunk struct {
	ID       string `yaml:"id" json:"id"`
	Content  string `yaml:"content" json:"content"`
	Category string `yaml:"category" json:"category"`
}

// ScoredChunk is a chunk with its relevance to one query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a client-side conversation.
type Message struct {
	ID      string
	Role    Role
	Content string
	IsError bool
}

// Retriever selects the chunks most relevant to a query.
type Retriever interface {
	Retrieve(query string, topK int) []ScoredChunk
}

// PromptBuilder turns a query and its retrieved chunks into the system
// instruction handed to the generator.
type PromptBuilder interface {
	Build(query string, chunks []ScoredChunk) string
}

// Generator produces text from a system instruction and a user message.
type Generator interface {
	Configured() bool
	Generate(ctx context.Context, system, user string) (string, error)
	Stream(ctx context.Context, system, user string, fn func(fragment string) error) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Chunker splits a plain-text document into chunks.
type Chunker interface {
	Chunk(documentID, text string) ([]Chunk, error)
}
