// Package prompt assembles the system instruction sent to the generator.
package prompt

import (
	"fmt"
	"strings"

	"folio/internal/domain"
)

// Mode selects how context reaches the model.
type Mode string

const (
	// ModeRetrieval injects only the retrieved chunks.
	ModeRetrieval Mode = "retrieval"
	// ModeFull injects the whole resume document and ignores retrieval.
	ModeFull Mode = "full"
)

// Separator sits between context chunks.
const Separator = "\n\n---\n\n"

// Builder renders system instructions for one portfolio owner.
type Builder struct {
	owner    string
	mode     Mode
	document string
}

// NewBuilder returns a builder speaking for owner. document is the full
// resume text used by ModeFull.
func NewBuilder(owner string, mode Mode, document string) *Builder {
	if mode == "" {
		mode = ModeRetrieval
	}
	return &Builder{owner: owner, mode: mode, document: document}
}

func (b *Builder) Mode() Mode { return b.mode }

// Build returns the system instruction for query. With no chunks it returns
// the fixed fallback, whatever the query.
func (b *Builder) Build(query string, chunks []domain.ScoredChunk) string {
	if b.mode == ModeFull {
		return b.full()
	}
	if len(chunks) == 0 {
		return b.Fallback()
	}
	return fmt.Sprintf(`You are a helpful assistant for %[1]s's portfolio website. Answer questions about %[1]s based ONLY on the following context. Be concise, professional, and friendly. If the information isn't in the context, say you don't have that information. Never make up details that are not in the context.

Context:
%[2]s

User question: %[3]s

Respond naturally as if you are %[1]s's AI assistant. Use first person when referring to %[1]s (e.g., "I have experience with..." instead of "%[1]s has experience with...").`,
		b.owner, Context(chunks), query)
}

// Fallback is the canned redirection used when retrieval finds nothing.
func (b *Builder) Fallback() string {
	return fmt.Sprintf(`You are a helpful assistant for %s's portfolio website.

You don't have specific information about this topic in the portfolio data.
Respond with: "I don't have information about that in my portfolio data. Feel free to ask about my work experience, projects, technical skills, or the systems I've built."`, b.owner)
}

func (b *Builder) full() string {
	return fmt.Sprintf(`You are an AI assistant for %[1]s's portfolio website. Your role is to answer questions about %[1]s based ONLY on the resume/portfolio data provided below.

IMPORTANT RULES:
1. Only answer questions using information from the provided resume context
2. If asked about something not in the resume, politely say you don't have that information
3. Be concise, professional, and friendly
4. Use first person when referring to %[1]s (e.g., "I have experience with..." not "%[1]s has...")
5. Format responses with markdown for readability (bold, bullet points)
6. Keep responses focused and under 300 words unless more detail is requested
7. Never make up or hallucinate information not in the resume

RESUME/PORTFOLIO DATA:
%[2]s

Remember: You are representing %[1]s. Answer as if you are their AI assistant helping visitors learn about their experience.`,
		b.owner, strings.TrimSpace(b.document))
}

// Context joins chunk contents in ranked order.
func Context(chunks []domain.ScoredChunk) string {
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = ch.Chunk.Content
	}
	return strings.Join(parts, Separator)
}
