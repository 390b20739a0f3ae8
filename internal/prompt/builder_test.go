package prompt

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"folio/internal/domain"
)

func scored(contents ...string) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(contents))
	for i, c := range contents {
		out[i] = domain.ScoredChunk{Chunk: domain.Chunk{ID: c, Content: c}, Score: float64(len(contents) - i)}
	}
	return out
}

func TestBuild_FallbackIgnoresQuery(t *testing.T) {
	b := NewBuilder("Ada", ModeRetrieval, "")

	first := b.Build("what is your favourite colour?", nil)
	second := b.Build("", []domain.ScoredChunk{})

	assert.Equal(t, first, second)
	assert.Equal(t, b.Fallback(), first)
	assert.NotContains(t, first, "favourite")
	assert.Contains(t, first, "I don't have information about that in my portfolio data")
	assert.Contains(t, first, "work experience, projects, technical skills")
}

func TestBuild_WithContext(t *testing.T) {
	b := NewBuilder("Ada", "", "")
	assert.Equal(t, ModeRetrieval, b.Mode())

	out := b.Build("Kafka?", scored("Built Kafka pipelines.", "Knows Go."))

	assert.Contains(t, out, "Context:\nBuilt Kafka pipelines."+Separator+"Knows Go.\n")
	assert.Contains(t, out, "ONLY on the following context")
	assert.Contains(t, out, "Use first person")
	assert.Contains(t, out, "concise, professional, and friendly")
	assert.Contains(t, out, "Never make up")
	assert.Contains(t, out, "User question: Kafka?")
	assert.Contains(t, out, "Ada's portfolio website")
}

func TestBuild_KeepsRankedOrder(t *testing.T) {
	out := Context(scored("third", "first", "second"))
	assert.Equal(t, "third"+Separator+"first"+Separator+"second", out)
	assert.Equal(t, "", Context(nil))
}

func TestBuild_FullMode(t *testing.T) {
	b := NewBuilder("Ada", ModeFull, "\n# Ada Lovelace\nAnalytical engine programmer.\n")

	out := b.Build("anything", nil)
	assert.Contains(t, out, "RESUME/PORTFOLIO DATA:\n# Ada Lovelace\nAnalytical engine programmer.\n")
	for i := 1; i <= 7; i++ {
		assert.Contains(t, out, "\n"+strconv.Itoa(i)+". ")
	}
	assert.NotContains(t, out, "\n8. ")
	assert.Equal(t, out, b.Build("other", scored("ignored")))
}
