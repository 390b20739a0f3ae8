package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/corpus"
	"folio/internal/domain"
	"folio/internal/generation"
	"folio/internal/prompt"
	"folio/internal/retriever"
)

type stubGenerator struct {
	configured bool
	fragments  []string
	err        error

	system string
	user   string
}

func (g *stubGenerator) Configured() bool { return g.configured }

func (g *stubGenerator) Generate(_ context.Context, system, user string) (string, error) {
	g.system, g.user = system, user
	if g.err != nil {
		return "", g.err
	}
	out := ""
	for _, f := range g.fragments {
		out += f
	}
	return out, nil
}

func (g *stubGenerator) Stream(_ context.Context, system, user string, fn func(string) error) error {
	g.system, g.user = system, user
	for _, f := range g.fragments {
		if err := fn(f); err != nil {
			return err
		}
	}
	return g.err
}

func newService(t *testing.T, gen domain.Generator) *ChatService {
	t.Helper()
	c, err := corpus.Default()
	require.NoError(t, err)
	return NewChatService(
		retriever.NewTFIDF(c.Chunks()),
		prompt.NewBuilder(c.Profile().FirstName(), prompt.ModeRetrieval, c.Document()),
		gen, 0, "", nil)
}

func TestAnswer(t *testing.T) {
	gen := &stubGenerator{configured: true, fragments: []string{"I built ", "Kafka pipelines."}}
	svc := newService(t, gen)

	ans := svc.Answer(context.Background(), "Tell me about your Kafka experience")

	assert.Equal(t, "I built Kafka pipelines.", ans.Text)
	assert.False(t, ans.Degraded)
	assert.NotEmpty(t, ans.Sources)
	assert.LessOrEqual(t, len(ans.Sources), DefaultTopK)
	assert.Equal(t, "Tell me about your Kafka experience", gen.user)
	assert.Contains(t, gen.system, "Kafka-based microservices")
	assert.NotContains(t, gen.system, "Guru Gobind Singh")
}

func TestAnswer_NoContextUsesFallback(t *testing.T) {
	gen := &stubGenerator{configured: true, fragments: []string{"I don't have information about that."}}
	svc := newService(t, gen)

	ans := svc.Answer(context.Background(), "zebra origami?")
	assert.Empty(t, ans.Sources)
	assert.Contains(t, gen.system, "You don't have specific information about this topic")
}

func TestAnswer_Degraded(t *testing.T) {
	svc := newService(t, &stubGenerator{configured: false})
	ans := svc.Answer(context.Background(), "Kafka?")
	assert.True(t, ans.Degraded)
	assert.Equal(t, svc.NotConfiguredText(), ans.Text)
	assert.False(t, svc.Configured())

	svc = newService(t, &stubGenerator{configured: true, err: errors.New("dial tcp: refused")})
	ans = svc.Answer(context.Background(), "Kafka?")
	assert.True(t, ans.Degraded)
	assert.Equal(t, ErrorText, ans.Text)
	assert.NotContains(t, ans.Text, "refused")

	svc = newService(t, &stubGenerator{configured: true})
	ans = svc.Answer(context.Background(), "Kafka?")
	assert.False(t, ans.Degraded)
	assert.Equal(t, EmptyText, ans.Text)
}

func TestStream(t *testing.T) {
	gen := &stubGenerator{configured: true, fragments: []string{"a", "b"}}
	svc := newService(t, gen)

	var got []string
	err := svc.Stream(context.Background(), "projects?", func(f string) error {
		got = append(got, f)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, "projects?", gen.user)
}

func TestStream_NotConfigured(t *testing.T) {
	svc := newService(t, &stubGenerator{})
	err := svc.Stream(context.Background(), "x", func(string) error { return nil })
	assert.ErrorIs(t, err, generation.ErrNotConfigured)
}

func TestStream_Failure(t *testing.T) {
	boom := errors.New("upstream reset")
	svc := newService(t, &stubGenerator{configured: true, fragments: []string{"part"}, err: boom})
	err := svc.Stream(context.Background(), "x", func(string) error { return nil })
	assert.ErrorIs(t, err, boom)
}
