package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceChunker_Windows(t *testing.T) {
	c := NewSentenceChunker(2, 1)

	chunks, err := c.Chunk("resume", "One fact. Two facts! Three facts? Four facts.")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "resume:0", chunks[0].ID)
	assert.Equal(t, "One fact. Two facts!", chunks[0].Content)
	assert.Equal(t, "Two facts! Three facts?", chunks[1].Content)
	assert.Equal(t, "Three facts? Four facts.", chunks[2].Content)
	for _, ch := range chunks {
		assert.Equal(t, DocumentCategory, ch.Category)
	}
}

func TestSentenceChunker_LinesAreSentences(t *testing.T) {
	c := NewSentenceChunker(1, 0)

	chunks, err := c.Chunk("doc", "## Skills\n- Go\n- Kafka")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "## Skills", chunks[0].Content)
	assert.Equal(t, "- Kafka", chunks[2].Content)
}

func TestSentenceChunker_Empty(t *testing.T) {
	chunks, err := NewSentenceChunker(3, 1).Chunk("doc", "   \n ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSentenceChunker_InvalidOverlapIsIgnored(t *testing.T) {
	c := NewSentenceChunker(2, 5)

	chunks, err := c.Chunk("doc", "A one. B two. C three.")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "C three.", chunks[1].Content)
}
