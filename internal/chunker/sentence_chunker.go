package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"folio/internal/domain"
)

// DocumentCategory labels chunks cut from a free-form document.
const DocumentCategory = "document"

// SentenceChunker splits text into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 3
	}
	if overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		overlapSentences = 0
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?\n])`),
	}
}

// Chunk cuts text into windows of sentencesPerChunk sentences, each window
// starting overlapSentences before the previous one ended. Chunk IDs are
// documentID:index.
func (c *SentenceChunker) Chunk(documentID, text string) ([]domain.Chunk, error) {
	sentences := c.sentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}
	step := c.sentencesPerChunk - c.overlapSentences
	var chunks []domain.Chunk
	for from := 0; ; from += step {
		to := min(from+c.sentencesPerChunk, len(sentences))
		chunks = append(chunks, domain.Chunk{
			ID:       documentID + ":" + strconv.Itoa(len(chunks)),
			Content:  strings.Join(sentences[from:to], " "),
			Category: DocumentCategory,
		})
		if to == len(sentences) {
			return chunks, nil
		}
	}
}

// sentences splits on terminal punctuation and line breaks. Text without
// either is one sentence.
func (c *SentenceChunker) sentences(text string) []string {
	var out []string
	for _, s := range c.splitter.FindAllString(text+"\n", -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
