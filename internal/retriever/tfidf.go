package retriever

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"folio/internal/domain"
)

// minTokenLen is the shortest token kept; shorter words carry no signal
// in a corpus this small.
const minTokenLen = 3

// TFIDF ranks chunks against a query with max-normalized term frequency and
// ln(N/df) inverse document frequency. The corpus is fixed at construction,
// so IDF is computed once.
type TFIDF struct {
	chunks []domain.Chunk
	tf     []map[string]float64
	idf    map[string]float64
}

// NewTFIDF tokenizes every chunk and precomputes document frequencies.
func NewTFIDF(chunks []domain.Chunk) *TFIDF {
	r := &TFIDF{
		chunks: make([]domain.Chunk, len(chunks)),
		tf:     make([]map[string]float64, len(chunks)),
		idf:    make(map[string]float64),
	}
	copy(r.chunks, chunks)

	df := make(map[string]int)
	for i, ch := range r.chunks {
		r.tf[i] = termFrequency(Tokenize(ch.Content))
		for tok := range r.tf[i] {
			df[tok]++
		}
	}
	n := float64(len(r.chunks))
	for tok, count := range df {
		r.idf[tok] = math.Log(n / float64(count))
	}
	return r
}

// Retrieve returns at most topK chunks with a positive score, best first.
// Equal scores keep corpus order.
func (r *TFIDF) Retrieve(query string, topK int) []domain.ScoredChunk {
	if topK <= 0 {
		return nil
	}
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}
	weights := termFrequency(tokens)

	scored := make([]domain.ScoredChunk, 0, len(r.chunks))
	for i, ch := range r.chunks {
		score := 0.0
		// Every occurrence counts, so a repeated query word weighs more.
		for _, tok := range tokens {
			score += r.tf[i][tok] * r.idf[tok] * weights[tok]
		}
		if score > 0 {
			scored = append(scored, domain.ScoredChunk{Chunk: ch, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// IDF reports the inverse document frequency of a normalized token; tokens
// that appear in no chunk have zero weight.
func (r *TFIDF) IDF(token string) float64 { return r.idf[token] }

// Tokenize lowercases text, turns everything that is not an ASCII word
// character or whitespace into a space, splits on whitespace and drops
// tokens shorter than three bytes.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	fields := strings.Fields(cleaned)
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// termFrequency counts tokens and divides by the highest count, so the most
// frequent token weighs 1.0.
func termFrequency(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	maxCount := 0.0
	for _, tok := range tokens {
		tf[tok]++
		if tf[tok] > maxCount {
			maxCount = tf[tok]
		}
	}
	for tok, count := range tf {
		tf[tok] = count / maxCount
	}
	return tf
}
