// Package corpus holds the fixed set of facts the assistant answers from.
// A Corpus is built once at start-up and never mutated afterwards.
package corpus

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"folio/internal/domain"
)

var (
	//go:embed data/corpus.yaml
	defaultCorpus []byte
	//go:embed data/resume.md
	defaultResume string
)

// Profile describes the portfolio owner.
type Profile struct {
	Name        string   `yaml:"name" json:"name"`
	Owner       string   `yaml:"owner" json:"-"`
	Title       string   `yaml:"title" json:"title"`
	Suggestions []string `yaml:"suggestions" json:"suggestions"`
}

// FirstName is how the assistant refers to the owner in instructions.
func (p Profile) FirstName() string {
	if p.Owner != "" {
		return p.Owner
	}
	if f := strings.Fields(p.Name); len(f) > 0 {
		return f[0]
	}
	return "the portfolio owner"
}

type file struct {
	Profile Profile        `yaml:"profile"`
	Chunks  []domain.Chunk `yaml:"chunks"`
}

// Corpus is an immutable ordered list of chunks plus the owner's profile and
// the full resume document.
type Corpus struct {
	profile  Profile
	chunks   []domain.Chunk
	document string
}

// New validates and copies chunks. IDs must be unique and non-empty.
func New(profile Profile, chunks []domain.Chunk, document string) (*Corpus, error) {
	if len(chunks) == 0 {
		return nil, errors.New("corpus has no chunks")
	}
	seen := make(map[string]struct{}, len(chunks))
	for i, ch := range chunks {
		if ch.ID == "" {
			return nil, fmt.Errorf("chunk %d has no id", i)
		}
		if _, dup := seen[ch.ID]; dup {
			return nil, fmt.Errorf("duplicate chunk id %q", ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	cp := make([]domain.Chunk, len(chunks))
	copy(cp, chunks)
	return &Corpus{profile: profile, chunks: cp, document: document}, nil
}

// Default returns the corpus shipped with the binary.
func Default() (*Corpus, error) {
	return parse(defaultCorpus, defaultResume)
}

// Load reads a corpus YAML file. The embedded resume document is kept.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data, defaultResume)
}

// FromDocument builds a corpus by chunking a plain-text resume. The profile
// of the shipped corpus is reused.
func FromDocument(path string, chunker domain.Chunker) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base, err := Default()
	if err != nil {
		return nil, err
	}
	chunks, err := chunker.Chunk("resume", string(data))
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", path, err)
	}
	return New(base.profile, chunks, string(data))
}

func parse(data []byte, document string) (*Corpus, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return New(f.Profile, f.Chunks, document)
}

// Chunks returns a copy of the chunks in corpus order.
func (c *Corpus) Chunks() []domain.Chunk {
	cp := make([]domain.Chunk, len(c.chunks))
	copy(cp, c.chunks)
	return cp
}

func (c *Corpus) Len() int { return len(c.chunks) }

func (c *Corpus) Profile() Profile { return c.profile }

// Document is the full resume text, falling back to the joined chunks.
func (c *Corpus) Document() string {
	if strings.TrimSpace(c.document) != "" {
		return c.document
	}
	return c.Text()
}

// Text joins every chunk's content, one per line.
func (c *Corpus) Text() string {
	var b strings.Builder
	for i, ch := range c.chunks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(ch.Content)
	}
	return b.String()
}
