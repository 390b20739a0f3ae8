// Package stream frames generated text as a line-delimited event stream.
//
// Every fragment travels as one frame:
//
//	data: {"content":"<fragment>"}
//
// followed by a blank line, and the stream ends with the literal frame
// "data: [DONE]". A fragment is always JSON-encoded, so it can never collide
// with the terminal marker.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	ContentType = "text/event-stream"
	DataPrefix  = "data: "
	DoneMarker  = "[DONE]"
)

// ErrNotFlushable is returned when the response writer cannot flush frames.
var ErrNotFlushable = errors.New("response writer does not support flushing")

// Event is one decoded frame. Exactly one of Content, Done and Err is set.
type Event struct {
	Content string
	Done    bool
	Err     error
}

type frame struct {
	Content string `json:"content"`
}

// Writer encodes frames onto an HTTP response. Headers are sent with the
// first frame, so a handler can still answer with something else until then.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNotFlushable
	}
	return &Writer{w: w, flusher: f}, nil
}

// Started reports whether any frame has been written.
func (s *Writer) Started() bool { return s.started }

// WriteContent sends one fragment. Empty fragments are not sent.
func (s *Writer) WriteContent(fragment string) error {
	if fragment == "" {
		return nil
	}
	data, err := json.Marshal(frame{Content: fragment})
	if err != nil {
		return err
	}
	return s.write(string(data))
}

// WriteDone sends the terminal frame.
func (s *Writer) WriteDone() error { return s.write(DoneMarker) }

func (s *Writer) write(payload string) error {
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", ContentType)
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if _, err := fmt.Fprintf(s.w, "%s%s\n\n", DataPrefix, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Decoder reads frames written by Writer.
type Decoder struct {
	scanner *bufio.Scanner
	logger  *slog.Logger
	done    bool
	skipped int
}

func NewDecoder(r io.Reader, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{scanner: sc, logger: logger}
}

// Next returns the next content or terminal event. Frames that are not
// valid JSON, or carry no content, are skipped and decoding continues.
// After the terminal frame Next returns io.EOF; a body that ends before the
// terminal frame yields io.ErrUnexpectedEOF.
func (d *Decoder) Next() (Event, error) {
	if d.done {
		return Event{}, io.EOF
	}
	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")
		if !strings.HasPrefix(line, DataPrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, DataPrefix)
		if payload == DoneMarker {
			d.done = true
			return Event{Done: true}, nil
		}
		var f frame
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			d.skipped++
			d.logger.Debug("skipping malformed frame", "error", err)
			continue
		}
		if f.Content == "" {
			continue
		}
		return Event{Content: f.Content}, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.ErrUnexpectedEOF
}

// Skipped counts the malformed frames dropped so far.
func (d *Decoder) Skipped() int { return d.skipped }
