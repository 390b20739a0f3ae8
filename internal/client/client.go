// Package client talks to the chat server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"folio/internal/stream"
)

// FallbackText replaces an empty non-streaming reply.
const FallbackText = "Sorry, something went wrong."

// ErrUnexpectedStatus wraps every non-2xx reply.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Profile mirrors the server's profile payload.
type Profile struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Suggestions []string `json:"suggestions"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New returns a client for the server at baseURL. A nil httpClient means
// http.DefaultClient; streamed replies must not be cut by a client timeout.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, logger: logger}
}

// Response is either a streamed reply or a complete text.
type Response struct {
	// Text is set when the server answered with a JSON body.
	Text    string
	body    io.ReadCloser
	decoder *stream.Decoder
}

// Streaming reports whether the reply is an event stream.
func (r *Response) Streaming() bool { return r.decoder != nil }

// Close releases the underlying body.
func (r *Response) Close() error {
	if r.body == nil {
		return nil
	}
	return r.body.Close()
}

// Events delivers the reply as events. A complete text becomes one content
// event followed by the terminal event. The channel is closed after the
// terminal or error event, and the body is closed with it.
func (r *Response) Events(ctx context.Context) <-chan stream.Event {
	out := make(chan stream.Event)
	go func() {
		defer close(out)
		r.pump(sender(ctx, out))
	}()
	return out
}

func (r *Response) pump(send func(stream.Event) bool) {
	defer r.Close()
	if !r.Streaming() {
		if send(stream.Event{Content: r.Text}) {
			send(stream.Event{Done: true})
		}
		return
	}
	for {
		ev, err := r.decoder.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				send(stream.Event{Err: err})
			}
			return
		}
		if !send(ev) || ev.Done {
			return
		}
	}
}

// sender returns a send that gives up once ctx is done.
func sender(ctx context.Context, out chan<- stream.Event) func(stream.Event) bool {
	return func(ev stream.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
}

// Chat posts one message. The caller must Close or drain the response.
func (c *Client) Chat(ctx context.Context, message string, streaming bool) (*Response, error) {
	body, err := json.Marshal(map[string]any{"message": message, "stream": streaming})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", stream.ContentType+", application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("chat: %w: %s", ErrUnexpectedStatus, resp.Status)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), stream.ContentType) {
		return &Response{body: resp.Body, decoder: stream.NewDecoder(resp.Body, c.logger)}, nil
	}

	defer resp.Body.Close()
	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("chat: decode reply: %w", err)
	}
	if out.Response == "" {
		out.Response = FallbackText
	}
	return &Response{Text: out.Response}, nil
}

// Ask sends message and returns its events without waiting for the
// server. Request failures arrive as a single error event, so callers have
// one path for every failure.
func (c *Client) Ask(ctx context.Context, message string, streaming bool) <-chan stream.Event {
	out := make(chan stream.Event)
	go func() {
		defer close(out)
		send := sender(ctx, out)
		resp, err := c.Chat(ctx, message, streaming)
		if err != nil {
			c.logger.Debug("chat request failed", "error", err)
			send(stream.Event{Err: err})
			return
		}
		resp.pump(send)
	}()
	return out
}

// Profile fetches the portfolio owner's profile.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/profile", nil)
	if err != nil {
		return p, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return p, fmt.Errorf("profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return p, fmt.Errorf("profile: %w: %s", ErrUnexpectedStatus, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return p, fmt.Errorf("profile: %w", err)
	}
	return p, nil
}
