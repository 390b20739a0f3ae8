// Package report sends failure reports to a form relay so the portfolio
// owner hears about a broken assistant.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"
)

const DefaultURL = "https://api.web3forms.com/submit"

// ErrNotConfigured is returned when no access key is available.
var ErrNotConfigured = errors.New("report relay is not configured")

// Status is the UI-facing state of one report.
type Status int

const (
	Idle Status = iota
	Sending
	Sent
	Failed
)

func (s Status) String() string {
	switch s {
	case Sending:
		return "sending"
	case Sent:
		return "sent"
	case Failed:
		return "error"
	default:
		return "idle"
	}
}

// Report is one failure notification.
type Report struct {
	Subject  string
	FromName string
	Message  string
}

// NewChatFailure describes a failed chat turn.
func NewChatFailure(owner, question string, at time.Time) Report {
	return Report{
		Subject:  "Portfolio assistant error",
		FromName: "Portfolio chat",
		Message: fmt.Sprintf("The assistant on %s's portfolio failed to answer at %s.\n\nQuestion: %s",
			owner, at.UTC().Format(time.RFC3339), question),
	}
}

type Config struct {
	URL          string
	AccessKeyEnv string
	Timeout      time.Duration
}

// Client posts reports, retrying throttled and failed attempts.
type Client struct {
	url        string
	accessKey  string
	http       *http.Client
	maxRetries int
	sleep      func(context.Context, time.Duration) error
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var key string
	if cfg.AccessKeyEnv != "" {
		key = os.Getenv(cfg.AccessKeyEnv)
	}
	return &Client{
		url:        cfg.URL,
		accessKey:  key,
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: 3,
		sleep:      sleepCtx,
		logger:     logger,
	}
}

// Configured reports whether Send can reach the relay at all.
func (c *Client) Configured() bool { return c.accessKey != "" }

// Send delivers r. Transport errors, 429 and 5xx are retried with
// exponential backoff; other non-2xx replies fail at once.
func (c *Client) Send(ctx context.Context, r Report) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	data, err := json.Marshal(map[string]string{
		"access_key": c.accessKey,
		"subject":    r.Subject,
		"from_name":  r.FromName,
		"message":    r.Message,
	})
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying report", "attempt", attempt, "error", lastErr)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if err := c.wait(ctx, attempt, retryDelay(attempt)); err != nil {
				return err
			}
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("report relay: %s", resp.Status)
			delay := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			if err := c.wait(ctx, attempt, delay); err != nil {
				return err
			}
			continue
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("report relay: %s", resp.Status)
		}
		return nil
	}
	return fmt.Errorf("report failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// wait sleeps before the next attempt, unless attempt was the last one.
func (c *Client) wait(ctx context.Context, attempt int, d time.Duration) error {
	if attempt >= c.maxRetries {
		return nil
	}
	return c.sleep(ctx, d)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 200ms doubling, capped at 5s
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
