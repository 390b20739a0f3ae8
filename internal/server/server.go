// Package server exposes the chat assistant over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"folio/internal/generation"
	"folio/internal/service"
	"folio/internal/stream"
)

const maxBodyBytes = 16 << 10

// Profile is served at /api/profile.
type Profile struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Suggestions []string `json:"suggestions"`
}

// ChatRequest is the body of POST /api/chat. Message is decoded loosely so a
// non-string value can be rejected with a 400 instead of a decode error.
type ChatRequest struct {
	Message any   `json:"message"`
	Stream  *bool `json:"stream"`
}

// ChatResponse is the non-streaming reply.
type ChatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Options configures a Server.
type Options struct {
	RatePerMinute int
	RateBurst     int
	// TrustForwardedFor keys the rate limit by X-Forwarded-For.
	TrustForwardedFor bool
	Logger            *slog.Logger
}

// Server routes chat requests to the chat service.
type Server struct {
	svc     *service.ChatService
	profile Profile
	limiter *clientLimiter
	trustFF bool
	logger  *slog.Logger
}

func New(svc *service.ChatService, profile Profile, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		svc:     svc,
		profile: profile,
		limiter: newClientLimiter(opts.RatePerMinute, opts.RateBurst),
		trustFF: opts.TrustForwardedFor,
		logger:  logger,
	}
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", s.rateLimited(http.HandlerFunc(s.handleChat)))
	mux.HandleFunc("GET /api/profile", s.handleProfile)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

// Run serves on addr until ctx is cancelled, then drains for up to 10s.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "generator_configured", s.svc.Configured())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Message is required"})
		return
	}
	message, ok := req.Message.(string)
	if !ok || message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Message is required"})
		return
	}
	streaming := req.Stream == nil || *req.Stream

	if streaming {
		if sw, err := stream.NewWriter(w); err == nil {
			s.streamChat(r.Context(), w, sw, message)
			return
		}
	}
	ans := s.svc.Answer(r.Context(), message)
	writeJSON(w, http.StatusOK, ChatResponse{Response: ans.Text})
}

// streamChat sends frames until the model finishes. Failures before the
// first frame still get a 200 JSON reply; after it, the body just ends
// without the terminal frame.
func (s *Server) streamChat(ctx context.Context, w http.ResponseWriter, sw *stream.Writer, message string) {
	err := s.svc.Stream(ctx, message, sw.WriteContent)
	switch {
	case errors.Is(err, generation.ErrNotConfigured):
		writeJSON(w, http.StatusOK, ChatResponse{Response: s.svc.NotConfiguredText()})
	case err != nil && !sw.Started():
		writeJSON(w, http.StatusOK, ChatResponse{Response: service.ErrorText})
	case err != nil:
		s.logger.Warn("stream aborted", "error", err)
	default:
		if err := sw.WriteDone(); err != nil {
			s.logger.Debug("write terminal frame", "error", err)
		}
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.profile)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	gen := "unconfigured"
	if s.svc.Configured() {
		gen = "configured"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "generator": gen})
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := s.limiter.allow(clientIP(r, s.trustFF))
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// statusRecorder captures the status code and keeps streaming possible.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
