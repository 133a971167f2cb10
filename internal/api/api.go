// Package api provides the HTTP server for Simsar: a JSON session API and an inbound
// Twilio webhook, both backed by a SessionManager.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/Simsar/internal/messaging"
	"github.com/BTreeMap/Simsar/internal/metrics"
	"github.com/twilio/twilio-go/client"
)

// Server defaults.
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMaxBodyBytes    = 64 << 10
	readHeaderTimeout      = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr            string
	Sender          messaging.Sender
	TwilioAuthToken string
	PublicURL       string
	MaxBodyBytes    int64
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSender sets the channel used to answer webhook messages.
func WithSender(s messaging.Sender) Option {
	return func(o *Opts) { o.Sender = s }
}

// WithTwilioAuthToken enables X-Twilio-Signature validation on the webhook.
func WithTwilioAuthToken(token string) Option {
	return func(o *Opts) { o.TwilioAuthToken = token }
}

// WithPublicURL sets the externally visible base URL used for signature validation,
// e.g. "https://simsar.example.com".
func WithPublicURL(url string) Option {
	return func(o *Opts) { o.PublicURL = url }
}

// WithMaxBodyBytes bounds JSON and form request bodies. Non-positive values keep the default.
func WithMaxBodyBytes(n int64) Option {
	return func(o *Opts) { o.MaxBodyBytes = n }
}

// Server serves the session API.
type Server struct {
	sessions  *SessionManager
	sender    messaging.Sender
	validator *client.RequestValidator
	publicURL string
	addr      string
	maxBody   int64
}

// NewServer creates a server over the session manager.
func NewServer(sessions *SessionManager, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, MaxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{
		sessions:  sessions,
		sender:    cfg.Sender,
		publicURL: cfg.PublicURL,
		addr:      cfg.Addr,
		maxBody:   cfg.MaxBodyBytes,
	}
	if cfg.TwilioAuthToken != "" {
		v := client.NewRequestValidator(cfg.TwilioAuthToken)
		s.validator = &v
	}
	slog.Debug("NewServer: configured", "addr", s.addr, "sender_set", s.sender != nil, "signature_validation", s.validator != nil, "max_body_bytes", s.maxBody)
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.createSessionHandler)
	mux.HandleFunc("GET /sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("DELETE /sessions/{id}", s.deleteSessionHandler)
	mux.HandleFunc("POST /sessions/{id}/messages", s.messageHandler)
	mux.HandleFunc("POST /webhooks/twilio", s.twilioWebhookHandler)
	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Simsar API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: shutdown failed", "error", err)
		return err
	}
	return nil
}
