// Package api provides HTTP handlers and the main API server logic for BotWeave.
//
// It exposes RESTful endpoints for managing chatbots, flows and conversations,
// plus the Messenger webhook. The API integrates with the store, messaging and
// messenger modules.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BotWeave/BotWeave/internal/flow"
	"github.com/BotWeave/BotWeave/internal/messaging"
	"github.com/BotWeave/BotWeave/internal/messenger"
	"github.com/BotWeave/BotWeave/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr      string
	Store     store.Store
	Responder *messaging.Responder
	Messenger *messenger.Client
	Sessions  *flow.SessionStore
	JWTSecret string

	// WebhookChatbotID names the chatbot that answers Messenger traffic.
	WebhookChatbotID string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithStore sets the storage backend.
func WithStore(st store.Store) Option {
	return func(o *Opts) { o.Store = st }
}

// WithResponder sets the messaging reply pipeline.
func WithResponder(r *messaging.Responder) Option {
	return func(o *Opts) { o.Responder = r }
}

// WithMessenger sets the Messenger channel client used by webhook endpoints.
func WithMessenger(c *messenger.Client) Option {
	return func(o *Opts) { o.Messenger = c }
}

// WithSessions sets the flow session store used by conversation reset.
func WithSessions(s *flow.SessionStore) Option {
	return func(o *Opts) { o.Sessions = s }
}

// WithJWTSecret enables bearer-token authentication on the /api subtree.
func WithJWTSecret(secret string) Option {
	return func(o *Opts) { o.JWTSecret = secret }
}

// WithWebhookChatbot pins the chatbot that answers Messenger traffic.
func WithWebhookChatbot(chatbotID string) Option {
	return func(o *Opts) { o.WebhookChatbotID = chatbotID }
}

// Server wires storage, the reply pipeline and the channel client behind the
// HTTP API.
type Server struct {
	addr      string
	st        store.Store
	responder *messaging.Responder
	msgClient *messenger.Client
	sessions  *flow.SessionStore
	jwtSecret []byte
	router    *mux.Router

	webhookChatbotID string
}

// NewServer creates an API server from the given options. A store must be
// provided; everything else has a usable default.
func NewServer(opts ...Option) (*Server, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store must be provided")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Responder == nil {
		var msgOpts []messaging.Option
		if cfg.Messenger != nil {
			msgOpts = append(msgOpts, messaging.WithService(cfg.Messenger))
		}
		cfg.Responder = messaging.NewResponder(cfg.Store, msgOpts...)
	}
	if cfg.Sessions == nil {
		cfg.Sessions = flow.NewSessionStore()
	}
	slog.Debug("Creating API server", "addr", cfg.Addr, "auth_enabled", cfg.JWTSecret != "", "messenger_enabled", cfg.Messenger != nil)

	s := &Server{
		addr:      cfg.Addr,
		st:        cfg.Store,
		responder: cfg.Responder,
		msgClient: cfg.Messenger,
		sessions:  cfg.Sessions,
		jwtSecret: []byte(cfg.JWTSecret),

		webhookChatbotID: cfg.WebhookChatbotID,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/chatbots", s.createChatbotHandler).Methods(http.MethodPost)
	api.HandleFunc("/chatbots", s.listChatbotsHandler).Methods(http.MethodGet)
	api.HandleFunc("/chatbots/{id}", s.getChatbotHandler).Methods(http.MethodGet)
	api.HandleFunc("/chatbots/{id}", s.deleteChatbotHandler).Methods(http.MethodDelete)
	api.HandleFunc("/chatbots/{id}/flow", s.putFlowHandler).Methods(http.MethodPut)
	api.HandleFunc("/chatbots/{id}/flow", s.getFlowHandler).Methods(http.MethodGet)
	api.HandleFunc("/chatbots/{id}/flow", s.deleteFlowHandler).Methods(http.MethodDelete)
	api.HandleFunc("/conversations", s.createConversationHandler).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/messages", s.postMessageHandler).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/messages", s.getMessagesHandler).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/reset", s.resetConversationHandler).Methods(http.MethodPost)

	r.HandleFunc("/webhook", s.verifyWebhookHandler).Methods(http.MethodGet)
	r.HandleFunc("/webhook", s.webhookHandler).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.router = r
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until it fails.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	slog.Info("BotWeave API running", "addr", s.addr)
	return srv.ListenAndServe()
}
