// Package store provides storage backends for BotWeave.
//
// It includes an in-memory store used by tests and small deployments, plus
// SQLite- and PostgreSQL-backed stores for persistent installations.
package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BotWeave/BotWeave/internal/models"
)

// Store is the persistence boundary for chatbots, flows, conversations and
// messages. The response engines never touch it directly; they consume
// already-fetched records.
type Store interface {
	SaveChatbot(b models.Chatbot) error
	GetChatbot(id string) (*models.Chatbot, error)
	ListChatbots() ([]models.Chatbot, error)
	DeleteChatbot(id string) error

	SaveFlow(f models.StoredFlow) error
	GetFlow(id string) (*models.StoredFlow, error)
	GetFlowByChatbot(chatbotID string) (*models.StoredFlow, error)
	DeleteFlow(id string) error

	SaveConversation(c models.Conversation) error
	GetConversation(id string) (*models.Conversation, error)
	GetConversationByChannelUser(chatbotID, channelUserID string) (*models.Conversation, error)

	AddMessage(m models.Message) error
	// GetMessages returns the conversation's messages ordered oldest first.
	GetMessages(conversationID string) ([]models.Message, error)

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the data source name for the backend.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite3". PostgreSQL DSNs
// use URL or key=value form; everything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// Open creates the store backend matching the DSN: PostgreSQL for postgres
// DSNs, SQLite for file paths, and the in-memory store when no DSN is given.
func Open(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, opening PostgreSQL store", "dsn_set", true)
		return NewPostgresStore(opts...)
	}
	slog.Debug("Detected SQLite DSN, opening SQLite store", "db_path", cfg.DSN)
	return NewSQLiteStore(opts...)
}

// InMemoryStore is a mutex-guarded map-backed Store.
type InMemoryStore struct {
	mu            sync.RWMutex
	chatbots      map[string]models.Chatbot
	flows         map[string]models.StoredFlow
	conversations map[string]models.Conversation
	messages      map[string][]models.Message
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chatbots:      make(map[string]models.Chatbot),
		flows:         make(map[string]models.StoredFlow),
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.Message),
	}
}

// SaveChatbot inserts or replaces a chatbot record.
func (s *InMemoryStore) SaveChatbot(b models.Chatbot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatbots[b.ID] = b
	return nil
}

// GetChatbot retrieves a chatbot by ID, or nil when absent.
func (s *InMemoryStore) GetChatbot(id string) (*models.Chatbot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.chatbots[id]; ok {
		return &b, nil
	}
	return nil, nil
}

// ListChatbots returns all chatbots ordered by creation time.
func (s *InMemoryStore) ListChatbots() ([]models.Chatbot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Chatbot, 0, len(s.chatbots))
	for _, b := range s.chatbots {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteChatbot removes a chatbot record.
func (s *InMemoryStore) DeleteChatbot(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chatbots, id)
	return nil
}

// SaveFlow inserts or replaces a stored flow.
func (s *InMemoryStore) SaveFlow(f models.StoredFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[f.ID] = f
	return nil
}

// GetFlow retrieves a flow by ID, or nil when absent.
func (s *InMemoryStore) GetFlow(id string) (*models.StoredFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.flows[id]; ok {
		return &f, nil
	}
	return nil, nil
}

// GetFlowByChatbot retrieves the most recently updated flow owned by the
// chatbot, or nil when it has none. Storage allows several flows per chatbot;
// the simple API assumes one active.
func (s *InMemoryStore) GetFlowByChatbot(chatbotID string) (*models.StoredFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.StoredFlow
	for id := range s.flows {
		f := s.flows[id]
		if f.ChatbotID != chatbotID {
			continue
		}
		if found == nil || f.UpdatedAt.After(found.UpdatedAt) {
			found = &f
		}
	}
	return found, nil
}

// DeleteFlow removes a stored flow.
func (s *InMemoryStore) DeleteFlow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, id)
	return nil
}

// SaveConversation inserts or replaces a conversation record.
func (s *InMemoryStore) SaveConversation(c models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = c
	return nil
}

// GetConversation retrieves a conversation by ID, or nil when absent.
func (s *InMemoryStore) GetConversation(id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.conversations[id]; ok {
		return &c, nil
	}
	return nil, nil
}

// GetConversationByChannelUser finds the conversation a channel user has with
// a chatbot, or nil when none exists yet.
func (s *InMemoryStore) GetConversationByChannelUser(chatbotID, channelUserID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.conversations {
		c := s.conversations[id]
		if c.ChatbotID == chatbotID && c.ChannelUserID == channelUserID {
			return &c, nil
		}
	}
	return nil, nil
}

// AddMessage appends a message to its conversation.
func (s *InMemoryStore) AddMessage(m models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)
	return nil
}

// GetMessages returns the conversation's messages oldest first.
func (s *InMemoryStore) GetMessages(conversationID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
