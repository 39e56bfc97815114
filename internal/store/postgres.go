// Package store provides storage backends for BotWeave.
//
// This file implements a PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/BotWeave/BotWeave/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// SaveChatbot inserts or updates a chatbot record.
func (s *PostgresStore) SaveChatbot(b models.Chatbot) error {
	_, err := s.db.Exec(
		`INSERT INTO chatbots (id, name, language, flow_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, language = EXCLUDED.language, flow_id = EXCLUDED.flow_id, updated_at = EXCLUDED.updated_at`,
		b.ID, b.Name, string(b.Language), b.FlowID, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore SaveChatbot failed", "error", err, "id", b.ID)
		return fmt.Errorf("failed to save chatbot %s: %w", b.ID, err)
	}
	return nil
}

// GetChatbot retrieves a chatbot by ID, or nil when absent.
func (s *PostgresStore) GetChatbot(id string) (*models.Chatbot, error) {
	row := s.db.QueryRow(`SELECT id, name, language, flow_id, created_at, updated_at FROM chatbots WHERE id = $1`, id)
	b, err := scanChatbotRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetChatbot failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get chatbot %s: %w", id, err)
	}
	return b, nil
}

// ListChatbots returns all chatbots ordered by creation time.
func (s *PostgresStore) ListChatbots() ([]models.Chatbot, error) {
	rows, err := s.db.Query(`SELECT id, name, language, flow_id, created_at, updated_at FROM chatbots ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore ListChatbots query failed", "error", err)
		return nil, fmt.Errorf("failed to query chatbots: %w", err)
	}
	defer rows.Close()
	return scanChatbots(rows)
}

// DeleteChatbot removes a chatbot record.
func (s *PostgresStore) DeleteChatbot(id string) error {
	if _, err := s.db.Exec(`DELETE FROM chatbots WHERE id = $1`, id); err != nil {
		slog.Error("PostgresStore DeleteChatbot failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete chatbot %s: %w", id, err)
	}
	return nil
}

// SaveFlow inserts or updates a stored flow.
func (s *PostgresStore) SaveFlow(f models.StoredFlow) error {
	_, err := s.db.Exec(
		`INSERT INTO flows (id, chatbot_id, name, document, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		f.ID, f.ChatbotID, f.Name, string(f.Document), f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore SaveFlow failed", "error", err, "id", f.ID)
		return fmt.Errorf("failed to save flow %s: %w", f.ID, err)
	}
	return nil
}

// GetFlow retrieves a flow by ID, or nil when absent.
func (s *PostgresStore) GetFlow(id string) (*models.StoredFlow, error) {
	row := s.db.QueryRow(`SELECT id, chatbot_id, name, document, created_at, updated_at FROM flows WHERE id = $1`, id)
	f, err := scanFlowRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetFlow failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get flow %s: %w", id, err)
	}
	return f, nil
}

// GetFlowByChatbot retrieves the chatbot's most recently updated flow, or nil.
func (s *PostgresStore) GetFlowByChatbot(chatbotID string) (*models.StoredFlow, error) {
	row := s.db.QueryRow(
		`SELECT id, chatbot_id, name, document, created_at, updated_at FROM flows WHERE chatbot_id = $1 ORDER BY updated_at DESC LIMIT 1`,
		chatbotID,
	)
	f, err := scanFlowRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetFlowByChatbot failed", "error", err, "chatbot", chatbotID)
		return nil, fmt.Errorf("failed to get flow for chatbot %s: %w", chatbotID, err)
	}
	return f, nil
}

// DeleteFlow removes a stored flow.
func (s *PostgresStore) DeleteFlow(id string) error {
	if _, err := s.db.Exec(`DELETE FROM flows WHERE id = $1`, id); err != nil {
		slog.Error("PostgresStore DeleteFlow failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete flow %s: %w", id, err)
	}
	return nil
}

// SaveConversation inserts or updates a conversation record.
func (s *PostgresStore) SaveConversation(c models.Conversation) error {
	_, err := s.db.Exec(
		`INSERT INTO conversations (id, chatbot_id, channel_user_id, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		c.ID, c.ChatbotID, c.ChannelUserID, c.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore SaveConversation failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to save conversation %s: %w", c.ID, err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID, or nil when absent.
func (s *PostgresStore) GetConversation(id string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT id, chatbot_id, channel_user_id, created_at FROM conversations WHERE id = $1`, id)
	var c models.Conversation
	err := row.Scan(&c.ID, &c.ChatbotID, &c.ChannelUserID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversation failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return &c, nil
}

// GetConversationByChannelUser finds the conversation a channel user has with a chatbot, or nil.
func (s *PostgresStore) GetConversationByChannelUser(chatbotID, channelUserID string) (*models.Conversation, error) {
	row := s.db.QueryRow(
		`SELECT id, chatbot_id, channel_user_id, created_at FROM conversations WHERE chatbot_id = $1 AND channel_user_id = $2 LIMIT 1`,
		chatbotID, channelUserID,
	)
	var c models.Conversation
	err := row.Scan(&c.ID, &c.ChatbotID, &c.ChannelUserID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversationByChannelUser failed", "error", err, "chatbot", chatbotID)
		return nil, fmt.Errorf("failed to get conversation for channel user: %w", err)
	}
	return &c, nil
}

// AddMessage appends a message to its conversation.
func (s *PostgresStore) AddMessage(m models.Message) error {
	_, err := s.db.Exec(
		`INSERT INTO messages (id, conversation_id, content, sender, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ConversationID, m.Content, string(m.Sender), m.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore AddMessage failed", "error", err, "conversation", m.ConversationID)
		return fmt.Errorf("failed to insert message for %s: %w", m.ConversationID, err)
	}
	return nil
}

// GetMessages returns the conversation's messages oldest first.
func (s *PostgresStore) GetMessages(conversationID string) ([]models.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, conversation_id, content, sender, created_at FROM messages WHERE conversation_id = $1 ORDER BY created_at`,
		conversationID,
	)
	if err != nil {
		slog.Error("PostgresStore GetMessages query failed", "error", err, "conversation", conversationID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
