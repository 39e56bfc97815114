// Package store provides storage backends for BotWeave.
//
// This file implements an SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BotWeave/BotWeave/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveChatbot inserts or replaces a chatbot record.
func (s *SQLiteStore) SaveChatbot(b models.Chatbot) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO chatbots (id, name, language, flow_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, string(b.Language), b.FlowID, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore SaveChatbot failed", "error", err, "id", b.ID)
		return fmt.Errorf("failed to save chatbot %s: %w", b.ID, err)
	}
	slog.Debug("SQLiteStore SaveChatbot succeeded", "id", b.ID)
	return nil
}

// GetChatbot retrieves a chatbot by ID, or nil when absent.
func (s *SQLiteStore) GetChatbot(id string) (*models.Chatbot, error) {
	row := s.db.QueryRow(`SELECT id, name, language, flow_id, created_at, updated_at FROM chatbots WHERE id = ?`, id)
	b, err := scanChatbotRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetChatbot failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get chatbot %s: %w", id, err)
	}
	return b, nil
}

// ListChatbots returns all chatbots ordered by creation time.
func (s *SQLiteStore) ListChatbots() ([]models.Chatbot, error) {
	rows, err := s.db.Query(`SELECT id, name, language, flow_id, created_at, updated_at FROM chatbots ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore ListChatbots query failed", "error", err)
		return nil, fmt.Errorf("failed to query chatbots: %w", err)
	}
	defer rows.Close()
	return scanChatbots(rows)
}

// DeleteChatbot removes a chatbot record.
func (s *SQLiteStore) DeleteChatbot(id string) error {
	if _, err := s.db.Exec(`DELETE FROM chatbots WHERE id = ?`, id); err != nil {
		slog.Error("SQLiteStore DeleteChatbot failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete chatbot %s: %w", id, err)
	}
	return nil
}

// SaveFlow inserts or replaces a stored flow.
func (s *SQLiteStore) SaveFlow(f models.StoredFlow) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO flows (id, chatbot_id, name, document, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.ChatbotID, f.Name, string(f.Document), f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore SaveFlow failed", "error", err, "id", f.ID)
		return fmt.Errorf("failed to save flow %s: %w", f.ID, err)
	}
	slog.Debug("SQLiteStore SaveFlow succeeded", "id", f.ID, "chatbot", f.ChatbotID)
	return nil
}

// GetFlow retrieves a flow by ID, or nil when absent.
func (s *SQLiteStore) GetFlow(id string) (*models.StoredFlow, error) {
	row := s.db.QueryRow(`SELECT id, chatbot_id, name, document, created_at, updated_at FROM flows WHERE id = ?`, id)
	f, err := scanFlowRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetFlow failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get flow %s: %w", id, err)
	}
	return f, nil
}

// GetFlowByChatbot retrieves the chatbot's most recently updated flow, or nil.
func (s *SQLiteStore) GetFlowByChatbot(chatbotID string) (*models.StoredFlow, error) {
	row := s.db.QueryRow(
		`SELECT id, chatbot_id, name, document, created_at, updated_at FROM flows WHERE chatbot_id = ? ORDER BY updated_at DESC LIMIT 1`,
		chatbotID,
	)
	f, err := scanFlowRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetFlowByChatbot failed", "error", err, "chatbot", chatbotID)
		return nil, fmt.Errorf("failed to get flow for chatbot %s: %w", chatbotID, err)
	}
	return f, nil
}

// DeleteFlow removes a stored flow.
func (s *SQLiteStore) DeleteFlow(id string) error {
	if _, err := s.db.Exec(`DELETE FROM flows WHERE id = ?`, id); err != nil {
		slog.Error("SQLiteStore DeleteFlow failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete flow %s: %w", id, err)
	}
	return nil
}

// SaveConversation inserts or replaces a conversation record.
func (s *SQLiteStore) SaveConversation(c models.Conversation) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO conversations (id, chatbot_id, channel_user_id, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.ChatbotID, c.ChannelUserID, c.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore SaveConversation failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to save conversation %s: %w", c.ID, err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID, or nil when absent.
func (s *SQLiteStore) GetConversation(id string) (*models.Conversation, error) {
	row := s.db.QueryRow(`SELECT id, chatbot_id, channel_user_id, created_at FROM conversations WHERE id = ?`, id)
	var c models.Conversation
	err := row.Scan(&c.ID, &c.ChatbotID, &c.ChannelUserID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversation failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return &c, nil
}

// GetConversationByChannelUser finds the conversation a channel user has with a chatbot, or nil.
func (s *SQLiteStore) GetConversationByChannelUser(chatbotID, channelUserID string) (*models.Conversation, error) {
	row := s.db.QueryRow(
		`SELECT id, chatbot_id, channel_user_id, created_at FROM conversations WHERE chatbot_id = ? AND channel_user_id = ? LIMIT 1`,
		chatbotID, channelUserID,
	)
	var c models.Conversation
	err := row.Scan(&c.ID, &c.ChatbotID, &c.ChannelUserID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversationByChannelUser failed", "error", err, "chatbot", chatbotID)
		return nil, fmt.Errorf("failed to get conversation for channel user: %w", err)
	}
	return &c, nil
}

// AddMessage appends a message to its conversation.
func (s *SQLiteStore) AddMessage(m models.Message) error {
	_, err := s.db.Exec(
		`INSERT INTO messages (id, conversation_id, content, sender, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.Content, string(m.Sender), m.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore AddMessage failed", "error", err, "conversation", m.ConversationID)
		return fmt.Errorf("failed to insert message for %s: %w", m.ConversationID, err)
	}
	slog.Debug("SQLiteStore AddMessage succeeded", "conversation", m.ConversationID, "sender", m.Sender)
	return nil
}

// GetMessages returns the conversation's messages oldest first.
func (s *SQLiteStore) GetMessages(conversationID string) ([]models.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, conversation_id, content, sender, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at`,
		conversationID,
	)
	if err != nil {
		slog.Error("SQLiteStore GetMessages query failed", "error", err, "conversation", conversationID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
