package store

import (
	"database/sql"
	"fmt"

	"github.com/BotWeave/BotWeave/internal/models"
)

// scanChatbotRow scans a Chatbot from a single sql.Row.
func scanChatbotRow(row *sql.Row) (*models.Chatbot, error) {
	var b models.Chatbot
	var language string
	err := row.Scan(&b.ID, &b.Name, &language, &b.FlowID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Language = models.Language(language)
	return &b, nil
}

// scanChatbots scans all chatbots from sql.Rows.
func scanChatbots(rows *sql.Rows) ([]models.Chatbot, error) {
	var out []models.Chatbot
	for rows.Next() {
		var b models.Chatbot
		var language string
		if err := rows.Scan(&b.ID, &b.Name, &language, &b.FlowID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chatbot row: %w", err)
		}
		b.Language = models.Language(language)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chatbot rows: %w", err)
	}
	return out, nil
}

// scanFlowRow scans a StoredFlow from a single sql.Row.
func scanFlowRow(row *sql.Row) (*models.StoredFlow, error) {
	var f models.StoredFlow
	var document string
	err := row.Scan(&f.ID, &f.ChatbotID, &f.Name, &document, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Document = []byte(document)
	return &f, nil
}

// scanMessages scans all messages from sql.Rows.
func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	var out []models.Message
	for rows.Next() {
		var m models.Message
		var sender string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &sender, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Sender = models.SenderRole(sender)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return out, nil
}
