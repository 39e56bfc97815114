// Package models defines the core data structures for BotWeave.
//
// It includes types for chatbots, conversations, messages, and intents, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// Language identifies one of the two supported utterance languages.
type Language string

const (
	// LangEnglish is the Latin-script language supported by the platform.
	LangEnglish Language = "en"
	// LangRussian is the Cyrillic-script language supported by the platform.
	LangRussian Language = "ru"
)

// Intent is a coarse category of user-message purpose used for keyword-based response selection.
type Intent string

const (
	// IntentGreeting covers hellos and salutations.
	IntentGreeting Intent = "greeting"
	// IntentGoodbye covers farewells.
	IntentGoodbye Intent = "goodbye"
	// IntentHelp covers requests for assistance or support.
	IntentHelp Intent = "help"
	// IntentThanks covers expressions of gratitude.
	IntentThanks Intent = "thanks"
	// IntentInfo covers requests for product or service information.
	IntentInfo Intent = "info"
	// IntentDefault is returned when no other intent matches. Unmatched input is not an error.
	IntentDefault Intent = "default"
)

// IsValidIntent checks if the given intent is part of the closed vocabulary.
func IsValidIntent(i Intent) bool {
	switch i {
	case IntentGreeting, IntentGoodbye, IntentHelp, IntentThanks, IntentInfo, IntentDefault:
		return true
	default:
		return false
	}
}

// SenderRole identifies which side of the conversation produced a message.
type SenderRole string

const (
	// SenderUser marks messages written by the end user.
	SenderUser SenderRole = "user"
	// SenderBot marks messages produced by the bot.
	SenderBot SenderRole = "bot"
)

// Validation constants for input validation
const (
	// MaxMessageLength defines the maximum allowed length for message content
	MaxMessageLength = 4096
	// MaxChatbotNameLength defines the maximum allowed length for chatbot names
	MaxChatbotNameLength = 100
)

// Error variables for better error handling and testability
var (
	ErrEmptyChatbotName   = errors.New("chatbot name cannot be empty")
	ErrChatbotNameTooLong = errors.New("chatbot name exceeds maximum length")
	ErrEmptyMessage       = errors.New("message content cannot be empty")
	ErrMessageTooLong     = errors.New("message content exceeds maximum length")
	ErrInvalidSender      = errors.New("sender must be user or bot")
	ErrEmptyConversation  = errors.New("conversation ID cannot be empty")
	ErrNotFound           = errors.New("not found")
)

// Chatbot represents one bot owned by a platform account. A chatbot may have
// one active flow attached; without a flow, replies come from the keyword engine.
type Chatbot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Language  Language  `json:"language,omitempty"` // preferred template language; detection still runs per utterance
	FlowID    string    `json:"flow_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks chatbot fields before persistence.
func (b *Chatbot) Validate() error {
	if b.Name == "" {
		return ErrEmptyChatbotName
	}
	if len(b.Name) > MaxChatbotNameLength {
		return ErrChatbotNameTooLong
	}
	return nil
}

// Conversation represents one chat session between an end user and a chatbot.
type Conversation struct {
	ID        string    `json:"id"`
	ChatbotID string    `json:"chatbot_id"`
	// ChannelUserID is the external recipient identifier (e.g., a Messenger PSID)
	// for conversations that arrive through a channel integration.
	ChannelUserID string    `json:"channel_user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Message is a single utterance in a conversation. Messages are read-only
// inputs to the response engines, ordered oldest first.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Content        string     `json:"content"`
	Sender         SenderRole `json:"sender"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Validate checks message fields before persistence.
func (m *Message) Validate() error {
	if m.ConversationID == "" {
		return ErrEmptyConversation
	}
	if m.Content == "" {
		return ErrEmptyMessage
	}
	if len(m.Content) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if m.Sender != SenderUser && m.Sender != SenderBot {
		return ErrInvalidSender
	}
	return nil
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
