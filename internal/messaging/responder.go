// Package messaging routes inbound user messages to the right response
// engine and persists both sides of the exchange.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BotWeave/BotWeave/internal/flow"
	"github.com/BotWeave/BotWeave/internal/intent"
	"github.com/BotWeave/BotWeave/internal/models"
	"github.com/BotWeave/BotWeave/internal/store"
	"github.com/BotWeave/BotWeave/internal/util"
)

// Service defines the outbound delivery channel for bot replies.
type Service interface {
	SendMessage(ctx context.Context, to, body string) error
}

var repliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "botweave_replies_total",
	Help: "Bot replies produced, labeled by the engine that produced them.",
}, []string{"engine"})

// Responder implements the platform's reply pipeline: a chatbot with a flow
// attached answers from the flow engine; without one, the keyword engine
// classifies the utterance and picks a template.
type Responder struct {
	store    store.Store
	intents  *intent.Responder
	strategy flow.StrategyName
	service  Service
}

// Opts holds configuration options for the Responder.
type Opts struct {
	Strategy flow.StrategyName
	Intents  *intent.Responder
	Service  Service
}

// Option defines a configuration option for the Responder.
type Option func(*Opts)

// WithStrategy selects the flow reply strategy (scripted by default).
func WithStrategy(name flow.StrategyName) Option {
	return func(o *Opts) { o.Strategy = name }
}

// WithIntentResponder injects the keyword-engine responder.
func WithIntentResponder(r *intent.Responder) Option {
	return func(o *Opts) { o.Intents = r }
}

// WithService sets the delivery channel used for channel-originated messages.
func WithService(s Service) Option {
	return func(o *Opts) { o.Service = s }
}

// NewResponder creates the reply pipeline over the given store.
func NewResponder(st store.Store, opts ...Option) *Responder {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Strategy == "" {
		cfg.Strategy = flow.StrategyScripted
	}
	if cfg.Intents == nil {
		cfg.Intents = intent.NewResponder()
	}
	slog.Debug("Creating messaging Responder", "strategy", cfg.Strategy)
	return &Responder{store: st, intents: cfg.Intents, strategy: cfg.Strategy, service: cfg.Service}
}

// HandleInbound persists the user's message, produces the bot's reply and
// persists it too. The returned reply is empty (with a nil error) when the
// pipeline suppresses a response; callers must not send a message this turn.
func (r *Responder) HandleInbound(ctx context.Context, conversationID, content string) (string, error) {
	conv, err := r.store.GetConversation(conversationID)
	if err != nil {
		return "", fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}
	if conv == nil {
		return "", fmt.Errorf("conversation %s: %w", conversationID, models.ErrNotFound)
	}

	inbound := models.Message{
		ID:             util.GenerateMessageID(),
		ConversationID: conv.ID,
		Content:        content,
		Sender:         models.SenderUser,
		CreatedAt:      time.Now(),
	}
	if err := inbound.Validate(); err != nil {
		return "", fmt.Errorf("invalid inbound message: %w", err)
	}
	if err := r.store.AddMessage(inbound); err != nil {
		return "", fmt.Errorf("failed to persist inbound message: %w", err)
	}

	messages, err := r.store.GetMessages(conv.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load message history: %w", err)
	}

	reply, engine, err := r.produceReply(conv, messages)
	if err != nil {
		return "", err
	}
	if reply == "" {
		slog.Debug("Responder suppressed reply", "conversation", conv.ID)
		return "", nil
	}
	repliesTotal.WithLabelValues(engine).Inc()

	outbound := models.Message{
		ID:             util.GenerateMessageID(),
		ConversationID: conv.ID,
		Content:        reply,
		Sender:         models.SenderBot,
		CreatedAt:      time.Now(),
	}
	if err := r.store.AddMessage(outbound); err != nil {
		return "", fmt.Errorf("failed to persist bot reply: %w", err)
	}

	slog.Info("Responder produced reply", "conversation", conv.ID, "engine", engine)
	return reply, nil
}

// produceReply picks the engine for this conversation's chatbot and runs it.
func (r *Responder) produceReply(conv *models.Conversation, messages []models.Message) (string, string, error) {
	storedFlow, err := r.store.GetFlowByChatbot(conv.ChatbotID)
	if err != nil {
		return "", "", fmt.Errorf("failed to load flow for chatbot %s: %w", conv.ChatbotID, err)
	}

	if storedFlow != nil {
		reply, err := flow.Reply(r.strategy, conv.ID, messages, storedFlow.Document)
		if err != nil {
			return "", "", fmt.Errorf("flow strategy failed: %w", err)
		}
		return reply, "flow", nil
	}

	reply, ok := r.intents.SelectResponse(messages)
	if !ok {
		return "", "intent", nil
	}
	return reply, "intent", nil
}

// HandleChannelMessage processes a message arriving through a channel
// integration: it finds or creates the channel user's conversation, runs the
// reply pipeline and delivers the reply through the configured Service.
func (r *Responder) HandleChannelMessage(ctx context.Context, chatbotID, channelUserID, text string) error {
	conv, err := r.store.GetConversationByChannelUser(chatbotID, channelUserID)
	if err != nil {
		return fmt.Errorf("failed to look up channel conversation: %w", err)
	}
	if conv == nil {
		conv = &models.Conversation{
			ID:            util.GenerateConversationID(),
			ChatbotID:     chatbotID,
			ChannelUserID: channelUserID,
			CreatedAt:     time.Now(),
		}
		if err := r.store.SaveConversation(*conv); err != nil {
			return fmt.Errorf("failed to create channel conversation: %w", err)
		}
		slog.Info("Created conversation for channel user", "conversation", conv.ID, "chatbot", chatbotID)
	}

	reply, err := r.HandleInbound(ctx, conv.ID, text)
	if err != nil {
		return err
	}
	if reply == "" {
		return nil
	}
	if r.service == nil {
		slog.Warn("No delivery service configured, dropping channel reply", "conversation", conv.ID)
		return nil
	}
	if err := r.service.SendMessage(ctx, channelUserID, reply); err != nil {
		return fmt.Errorf("failed to deliver reply: %w", err)
	}
	return nil
}
