package flow

import (
	"fmt"
	"log/slog"

	"github.com/BotWeave/BotWeave/internal/models"
)

// Fixed reply literals. Internal faults never surface to the end user; the
// chat always receives some textual reply.
const (
	// DefaultGreeting is sent when a flow has no message step to open with.
	DefaultGreeting = "Hello! How can I help you?"
	// ClarificationReply is sent when every scripted message has been delivered.
	ClarificationReply = "Could you tell me a bit more about that?"
	// ApologyReply masks malformed flow data.
	ApologyReply = "Sorry, something went wrong on my side. Please try again."
	// AdvanceFallbackReply is sent when linear advancement runs past the end of a flow.
	AdvanceFallbackReply = "Thanks! Is there anything else I can help you with?"
)

// StrategyName identifies a registered reply strategy.
type StrategyName string

const (
	// StrategyScripted replays not-yet-sent message steps in declaration order.
	StrategyScripted StrategyName = "scripted"
	// StrategyStateful advances a per-conversation step cursor.
	StrategyStateful StrategyName = "stateful"
)

// Strategy produces the bot's next reply from conversation history and a flow
// document. Implementations never fail; malformed input yields a fixed reply.
type Strategy interface {
	NextReply(conversationID string, messages []models.Message, doc []byte) string
}

var registry = make(map[StrategyName]Strategy)

// Register associates a StrategyName with a Strategy implementation.
func Register(name StrategyName, s Strategy) {
	registry[name] = s
}

// Get retrieves the Strategy for a given name.
func Get(name StrategyName) (Strategy, bool) {
	s, ok := registry[name]
	return s, ok
}

// Reply finds and runs the Strategy registered under name.
func Reply(name StrategyName, conversationID string, messages []models.Message, doc []byte) (string, error) {
	slog.Debug("Flow Reply invoked", "strategy", name, "conversation", conversationID)
	if s, ok := Get(name); ok {
		return s.NextReply(conversationID, messages, doc), nil
	}
	slog.Error("No strategy registered", "strategy", name)
	return "", fmt.Errorf("no strategy registered under %s", name)
}

// ScriptedEngine is the stateless reply strategy: it scans the step sequence
// for the first message step whose content has not been sent yet. This is an
// anti-repetition heuristic over history, not graph traversal; the stateful
// engine owns genuine step advancement.
type ScriptedEngine struct{}

// NextReply implements Strategy. The conversation ID is unused; the result is
// purely a function of the history and the flow.
func (e *ScriptedEngine) NextReply(conversationID string, messages []models.Message, doc []byte) string {
	return NextResponse(messages, doc)
}

// NextResponse determines the next bot message for a flow given the full
// ordered message history. It never fails: malformed flow data yields the
// apology literal.
func NextResponse(messages []models.Message, doc []byte) string {
	steps, err := ParseFlowDocument(doc)
	if err != nil {
		slog.Warn("NextResponse falling back on malformed flow", "error", err)
		return ApologyReply
	}

	hasUser := false
	for _, m := range messages {
		if m.Sender == models.SenderUser {
			hasUser = true
			break
		}
	}
	if !hasUser {
		for _, s := range steps {
			if s.Kind == models.NodeMessage {
				return s.Content
			}
		}
		slog.Debug("NextResponse found no opening message step, using default greeting")
		return DefaultGreeting
	}

	sent := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		sent[m.Content] = struct{}{}
	}
	for _, s := range steps {
		if s.Kind != models.NodeMessage {
			continue
		}
		if _, already := sent[s.Content]; !already {
			return s.Content
		}
	}
	slog.Debug("NextResponse exhausted scripted messages", "steps", len(steps))
	return ClarificationReply
}

func init() {
	Register(StrategyScripted, &ScriptedEngine{})
}
