package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/BotWeave/BotWeave/internal/flow"
	"github.com/BotWeave/BotWeave/internal/intent"
	"github.com/BotWeave/BotWeave/internal/models"
	"github.com/BotWeave/BotWeave/internal/store"
)

type stubService struct {
	sent []struct{ to, body string }
}

func (s *stubService) SendMessage(ctx context.Context, to, body string) error {
	s.sent = append(s.sent, struct{ to, body string }{to, body})
	return nil
}

// silentStrategy always suppresses the reply.
type silentStrategy struct{}

func (silentStrategy) NextReply(conversationID string, messages []models.Message, doc []byte) string {
	return ""
}

func seedConversation(t *testing.T, st store.Store) *models.Conversation {
	t.Helper()
	now := time.Now()
	bot := models.Chatbot{ID: "cb_1", Name: "Shop Assistant", Language: models.LangEnglish, CreatedAt: now, UpdatedAt: now}
	if err := st.SaveChatbot(bot); err != nil {
		t.Fatalf("SaveChatbot: %v", err)
	}
	conv := models.Conversation{ID: "cv_1", ChatbotID: bot.ID, CreatedAt: now}
	if err := st.SaveConversation(conv); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}
	return &conv
}

func TestHandleInboundUnknownConversation(t *testing.T) {
	r := NewResponder(store.NewInMemoryStore())
	if _, err := r.HandleInbound(context.Background(), "cv_missing", "hello"); err == nil {
		t.Error("expected error for unknown conversation")
	}
}

func TestHandleInboundIntentPath(t *testing.T) {
	st := store.NewInMemoryStore()
	conv := seedConversation(t, st)
	r := NewResponder(st, WithIntentResponder(intent.NewResponder()))

	reply, err := r.HandleInbound(context.Background(), conv.ID, "hello there")
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if reply == "" {
		t.Fatal("expected a greeting reply")
	}

	msgs, err := st.GetMessages(conv.ID)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected user + bot messages, got %d", len(msgs))
	}
	if msgs[0].Sender != models.SenderUser || msgs[0].Content != "hello there" {
		t.Errorf("unexpected inbound record: %+v", msgs[0])
	}
	if msgs[1].Sender != models.SenderBot || msgs[1].Content != reply {
		t.Errorf("unexpected outbound record: %+v", msgs[1])
	}
}

func TestHandleInboundFlowPath(t *testing.T) {
	st := store.NewInMemoryStore()
	conv := seedConversation(t, st)
	doc := []byte(`[{"id":"n1","type":"message","content":"Welcome to the shop!"}]`)
	f := models.StoredFlow{ID: "fl_1", ChatbotID: conv.ChatbotID, Document: doc, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := st.SaveFlow(f); err != nil {
		t.Fatalf("SaveFlow: %v", err)
	}

	r := NewResponder(st)
	reply, err := r.HandleInbound(context.Background(), conv.ID, "anything")
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if reply != "Welcome to the shop!" {
		t.Errorf("expected flow step content, got %q", reply)
	}
}

func TestHandleInboundSuppressedReply(t *testing.T) {
	flow.Register("silent", silentStrategy{})

	st := store.NewInMemoryStore()
	conv := seedConversation(t, st)
	f := models.StoredFlow{ID: "fl_1", ChatbotID: conv.ChatbotID, Document: []byte(`[]`), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := st.SaveFlow(f); err != nil {
		t.Fatalf("SaveFlow: %v", err)
	}

	r := NewResponder(st, WithStrategy("silent"))
	reply, err := r.HandleInbound(context.Background(), conv.ID, "hi")
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if reply != "" {
		t.Errorf("expected suppressed reply, got %q", reply)
	}

	msgs, _ := st.GetMessages(conv.ID)
	if len(msgs) != 1 {
		t.Errorf("suppressed turn must persist only the inbound message, got %d", len(msgs))
	}
}

func TestHandleInboundUnregisteredStrategy(t *testing.T) {
	st := store.NewInMemoryStore()
	conv := seedConversation(t, st)
	f := models.StoredFlow{ID: "fl_1", ChatbotID: conv.ChatbotID, Document: []byte(`[]`), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := st.SaveFlow(f); err != nil {
		t.Fatalf("SaveFlow: %v", err)
	}

	r := NewResponder(st, WithStrategy("no-such-strategy"))
	if _, err := r.HandleInbound(context.Background(), conv.ID, "hi"); err == nil {
		t.Error("expected error for unregistered strategy")
	}
}

func TestHandleChannelMessage(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Now()
	bot := models.Chatbot{ID: "cb_1", Name: "Shop Assistant", Language: models.LangEnglish, CreatedAt: now, UpdatedAt: now}
	if err := st.SaveChatbot(bot); err != nil {
		t.Fatalf("SaveChatbot: %v", err)
	}

	svc := &stubService{}
	r := NewResponder(st, WithService(svc))

	if err := r.HandleChannelMessage(context.Background(), bot.ID, "psid_7", "hello there"); err != nil {
		t.Fatalf("HandleChannelMessage: %v", err)
	}
	if len(svc.sent) != 1 || svc.sent[0].to != "psid_7" {
		t.Fatalf("expected one delivery to psid_7, got %+v", svc.sent)
	}

	conv, err := st.GetConversationByChannelUser(bot.ID, "psid_7")
	if err != nil || conv == nil {
		t.Fatalf("channel conversation not created: %v", err)
	}

	// A second message reuses the same conversation.
	if err := r.HandleChannelMessage(context.Background(), bot.ID, "psid_7", "thanks a lot"); err != nil {
		t.Fatalf("HandleChannelMessage: %v", err)
	}
	msgs, _ := st.GetMessages(conv.ID)
	if len(msgs) != 4 {
		t.Errorf("expected 4 messages in the shared conversation, got %d", len(msgs))
	}
}
