package intent

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/BotWeave/BotWeave/internal/models"
)

func userMsg(content string) models.Message {
	return models.Message{Content: content, Sender: models.SenderUser, CreatedAt: time.Now()}
}

func botMsg(content string) models.Message {
	return models.Message{Content: content, Sender: models.SenderBot, CreatedAt: time.Now()}
}

func TestSelectResponseSuppressesAfterBot(t *testing.T) {
	r := NewResponder()
	histories := [][]models.Message{
		{botMsg("Hi")},
		{userMsg("hello"), botMsg("Hello! How can I help you today?")},
		nil,
	}
	for i, h := range histories {
		if reply, ok := r.SelectResponse(h); ok {
			t.Errorf("history %d: expected suppression, got %q", i, reply)
		}
	}
}

func TestSelectResponseReturnsTemplateForIntent(t *testing.T) {
	r := NewResponder(WithRandSource(rand.NewPCG(1, 2)))
	reply, ok := r.SelectResponse([]models.Message{userMsg("hello there")})
	if !ok {
		t.Fatal("expected a reply for a user message")
	}
	found := false
	for _, tmpl := range templates[models.LangEnglish][models.IntentGreeting] {
		if reply == tmpl {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("reply %q is not one of the greeting templates", reply)
	}
}

func TestSelectResponseDeterministicWithSeededSource(t *testing.T) {
	first := NewResponder(WithRandSource(rand.NewPCG(7, 7)))
	second := NewResponder(WithRandSource(rand.NewPCG(7, 7)))
	history := []models.Message{userMsg("thanks a lot")}
	a, _ := first.SelectResponse(history)
	b, _ := second.SelectResponse(history)
	if a != b {
		t.Errorf("same seed should pick the same template: %q vs %q", a, b)
	}
}

func TestSelectResponseUnknownIntentFallsBackToDefault(t *testing.T) {
	r := NewResponder(WithRandSource(rand.NewPCG(3, 4)))
	reply, ok := r.SelectResponse([]models.Message{userMsg("xyzzy plugh")})
	if !ok {
		t.Fatal("expected a reply")
	}
	found := false
	for _, tmpl := range templates[models.LangEnglish][models.IntentDefault] {
		if reply == tmpl {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("reply %q is not one of the default templates", reply)
	}
}

func TestApplyRewritesNameTrigger(t *testing.T) {
	got := applyRewrites("I'm here to help. What do you need?", "what is my name", models.LangEnglish)
	want := "I'm BotWeave, and I'm here to help. What do you need?"
	if got != want {
		t.Errorf("rewrite: got %q, want %q", got, want)
	}
}

func TestApplyRewritesHelpTrigger(t *testing.T) {
	got := applyRewrites("Sure, tell me what the problem is.", "help me", models.LangEnglish)
	// Template has no "help" token: first matching rule requires both trigger
	// and token, so nothing fires.
	if got != "Sure, tell me what the problem is." {
		t.Errorf("expected identity, got %q", got)
	}

	got = applyRewrites("I'm here to help. What do you need?", "help me", models.LangEnglish)
	want := "I'm here to help you with your question. What do you need?"
	if got != want {
		t.Errorf("rewrite: got %q, want %q", got, want)
	}
}

func TestApplyRewritesAtMostOnce(t *testing.T) {
	// Both the "name" and "help" rules could fire here; only the first does.
	got := applyRewrites("I'm here to help. What do you need?", "my name is ann, help", models.LangEnglish)
	want := "I'm BotWeave, and I'm here to help. What do you need?"
	if got != want {
		t.Errorf("expected only the first rule to fire, got %q", got)
	}
}

func TestApplyRewritesIdentityWhenNothingMatches(t *testing.T) {
	tmpl := "You're welcome!"
	if got := applyRewrites(tmpl, "thanks", models.LangEnglish); got != tmpl {
		t.Errorf("expected identity transform, got %q", got)
	}
}
