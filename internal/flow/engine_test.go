package flow

import (
	"testing"

	"github.com/BotWeave/BotWeave/internal/models"
)

var twoMessageFlow = []byte(`[
	{"id":"s1","type":"message","content":"Hi"},
	{"id":"s2","type":"message","content":"Bye"}
]`)

func TestNextResponseEmptyHistoryReturnsFirstMessage(t *testing.T) {
	got := NextResponse(nil, twoMessageFlow)
	if got != "Hi" {
		t.Errorf("NextResponse = %q, want %q", got, "Hi")
	}
}

func TestNextResponseBotOnlyHistoryReturnsFirstMessage(t *testing.T) {
	history := []models.Message{{Sender: models.SenderBot, Content: "unrelated"}}
	if got := NextResponse(history, twoMessageFlow); got != "Hi" {
		t.Errorf("NextResponse = %q, want %q", got, "Hi")
	}
}

func TestNextResponseSkipsAlreadySentMessages(t *testing.T) {
	history := []models.Message{
		{Sender: models.SenderUser, Content: "x"},
		{Sender: models.SenderBot, Content: "Hi"},
	}
	if got := NextResponse(history, twoMessageFlow); got != "Bye" {
		t.Errorf("NextResponse = %q, want %q", got, "Bye")
	}
}

func TestNextResponseExhaustedScriptAsksForClarification(t *testing.T) {
	history := []models.Message{
		{Sender: models.SenderUser, Content: "x"},
		{Sender: models.SenderBot, Content: "Hi"},
		{Sender: models.SenderUser, Content: "y"},
		{Sender: models.SenderBot, Content: "Bye"},
		{Sender: models.SenderUser, Content: "z"},
	}
	if got := NextResponse(history, twoMessageFlow); got != ClarificationReply {
		t.Errorf("NextResponse = %q, want clarification literal", got)
	}
}

func TestNextResponseNoMessageStepsUsesDefaultGreeting(t *testing.T) {
	doc := []byte(`[{"id":"s1","type":"final","content":"Done"}]`)
	if got := NextResponse(nil, doc); got != DefaultGreeting {
		t.Errorf("NextResponse = %q, want default greeting", got)
	}
}

func TestNextResponseMalformedFlowApologizes(t *testing.T) {
	for _, doc := range [][]byte{[]byte("{not json"), nil, []byte("")} {
		if got := NextResponse(nil, doc); got != ApologyReply {
			t.Errorf("NextResponse(%q) = %q, want apology literal", doc, got)
		}
	}
}

func TestNextResponseIgnoresNonMessageSteps(t *testing.T) {
	doc := []byte(`[
		{"id":"q","type":"question","content":"Pick one","options":[{"id":"o1","text":"A"}]},
		{"id":"m","type":"message","content":"After the question"}
	]`)
	if got := NextResponse(nil, doc); got != "After the question" {
		t.Errorf("NextResponse = %q, want the first message step", got)
	}
}

func TestReplyUsesRegisteredStrategy(t *testing.T) {
	got, err := Reply(StrategyScripted, "c1", nil, twoMessageFlow)
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if got != "Hi" {
		t.Errorf("Reply = %q, want %q", got, "Hi")
	}
}

func TestReplyUnregisteredStrategy(t *testing.T) {
	if _, err := Reply("imaginary", "c1", nil, twoMessageFlow); err == nil {
		t.Error("expected error for unregistered strategy")
	}
}
