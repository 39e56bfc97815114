package models

import (
	"errors"
	"strings"
	"testing"
)

func TestChatbotValidate(t *testing.T) {
	bot := Chatbot{Name: "Shop Assistant", Language: LangEnglish}
	if err := bot.Validate(); err != nil {
		t.Errorf("valid chatbot rejected: %v", err)
	}

	bot.Name = ""
	if err := bot.Validate(); !errors.Is(err, ErrEmptyChatbotName) {
		t.Errorf("expected ErrEmptyChatbotName, got %v", err)
	}

	bot.Name = strings.Repeat("x", MaxChatbotNameLength+1)
	if err := bot.Validate(); !errors.Is(err, ErrChatbotNameTooLong) {
		t.Errorf("expected ErrChatbotNameTooLong, got %v", err)
	}
}

func TestMessageValidate(t *testing.T) {
	msg := Message{ConversationID: "cv_1", Content: "hello", Sender: SenderUser}
	if err := msg.Validate(); err != nil {
		t.Errorf("valid message rejected: %v", err)
	}

	cases := []struct {
		name string
		mut  func(m *Message)
		want error
	}{
		{"empty conversation", func(m *Message) { m.ConversationID = "" }, ErrEmptyConversation},
		{"empty content", func(m *Message) { m.Content = "" }, ErrEmptyMessage},
		{"oversized content", func(m *Message) { m.Content = strings.Repeat("a", MaxMessageLength+1) }, ErrMessageTooLong},
		{"bad sender", func(m *Message) { m.Sender = "system" }, ErrInvalidSender},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := msg
			c.mut(&m)
			if err := m.Validate(); !errors.Is(err, c.want) {
				t.Errorf("expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestIsValidIntent(t *testing.T) {
	for _, i := range []Intent{IntentGreeting, IntentGoodbye, IntentHelp, IntentThanks, IntentInfo, IntentDefault} {
		if !IsValidIntent(i) {
			t.Errorf("intent %q should be valid", i)
		}
	}
	if IsValidIntent("smalltalk") {
		t.Error("unknown intent accepted")
	}
}

func TestAPIResponseHelpers(t *testing.T) {
	if r := Success("payload"); r.Status != string(APIStatusOK) || r.Result != "payload" {
		t.Errorf("unexpected success response: %+v", r)
	}
	if r := SuccessWithMessage("done", 7); r.Message != "done" || r.Result != 7 {
		t.Errorf("unexpected success-with-message response: %+v", r)
	}
	if r := Error("boom"); r.Status != string(APIStatusError) || r.Message != "boom" {
		t.Errorf("unexpected error response: %+v", r)
	}
}
