package util

import (
	"strings"
	"testing"
)

func TestGenerateRandomHex(t *testing.T) {
	got := GenerateRandomHex(16)
	if len(got) != 16 {
		t.Errorf("expected length 16, got %d", len(got))
	}
	for _, c := range got {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("unexpected character %q in hex string", c)
		}
	}
	if GenerateRandomHex(0) != "" {
		t.Error("zero length should yield empty string")
	}
	if GenerateRandomHex(-5) != "" {
		t.Error("negative length should yield empty string")
	}
}

func TestGeneratePrefixedIDs(t *testing.T) {
	cases := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"chatbot", GenerateChatbotID, "cb_"},
		{"flow", GenerateFlowID, "fl_"},
		{"conversation", GenerateConversationID, "cv_"},
		{"message", GenerateMessageID, "msg_"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := tc.gen()
			if !strings.HasPrefix(id, tc.prefix) {
				t.Errorf("expected prefix %q, got %q", tc.prefix, id)
			}
			if id == tc.gen() {
				t.Errorf("two generated IDs should differ")
			}
		})
	}
}
