// Package util provides utility functions for the BotWeave application.
package util

import (
	"math/rand/v2"
	"strings"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2; not for cryptographic purposes.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// GenerateChatbotID generates a unique chatbot ID with "cb_" prefix.
func GenerateChatbotID() string {
	return GenerateRandomID("cb_", 24)
}

// GenerateFlowID generates a unique flow ID with "fl_" prefix.
func GenerateFlowID() string {
	return GenerateRandomID("fl_", 24)
}

// GenerateConversationID generates a unique conversation ID with "cv_" prefix.
func GenerateConversationID() string {
	return GenerateRandomID("cv_", 24)
}

// GenerateMessageID generates a unique message ID with "msg_" prefix.
func GenerateMessageID() string {
	return GenerateRandomID("msg_", 24)
}
