// Package nlp provides language detection and text normalization for the keyword engine.
package nlp

import (
	"unicode"

	"github.com/BotWeave/BotWeave/internal/models"
)

// Detect classifies an utterance as English or Russian by comparing Cyrillic
// and Latin letter counts. It is a total function: strings with no letters of
// either script (digits, punctuation, emoji) default to English.
func Detect(text string) models.Language {
	var cyrillic, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	if cyrillic > latin {
		return models.LangRussian
	}
	if latin > 0 {
		return models.LangEnglish
	}
	return models.LangEnglish
}
