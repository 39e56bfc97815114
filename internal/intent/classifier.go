// Package intent implements the rule-based intent classification and response
// selection used for chatbots that have no flow attached.
package intent

import (
	"log/slog"
	"strings"

	"github.com/BotWeave/BotWeave/internal/models"
	"github.com/BotWeave/BotWeave/internal/nlp"
)

// intentKeywords binds one intent to its keyword phrases. Slice order is the
// declaration order: earlier intents win when several keywords match.
type intentKeywords struct {
	intent   models.Intent
	keywords []string
}

// Keyword tables per language. Matching is case-insensitive substring first,
// stemmed-token fallback second.
var keywordTables = map[models.Language][]intentKeywords{
	models.LangEnglish: {
		{models.IntentGreeting, []string{"hello", "hi", "hey", "good morning", "good evening"}},
		{models.IntentGoodbye, []string{"bye", "goodbye", "see you", "farewell"}},
		{models.IntentHelp, []string{"help", "support", "assist", "problem", "issue"}},
		{models.IntentThanks, []string{"thank", "thanks", "appreciate"}},
		{models.IntentInfo, []string{"info", "information", "price", "product", "service", "about you"}},
	},
	models.LangRussian: {
		{models.IntentGreeting, []string{"привет", "здравствуйте", "добрый день", "добрый вечер", "доброе утро"}},
		{models.IntentGoodbye, []string{"пока", "до свидания", "прощай", "до встречи"}},
		{models.IntentHelp, []string{"помощь", "помоги", "поддержка", "проблема"}},
		{models.IntentThanks, []string{"спасибо", "благодарю"}},
		{models.IntentInfo, []string{"инфо", "информация", "цена", "товар", "услуга", "расскажи о"}},
	},
}

// Classify maps an utterance to one of the fixed intents and reports the
// detected language. It never fails: anything unmatched is IntentDefault.
func Classify(utterance string) (models.Intent, models.Language) {
	lang := nlp.Detect(utterance)
	table := keywordTables[lang]
	lowered := strings.ToLower(utterance)

	// Exact-substring pass: first declared intent with a matching keyword wins.
	for _, entry := range table {
		for _, kw := range entry.keywords {
			if kw != "" && strings.Contains(lowered, kw) {
				slog.Debug("intent classified by substring", "intent", entry.intent, "keyword", kw, "language", lang)
				return entry.intent, lang
			}
		}
	}

	// Stemmed fallback pass: match keyword stems against the utterance stem set.
	stems := nlp.StemSet(utterance, lang)
	if len(stems) > 0 {
		for _, entry := range table {
			for _, kw := range entry.keywords {
				if keywordStemsMatch(kw, lang, stems) {
					slog.Debug("intent classified by stem fallback", "intent", entry.intent, "keyword", kw, "language", lang)
					return entry.intent, lang
				}
			}
		}
	}

	slog.Debug("intent unmatched, using default", "language", lang)
	return models.IntentDefault, lang
}

// keywordStemsMatch reports whether every stem of the keyword phrase appears
// in the utterance stem set. Keywords that normalize to nothing never match.
func keywordStemsMatch(keyword string, lang models.Language, stems map[string]struct{}) bool {
	kwStems := nlp.Normalize(keyword, lang)
	if len(kwStems) == 0 {
		return false
	}
	for _, s := range kwStems {
		if _, ok := stems[s]; !ok {
			return false
		}
	}
	return true
}
