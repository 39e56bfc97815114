package nlp

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/russian"

	"github.com/BotWeave/BotWeave/internal/models"
)

// Per-language stopword sets. Small and fixed; matched after lowercasing.
var stopwords = map[models.Language]map[string]struct{}{
	models.LangEnglish: toSet([]string{
		"a", "an", "the", "is", "are", "am", "was", "were", "be", "been",
		"i", "you", "he", "she", "it", "we", "they", "me", "my", "your",
		"and", "or", "but", "to", "of", "in", "on", "at", "for", "with",
		"do", "does", "did", "can", "could", "will", "would", "what", "how",
		"this", "that", "there", "here", "not", "no", "so", "just", "please",
	}),
	models.LangRussian: toSet([]string{
		"и", "в", "во", "не", "что", "он", "на", "я", "с", "со",
		"как", "а", "то", "все", "она", "так", "его", "но", "да", "ты",
		"к", "у", "же", "вы", "за", "бы", "по", "ее", "мне", "было",
		"вот", "от", "меня", "еще", "нет", "о", "из", "ему", "это", "мы",
		"они", "тут", "где", "есть", "для", "ли", "или", "же", "пожалуйста",
	}),
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Tokenize lowercases text and splits it into word tokens on any rune that is
// not a letter or a digit. It is locale-agnostic and never fails.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Stem reduces a single lowercased token to its root form using the Snowball
// stemmer for the given language. Both stemmers are deterministic.
func Stem(token string, lang models.Language) string {
	switch lang {
	case models.LangRussian:
		return russian.Stem(token, false)
	default:
		return english.Stem(token, false)
	}
}

// Normalize converts text into an ordered sequence of stems: lowercase,
// tokenize, drop stopwords, stem. Token order is preserved and duplicates
// are retained.
func Normalize(text string, lang models.Language) []string {
	tokens := Tokenize(text)
	stems := make([]string, 0, len(tokens))
	stop := stopwords[lang]
	for _, tok := range tokens {
		if _, skip := stop[tok]; skip {
			continue
		}
		stems = append(stems, Stem(tok, lang))
	}
	return stems
}

// Keywords returns the deduplicated stem set of text, preserving first-seen order.
func Keywords(text string, lang models.Language) []string {
	stems := Normalize(text, lang)
	seen := make(map[string]struct{}, len(stems))
	unique := stems[:0]
	for _, s := range stems {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	return unique
}

// StemSet returns the stems of text as a membership set for fuzzy keyword matching.
func StemSet(text string, lang models.Language) map[string]struct{} {
	stems := Normalize(text, lang)
	set := make(map[string]struct{}, len(stems))
	for _, s := range stems {
		set[s] = struct{}{}
	}
	return set
}
