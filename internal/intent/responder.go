package intent

import (
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/BotWeave/BotWeave/internal/models"
)

// Reply templates per language and intent. Selection is uniform random;
// intents with no template list fall back to the language's default list.
var templates = map[models.Language]map[models.Intent][]string{
	models.LangEnglish: {
		models.IntentGreeting: {
			"Hello! How can I help you today?",
			"Hi there! What can I do for you?",
			"Hey! Nice to hear from you.",
		},
		models.IntentGoodbye: {
			"Goodbye! Have a great day!",
			"See you later! Take care.",
			"Bye! Come back any time.",
		},
		models.IntentHelp: {
			"I'm here to help. What do you need?",
			"Sure, tell me what the problem is.",
			"Happy to help! What's going on?",
		},
		models.IntentThanks: {
			"You're welcome!",
			"Glad I could help!",
			"Any time!",
		},
		models.IntentInfo: {
			"We offer a range of products and services. What would you like to know more about?",
			"I can tell you about our products, prices and services. What interests you?",
			"What kind of information are you looking for?",
		},
		models.IntentDefault: {
			"I'm not sure I understood that. Could you rephrase?",
			"Could you tell me a bit more?",
			"Sorry, I didn't catch that. What do you mean?",
		},
	},
	models.LangRussian: {
		models.IntentGreeting: {
			"Здравствуйте! Чем могу помочь?",
			"Привет! Что вас интересует?",
			"Добрый день! Я вас слушаю.",
		},
		models.IntentGoodbye: {
			"До свидания! Хорошего дня!",
			"Пока! Обращайтесь ещё.",
			"Всего доброго!",
		},
		models.IntentHelp: {
			"Я помогу. Расскажите, что случилось?",
			"Конечно, опишите вашу проблему.",
			"Чем я могу помочь?",
		},
		models.IntentThanks: {
			"Пожалуйста!",
			"Рад был помочь!",
			"Обращайтесь!",
		},
		models.IntentInfo: {
			"У нас есть разные товары и услуги. Что именно вас интересует?",
			"Могу рассказать о товарах, ценах и услугах.",
			"Какая информация вам нужна?",
		},
		models.IntentDefault: {
			"Я не совсем понял. Переформулируйте, пожалуйста.",
			"Расскажите, пожалуйста, подробнее.",
			"Извините, я не понял. Что вы имеете в виду?",
		},
	},
}

// rewriteRule is a substring-triggered substitution applied to the chosen
// template: when the user's last message contains Trigger (case-insensitive)
// and the template contains Token, Token is replaced once with Replacement.
type rewriteRule struct {
	trigger     string
	token       string
	replacement string
}

var rewriteRules = map[models.Language][]rewriteRule{
	models.LangEnglish: {
		{trigger: "name", token: "I'm", replacement: "I'm BotWeave, and I'm"},
		{trigger: "help", token: "help", replacement: "help you with your question"},
	},
	models.LangRussian: {
		{trigger: "зовут", token: "помочь", replacement: "помочь — кстати, меня зовут BotWeave"},
		{trigger: "помо", token: "помогу", replacement: "помогу с вашим вопросом"},
	},
}

// Responder selects templated replies for classified utterances.
type Responder struct {
	rng *rand.Rand
}

// Opts holds configuration options for the Responder.
type Opts struct {
	Source rand.Source
}

// Option defines a configuration option for the Responder.
type Option func(*Opts)

// WithRandSource sets the random source used for template selection, so tests
// can pin the selected template deterministically.
func WithRandSource(src rand.Source) Option {
	return func(o *Opts) { o.Source = src }
}

// NewResponder creates a Responder, seeding the template picker from the
// provided source or a fresh PCG source by default.
func NewResponder(opts ...Option) *Responder {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	src := cfg.Source
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Responder{rng: rand.New(src)}
}

// SelectResponse produces a reply for the last message in the conversation
// history. It returns ok=false when the last message was not sent by the
// user, meaning the caller must not emit a response this turn (prevents bot
// self-reply loops).
func (r *Responder) SelectResponse(history []models.Message) (string, bool) {
	if len(history) == 0 {
		return "", false
	}
	last := history[len(history)-1]
	if last.Sender != models.SenderUser {
		slog.Debug("Responder suppressing reply, last sender is not user", "sender", last.Sender)
		return "", false
	}

	detected, lang := Classify(last.Content)
	list := templates[lang][detected]
	if len(list) == 0 {
		list = templates[lang][models.IntentDefault]
	}
	reply := list[r.rng.IntN(len(list))]
	reply = applyRewrites(reply, last.Content, lang)

	slog.Debug("Responder selected reply", "intent", detected, "language", lang)
	return reply, true
}

// applyRewrites runs the context rewrite pass: at most one rule fires, and
// when nothing matches the template passes through unchanged.
func applyRewrites(template, userMessage string, lang models.Language) string {
	lowered := strings.ToLower(userMessage)
	for _, rule := range rewriteRules[lang] {
		if strings.Contains(lowered, rule.trigger) && strings.Contains(template, rule.token) {
			return strings.Replace(template, rule.token, rule.replacement, 1)
		}
	}
	return template
}
