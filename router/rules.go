package router

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const startCommand = "/start"

var (
	greetingWords = []string{
		"привет", "здравствуй", "добрый день", "добрый вечер", "доброе утро", "салют",
		"hello", "good morning", "good evening",
	}

	safetyWords = []string{
		"вирус", "безопас", "троян", "майнер", "взлом", "забан", "бане", "банят", "античит", "антивирус",
		"virus", "malware", "trojan", "safe", "scam", "anticheat",
	}

	purchaseWords = []string{
		"купить", "куплю", "цена", "сколько стоит", "стоимость", "оплат", "звезд", "звёзд",
		"buy", "price", "cost", "purchase", "stars",
	}

	topicWords = []string{
		"fps", "фпс", "лаг", "тормоз", "фриз", "зависа", "оптимиз", "разгон", "производительн",
		"видеокарт", "процессор", "драйвер", "пинг", "нагрев", "температур",
		"laggy", "lagging", "input lag", "stutter", "freez", "optimiz", "overclock", "performance",
		"gpu", "cpu", "driver",
	}
)

// rule is one step of the classification ladder.
type rule struct {
	kind  IntentKind
	match func(normalized string) bool
}

// rules are evaluated top-down; the first match wins. Cheap deterministic
// rules come before the one that leads to a network call.
var rules = []rule{
	{kind: Start, match: isStartCommand},
	{kind: Greeting, match: containsAny(greetingWords)},
	{kind: SafetyInquiry, match: containsAny(safetyWords)},
	{kind: PurchaseInquiry, match: containsAny(purchaseWords)},
	{kind: AssistantTrigger, match: containsAny(topicWords)},
}

func normalize(text string) string {
	return strings.TrimSpace(cases.Lower(language.Und).String(text))
}

// isStartCommand accepts /start, /start@botname and /start <deep-link>.
func isStartCommand(s string) bool {
	if s == startCommand {
		return true
	}
	rest, ok := strings.CutPrefix(s, startCommand)
	return ok && (strings.HasPrefix(rest, "@") || strings.HasPrefix(rest, " "))
}

func containsAny(words []string) func(string) bool {
	return func(s string) bool {
		for _, w := range words {
			if strings.Contains(s, w) {
				return true
			}
		}
		return false
	}
}

// Classify maps text to exactly one intent. It never does I/O.
func Classify(text string) Intent {
	normalized := normalize(text)
	for _, r := range rules {
		if r.match(normalized) {
			intent := Intent{Kind: r.kind}
			if r.kind == AssistantTrigger {
				intent.RawText = text
			}
			return intent
		}
	}
	return Intent{Kind: Unmatched}
}
