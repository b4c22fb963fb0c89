// Package intent tags free-text messages with one of the coarse intents
// driving flow entry. Classification is a data-driven table of
// language → intent → keyword set, evaluated uniformly; no control flow
// depends on the language of the keyword that matched.
package intent

import (
	"strings"

	"github.com/tlxsante/assistant/internal/domain"
)

// keywordTable maps language → intent → diagnostic keywords. Keywords are
// matched as substrings of the lowercased message, like the phrasings
// customers actually type ("je veux louer", "i would like to rent").
var keywordTable = map[domain.Language]map[domain.Intent][]string{
	domain.LangFrench: {
		domain.IntentRent: {
			"location", "louer", "tire-lait", "tire lait", "tirelait",
		},
		domain.IntentRenew: {
			"renouvel", "prolong", "prolongation",
		},
		domain.IntentReturn: {
			"retour", "rendre", "renvoyer", "restituer",
			"je veux retourner", "je souhaite retourner",
		},
	},
	domain.LangEnglish: {
		domain.IntentRent: {
			"rent", "rental", "breast pump", "i want to rent", "i would like to rent",
		},
		domain.IntentRenew: {
			"renew", "renewal", "extend", "extension",
		},
		domain.IntentReturn: {
			"return", "send back", "return item",
		},
	},
	domain.LangArabic: {
		domain.IntentRent: {
			"استئجار", "تأجير", "أريد استئجار", "أود استئجار", "شفاط",
		},
		domain.IntentRenew: {
			"تجديد", "تمديد", "أريد تجديد", "أود تجديد",
		},
		domain.IntentReturn: {
			"إرجاع", "إعادة", "رجوع", "أريد إرجاع", "أود إرجاع",
		},
	},
}

// Shorthand device references ("tl" for tire-lait) combined with failure
// vocabulary mean the customer wants to send a broken unit back.
var (
	deviceShorthand = []string{"tl", "t.l", "t l", "tire-lait", "tire lait", "tirelait"}
	failureWords    = []string{
		"ne fonctionne", "ne marche", "panne", "cassé", "cassée",
		"pas marche", "pas fonctionner", "not working", "broken", "لا يعمل", "معطل",
	}
)

// Classification order matters: rent keywords are checked first so a
// message like "louer" never falls through to a broader set.
var intentOrder = []domain.Intent{domain.IntentRent, domain.IntentRenew, domain.IntentReturn}

// Classifier tags messages with an intent.
type Classifier struct {
	table map[domain.Language]map[domain.Intent][]string
}

// NewClassifier returns a classifier over the built-in keyword table.
func NewClassifier() *Classifier {
	return &Classifier{table: keywordTable}
}

// Classify returns the intent of a message, or IntentOther when no
// keyword set matches. The message language does not need to be known:
// all languages' sets are evaluated.
func (c *Classifier) Classify(text string) domain.Intent {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return domain.IntentOther
	}

	if containsAnyWord(t, deviceShorthand) && containsAny(t, failureWords) {
		return domain.IntentReturn
	}

	for _, it := range intentOrder {
		for _, perIntent := range c.table {
			if containsAny(t, perIntent[it]) {
				return it
			}
		}
	}
	return domain.IntentOther
}

func containsAny(text string, kws []string) bool {
	for _, kw := range kws {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// containsAnyWord requires token boundaries, so "tl" does not fire inside
// an unrelated word.
func containsAnyWord(text string, kws []string) bool {
	for _, kw := range kws {
		idx := 0
		for {
			i := strings.Index(text[idx:], kw)
			if i < 0 {
				break
			}
			start := idx + i
			end := start + len(kw)
			beforeOK := start == 0 || !isAlnum(text[start-1])
			afterOK := end == len(text) || !isAlnum(text[end])
			if beforeOK && afterOK {
				return true
			}
			idx = start + 1
		}
	}
	return false
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
