// Package lang resolves the reply language for a session among the
// supported codes (fr, en, ar). Resolution order: explicit client choice,
// then the language already stuck to the session, then a heuristic over
// the message text, with an optional generative refinement pass.
package lang

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tlxsante/assistant/internal/domain"
)

// Classifier is the optional generative language-identification path.
type Classifier interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Resolver resolves and normalizes language codes.
type Resolver struct {
	classifier Classifier
	timeout    time.Duration
}

// NewResolver returns a heuristic-only resolver. Pass a non-nil classifier
// to enable the generative refinement path behind the same contract.
func NewResolver(classifier Classifier, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{classifier: classifier, timeout: timeout}
}

var languageNames = map[string]domain.Language{
	"fr": domain.LangFrench, "french": domain.LangFrench,
	"français": domain.LangFrench, "francais": domain.LangFrench,
	"en": domain.LangEnglish, "english": domain.LangEnglish, "anglais": domain.LangEnglish,
	"ar": domain.LangArabic, "arabic": domain.LangArabic, "arabe": domain.LangArabic,
	"عربي": domain.LangArabic, "العربية": domain.LangArabic,
}

// Normalize maps a language code or name to a supported code, or "" when
// the input is not recognized.
func Normalize(s string) domain.Language {
	return languageNames[strings.ToLower(strings.TrimSpace(s))]
}

// Resolve picks the session language. The explicit choice always wins, an
// already-resolved session language is sticky, and only unset sessions
// fall through to text classification.
func (r *Resolver) Resolve(ctx context.Context, explicit, freeText string, current domain.Language) domain.Language {
	if l := Normalize(explicit); l != "" {
		return l
	}
	if current != "" {
		return current
	}
	if strings.TrimSpace(freeText) == "" {
		return domain.LangFrench
	}

	h := Detect(freeText)
	if r.classifier == nil {
		return h
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	out, err := r.classifier.Complete(ctx,
		"You are a language identifier. Reply with exactly one of: fr | en | ar. No punctuation, no explanation.",
		freeText)
	if err != nil {
		log.Debug().Err(err).Msg("language classifier unavailable, keeping heuristic result")
		return h
	}
	if l := Normalize(out); l != "" {
		return l
	}
	return h
}

// Diagnostic keyword sets per language. French wins ties: the knowledge
// base and the customer base are French-first.
var (
	strongEnglishCues = []string{
		"i want", "i need", "i would like", "can you", "could you",
		"buy", "purchase", "order", "return", "renew", "rent",
	}
	englishCues = []string{
		"hello", "hi", "hey", "thank", "thanks", "please", "how", "what",
		"prescription", "insurance", "ship", "pay",
	}
	frenchCues = []string{
		"bonjour", "merci", "s'il", "svp", "que", "est", "le", "la", "les",
		"et", "pour", "avec", "renouvel", "location", "louer", "ordonnance", "mutuelle",
	}
	arabicCues = []string{
		"مرحبا", "شكرا", "من فضلك", "اريد", "أريد", "تجديد", "استئجار",
		"استرجاع", "إرجاع", "بطاقة", "وصفة",
	}
)

// Detect classifies text heuristically, without any external call.
func Detect(text string) domain.Language {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return domain.LangFrench
	}

	// Arabic-script codepoints are decisive on their own.
	for _, r := range t {
		if r >= 0x0600 && r <= 0x06FF {
			return domain.LangArabic
		}
	}
	for _, kw := range arabicCues {
		if strings.Contains(t, kw) {
			return domain.LangArabic
		}
	}

	// French diacritics are a strong signal.
	if strings.ContainsAny(t, "éèêàâôûçùëïüœ") {
		return domain.LangFrench
	}

	for _, p := range strongEnglishCues {
		if strings.Contains(p, " ") && strings.Contains(t, p) {
			return domain.LangEnglish
		}
		if !strings.Contains(p, " ") && containsWord(t, p) {
			return domain.LangEnglish
		}
	}

	frHits, enHits := 0, 0
	for _, kw := range frenchCues {
		if containsWord(t, kw) {
			frHits++
		}
	}
	for _, kw := range englishCues {
		if containsWord(t, kw) {
			enHits++
		}
	}
	if enHits > frHits && enHits >= 2 {
		return domain.LangEnglish
	}
	return domain.LangFrench
}

// containsWord matches kw as a whole token to avoid cues like "est"
// firing inside unrelated words.
func containsWord(text, kw string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '\''
}
