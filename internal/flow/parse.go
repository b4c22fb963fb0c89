package flow

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/tlxsante/assistant/internal/domain"
	"github.com/tlxsante/assistant/internal/kb"
)

var (
	dateRe        = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	postalRe      = regexp.MustCompile(`\b\d{4,5}\b`)
	postalExactRe = regexp.MustCompile(`^\d{4,5}$`)
	orderRefRe    = regexp.MustCompile(`\b[A-Za-z0-9-]{4,}\b`)
)

// dateLayouts accepted for rental dates; Go's non-padded day and month
// verbs also match zero-padded values.
var dateLayouts = []string{"2/1/2006", "2/1/06"}

// parseDate parses a dd/mm/yyyy date, returning ok=false when the digits
// do not form a real calendar date.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtractOrderFields scans a free-text message for the rental fields and
// merges anything it finds into fields, never overwriting a value already
// collected. Dates fill start then end in order of appearance; the date
// spans are masked out before the postal scan so a year is never taken
// for a postal code.
func ExtractOrderFields(fields map[domain.FieldName]string, text string) {
	dates := dateRe.FindAllString(text, -1)
	for _, d := range dates {
		switch {
		case fields[domain.FieldStartDate] == "":
			fields[domain.FieldStartDate] = d
		case fields[domain.FieldEndDate] == "":
			fields[domain.FieldEndDate] = d
		}
	}

	masked := dateRe.ReplaceAllString(text, " ")
	if fields[domain.FieldPostalCode] == "" {
		if pc := postalRe.FindString(masked); pc != "" {
			fields[domain.FieldPostalCode] = pc
		}
	}

	if fields[domain.FieldFullName] == "" {
		if name := extractName(masked); name != "" {
			fields[domain.FieldFullName] = name
		}
	}
}

// extractName looks for the first comma- or line-separated segment made of
// at least two alphabetic words. Segments carrying digits or flow keywords
// are skipped.
func extractName(text string) string {
	for _, seg := range splitSegments(text) {
		words := strings.Fields(seg)
		if len(words) < 2 || len(words) > 5 {
			continue
		}
		ok := true
		for _, w := range words {
			if !alphabeticWord(w) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		folded := kb.Fold(seg)
		if containsFlowWord(folded) {
			continue
		}
		return strings.TrimSpace(seg)
	}
	return ""
}

func splitSegments(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '.'
	})
}

func alphabeticWord(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return w != ""
}

// Words that mark a segment as flow chatter rather than a person's name.
var flowWords = []string{
	"louer", "location", "renouveler", "rendre", "retour", "bonjour",
	"merci", "voici", "tire", "lait", "code", "postal",
	"rent", "rental", "renew", "return", "hello", "thanks",
}

func containsFlowWord(folded string) bool {
	for _, w := range flowWords {
		if containsWord(folded, w) {
			return true
		}
	}
	return false
}

func containsWord(folded, w string) bool {
	i := strings.Index(folded, w)
	for i >= 0 {
		before := i == 0 || !isAlnum(rune(folded[i-1]))
		afterIdx := i + len(w)
		after := afterIdx >= len(folded) || !isAlnum(rune(folded[afterIdx]))
		if before && after {
			return true
		}
		next := strings.Index(folded[i+1:], w)
		if next < 0 {
			return false
		}
		i = i + 1 + next
	}
	return false
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// MissingOrderFields lists the rental fields still absent, in display order.
func MissingOrderFields(fields map[domain.FieldName]string) []domain.FieldName {
	var missing []domain.FieldName
	for _, f := range []domain.FieldName{
		domain.FieldFullName,
		domain.FieldStartDate,
		domain.FieldEndDate,
		domain.FieldPostalCode,
	} {
		if fields[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// FieldIssue is a validation failure on one collected field.
type FieldIssue struct {
	Field domain.FieldName
	Code  string // "unparseable_date", "date_order", "bad_postal", "bad_name"
}

// ValidateOrderFields checks the complete field set and returns the
// issues found. Fields named in an issue should be cleared so the next
// message can fill them again.
func ValidateOrderFields(fields map[domain.FieldName]string) []FieldIssue {
	var issues []FieldIssue

	if words := strings.Fields(fields[domain.FieldFullName]); len(words) < 2 {
		issues = append(issues, FieldIssue{domain.FieldFullName, "bad_name"})
	}

	start, startOK := parseDate(fields[domain.FieldStartDate])
	if !startOK {
		issues = append(issues, FieldIssue{domain.FieldStartDate, "unparseable_date"})
	}
	end, endOK := parseDate(fields[domain.FieldEndDate])
	if !endOK {
		issues = append(issues, FieldIssue{domain.FieldEndDate, "unparseable_date"})
	}
	if startOK && endOK && end.Before(start) {
		issues = append(issues,
			FieldIssue{domain.FieldStartDate, "date_order"},
			FieldIssue{domain.FieldEndDate, "date_order"})
	}

	if !postalExactRe.MatchString(strings.TrimSpace(fields[domain.FieldPostalCode])) {
		issues = append(issues, FieldIssue{domain.FieldPostalCode, "bad_postal"})
	}

	return issues
}

// ExtractOrderReference finds the first order-reference-looking token: at
// least four alphanumeric or dash characters including a digit. Plain
// words never qualify.
func ExtractOrderReference(text string) string {
	for _, cand := range orderRefRe.FindAllString(text, -1) {
		if strings.ContainsAny(cand, "0123456789") {
			return cand
		}
	}
	return ""
}

// ExtractReturnChoice recognizes an exchange-or-refund decision in any of
// the supported languages.
func ExtractReturnChoice(folded string) string {
	switch {
	case strings.Contains(folded, "echange") || strings.Contains(folded, "exchange") ||
		strings.Contains(folded, "استبدال"):
		return "exchange"
	case strings.Contains(folded, "rembours") || strings.Contains(folded, "refund") ||
		strings.Contains(folded, "استرداد"):
		return "refund"
	}
	return ""
}

var affirmTokens = map[string]struct{}{
	"oui": {}, "yes": {}, "yep": {}, "yeah": {}, "ok": {}, "okay": {},
	"confirme": {}, "confirmer": {}, "confirm": {}, "confirmed": {},
	"نعم": {}, "اجل": {}, "موافق": {},
}

var negativeTokens = map[string]struct{}{
	"non": {}, "no": {}, "nope": {}, "annule": {}, "annuler": {},
	"cancel": {}, "لا": {}, "الغاء": {},
}

var resetTokens = map[string]struct{}{
	"reset": {}, "restart": {}, "recommencer": {}, "recommence": {},
}

// IsAffirmative reports a confirmation answer. Tokens only: "oui merci"
// confirms, "bonjour" does not.
func IsAffirmative(text string) bool {
	folded := kb.Fold(text)
	if strings.Contains(folded, "d'accord") || strings.Contains(folded, "daccord") {
		return true
	}
	return hasToken(folded, affirmTokens)
}

// IsNegative reports a refusal or cancellation answer.
func IsNegative(text string) bool {
	return hasToken(kb.Fold(text), negativeTokens)
}

// IsReset reports an explicit restart request.
func IsReset(text string) bool {
	folded := kb.Fold(text)
	if strings.Contains(folded, "tout recommencer") || strings.Contains(folded, "من جديد") {
		return true
	}
	return hasToken(folded, resetTokens)
}

func hasToken(folded string, set map[string]struct{}) bool {
	for _, tok := range strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if _, ok := set[tok]; ok {
			return true
		}
	}
	return false
}

// Return-reason cues, shared with the intent keyword sets but scoped to
// the two return sub-paths.
var returnIssueCues = []string{
	"ne fonctionne", "fonctionne pas", "fonctionne plus", "ne marche",
	"marche pas", "marche plus", "panne", "casse", "n'aspire", "aspire pas",
	"defectueux", "probleme",
	"not working", "doesn't work", "does not work", "broken", "faulty",
	"issue", "problem",
	"لا يعمل", "معطل", "مكسور", "مشكلة",
}

var returnEndCues = []string{
	"plus besoin", "fini", "terminé", "termine", "rendre", "restituer",
	"etiquette", "chronopost", "deposer", "fin de location",
	"done with", "no longer need", "finished", "send back", "ship back",
	"shipping label", "drop off",
	"انتهيت", "لم اعد", "ارجاع", "اعادة",
}

// ReturnReason classifies a return message as a device issue, an
// end-of-use return, or neither.
func ReturnReason(text string) (issue, endOfUse bool) {
	folded := kb.Fold(text)
	for _, cue := range returnIssueCues {
		if strings.Contains(folded, kb.Fold(cue)) {
			issue = true
			break
		}
	}
	for _, cue := range returnEndCues {
		if strings.Contains(folded, kb.Fold(cue)) {
			endOfUse = true
			break
		}
	}
	return issue, endOfUse
}

// editLabels maps folded field labels, in all three languages, to the
// field they set. Used for the "label: value" correction syntax.
var editLabels = map[string]domain.FieldName{
	"nom": domain.FieldFullName, "prenom": domain.FieldFullName,
	"nom complet": domain.FieldFullName,
	"name":        domain.FieldFullName, "full name": domain.FieldFullName,
	"الاسم": domain.FieldFullName,

	"date debut": domain.FieldStartDate, "debut": domain.FieldStartDate,
	"date de debut": domain.FieldStartDate,
	"start":         domain.FieldStartDate, "start date": domain.FieldStartDate,
	"تاريخ البدء": domain.FieldStartDate, "البدء": domain.FieldStartDate,

	"date fin": domain.FieldEndDate, "fin": domain.FieldEndDate,
	"date de fin": domain.FieldEndDate,
	"end":         domain.FieldEndDate, "end date": domain.FieldEndDate,
	"تاريخ الانتهاء": domain.FieldEndDate, "الانتهاء": domain.FieldEndDate,

	"code postal": domain.FieldPostalCode, "cp": domain.FieldPostalCode,
	"postal": domain.FieldPostalCode, "postal code": domain.FieldPostalCode,
	"zip": domain.FieldPostalCode, "zip code": domain.FieldPostalCode,
	"الرمز البريدي": domain.FieldPostalCode,
}

// ParseLabeledEdits reads "label: value" (or "label = value") segments
// out of a correction message. unknown collects labels that looked like
// edits but matched no field, so the caller can answer with the accepted
// labels instead of silently dropping the correction.
func ParseLabeledEdits(text string) (edits map[domain.FieldName]string, unknown []string) {
	edits = make(map[domain.FieldName]string)
	for _, seg := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ';' || r == ','
	}) {
		label, value, found := splitLabel(seg)
		if !found || value == "" {
			continue
		}
		if field, ok := editLabels[kb.Fold(label)]; ok {
			edits[field] = value
		} else {
			unknown = append(unknown, strings.TrimSpace(label))
		}
	}
	return edits, unknown
}

func splitLabel(seg string) (label, value string, found bool) {
	for _, sep := range []string{":", "="} {
		if i := strings.Index(seg, sep); i > 0 {
			return strings.TrimSpace(seg[:i]), strings.TrimSpace(seg[i+len(sep):]), true
		}
	}
	return "", "", false
}
