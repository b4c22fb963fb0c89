package kb

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks after NFD decomposition, so
// "réponse" and "reponse" normalize identically.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold case-folds, strips accents and collapses whitespace.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Tokens splits folded text into a normalized token set with the synonym
// expansions customers rely on: "tl" stands for "tire lait", and the
// French negation pair ne/pas is expanded both ways so "ne fonctionne
// plus" overlaps "ne fonctionne pas".
func Tokens(s string) map[string]struct{} {
	folded := Fold(s)
	out := make(map[string]struct{})
	for _, tok := range splitAlnum(folded) {
		out[tok] = struct{}{}
		switch tok {
		case "tl", "tirelait", "tire-lait", "tire_lait":
			out["tire"] = struct{}{}
			out["lait"] = struct{}{}
		case "ne":
			out["pas"] = struct{}{}
		case "pas":
			out["ne"] = struct{}{}
		}
	}
	return out
}

func splitAlnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Jaccard is token-set overlap over union.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Ratio is an edit-distance similarity in [0,1] over folded strings.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	d := levenshtein.ComputeDistance(a, b)
	if d >= max {
		return 0
	}
	return 1 - float64(d)/float64(max)
}

// similarity scores a folded query against an indexed entry. Exact
// equality scores 1; a substring relation in either direction scores at
// least 0.9 (above the fast-path gate); otherwise the better of token
// overlap and edit-distance ratio.
func similarity(foldedQuery string, queryTokens map[string]struct{}, e *Entry) float64 {
	if foldedQuery == e.folded {
		return 1
	}
	score := Jaccard(queryTokens, e.tokens)
	if r := Ratio(foldedQuery, e.folded); r > score {
		score = r
	}
	if len(foldedQuery) >= 4 &&
		(strings.Contains(e.folded, foldedQuery) || strings.Contains(foldedQuery, e.folded)) {
		if score < 0.9 {
			score = 0.9
		}
	}
	return score
}
