package kb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Réponse", "reponse"},
		{"  Mon   TIRE-LAIT  ", "mon tire-lait"},
		{"déjà vu", "deja vu"},
		{"", ""},
		{"ÉÈÊÀÇ", "eeeac"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), "Fold(%q)", tt.in)
	}
}

func TestTokensExpansions(t *testing.T) {
	toks := Tokens("le tl ne fonctionne pas")

	for _, want := range []string{"le", "tl", "tire", "lait", "ne", "pas", "fonctionne"} {
		_, ok := toks[want]
		assert.True(t, ok, "missing token %q", want)
	}

	// "ne" alone implies "pas" and vice versa
	toks = Tokens("ne fonctionne plus")
	_, ok := toks["pas"]
	assert.True(t, ok)
}

func TestJaccard(t *testing.T) {
	a := Tokens("mon tire-lait ne fonctionne plus")
	b := Tokens("le tl ne fonctionne pas")
	got := Jaccard(a, b)
	assert.Greater(t, got, 0.35)
	assert.Less(t, got, 0.85)

	assert.Equal(t, 1.0, Jaccard(a, a))
	assert.Equal(t, 0.0, Jaccard(a, Tokens("")))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("bonjour", "bonjour"))
	assert.Equal(t, 0.0, Ratio("", "bonjour"))
	assert.InDelta(t, 0.875, Ratio("bonjour!", "bonjour?"), 0.001)
}

func TestSimilarity(t *testing.T) {
	e := &Entry{
		Question: "Mon tire-lait ne fonctionne plus",
		folded:   Fold("Mon tire-lait ne fonctionne plus"),
		tokens:   Tokens("Mon tire-lait ne fonctionne plus"),
	}

	t.Run("exact normalized match scores one", func(t *testing.T) {
		q := "mon tire-lait ne fonctionne plus"
		assert.Equal(t, 1.0, similarity(Fold(q), Tokens(q), e))
	})

	t.Run("substring scores at least 0.9", func(t *testing.T) {
		q := "tire-lait ne fonctionne plus"
		assert.GreaterOrEqual(t, similarity(Fold(q), Tokens(q), e), 0.9)
	})

	t.Run("shorthand paraphrase lands between floor and gate", func(t *testing.T) {
		q := "le tl ne fonctionne pas"
		s := similarity(Fold(q), Tokens(q), e)
		assert.GreaterOrEqual(t, s, 0.35)
		assert.Less(t, s, 0.85)
	})

	t.Run("unrelated text stays under floor", func(t *testing.T) {
		q := "quels sont vos horaires d'ouverture"
		assert.Less(t, similarity(Fold(q), Tokens(q), e), 0.35)
	})
}
