package lang_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tlxsante/assistant/internal/domain"
	"github.com/tlxsante/assistant/internal/lang"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Language
	}{
		{"fr", domain.LangFrench},
		{"FR", domain.LangFrench},
		{"French", domain.LangFrench},
		{"français", domain.LangFrench},
		{"en", domain.LangEnglish},
		{"English", domain.LangEnglish},
		{"ar", domain.LangArabic},
		{"العربية", domain.LangArabic},
		{"de", ""},
		{"", ""},
		{"  en  ", domain.LangEnglish},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lang.Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Language
	}{
		{"arabic script", "أريد استئجار مضخة حليب", domain.LangArabic},
		{"french accents", "j'ai déjà une ordonnance", domain.LangFrench},
		{"french plain", "bonjour je veux un tire-lait pour le mois", domain.LangFrench},
		{"english phrase", "i would like a breast pump", domain.LangEnglish},
		{"english words", "hello, how does shipping work please", domain.LangEnglish},
		{"default french", "ok", domain.LangFrench},
		{"empty", "", domain.LangFrench},
		// "rent" must match as a word, not inside "parent"
		{"no substring cue", "mon parent est la", domain.LangFrench},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lang.Detect(tt.text))
		})
	}
}

type stubClassifier struct {
	out string
	err error
}

func (s *stubClassifier) Complete(ctx context.Context, system, prompt string) (string, error) {
	return s.out, s.err
}

func TestResolve(t *testing.T) {
	r := lang.NewResolver(nil, 0)
	ctx := context.Background()

	t.Run("explicit wins", func(t *testing.T) {
		got := r.Resolve(ctx, "en", "bonjour tout le monde", domain.LangFrench)
		assert.Equal(t, domain.LangEnglish, got)
	})

	t.Run("session language is sticky", func(t *testing.T) {
		got := r.Resolve(ctx, "", "hello, thanks for the help", domain.LangArabic)
		assert.Equal(t, domain.LangArabic, got)
	})

	t.Run("heuristic on fresh session", func(t *testing.T) {
		got := r.Resolve(ctx, "", "مرحبا", "")
		assert.Equal(t, domain.LangArabic, got)
	})

	t.Run("empty text defaults to french", func(t *testing.T) {
		got := r.Resolve(ctx, "", "   ", "")
		assert.Equal(t, domain.LangFrench, got)
	})
}

func TestResolveWithClassifier(t *testing.T) {
	ctx := context.Background()

	t.Run("classifier refines heuristic", func(t *testing.T) {
		r := lang.NewResolver(&stubClassifier{out: "en"}, 0)
		got := r.Resolve(ctx, "", "salut ca va", "")
		assert.Equal(t, domain.LangEnglish, got)
	})

	t.Run("classifier error keeps heuristic", func(t *testing.T) {
		r := lang.NewResolver(&stubClassifier{err: errors.New("down")}, 0)
		got := r.Resolve(ctx, "", "bonjour je veux un tire-lait", "")
		assert.Equal(t, domain.LangFrench, got)
	})

	t.Run("garbage classifier output keeps heuristic", func(t *testing.T) {
		r := lang.NewResolver(&stubClassifier{out: "dunno"}, 0)
		got := r.Resolve(ctx, "", "bonjour je veux un tire-lait", "")
		assert.Equal(t, domain.LangFrench, got)
	})
}
