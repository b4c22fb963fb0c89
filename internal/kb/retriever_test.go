package kb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlxsante/assistant/internal/domain"
)

func testIndex(t *testing.T, pairs ...string) *Index {
	t.Helper()
	require.Zero(t, len(pairs)%2)

	var b strings.Builder
	b.WriteString("question,answer\n")
	w := func(s string) string { return strings.ReplaceAll(s, ",", " ") }
	for i := 0; i < len(pairs); i += 2 {
		b.WriteString(w(pairs[i]) + "," + w(pairs[i+1]) + "\n")
	}
	path := writeSource(t, "qr.csv", []byte(b.String()))

	ix := NewIndex(path)
	_, err := ix.Reload("")
	require.NoError(t, err)
	return ix
}

type spyEmbedder struct {
	calls   int
	vectors map[string][]float32
	err     error
}

func (s *spyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

type spyTranslator struct {
	calls int
	out   string
}

func (s *spyTranslator) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.calls++
	return s.out, nil
}

func TestAnswerFastPathSkipsEmbedder(t *testing.T) {
	ix := testIndex(t,
		"Mon tire-lait ne fonctionne plus", "Contactez-nous pour un échange.",
		"Quels sont vos horaires ?", "De 9h à 18h.")
	spy := &spyEmbedder{}
	r := NewRetriever(ix, spy, nil, Options{})

	res, err := r.Answer(context.Background(), "Mon tire-lait ne fonctionne plus", domain.LangFrench)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "Contactez-nous pour un échange.", res.Answer)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Zero(t, spy.calls, "fast path must not touch the embedding service")
}

func TestAnswerShorthandParaphrase(t *testing.T) {
	ix := testIndex(t,
		"Mon tire-lait ne fonctionne plus", "Contactez-nous pour un échange.",
		"Quels sont vos horaires ?", "De 9h à 18h.")
	r := NewRetriever(ix, nil, nil, Options{})

	// Below the fast gate, above the floor: served by the broad path's
	// lexical scoring. Includes the tn->tl mistype fix.
	res, err := r.Answer(context.Background(), "le tn ne fonctionne pas", domain.LangFrench)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "Mon tire-lait ne fonctionne plus", res.MatchedQuestion)
	assert.Less(t, res.Confidence, 0.85)
	assert.GreaterOrEqual(t, res.Confidence, 0.35)
}

func TestAnswerNothingAboveFloor(t *testing.T) {
	ix := testIndex(t, "Quels sont vos horaires ?", "De 9h à 18h.")
	r := NewRetriever(ix, nil, nil, Options{})

	res, err := r.Answer(context.Background(), "recette de la tarte aux pommes", domain.LangFrench)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Answer)
}

func TestAnswerMissCarriesReferences(t *testing.T) {
	ix := testIndex(t,
		"Quels sont vos horaires ?", "De 9h à 18h.",
		"Comment payer ?", "Par carte ou virement.")
	r := NewRetriever(ix, nil, nil, Options{Floor: 0.5})

	res, err := r.Answer(context.Background(), "vos tarifs horaires de nuit", domain.LangFrench)
	require.NoError(t, err)
	assert.False(t, res.Found)
	require.NotEmpty(t, res.References)
	assert.Equal(t, "Quels sont vos horaires ?", res.References[0].Question)
	assert.Equal(t, "De 9h à 18h.", res.References[0].Answer)
}

func TestAnswerEmptyInputs(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		ix := testIndex(t, "Q1", "A1")
		r := NewRetriever(ix, nil, nil, Options{})
		res, err := r.Answer(context.Background(), "   ", domain.LangFrench)
		require.NoError(t, err)
		assert.False(t, res.Found)
	})

	t.Run("empty index", func(t *testing.T) {
		r := NewRetriever(NewIndex("unused.csv"), nil, nil, Options{})
		res, err := r.Answer(context.Background(), "bonjour", domain.LangFrench)
		require.NoError(t, err)
		assert.False(t, res.Found)
	})
}

func TestAnswerBroadEmbeddingPath(t *testing.T) {
	ix := testIndex(t,
		"Comment nettoyer les téterelles ?", "À l'eau savonneuse après chaque usage.",
		"Quels sont vos horaires ?", "De 9h à 18h.")
	entries := ix.Entries()

	spy := &spyEmbedder{vectors: map[string][]float32{
		"hygiene du materiel":                              {1, 0, 0},
		strings.ReplaceAll(entries[0].Text(), "\n", " "):   {1, 0, 0},
		strings.ReplaceAll(entries[1].Text(), "\n", " "):   {0, 1, 0},
	}}
	r := NewRetriever(ix, spy, nil, Options{})

	res, err := r.Answer(context.Background(), "hygiene du materiel", domain.LangFrench)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "À l'eau savonneuse après chaque usage.", res.Answer)
	assert.InDelta(t, 1.0, res.Confidence, 0.001)
}

func TestAnswerEmbeddingVectorsCached(t *testing.T) {
	ix := testIndex(t, "Quels sont vos horaires ?", "De 9h à 18h.")
	spy := &spyEmbedder{}
	r := NewRetriever(ix, spy, nil, Options{})

	ctx := context.Background()
	_, err := r.Answer(ctx, "question sans rapport aucun", domain.LangFrench)
	require.NoError(t, err)
	first := spy.calls // query + one entry

	_, err = r.Answer(ctx, "autre question sans rapport", domain.LangFrench)
	require.NoError(t, err)

	// Second miss re-embeds the query only; the entry vector is cached.
	assert.Equal(t, first+1, spy.calls)
}

func TestAnswerDuplicateQuestionsEmbedSeparately(t *testing.T) {
	ix := testIndex(t,
		"Comment payer ?", "Par carte.",
		"Comment payer ?", "Par virement.")
	spy := &spyEmbedder{}
	r := NewRetriever(ix, spy, nil, Options{})

	_, err := r.Answer(context.Background(), "question sans rapport aucun", domain.LangFrench)
	require.NoError(t, err)

	// One call for the query plus one per entry: the shared question text
	// must not collapse the two vectors into one cache slot.
	assert.Equal(t, 3, spy.calls)
}

func TestAnswerDegradesWhenEmbedderFails(t *testing.T) {
	ix := testIndex(t, "Mon tire-lait ne fonctionne plus", "Contactez-nous.")
	spy := &spyEmbedder{err: errors.New("quota exceeded")}
	r := NewRetriever(ix, spy, nil, Options{})

	res, err := r.Answer(context.Background(), "le tl ne fonctionne pas", domain.LangFrench)
	require.NoError(t, err)
	assert.True(t, res.Found, "lexical floor match must survive an embedder outage")
	assert.Equal(t, "Contactez-nous.", res.Answer)
}

func TestAnswerTranslation(t *testing.T) {
	ix := testIndex(t, "Quels sont vos horaires ?", "De 9h à 18h.")

	t.Run("translates non-french sessions when enabled", func(t *testing.T) {
		tr := &spyTranslator{out: "From 9am to 6pm."}
		r := NewRetriever(ix, nil, tr, Options{Translate: true})

		res, err := r.Answer(context.Background(), "Quels sont vos horaires ?", domain.LangEnglish)
		require.NoError(t, err)
		assert.Equal(t, "From 9am to 6pm.", res.Answer)
		assert.Equal(t, "Quels sont vos horaires ?", res.MatchedQuestion)
		assert.Equal(t, 1, tr.calls)
	})

	t.Run("french sessions keep the source text", func(t *testing.T) {
		tr := &spyTranslator{out: "should not be used"}
		r := NewRetriever(ix, nil, tr, Options{Translate: true})

		res, err := r.Answer(context.Background(), "Quels sont vos horaires ?", domain.LangFrench)
		require.NoError(t, err)
		assert.Equal(t, "De 9h à 18h.", res.Answer)
		assert.Zero(t, tr.calls)
	})

	t.Run("disabled translation keeps the source text", func(t *testing.T) {
		tr := &spyTranslator{out: "should not be used"}
		r := NewRetriever(ix, nil, tr, Options{})

		res, err := r.Answer(context.Background(), "Quels sont vos horaires ?", domain.LangEnglish)
		require.NoError(t, err)
		assert.Equal(t, "De 9h à 18h.", res.Answer)
		assert.Zero(t, tr.calls)
	})
}
