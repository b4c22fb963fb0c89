package kb

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/tlxsante/assistant/internal/domain"
)

// Embedder produces a vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Translator rewrites text into another language.
type Translator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Result is a retrieval outcome. On a miss, References carry the
// nearest entries so the generative fallback can ground its reply; they
// never appear in the wire envelope.
type Result struct {
	Answer          string      `json:"answer"`
	MatchedQuestion string      `json:"matched_question,omitempty"`
	Confidence      float64     `json:"confidence"`
	Found           bool        `json:"found"`
	References      []Reference `json:"-"`
}

// Reference is one near-miss question/answer pair.
type Reference struct {
	Question string
	Answer   string
}

// Options tune the retriever thresholds.
type Options struct {
	// FastThreshold gates the lexical short-circuit (default 0.85).
	FastThreshold float64
	// Floor is the broad-path acceptance minimum (default 0.35).
	Floor float64
	// Translate enables rewriting matched answers into the session language.
	Translate bool
	// Timeout bounds each external embedding/translation call.
	Timeout time.Duration
}

// Retriever answers queries against the index. The fast lexical path
// handles exact and near-exact FAQ hits without touching the embedding
// service; only misses pay for the broad path.
type Retriever struct {
	index      *Index
	embedder   Embedder
	translator Translator
	opts       Options

	// Entry vectors are computed lazily and keyed by folded question plus
	// answer, so a reload only re-embeds entries whose text actually changed.
	vectors *gocache.Cache
}

// NewRetriever wires a retriever over the index. embedder and translator
// may be nil; the retriever then stays fully lexical/untranslated.
func NewRetriever(index *Index, embedder Embedder, translator Translator, opts Options) *Retriever {
	if opts.FastThreshold <= 0 {
		opts.FastThreshold = 0.85
	}
	if opts.Floor <= 0 {
		opts.Floor = 0.35
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Retriever{
		index:      index,
		embedder:   embedder,
		translator: translator,
		opts:       opts,
		vectors:    gocache.New(gocache.NoExpiration, 0),
	}
}

var typoTL = regexp.MustCompile(`\btn\b`)

// Answer returns the best-matching entry's answer for the query, or
// Found=false when nothing clears the acceptance floor.
func (r *Retriever) Answer(ctx context.Context, query string, language domain.Language) (Result, error) {
	entries := r.index.Entries()
	if len(entries) == 0 || strings.TrimSpace(query) == "" {
		return Result{}, nil
	}

	// Common mistype: "tn" for the "tl" device shorthand.
	query = typoTL.ReplaceAllString(strings.ToLower(query), "tl")

	folded := Fold(query)
	qTokens := Tokens(query)

	// Tier 1: lexical fast path.
	scores := make([]float64, len(entries))
	bestScore, bestIdx := 0.0, -1
	for i := range entries {
		scores[i] = similarity(folded, qTokens, &entries[i])
		if scores[i] > bestScore {
			bestScore, bestIdx = scores[i], i
		}
	}
	if bestIdx >= 0 && bestScore >= r.opts.FastThreshold {
		return r.finish(ctx, &entries[bestIdx], bestScore, language), nil
	}

	refs := topReferences(entries, scores, 3)

	// Tier 2: broad path. Embedding similarity when available, the
	// ungated lexical score otherwise.
	if r.embedder != nil {
		if res, ok := r.broadEmbedding(ctx, query, entries, language); ok {
			if !res.Found {
				res.References = refs
			}
			return res, nil
		}
		// Embedding unavailable or timed out: degrade to lexical.
	}

	if bestIdx >= 0 && bestScore >= r.opts.Floor {
		return r.finish(ctx, &entries[bestIdx], bestScore, language), nil
	}
	return Result{References: refs}, nil
}

// topReferences picks the n best-scoring entries with any lexical
// overlap at all.
func topReferences(entries []Entry, scores []float64, n int) []Reference {
	type cand struct {
		idx   int
		score float64
	}
	var cands []cand
	for i, s := range scores {
		if s > 0 {
			cands = append(cands, cand{idx: i, score: s})
		}
	}
	sort.Slice(cands, func(a, b int) bool { return cands[a].score > cands[b].score })
	if len(cands) > n {
		cands = cands[:n]
	}
	refs := make([]Reference, 0, len(cands))
	for _, c := range cands {
		refs = append(refs, Reference{Question: entries[c.idx].Question, Answer: entries[c.idx].Answer})
	}
	return refs
}

// broadEmbedding ranks entries by cosine similarity. Returns ok=false
// when the embedding service cannot serve the query, so the caller can
// degrade to lexical scoring instead of failing the turn.
func (r *Retriever) broadEmbedding(ctx context.Context, query string, entries []Entry, language domain.Language) (Result, bool) {
	qv, err := r.embedText(ctx, query)
	if err != nil {
		log.Warn().Err(err).Msg("query embedding failed, degrading to lexical retrieval")
		return Result{}, false
	}

	bestScore, bestIdx := 0.0, -1
	for i := range entries {
		ev, err := r.entryVector(ctx, &entries[i])
		if err != nil {
			log.Warn().Err(err).Str("question", entries[i].Question).Msg("entry embedding failed, degrading to lexical retrieval")
			return Result{}, false
		}
		if s := cosine(qv, ev); s > bestScore {
			bestScore, bestIdx = s, i
		}
	}
	if bestIdx < 0 || bestScore < r.opts.Floor {
		return Result{}, true
	}
	return r.finish(ctx, &entries[bestIdx], bestScore, language), true
}

func (r *Retriever) entryVector(ctx context.Context, e *Entry) ([]float32, error) {
	// Duplicate questions may carry different answers; the key covers both.
	key := e.folded + "\x00" + e.Answer
	if v, ok := r.vectors.Get(key); ok {
		return v.([]float32), nil
	}
	vec, err := r.embedText(ctx, e.Text())
	if err != nil {
		return nil, err
	}
	r.vectors.Set(key, vec, gocache.NoExpiration)
	return vec, nil
}

func (r *Retriever) embedText(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	return r.embedder.Embed(ctx, strings.ReplaceAll(text, "\n", " "))
}

// finish translates the matched answer when the session language differs
// from the knowledge base's native French. MatchedQuestion and Confidence
// stay in the retriever's native scoring language regardless.
func (r *Retriever) finish(ctx context.Context, e *Entry, score float64, language domain.Language) Result {
	answer := e.Answer
	if r.opts.Translate && r.translator != nil && language != "" && language != domain.LangFrench {
		answer = r.translate(ctx, answer, language)
	}
	return Result{
		Answer:          answer,
		MatchedQuestion: e.Question,
		Confidence:      score,
		Found:           true,
	}
}

var languageLabels = map[domain.Language]string{
	domain.LangFrench:  "French",
	domain.LangEnglish: "English",
	domain.LangArabic:  "Arabic",
}

func (r *Retriever) translate(ctx context.Context, text string, language domain.Language) string {
	target, ok := languageLabels[language]
	if !ok {
		return text
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	out, err := r.translator.Complete(ctx,
		"Translate the given text to "+target+". Keep formatting. Do not alter names, numbers or dates. Do not add extra text.",
		text)
	if err != nil || strings.TrimSpace(out) == "" {
		log.Warn().Err(err).Msg("answer translation failed, returning source text")
		return text
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
