// Package kb loads the question/answer knowledge table and answers
// free-form questions against it with a two-tier retrieval strategy.
package kb

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"
)

// ErrNoRows is returned when a source yields no usable question/answer pairs.
var ErrNoRows = errors.New("kb: no question/answer rows found")

// Entry is one indexed question/answer pair.
type Entry struct {
	Question string
	Answer   string

	folded string
	tokens map[string]struct{}
}

// Text is the combined form used for embedding.
func (e *Entry) Text() string {
	return fmt.Sprintf("Q: %s\nA: %s", e.Question, e.Answer)
}

type snapshot struct {
	entries  []Entry
	source   string
	loadedAt time.Time
}

// Status describes the currently loaded index.
type Status struct {
	EntryCount       int       `json:"entry_count"`
	ConfiguredSource string    `json:"configured_source"`
	LoadedSource     string    `json:"loaded_source,omitempty"`
	LoadedAt         time.Time `json:"loaded_at,omitzero"`
}

// Index is the in-memory knowledge table. Readers always observe a
// complete snapshot: Reload and Clean build a new one off to the side and
// install it with a single pointer swap.
type Index struct {
	configured string
	snap       atomic.Pointer[snapshot]
}

// NewIndex creates an empty index configured with a default source path.
func NewIndex(source string) *Index {
	ix := &Index{configured: source}
	ix.snap.Store(&snapshot{})
	return ix
}

// Entries returns the current snapshot's entries. The slice must not be
// mutated.
func (ix *Index) Entries() []Entry {
	return ix.snap.Load().entries
}

// Status reports entry count and source paths.
func (ix *Index) Status() Status {
	s := ix.snap.Load()
	return Status{
		EntryCount:       len(s.entries),
		ConfiguredSource: ix.configured,
		LoadedSource:     s.source,
		LoadedAt:         s.loadedAt,
	}
}

// Reload parses the source (the configured one when path is empty) and
// atomically swaps the in-memory index. On error the previous snapshot
// stays active.
func (ix *Index) Reload(path string) (int, error) {
	if path == "" {
		path = ix.configured
	}
	rows, err := extractRows(path)
	if err != nil {
		return 0, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			Question: r.q,
			Answer:   r.a,
			folded:   Fold(r.q),
			tokens:   Tokens(r.q),
		})
	}

	ix.snap.Store(&snapshot{entries: entries, source: path, loadedAt: time.Now()})
	log.Info().Int("entries", len(entries)).Str("source", path).Msg("knowledge index loaded")
	return len(entries), nil
}

// Clean re-serializes the detected pairs from src as a canonical
// two-column UTF-8 table at dst (src's directory with a _clean suffix when
// dst is empty), then reloads the index from it. Returns the destination
// path and the row count.
func (ix *Index) Clean(src, dst string) (string, int, error) {
	if src == "" {
		src = ix.configured
	}
	rows, err := extractRows(src)
	if err != nil {
		return "", 0, err
	}
	if dst == "" {
		ext := filepath.Ext(src)
		dst = strings.TrimSuffix(src, ext) + "_clean.csv"
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", 0, fmt.Errorf("kb: create %s: %w", dst, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"question", "answer"}); err != nil {
		f.Close()
		return "", 0, fmt.Errorf("kb: write header: %w", err)
	}
	for _, r := range rows {
		// Canonical form is one record per row with no embedded line breaks.
		q := strings.Join(strings.Fields(r.q), " ")
		a := strings.Join(strings.Fields(r.a), " ")
		if err := w.Write([]string{q, a}); err != nil {
			f.Close()
			return "", 0, fmt.Errorf("kb: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", 0, fmt.Errorf("kb: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("kb: close %s: %w", dst, err)
	}

	if _, err := ix.Reload(dst); err != nil {
		return dst, len(rows), err
	}
	return dst, len(rows), nil
}

type row struct{ q, a string }

// extractRows reads a delimited table, sniffing encoding (UTF-8 with a
// Windows-1252 fallback for legacy exports) and delimiter (semicolon
// preferred over comma). Question/answer columns are found by header name;
// rows the header mapping cannot cover fall back to the last two
// non-empty cells, a permissive best-effort kept from the legacy data.
func extractRows(path string) ([]row, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kb: read %s: %w", path, err)
	}
	text, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("kb: decode %s: %w", path, err)
	}
	delim := detectDelimiter(text)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("kb: parse %s: %w", path, err)
	}

	var rows []row
	qIdx, aIdx := -1, -1
	for i, rec := range records {
		if isBlank(rec) {
			continue
		}
		if i == 0 {
			qIdx, aIdx = findColumns(rec)
			continue
		}
		if qIdx >= 0 && aIdx >= 0 && len(rec) > maxInt(qIdx, aIdx) {
			q := strings.TrimSpace(rec[qIdx])
			a := strings.TrimSpace(rec[aIdx])
			if q != "" && a != "" {
				rows = append(rows, row{q: q, a: a})
			}
			continue
		}
		// Fallback: take the last two non-empty cells as Q/A.
		var cells []string
		for _, c := range rec {
			if s := strings.TrimSpace(c); s != "" {
				cells = append(cells, s)
			}
		}
		if len(cells) >= 2 {
			log.Debug().Int("row", i+1).Str("source", path).Msg("header mapping missed row, salvaged trailing cells")
			rows = append(rows, row{q: cells[len(cells)-2], a: cells[len(cells)-1]})
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

// decode prefers strict UTF-8 and falls back to Windows-1252.
func decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// detectDelimiter samples the leading bytes; semicolon wins ties since
// French spreadsheet exports use it.
func detectDelimiter(text string) rune {
	sample := text
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	if strings.Count(sample, ";") >= strings.Count(sample, ",") {
		return ';'
	}
	return ','
}

// findColumns matches header cells case- and accent-insensitively against
// the known question/answer header spellings.
func findColumns(header []string) (qIdx, aIdx int) {
	qIdx, aIdx = -1, -1
	for i, h := range header {
		hn := Fold(h)
		if qIdx < 0 && (strings.Contains(hn, "question") || strings.Contains(hn, "quest")) {
			qIdx = i
		}
		if aIdx < 0 && (strings.Contains(hn, "reponse") || strings.Contains(hn, "repon") || strings.Contains(hn, "answer")) {
			aIdx = i
		}
	}
	return qIdx, aIdx
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
