package server

import (
	"cmp"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

//go:embed lexicon.json
var lexiconJSON []byte

const (
	// floorScore keeps unmatched entries rankable.
	floorScore = 0.01
	// slack is probability mass left for "none of these".
	slack = 0.25
)

// Entry is one drug code the service can predict.
type Entry struct {
	Code       string   `json:"sc_code"`
	ID         int      `json:"code_id"`
	Definition string   `json:"code_definition"`
	Names      []string `json:"names"`

	normalized []string
}

// Lexicon ranks drug codes against free text.
type Lexicon struct {
	entries []Entry
}

// Scored is an entry with its predicted probability.
type Scored struct {
	Entry *Entry
	P     float64
}

// LoadLexicon returns the built-in lexicon.
func LoadLexicon() (*Lexicon, error) {
	return ParseLexicon(lexiconJSON)
}

// ParseLexicon reads a JSON array of entries.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("lexicon is empty")
	}
	for i := range entries {
		e := &entries[i]
		for _, name := range append([]string{e.Definition}, e.Names...) {
			if n := normalize(name); n != "" {
				e.normalized = append(e.normalized, n)
			}
		}
	}
	return &Lexicon{entries: entries}, nil
}

// Len returns the number of entries.
func (l *Lexicon) Len() int {
	return len(l.entries)
}

// Rank scores every entry against text and returns the best n, most likely
// first. Probabilities sum to less than one.
func (l *Lexicon) Rank(text string, n int) []Scored {
	q := normalize(text)

	scored := make([]Scored, len(l.entries))
	var total float64
	for i := range l.entries {
		e := &l.entries[i]
		s := floorScore
		for _, name := range e.normalized {
			s = max(s, similarity(q, name))
		}
		w := math.Pow(s, 4)
		scored[i] = Scored{Entry: e, P: w}
		total += w
	}
	for i := range scored {
		scored[i].P /= total + slack
	}

	slices.SortStableFunc(scored, func(a, b Scored) int {
		if c := cmp.Compare(b.P, a.P); c != 0 {
			return c
		}
		return cmp.Compare(a.Entry.Code, b.Entry.Code)
	})
	if n < len(scored) {
		scored = scored[:n]
	}
	return scored
}

func similarity(q, name string) float64 {
	if q == "" {
		return 0
	}
	ratio := float64(len(q)) / float64(max(len(name), len(q)))
	switch {
	case q == name:
		return 1
	case strings.HasPrefix(name, q):
		return 0.6 + 0.4*ratio
	case strings.Contains(name, q):
		return 0.3 + 0.3*ratio
	}
	if cp := commonPrefix(q, name); cp >= 2 {
		return 0.2 * float64(cp) / float64(len(name))
	}
	return 0
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// normalize folds case, strips accents and collapses whitespace.
func normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}
