// Package tfidf applies a pre-trained TF-IDF vectorizer exported as a JSON
// artifact. The vocabulary and idf weights are learned offline; at inference
// time the vectorizer is a pure text -> fixed-width float transform whose
// output must match the training pipeline exactly.
package tfidf

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"unicode"
)

// Vectorizer holds a frozen TF-IDF model: a term -> column mapping and one
// idf weight per column. Width is fixed at export time (250 in the shipped
// bundle) and is part of the feature-vector contract.
type Vectorizer struct {
	vocabulary map[string]int
	idf        []float64
	width      int
}

// TermWeight pairs a vocabulary term with its weight in a transformed text.
type TermWeight struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

type artifactFile struct {
	Width      int            `json:"width"`
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// Load reads a vectorizer artifact from disk and validates its internal
// consistency (every vocabulary index in range, one idf weight per column).
func Load(path string) (*Vectorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tfidf: read %s: %w", path, err)
	}

	var af artifactFile
	if err := json.Unmarshal(data, &af); err != nil {
		return nil, fmt.Errorf("tfidf: parse %s: %w", path, err)
	}

	if af.Width <= 0 {
		return nil, fmt.Errorf("tfidf: invalid width %d", af.Width)
	}
	if len(af.IDF) != af.Width {
		return nil, fmt.Errorf("tfidf: idf length %d != width %d", len(af.IDF), af.Width)
	}
	for term, idx := range af.Vocabulary {
		if idx < 0 || idx >= af.Width {
			return nil, fmt.Errorf("tfidf: term %q index %d out of range [0,%d)", term, idx, af.Width)
		}
	}

	return &Vectorizer{
		vocabulary: af.Vocabulary,
		idf:        af.IDF,
		width:      af.Width,
	}, nil
}

// Width returns the fixed output vector width.
func (v *Vectorizer) Width() int {
	return v.width
}

// Transform converts text into a width-length weight vector: term frequency
// times idf per vocabulary column, L2-normalized, zero for absent terms.
func (v *Vectorizer) Transform(text string) []float32 {
	counts := v.termCounts(text)

	weights := make([]float64, v.width)
	var norm float64
	for idx, n := range counts {
		w := float64(n) * v.idf[idx]
		weights[idx] = w
		norm += w * w
	}

	out := make([]float32, v.width)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, w := range weights {
		out[i] = float32(w / norm)
	}
	return out
}

// TopTerms returns up to k vocabulary terms present in text, ordered by
// descending weight. Used by the term-highlight preview endpoint.
func (v *Vectorizer) TopTerms(text string, k int) []TermWeight {
	counts := v.termCounts(text)
	if len(counts) == 0 || k <= 0 {
		return nil
	}

	// Column index -> term, only for columns present in this text.
	terms := make(map[int]string, len(counts))
	for term, idx := range v.vocabulary {
		if _, ok := counts[idx]; ok {
			terms[idx] = term
		}
	}

	weighted := v.Transform(text)
	out := make([]TermWeight, 0, len(counts))
	for idx, term := range terms {
		out = append(out, TermWeight{Term: term, Weight: float64(weighted[idx])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Term < out[j].Term
	})

	if len(out) > k {
		out = out[:k]
	}
	return out
}

// termCounts tokenizes text and counts occurrences of vocabulary terms,
// keyed by column index. Tokenization mirrors the training analyzer:
// lowercase, split on non-alphanumeric runes, tokens of length >= 2.
func (v *Vectorizer) termCounts(text string) map[int]int {
	counts := make(map[int]int)
	for _, tok := range tokenize(text) {
		if idx, ok := v.vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	return counts
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	toks := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			toks = append(toks, f)
		}
	}
	return toks
}
