// Package bm25 implements a field-weighted inverted index with standard
// Okapi BM25 scoring.
package bm25

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
)

// stopwords is a fixed English stopword list, dropped from every
// tokenized field alongside tokens shorter than two characters.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"will": true, "with": true, "this": true, "but": true, "or": true,
	"not": true, "we": true, "you": true, "your": true, "they": true,
}

// Tokenize lowercases text, splits on non-alphanumeric runes, and drops
// stopwords and tokens shorter than two characters.
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tok := cur.String()
		cur.Reset()
		if len(tok) < 2 || stopwords[tok] {
			return
		}
		tokens = append(tokens, tok)
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// Config holds the BM25 tunables exposed through engine configuration.
type Config struct {
	K1               float64
	B                float64
	TitleBoost       float64
	DescriptionBoost float64
}

// DefaultConfig returns the documented BM25 defaults.
func DefaultConfig() Config {
	return Config{K1: 1.2, B: 0.75, TitleBoost: 3.0, DescriptionBoost: 2.0}
}

// Document is one indexable record: a title (used as the index key) plus
// its three text fields.
type Document struct {
	Title       string
	TitleText   string
	Description string
	Body        string
}

// Index is the field-weighted inverted index: term -> (doc -> weighted
// frequency), plus per-document length and the corpus average length.
type Index struct {
	cfg       Config
	postings  map[string]map[string]float64 // term -> title -> weighted freq
	docLength map[string]float64
	avgDocLen float64
	n         int // document count
}

// Build constructs the inverted index over docs.
func Build(docs []Document, cfg Config) *Index {
	timer := logging.StartTimer(logging.CategoryBM25, "Build")
	defer timer.Stop()

	idx := &Index{
		cfg:       cfg,
		postings:  make(map[string]map[string]float64),
		docLength: make(map[string]float64),
		n:         len(docs),
	}

	var totalLen float64
	for _, d := range docs {
		bag := make(map[string]float64)
		addWeighted(bag, Tokenize(d.TitleText), cfg.TitleBoost)
		addWeighted(bag, Tokenize(d.Description), cfg.DescriptionBoost)
		addWeighted(bag, Tokenize(d.Body), 1.0)

		var length float64
		for term, freq := range bag {
			if idx.postings[term] == nil {
				idx.postings[term] = make(map[string]float64)
			}
			idx.postings[term][d.Title] = freq
			length += freq
		}
		idx.docLength[d.Title] = length
		totalLen += length
	}

	if idx.n > 0 {
		idx.avgDocLen = totalLen / float64(idx.n)
	}

	return idx
}

func addWeighted(bag map[string]float64, tokens []string, weight float64) {
	for _, t := range tokens {
		bag[t] += weight
	}
}

// Result is one scored document.
type Result struct {
	Title string
	Score float64
}

// Score runs Okapi BM25 for query against every document containing at
// least one query term, returning results sorted by descending score
// (ties broken by title for determinism).
func (idx *Index) Score(query string) []Result {
	terms := Tokenize(query)
	scores := make(map[string]float64)

	for _, term := range terms {
		postings := idx.postings[term]
		if len(postings) == 0 {
			continue
		}
		n := float64(len(postings))
		idf := math.Log((float64(idx.n)-n+0.5)/(n+0.5) + 1)

		for title, tf := range postings {
			dl := idx.docLength[title]
			avgdl := idx.avgDocLen
			if avgdl == 0 {
				avgdl = 1
			}
			tfNorm := tf * (idx.cfg.K1 + 1) / (tf + idx.cfg.K1*(1-idx.cfg.B+idx.cfg.B*dl/avgdl))
			scores[title] += idf * tfNorm
		}
	}

	out := make([]Result, 0, len(scores))
	for title, score := range scores {
		out = append(out, Result{Title: title, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Title < out[j].Title
	})
	return out
}
