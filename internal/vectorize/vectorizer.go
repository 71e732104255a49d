// Package vectorize converts review text into sparse n-gram count vectors
// over a frozen vocabulary.
//
// A Vectorizer is fitted once on a training corpus: every document is
// normalized (accents stripped, punctuation removed, lowercased), tokenized by
// a configurable regular expression, stripped of stop words and expanded into
// n-grams. Terms whose document frequency is below MinDF are discarded and the
// rest are indexed in lexicographic order, so two fits on the same corpus
// produce the same vocabulary.
//
// After fitting the vocabulary never changes. Terms unseen at fit time are
// dropped by Transform rather than added. All methods are safe for concurrent
// use once Fit has returned.
package vectorize

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/ppiankov/sentimenta/internal/model"
	"github.com/ppiankov/sentimenta/internal/worker"
)

// Vectorizer is a fixed-vocabulary n-gram count vectorizer
type Vectorizer struct {
	cfg      model.VectorizerConfig
	analyzer *Analyzer
	vocab    map[string]int
	terms    []string // index -> term
	workers  int
}

// Option configures a Vectorizer
type Option func(*Vectorizer)

// WithWorkers bounds row-parallel analysis. Values < 1 mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(v *Vectorizer) {
		if n > 0 {
			v.workers = n
		}
	}
}

// New creates an unfitted vectorizer. Its vocabulary is empty until Fit.
func New(cfg model.VectorizerConfig, opts ...Option) (*Vectorizer, error) {
	if cfg.MinDF < 1 {
		cfg.MinDF = 1
	}
	analyzer, err := NewAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	v := &Vectorizer{
		cfg:      analyzer.cfg,
		analyzer: analyzer,
		vocab:    map[string]int{},
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// FromVocabulary rebuilds a fitted vectorizer from a persisted vocabulary.
// Indices must be exactly 0..len(vocab)-1.
func FromVocabulary(cfg model.VectorizerConfig, vocab map[string]int, opts ...Option) (*Vectorizer, error) {
	v, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	terms := make([]string, len(vocab))
	seen := make([]bool, len(vocab))
	for term, idx := range vocab {
		if idx < 0 || idx >= len(vocab) || seen[idx] {
			return nil, fmt.Errorf("%w: vocabulary index %d for %q is out of range or duplicated", model.ErrInvalidInput, idx, term)
		}
		seen[idx] = true
		terms[idx] = term
	}

	v.vocab = make(map[string]int, len(vocab))
	for term, idx := range vocab {
		v.vocab[term] = idx
	}
	v.terms = terms
	return v, nil
}

// Fit builds the vocabulary from corpus. An empty corpus, or one in which no
// term reaches MinDF, yields an empty vocabulary and no error.
func (v *Vectorizer) Fit(ctx context.Context, corpus []string) error {
	features, err := v.analyzeAll(ctx, corpus)
	if err != nil {
		return err
	}
	v.fitFeatures(features)
	return nil
}

// FitTransform fits the vocabulary and returns the count vectors of corpus
func (v *Vectorizer) FitTransform(ctx context.Context, corpus []string) ([]SparseVector, error) {
	features, err := v.analyzeAll(ctx, corpus)
	if err != nil {
		return nil, err
	}
	v.fitFeatures(features)

	out := make([]SparseVector, len(features))
	for i, f := range features {
		out[i] = v.vectorize(f)
	}
	return out, nil
}

// Transform converts a single document. Unknown terms are dropped.
func (v *Vectorizer) Transform(text string) SparseVector {
	return v.vectorize(v.analyzer.Analyze(text))
}

// TransformAll converts documents in parallel; output order matches input
func (v *Vectorizer) TransformAll(ctx context.Context, docs []string) ([]SparseVector, error) {
	return worker.Map(ctx, v.workers, len(docs), func(_ context.Context, i int) (SparseVector, error) {
		return v.Transform(docs[i]), nil
	})
}

// InverseTransform returns the terms with a non-zero count in vec, sorted
func (v *Vectorizer) InverseTransform(vec SparseVector) []string {
	out := make([]string, 0, vec.Nnz())
	for i, idx := range vec.Indices {
		if vec.Values[i] == 0 || idx < 0 || idx >= len(v.terms) {
			continue
		}
		out = append(out, v.terms[idx])
	}
	sort.Strings(out)
	return out
}

// Vocabulary returns a copy of the term -> index mapping
func (v *Vectorizer) Vocabulary() map[string]int {
	out := make(map[string]int, len(v.vocab))
	for term, idx := range v.vocab {
		out[term] = idx
	}
	return out
}

// Terms returns the vocabulary in index order
func (v *Vectorizer) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Term returns the term stored at idx
func (v *Vectorizer) Term(idx int) (string, bool) {
	if idx < 0 || idx >= len(v.terms) {
		return "", false
	}
	return v.terms[idx], true
}

// Size returns the vocabulary dimension
func (v *Vectorizer) Size() int {
	return len(v.terms)
}

// Config returns the effective configuration
func (v *Vectorizer) Config() model.VectorizerConfig {
	return v.cfg
}

// Analyzer exposes the text analyzer for debugging output
func (v *Vectorizer) Analyzer() *Analyzer {
	return v.analyzer
}

func (v *Vectorizer) analyzeAll(ctx context.Context, corpus []string) ([][]string, error) {
	features, err := worker.Map(ctx, v.workers, len(corpus), func(_ context.Context, i int) ([]string, error) {
		return v.analyzer.Analyze(corpus[i]), nil
	})
	if err != nil {
		return nil, fmt.Errorf("analyze corpus: %w", err)
	}
	return features, nil
}

func (v *Vectorizer) fitFeatures(features [][]string) {
	df := make(map[string]int)
	for _, doc := range features {
		seen := make(map[string]struct{}, len(doc))
		for _, term := range doc {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term, count := range df {
		if count >= v.cfg.MinDF {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)

	v.vocab = make(map[string]int, len(terms))
	for i, term := range terms {
		v.vocab[term] = i
	}
	v.terms = terms
}

func (v *Vectorizer) vectorize(features []string) SparseVector {
	counts := make(map[int]float64)
	for _, f := range features {
		if idx, ok := v.vocab[f]; ok {
			counts[idx]++
		}
	}
	return NewSparseVector(len(v.terms), counts)
}
