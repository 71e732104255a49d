// Package score turns raw review text into a positive-sentiment probability
// using a fitted vectorizer and classifier.
package score

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"go.uber.org/zap"

	"github.com/ppiankov/sentimenta/internal/artifact"
	"github.com/ppiankov/sentimenta/internal/cache"
	"github.com/ppiankov/sentimenta/internal/classify"
	"github.com/ppiankov/sentimenta/internal/logging"
	"github.com/ppiankov/sentimenta/internal/model"
	"github.com/ppiankov/sentimenta/internal/vectorize"
	"github.com/ppiankov/sentimenta/internal/worker"
)

// Scorer computes PredictProba(Transform(text)). It is safe for concurrent use.
type Scorer struct {
	vectorizer *vectorize.Vectorizer
	classifier *classify.Model
	cache      cache.Cache
	workers    int
	logger     *zap.Logger
}

// Option configures a Scorer
type Option func(*Scorer)

// WithCache memoizes scores in c
func WithCache(c cache.Cache) Option {
	return func(s *Scorer) {
		s.cache = c
	}
}

// WithWorkers bounds ScoreAll parallelism
func WithWorkers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// New pairs a vectorizer with a classifier trained on its vocabulary
func New(v *vectorize.Vectorizer, clf *classify.Model, opts ...Option) (*Scorer, error) {
	if v == nil || clf == nil {
		return nil, fmt.Errorf("%w: scorer needs a vectorizer and a classifier", model.ErrInvalidInput)
	}
	if v.Size() != clf.Dim() {
		return nil, fmt.Errorf("%w: vocabulary has %d terms but the model has %d weights",
			model.ErrInvalidInput, v.Size(), clf.Dim())
	}

	s := &Scorer{
		vectorizer: v,
		classifier: clf,
		workers:    runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s, nil
}

// FromBundle rebuilds a scorer from a persisted artifact. A memory cache is
// attached when cacheCfg enables it.
func FromBundle(b *artifact.Bundle, cacheCfg model.CacheConfig, opts ...Option) (*Scorer, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: no artifact", model.ErrDataUnavailable)
	}

	v, err := vectorize.FromVocabulary(b.Vectorizer, b.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("%w: rebuild vectorizer: %v", model.ErrDataUnavailable, err)
	}
	clf, err := classify.New(b.Weights, b.Bias)
	if err != nil {
		return nil, fmt.Errorf("%w: rebuild classifier: %v", model.ErrDataUnavailable, err)
	}

	if cacheCfg.Enabled {
		opts = append([]Option{WithCache(cache.NewMemoryCache(cacheCfg.TTL, cacheCfg.CleanupInterval))}, opts...)
	}
	return New(v, clf, opts...)
}

// Score returns the probability in [0, 1] that text is positive. Text with
// no known n-gram scores sigmoid(bias).
func (s *Scorer) Score(text string) float64 {
	if s.cache == nil {
		return s.score(text)
	}

	key := cache.CacheKey(text)
	if p, ok := s.cache.Get(key); ok {
		return p
	}
	p := s.score(text)
	s.cache.Set(key, p)
	return p
}

func (s *Scorer) score(text string) float64 {
	return s.classifier.PredictProba(s.vectorizer.Transform(text))
}

// ScoreAll scores texts in parallel; output order matches input
func (s *Scorer) ScoreAll(ctx context.Context, texts []string) ([]float64, error) {
	scores, err := worker.Map(ctx, s.workers, len(texts), func(_ context.Context, i int) (float64, error) {
		return s.Score(texts[i]), nil
	})
	if err != nil {
		return nil, fmt.Errorf("score batch: %w", err)
	}
	s.logger.Debug("batch scored", zap.Int("texts", len(texts)))
	return scores, nil
}

// Predict returns the label Score implies
func (s *Scorer) Predict(text string) model.Label {
	if s.Score(text) >= classify.Threshold {
		return model.Positive
	}
	return model.Negative
}

// Contribution is one retained n-gram and its share of the decision value
type Contribution struct {
	Term         string  `json:"term"`
	Count        float64 `json:"count"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"` // count * weight
}

// Explanation breaks a score down into per-term contributions
type Explanation struct {
	Text        string         `json:"text"`
	Normalized  string         `json:"normalized"`
	Terms       []Contribution `json:"terms"` // largest |contribution| first
	Dropped     []string       `json:"dropped,omitempty"`
	Bias        float64        `json:"bias"`
	Decision    float64        `json:"decision"`
	Probability float64        `json:"probability"`
	Label       model.Label    `json:"label"`
}

// Explain shows which n-grams survived normalization and how much each moved
// the decision value. Dropped lists analyzed n-grams outside the vocabulary.
func (s *Scorer) Explain(text string) Explanation {
	analyzer := s.vectorizer.Analyzer()
	vec := s.vectorizer.Transform(text)
	weights := s.classifier.Weights()

	ex := Explanation{
		Text:        text,
		Normalized:  analyzer.Normalize(text),
		Bias:        s.classifier.Bias(),
		Decision:    s.classifier.Decision(vec),
		Probability: s.classifier.PredictProba(vec),
	}
	if ex.Probability >= classify.Threshold {
		ex.Label = model.Positive
	}

	for i, idx := range vec.Indices {
		term, _ := s.vectorizer.Term(idx)
		ex.Terms = append(ex.Terms, Contribution{
			Term:         term,
			Count:        vec.Values[i],
			Weight:       weights[idx],
			Contribution: vec.Values[i] * weights[idx],
		})
	}
	sort.SliceStable(ex.Terms, func(i, j int) bool {
		ci, cj := math.Abs(ex.Terms[i].Contribution), math.Abs(ex.Terms[j].Contribution)
		if ci != cj {
			return ci > cj
		}
		return ex.Terms[i].Term < ex.Terms[j].Term
	})

	known := make(map[string]struct{}, len(ex.Terms))
	for _, c := range ex.Terms {
		known[c.Term] = struct{}{}
	}
	for _, gram := range analyzer.Analyze(text) {
		if _, ok := known[gram]; ok {
			continue
		}
		known[gram] = struct{}{}
		ex.Dropped = append(ex.Dropped, gram)
	}
	return ex
}

// Vectorizer returns the underlying vectorizer
func (s *Scorer) Vectorizer() *vectorize.Vectorizer {
	return s.vectorizer
}

// Classifier returns the underlying model
func (s *Scorer) Classifier() *classify.Model {
	return s.classifier
}

// CacheLen reports how many scores are memoized
func (s *Scorer) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}
