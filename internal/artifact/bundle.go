// Package artifact persists a fitted vocabulary and model so that a later
// process can score text without retraining.
//
// An artifact is two JSON documents: the vocabulary (with the vectorizer
// configuration needed to reproduce tokenization) and the model parameters.
// encoding/json writes float64 values in their shortest round-trip form, so
// weights survive a save/load cycle bit for bit.
package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ppiankov/sentimenta/internal/model"
)

// FormatVersion is bumped whenever the on-disk layout changes
const FormatVersion = 1

// Bundle is everything a scorer needs
type Bundle struct {
	Vocabulary map[string]int
	Vectorizer model.VectorizerConfig
	Weights    []float64
	Bias       float64
	Meta       Meta
}

// Meta describes how the bundle was produced
type Meta struct {
	CreatedAt  time.Time              `json:"created_at"`
	Seed       uint64                 `json:"seed"`
	Classifier model.ClassifierConfig `json:"classifier"`
	Iterations int                    `json:"iterations"`
	Converged  bool                   `json:"converged"`
	TrainRows  int                    `json:"train_rows"`
}

type vocabularyDoc struct {
	FormatVersion int                    `json:"format_version"`
	Vectorizer    model.VectorizerConfig `json:"vectorizer"`
	Vocabulary    map[string]int         `json:"vocabulary"`
}

type modelDoc struct {
	FormatVersion int       `json:"format_version"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
	Meta          Meta      `json:"meta"`
}

// Validate checks that vocabulary and weights describe the same feature space
func (b *Bundle) Validate() error {
	if len(b.Weights) != len(b.Vocabulary) {
		return fmt.Errorf("%d weights for a vocabulary of %d terms", len(b.Weights), len(b.Vocabulary))
	}

	seen := make([]bool, len(b.Vocabulary))
	for term, idx := range b.Vocabulary {
		if idx < 0 || idx >= len(seen) || seen[idx] {
			return fmt.Errorf("term %q has invalid index %d", term, idx)
		}
		seen[idx] = true
	}

	for i, w := range b.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weight %d is %v", i, w)
		}
	}
	if math.IsNaN(b.Bias) || math.IsInf(b.Bias, 0) {
		return fmt.Errorf("bias is %v", b.Bias)
	}
	return nil
}

func (b *Bundle) encode() (vocab, mdl []byte, err error) {
	if err := b.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}

	vocab, err = json.MarshalIndent(vocabularyDoc{
		FormatVersion: FormatVersion,
		Vectorizer:    b.Vectorizer,
		Vocabulary:    b.Vocabulary,
	}, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal vocabulary: %w", err)
	}

	mdl, err = json.MarshalIndent(modelDoc{
		FormatVersion: FormatVersion,
		Weights:       b.Weights,
		Bias:          b.Bias,
		Meta:          b.Meta,
	}, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal model: %w", err)
	}

	return vocab, mdl, nil
}

// decode rebuilds a bundle from the two documents. Every failure is a
// corrupt artifact.
func decode(vocab, mdl []byte) (*Bundle, error) {
	var vd vocabularyDoc
	if err := json.Unmarshal(vocab, &vd); err != nil {
		return nil, fmt.Errorf("%w: decode vocabulary: %v", model.ErrDataUnavailable, err)
	}
	var md modelDoc
	if err := json.Unmarshal(mdl, &md); err != nil {
		return nil, fmt.Errorf("%w: decode model: %v", model.ErrDataUnavailable, err)
	}

	if vd.FormatVersion != FormatVersion || md.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: format version %d/%d, want %d",
			model.ErrDataUnavailable, vd.FormatVersion, md.FormatVersion, FormatVersion)
	}

	b := &Bundle{
		Vocabulary: vd.Vocabulary,
		Vectorizer: vd.Vectorizer,
		Weights:    md.Weights,
		Bias:       md.Bias,
		Meta:       md.Meta,
	}
	if b.Vocabulary == nil {
		b.Vocabulary = map[string]int{}
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	return b, nil
}
