// Package pipeline wires the training run end to end: dedup, vectorizer fit,
// split, classifier fit, evaluation and artifact assembly.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/sentimenta/internal/artifact"
	"github.com/ppiankov/sentimenta/internal/classify"
	"github.com/ppiankov/sentimenta/internal/dataset"
	"github.com/ppiankov/sentimenta/internal/evaluate"
	"github.com/ppiankov/sentimenta/internal/logging"
	"github.com/ppiankov/sentimenta/internal/model"
	"github.com/ppiankov/sentimenta/internal/score"
	"github.com/ppiankov/sentimenta/internal/vectorize"
)

// Vectorizer fit scopes
const (
	FitScopeTrain = "train"
	FitScopeFull  = "full"
)

// topFeatureCount is how many terms per direction the report lists
const topFeatureCount = 15

// Pipeline orchestrates training and evaluation runs. It holds no state
// between runs.
type Pipeline struct {
	config   *model.Config
	logger   *zap.Logger
	renderer *Renderer
	now      func() time.Time
}

// NewPipeline creates a pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		config:   cfg,
		logger:   logging.OrNop(logger),
		renderer: NewRenderer(nil),
		now:      time.Now,
	}
}

// TrainResult is everything a training run produced
type TrainResult struct {
	Report     *model.Report
	Bundle     *artifact.Bundle
	Scorer     *score.Scorer
	Vectorizer *vectorize.Vectorizer
	Model      *classify.Model
	Fit        classify.FitResult
	Train      []model.Review
	Test       []model.Review
}

// LoadReviews reads the dataset at source using the configured reader
func (p *Pipeline) LoadReviews(ctx context.Context, source string) ([]model.Review, error) {
	ds := p.config.Dataset
	switch ds.Source {
	case "", "csv":
		return dataset.LoadCSV(source, ds.TextField, ds.LabelField)
	case "sqlite":
		return dataset.LoadSQLite(ctx, source, ds.Query)
	default:
		return nil, fmt.Errorf("%w: unknown dataset source %q (want csv or sqlite)", model.ErrInvalidInput, ds.Source)
	}
}

// Train runs the full training pipeline on labelled reviews
func (p *Pipeline) Train(ctx context.Context, reviews []model.Review) (*TrainResult, error) {
	started := p.now()
	cfg := p.config

	if len(reviews) == 0 {
		return nil, fmt.Errorf("%w: dataset is empty", model.ErrInvalidInput)
	}

	// 1. Dedup
	unique, dedup := dataset.Dedup(reviews)
	neg, pos := dataset.ClassBalance(unique)
	p.logger.Info("dataset deduplicated",
		zap.Int("rows", dedup.Rows),
		zap.Int("duplicates", dedup.Duplicates),
		zap.Int("conflicts", dedup.Conflicts),
		zap.Int("unique", dedup.Unique),
	)
	if neg == 0 || pos == 0 {
		return nil, fmt.Errorf("%w: need both classes, got %d negative and %d positive", model.ErrInvalidInput, neg, pos)
	}

	// 2. Split
	train, test, err := dataset.Split(unique, cfg.Split.TestSize, cfg.Split.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	// 3. Fit vectorizer
	vec, err := vectorize.New(cfg.Vectorizer, vectorize.WithWorkers(cfg.Concurrency.Workers))
	if err != nil {
		return nil, fmt.Errorf("create vectorizer: %w", err)
	}
	fitCorpus := train
	switch cfg.Vectorizer.FitScope {
	case "", FitScopeTrain:
	case FitScopeFull:
		fitCorpus = unique
	default:
		return nil, fmt.Errorf("%w: unknown fit scope %q (want train or full)", model.ErrInvalidInput, cfg.Vectorizer.FitScope)
	}
	if err := vec.Fit(ctx, dataset.Texts(fitCorpus)); err != nil {
		return nil, fmt.Errorf("fit vectorizer: %w", err)
	}
	p.logger.Info("vocabulary built",
		zap.Int("terms", vec.Size()),
		zap.String("scope", scopeName(cfg.Vectorizer.FitScope)),
		zap.Int("min_df", vec.Config().MinDF),
	)
	if vec.Size() == 0 {
		p.logger.Warn("vocabulary is empty; every review will score sigmoid(bias)")
	}

	// 4. Transform
	xTrain, err := vec.TransformAll(ctx, dataset.Texts(train))
	if err != nil {
		return nil, fmt.Errorf("transform train: %w", err)
	}
	xTest, err := vec.TransformAll(ctx, dataset.Texts(test))
	if err != nil {
		return nil, fmt.Errorf("transform test: %w", err)
	}

	// 5. Fit classifier
	fitStart := p.now()
	clf, fit, err := classify.Fit(ctx, xTrain, dataset.Labels(train), vec.Size(), cfg.Classifier, classify.WithLogger(p.logger))
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}
	p.logger.Info("classifier fitted",
		zap.Int("iterations", fit.Iterations),
		zap.Bool("converged", fit.Converged),
		zap.Duration("took", p.now().Sub(fitStart)),
	)

	// 6. Evaluate on the held-out split
	metrics, err := evaluate.Evaluate(clf, xTest, dataset.Labels(test))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if metrics.NoAUC {
		p.logger.Warn("test split holds a single class; ROC-AUC is undefined",
			zap.Int("test", len(test)),
		)
	}

	// 7. Assemble artifact and report
	bundle := &artifact.Bundle{
		Vocabulary: vec.Vocabulary(),
		Vectorizer: vec.Config(),
		Weights:    clf.Weights(),
		Bias:       clf.Bias(),
		Meta: artifact.Meta{
			CreatedAt:  p.now().UTC(),
			Seed:       cfg.Split.Seed,
			Classifier: cfg.Classifier,
			Iterations: fit.Iterations,
			Converged:  fit.Converged,
			TrainRows:  len(train),
		},
	}

	scorer, err := score.New(vec, clf, score.WithWorkers(cfg.Concurrency.Workers), score.WithLogger(p.logger))
	if err != nil {
		return nil, fmt.Errorf("build scorer: %w", err)
	}

	top := clf.TopFeatures(vec.Terms(), topFeatureCount)
	report := &model.Report{
		GeneratedAt: p.now().UTC(),
		Dataset: model.DatasetStats{
			Rows:       dedup.Rows,
			Duplicates: dedup.Duplicates,
			Conflicts:  dedup.Conflicts,
			Unique:     dedup.Unique,
			Negative:   neg,
			Positive:   pos,
			Train:      len(train),
			Test:       len(test),
		},
		Training: &model.TrainSummary{
			VocabularySize: vec.Size(),
			FitScope:       scopeName(cfg.Vectorizer.FitScope),
			Iterations:     fit.Iterations,
			Evaluations:    fit.Evaluations,
			Converged:      fit.Converged,
			Status:         fit.Status,
			Loss:           fit.Loss,
			Bias:           clf.Bias(),
			Seed:           cfg.Split.Seed,
			Duration:       p.now().Sub(started),
		},
		Metrics:     metrics,
		Vectorizer:  vec.Config(),
		TopFeatures: &top,
	}

	return &TrainResult{
		Report:     report,
		Bundle:     bundle,
		Scorer:     scorer,
		Vectorizer: vec,
		Model:      clf,
		Fit:        fit,
		Train:      train,
		Test:       test,
	}, nil
}

// Evaluate scores a labelled dataset with a persisted model. Reviews are
// deduplicated first so repeated texts are not counted twice.
func (p *Pipeline) Evaluate(ctx context.Context, bundle *artifact.Bundle, reviews []model.Review) (*model.Report, error) {
	scorer, err := score.FromBundle(bundle, model.CacheConfig{}, score.WithWorkers(p.config.Concurrency.Workers), score.WithLogger(p.logger))
	if err != nil {
		return nil, err
	}

	unique, dedup := dataset.Dedup(reviews)
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: dataset is empty", model.ErrInvalidInput)
	}
	neg, pos := dataset.ClassBalance(unique)

	scores, err := scorer.ScoreAll(ctx, dataset.Texts(unique))
	if err != nil {
		return nil, err
	}
	metrics, err := evaluate.FromScores(scores, dataset.Labels(unique))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if metrics.NoAUC {
		p.logger.Warn("dataset holds a single class; ROC-AUC is undefined",
			zap.Int("reviews", len(unique)),
		)
	}

	return &model.Report{
		GeneratedAt: p.now().UTC(),
		Dataset: model.DatasetStats{
			Rows:       dedup.Rows,
			Duplicates: dedup.Duplicates,
			Conflicts:  dedup.Conflicts,
			Unique:     dedup.Unique,
			Negative:   neg,
			Positive:   pos,
			Test:       len(unique),
		},
		Metrics:    metrics,
		Vectorizer: bundle.Vectorizer,
	}, nil
}

// RenderReport renders the report to the specified outputs and prints a
// summary to stdout
func (p *Pipeline) RenderReport(report *model.Report, jsonPath string, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(report)
	return nil
}

// Subject derives a report subject from a dataset path
func Subject(source string) string {
	return filepath.Base(source)
}

func scopeName(scope string) string {
	if scope == "" {
		return FitScopeTrain
	}
	return scope
}
