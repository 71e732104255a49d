package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/sentimenta/internal/artifact"
	"github.com/ppiankov/sentimenta/internal/model"
)

var (
	positiveWords = []string{"amazing", "wonderful", "delightful", "brilliant", "superb", "loved", "charming"}
	negativeWords = []string{"terrible", "awful", "disappointing", "boring", "dreadful", "hated", "tedious"}
	neutralWords  = []string{"movie", "plot", "acting", "story", "cast", "film", "ending"}
)

// syntheticReviews returns 2n distinct labelled reviews
func syntheticReviews(n int) []model.Review {
	var out []model.Review
	for i := 0; i < n; i++ {
		a, b := neutralWords[i%7], neutralWords[(i/7)%7]
		out = append(out,
			model.Review{
				Text:      fmt.Sprintf("The %s was %s and %s, the %s too (#%d)", a, positiveWords[i%7], positiveWords[(i+3)%7], b, i),
				Sentiment: model.Positive,
			},
			model.Review{
				Text:      fmt.Sprintf("The %s was %s and %s, the %s too (#%d)", a, negativeWords[i%7], negativeWords[(i+2)%7], b, i),
				Sentiment: model.Negative,
			},
		)
	}
	return out
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Vectorizer.MinDF = 3
	cfg.Concurrency.Workers = 4
	return cfg
}

func newTestPipeline(cfg *model.Config) (*Pipeline, *bytes.Buffer) {
	var buf bytes.Buffer
	p := NewPipeline(cfg, nil)
	p.renderer = NewRenderer(&buf)
	return p, &buf
}

func TestTrain_EndToEnd(t *testing.T) {
	p, _ := newTestPipeline(testConfig())

	res, err := p.Train(context.Background(), syntheticReviews(100))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	ds := res.Report.Dataset
	if ds.Unique != 200 || ds.Train+ds.Test != ds.Unique {
		t.Errorf("dataset stats inconsistent: %+v", ds)
	}
	if ds.Test != 100 {
		t.Errorf("Test = %d, want 100 for a 0.5 split", ds.Test)
	}
	if !res.Report.Training.Converged {
		t.Errorf("expected convergence, status %s", res.Report.Training.Status)
	}
	if res.Report.Metrics.Accuracy < 0.95 {
		t.Errorf("Accuracy = %.3f, want >= 0.95 on separable data", res.Report.Metrics.Accuracy)
	}
	if res.Report.Metrics.ROCAUC < 0.95 {
		t.Errorf("ROCAUC = %.3f, want >= 0.95", res.Report.Metrics.ROCAUC)
	}
	if res.Report.Metrics.Samples != ds.Test {
		t.Errorf("Samples = %d, want %d", res.Report.Metrics.Samples, ds.Test)
	}

	good := res.Scorer.Score("amazing, wonderful, delightful")
	bad := res.Scorer.Score("terrible, awful, disappointing")
	if good <= bad {
		t.Errorf("positive probe %.4f should outrank negative probe %.4f", good, bad)
	}

	if err := res.Bundle.Validate(); err != nil {
		t.Errorf("bundle invalid: %v", err)
	}
	if len(res.Bundle.Weights) != res.Vectorizer.Size() {
		t.Errorf("bundle has %d weights for %d terms", len(res.Bundle.Weights), res.Vectorizer.Size())
	}

	if tf := res.Report.TopFeatures; tf == nil || len(tf.Positive) == 0 || len(tf.Negative) == 0 {
		t.Errorf("expected top features in both directions, got %+v", tf)
	}
}

func TestTrain_NoTestLeakIntoVocabulary(t *testing.T) {
	cfg := testConfig()
	cfg.Vectorizer.MinDF = 1
	p, _ := newTestPipeline(cfg)

	reviews := syntheticReviews(50)
	reviews = append(reviews,
		model.Review{Text: "Zanzibar zanzibar", Sentiment: model.Positive},
		model.Review{Text: "Quixotic quixotic", Sentiment: model.Negative},
	)

	res, err := p.Train(context.Background(), reviews)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	inTrain := make(map[string]bool)
	for _, r := range res.Train {
		for _, tok := range res.Vectorizer.Analyzer().Tokens(r.Text) {
			inTrain[tok] = true
		}
	}
	for term := range res.Vectorizer.Vocabulary() {
		for _, tok := range strings.Fields(term) {
			if !inTrain[tok] {
				t.Errorf("vocabulary term %q has token %q never seen in training rows", term, tok)
			}
		}
	}
}

func TestTrain_FullScope(t *testing.T) {
	reviews := syntheticReviews(60)

	trainCfg := testConfig()
	fullCfg := testConfig()
	fullCfg.Vectorizer.FitScope = FitScopeFull

	pt, _ := newTestPipeline(trainCfg)
	pf, _ := newTestPipeline(fullCfg)

	rt, err := pt.Train(context.Background(), reviews)
	if err != nil {
		t.Fatalf("Train (train scope): %v", err)
	}
	rf, err := pf.Train(context.Background(), reviews)
	if err != nil {
		t.Fatalf("Train (full scope): %v", err)
	}

	if rf.Vectorizer.Size() < rt.Vectorizer.Size() {
		t.Errorf("full-corpus vocabulary (%d) smaller than train-only (%d)", rf.Vectorizer.Size(), rt.Vectorizer.Size())
	}
	if rf.Report.Training.FitScope != FitScopeFull || rt.Report.Training.FitScope != FitScopeTrain {
		t.Errorf("fit scopes recorded as %q and %q", rt.Report.Training.FitScope, rf.Report.Training.FitScope)
	}
}

func TestTrain_Deterministic(t *testing.T) {
	reviews := syntheticReviews(40)

	p1, _ := newTestPipeline(testConfig())
	p2, _ := newTestPipeline(testConfig())

	a, err := p1.Train(context.Background(), reviews)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	b, err := p2.Train(context.Background(), reviews)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	wa, wb := a.Model.Weights(), b.Model.Weights()
	if len(wa) != len(wb) {
		t.Fatalf("dimensions differ: %d vs %d", len(wa), len(wb))
	}
	for i := range wa {
		if math.Abs(wa[i]-wb[i]) > 1e-9 {
			t.Fatalf("weight %d differs: %v vs %v", i, wa[i], wb[i])
		}
	}
	if a.Report.Metrics.Accuracy != b.Report.Metrics.Accuracy {
		t.Errorf("accuracy differs between identical runs")
	}
}

func TestTrain_DedupsBeforeSplit(t *testing.T) {
	p, _ := newTestPipeline(testConfig())

	reviews := syntheticReviews(40)
	reviews = append(reviews, reviews[0], reviews[1], model.Review{Text: reviews[2].Text, Sentiment: model.Negative})

	res, err := p.Train(context.Background(), reviews)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	ds := res.Report.Dataset
	if ds.Rows != 83 || ds.Duplicates != 2 || ds.Conflicts != 1 || ds.Unique != 80 {
		t.Errorf("dataset stats = %+v", ds)
	}

	seen := make(map[string]bool)
	for _, r := range append(append([]model.Review{}, res.Train...), res.Test...) {
		if seen[r.Text] {
			t.Fatalf("text %q appears twice after dedup", r.Text)
		}
		seen[r.Text] = true
	}
}

func TestTrain_TinyCorpus(t *testing.T) {
	reviews := []model.Review{
		{Text: "amazing film", Sentiment: model.Positive},
		{Text: "wonderful film", Sentiment: model.Positive},
		{Text: "awful film", Sentiment: model.Negative},
		{Text: "boring film", Sentiment: model.Negative},
	}

	for seed := uint64(0); seed < 3; seed++ {
		cfg := testConfig()
		cfg.Vectorizer.MinDF = 1
		cfg.Split.TestSize = 0.25
		cfg.Split.Seed = seed
		p, _ := newTestPipeline(cfg)

		res, err := p.Train(context.Background(), reviews)
		if err != nil {
			t.Fatalf("seed %d: Train: %v", seed, err)
		}
		if res.Bundle == nil {
			t.Fatalf("seed %d: no bundle", seed)
		}
		if res.Report.Metrics.NoAUC {
			t.Errorf("seed %d: test split lost a class", seed)
		}
	}
}

func TestTrain_SingleClassTestSplitKeepsModel(t *testing.T) {
	// One positive review cannot be on both sides; it stays in train
	reviews := []model.Review{
		{Text: "amazing film", Sentiment: model.Positive},
		{Text: "awful film", Sentiment: model.Negative},
		{Text: "boring film", Sentiment: model.Negative},
		{Text: "dreadful plot", Sentiment: model.Negative},
		{Text: "tedious plot", Sentiment: model.Negative},
		{Text: "dull acting", Sentiment: model.Negative},
	}
	cfg := testConfig()
	cfg.Vectorizer.MinDF = 1
	cfg.Split.TestSize = 0.2
	p, _ := newTestPipeline(cfg)

	res, err := p.Train(context.Background(), reviews)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if res.Bundle == nil || len(res.Bundle.Weights) != res.Vectorizer.Size() {
		t.Fatal("expected a usable bundle")
	}
	if !res.Report.Metrics.NoAUC {
		t.Errorf("expected undefined ROC-AUC, got %+v", res.Report.Metrics)
	}
	if !strings.Contains(Markdown(res.Report), "undefined") {
		t.Error("markdown report does not flag the undefined ROC-AUC")
	}
}

func TestTrain_InvalidInput(t *testing.T) {
	onlyPositive := []model.Review{
		{Text: "amazing film", Sentiment: model.Positive},
		{Text: "wonderful film", Sentiment: model.Positive},
	}
	badScope := testConfig()
	badScope.Vectorizer.FitScope = "everything"
	badSplit := testConfig()
	badSplit.Split.TestSize = 1.5

	tests := []struct {
		name    string
		cfg     *model.Config
		reviews []model.Review
	}{
		{"empty", testConfig(), nil},
		{"single class", testConfig(), onlyPositive},
		{"unknown fit scope", badScope, syntheticReviews(10)},
		{"bad test size", badSplit, syntheticReviews(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPipeline(tt.cfg)
			if _, err := p.Train(context.Background(), tt.reviews); !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSaveLoadEvaluate_RoundTrip(t *testing.T) {
	p, _ := newTestPipeline(testConfig())
	res, err := p.Train(context.Background(), syntheticReviews(80))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	dir := t.TempDir()
	for _, backend := range []string{"files", "bolt"} {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(dir, backend)
			if backend == "bolt" {
				path += ".db"
			}
			store, err := artifact.NewStore(model.StoreConfig{Backend: backend, Path: path})
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			if err := store.Save(context.Background(), res.Bundle); err != nil {
				t.Fatalf("Save: %v", err)
			}
			loaded, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			report, err := p.Evaluate(context.Background(), loaded, res.Test)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if report.Metrics != res.Report.Metrics {
				t.Errorf("metrics after reload %+v differ from training %+v", report.Metrics, res.Report.Metrics)
			}
			if report.Training != nil {
				t.Error("evaluation report should carry no training summary")
			}
		})
	}
}

func TestEvaluate_MissingArtifact(t *testing.T) {
	p, _ := newTestPipeline(testConfig())
	if _, err := p.Evaluate(context.Background(), nil, syntheticReviews(5)); !errors.Is(err, model.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestLoadReviews(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviews.csv")
	data := "Text,Sentiment\n\"Loved it, truly\",1\nDull,0\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	p, _ := newTestPipeline(testConfig())
	got, err := p.LoadReviews(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadReviews: %v", err)
	}
	if len(got) != 2 || got[0].Text != "Loved it, truly" || got[1].Sentiment != model.Negative {
		t.Errorf("LoadReviews = %+v", got)
	}

	cfg := testConfig()
	cfg.Dataset.Source = "parquet"
	p, _ = newTestPipeline(cfg)
	if _, err := p.LoadReviews(context.Background(), path); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("unknown source: expected ErrInvalidInput, got %v", err)
	}
}

func TestRenderReport(t *testing.T) {
	p, summary := newTestPipeline(testConfig())
	res, err := p.Train(context.Background(), syntheticReviews(40))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	res.Report.Subject = "synthetic.csv"

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	mdPath := filepath.Join(dir, "report.md")
	if err := p.RenderReport(res.Report, jsonPath, mdPath, false); err != nil {
		t.Fatalf("RenderReport: %v", err)
	}

	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read JSON: %v", err)
	}
	var decoded model.Report
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if decoded.Metrics.ROCAUC != res.Report.Metrics.ROCAUC || decoded.Dataset != res.Report.Dataset {
		t.Errorf("JSON report does not match: %+v", decoded)
	}

	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("read Markdown: %v", err)
	}
	for _, want := range []string{"# Sentiment model report: synthetic.csv", "| ROC-AUC |", "### Confusion matrix", "## Strongest terms"} {
		if !strings.Contains(string(md), want) {
			t.Errorf("Markdown lacks %q", want)
		}
	}

	if !strings.Contains(summary.String(), "Training Complete") {
		t.Errorf("summary lacks banner:\n%s", summary.String())
	}
}
