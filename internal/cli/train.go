package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/sentimenta/internal/artifact"
	"github.com/ppiankov/sentimenta/internal/model"
	"github.com/ppiankov/sentimenta/internal/pipeline"
)

var (
	// Dataset flags, shared with evaluate
	datasetSource string
	textField     string
	labelField    string
	datasetQuery  string

	// Artifact flags, shared with score, evaluate and inspect
	artifactPath string
	storeBackend string

	// Report flags, shared with evaluate
	outJSON string
	outMD   string

	minDF      int
	maxIter    int
	cValue     float64
	testSize   float64
	seed       uint64
	fitScope   string
	runTimeout time.Duration
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train <dataset>",
	Short: "Train a sentiment model on labelled reviews",
	Long: `Train runs the complete training pipeline:
- Load labelled reviews (CSV with a header, or a SQLite query)
- Drop duplicate review texts
- Split into train and test sets with a fixed seed
- Build a word and word-pair vocabulary
- Fit an L2-regularized logistic regression with L-BFGS
- Report accuracy, confusion matrix and ROC-AUC on the test set
- Save the vocabulary and model for later scoring

Example:
  sentimenta train reviews.csv
  sentimenta train reviews.csv --out ./model --json report.json --md report.md
  sentimenta train reviews.db --source sqlite --query "SELECT body, label FROM reviews"
  sentimenta train reviews.csv --fit-scope full --min-df 5`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	addDatasetFlags(trainCmd.Flags())
	addArtifactFlags(trainCmd.Flags())
	addReportFlags(trainCmd.Flags())

	// Model flags
	def := model.DefaultConfig()
	trainCmd.Flags().IntVar(&minDF, "min-df", def.Vectorizer.MinDF, "minimum number of reviews a term must appear in")
	trainCmd.Flags().IntVar(&maxIter, "max-iter", def.Classifier.MaxIter, "L-BFGS iteration bound")
	trainCmd.Flags().Float64Var(&cValue, "c", def.Classifier.C, "inverse L2 regularization strength")
	trainCmd.Flags().Float64Var(&testSize, "test-size", def.Split.TestSize, "fraction of reviews held out for evaluation")
	trainCmd.Flags().Uint64Var(&seed, "seed", def.Split.Seed, "train/test split seed")
	trainCmd.Flags().StringVar(&fitScope, "fit-scope", def.Vectorizer.FitScope, "rows the vocabulary is fitted on (train, full)")
	trainCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall training timeout")
}

func addDatasetFlags(fs *pflag.FlagSet) {
	def := model.DefaultConfig().Dataset
	fs.StringVar(&datasetSource, "source", def.Source, "dataset reader (csv, sqlite)")
	fs.StringVar(&textField, "text-field", def.TextField, "CSV column holding the review text")
	fs.StringVar(&labelField, "label-field", def.LabelField, "CSV column holding the 0/1 sentiment")
	fs.StringVar(&datasetQuery, "query", def.Query, "SQLite query returning (text, sentiment) rows")
}

func addArtifactFlags(fs *pflag.FlagSet) {
	def := model.DefaultConfig().Store
	fs.StringVar(&artifactPath, "out", def.Path, "artifact directory (files) or database file (bolt)")
	fs.StringVar(&storeBackend, "store", def.Backend, "artifact store backend (files, bolt)")
}

func addReportFlags(fs *pflag.FlagSet) {
	fs.StringVar(&outJSON, "json", "", "output JSON report path (optional)")
	fs.StringVar(&outMD, "md", "", "output Markdown report path (optional)")
}

// applyFlags copies explicitly set command flags over cfg
func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}

	set("source", func() { cfg.Dataset.Source = datasetSource })
	set("text-field", func() { cfg.Dataset.TextField = textField })
	set("label-field", func() { cfg.Dataset.LabelField = labelField })
	set("query", func() { cfg.Dataset.Query = datasetQuery })
	set("out", func() { cfg.Store.Path = artifactPath })
	set("model", func() { cfg.Store.Path = artifactPath })
	set("store", func() { cfg.Store.Backend = storeBackend })
	set("min-df", func() { cfg.Vectorizer.MinDF = minDF })
	set("max-iter", func() { cfg.Classifier.MaxIter = maxIter })
	set("c", func() { cfg.Classifier.C = cValue })
	set("test-size", func() { cfg.Split.TestSize = testSize })
	set("seed", func() { cfg.Split.Seed = seed })
	set("fit-scope", func() { cfg.Vectorizer.FitScope = fitScope })
	set("no-cache", func() { cfg.Cache.Enabled = !noCache })
}

// commandConfig loads configuration and applies the command's flags
func commandConfig(cmd *cobra.Command) (*model.Config, *zap.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	applyFlags(cmd, cfg)

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runTrain(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, logger, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Sentimenta Training\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Dataset:      %s (%s)\n", source, cfg.Dataset.Source)
	fmt.Fprintf(os.Stderr, "  N-grams:      %d-%d, stop words %s, min_df %d\n",
		cfg.Vectorizer.NgramMin, cfg.Vectorizer.NgramMax, cfg.Vectorizer.StopWords, cfg.Vectorizer.MinDF)
	fmt.Fprintf(os.Stderr, "  Fit scope:    %s\n", cfg.Vectorizer.FitScope)
	fmt.Fprintf(os.Stderr, "  Classifier:   C=%g, max_iter=%d\n", cfg.Classifier.C, cfg.Classifier.MaxIter)
	fmt.Fprintf(os.Stderr, "  Split:        test %.0f%%, seed %d\n", cfg.Split.TestSize*100, cfg.Split.Seed)
	fmt.Fprintf(os.Stderr, "  Artifact:     %s (%s)\n", cfg.Store.Path, cfg.Store.Backend)
	fmt.Fprintf(os.Stderr, "\n")

	p := pipeline.NewPipeline(cfg, logger)

	fmt.Fprintf(os.Stderr, "⚙️  Loading reviews...\n")
	reviews, err := p.LoadReviews(ctx, source)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %s reviews\n", humanize.Comma(int64(len(reviews))))

	fmt.Fprintf(os.Stderr, "⚙️  Training...\n")
	result, err := p.Train(ctx, reviews)
	if err != nil {
		return fmt.Errorf("train failed: %w", err)
	}
	result.Report.Subject = pipeline.Subject(source)
	result.Report.Source = source

	if warn := result.Fit.Warning(); warn != nil {
		fmt.Fprintf(os.Stderr, "⚠ %v; increase --max-iter for a tighter fit\n", warn)
	}

	store, err := artifact.NewStore(cfg.Store, artifact.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := store.Save(ctx, result.Bundle); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Saved artifact: %s\n", store.Location())

	if err := p.RenderReport(result.Report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}
