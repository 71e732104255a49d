package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ppiankov/sentimenta/internal/artifact"
	"github.com/ppiankov/sentimenta/internal/pipeline"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <dataset>",
	Short: "Measure a saved model on a labelled dataset",
	Long: `Evaluate loads a saved model, scores every unique review of a labelled
dataset and reports accuracy, the confusion matrix, ROC-AUC and F1.

Example:
  sentimenta evaluate holdout.csv --model ./model
  sentimenta evaluate reviews.db --source sqlite --model model.db --store bolt --md eval.md`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	addDatasetFlags(evaluateCmd.Flags())
	addModelFlags(evaluateCmd.Flags())
	addReportFlags(evaluateCmd.Flags())
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx := context.Background()

	cfg, logger, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := artifact.NewStore(cfg.Store, artifact.WithLogger(logger))
	if err != nil {
		return err
	}
	bundle, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Loaded model: %s terms, trained %s\n",
			humanize.Comma(int64(len(bundle.Vocabulary))), humanize.Time(bundle.Meta.CreatedAt))
	}

	p := pipeline.NewPipeline(cfg, logger)
	reviews, err := p.LoadReviews(ctx, source)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	report, err := p.Evaluate(ctx, bundle, reviews)
	if err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}
	report.Subject = pipeline.Subject(source)
	report.Source = source

	if err := p.RenderReport(report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
