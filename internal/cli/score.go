package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ppiankov/sentimenta/internal/artifact"
	"github.com/ppiankov/sentimenta/internal/classify"
	"github.com/ppiankov/sentimenta/internal/model"
	"github.com/ppiankov/sentimenta/internal/score"
)

var (
	inputFile  string
	noCache    bool
	jsonOutput bool
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [text...]",
	Short: "Score text with a saved model",
	Long: `Score prints the probability that each text is a positive review.

Texts come from the arguments, or one per line from --file ("-" reads stdin).
Words the model never saw are ignored; text with no known words scores the
model's base rate.

Example:
  sentimenta score "amazing, wonderful, delightful"
  sentimenta score --file reviews.txt --model ./model
  cat reviews.txt | sentimenta score --file - --json`,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	addModelFlags(scoreCmd.Flags())
	scoreCmd.Flags().StringVar(&inputFile, "file", "", "read texts from file, one per line (- for stdin)")
	scoreCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable score memoization")
	scoreCmd.Flags().BoolVar(&jsonOutput, "json", false, "print one JSON object per text")
}

func addModelFlags(fs *pflag.FlagSet) {
	def := model.DefaultConfig().Store
	fs.StringVar(&artifactPath, "model", def.Path, "artifact directory (files) or database file (bolt)")
	fs.StringVar(&storeBackend, "store", def.Backend, "artifact store backend (files, bolt)")
}

// loadScorer reads the artifact described by cfg.Store
func loadScorer(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*score.Scorer, *artifact.Bundle, error) {
	store, err := artifact.NewStore(cfg.Store, artifact.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	bundle, err := store.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}
	s, err := score.FromBundle(bundle, cfg.Cache,
		score.WithWorkers(cfg.Concurrency.Workers),
		score.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return s, bundle, nil
}

type scoredText struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, logger, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	texts := args
	if inputFile != "" {
		fileTexts, err := readLines(inputFile)
		if err != nil {
			return err
		}
		texts = append(texts, fileTexts...)
	}
	if len(texts) == 0 {
		return fmt.Errorf("nothing to score: pass text arguments or --file")
	}

	scorer, _, err := loadScorer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	scores, err := scorer.ScoreAll(ctx, texts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for i, text := range texts {
		label := model.Negative
		if scores[i] >= classify.Threshold {
			label = model.Positive
		}
		if jsonOutput {
			if err := enc.Encode(scoredText{Text: text, Score: scores[i], Label: label.String()}); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			continue
		}
		fmt.Printf("%.4f\t%s\t%s\n", scores[i], label, text)
	}

	logger.Debug("scored texts", zap.Int("texts", len(texts)), zap.Int("cached", scorer.CacheLen()))
	return nil
}

// readLines returns the non-blank lines of path, or of stdin for "-"
func readLines(path string) (lines []string, err error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}
