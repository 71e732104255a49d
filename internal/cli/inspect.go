package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <text>",
	Short: "Show how a saved model arrives at a score",
	Long: `Inspect prints the normalized text, the n-grams the model knows, each
n-gram's weight and contribution to the decision value, and the n-grams that
were dropped because they are not in the vocabulary.

Example:
  sentimenta inspect "The acting was superb but the plot dragged"
  sentimenta inspect "not bad at all" --model model.db --store bolt --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	addModelFlags(inspectCmd.Flags())
	inspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the explanation as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	cfg, logger, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	scorer, _, err := loadScorer(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	ex := scorer.Explain(text)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ex)
	}

	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("  Score Breakdown")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  Text:         %s\n", ex.Text)
	fmt.Printf("  Normalized:   %s\n", ex.Normalized)
	fmt.Println()

	if len(ex.Terms) == 0 {
		fmt.Println("  No known n-grams; the score is the model's base rate.")
	} else {
		fmt.Printf("  %-30s %6s %10s %12s\n", "N-GRAM", "COUNT", "WEIGHT", "CONTRIB")
		for _, c := range ex.Terms {
			fmt.Printf("  %-30s %6g %+10.4f %+12.4f\n", c.Term, c.Count, c.Weight, c.Contribution)
		}
	}
	fmt.Println()

	if len(ex.Dropped) > 0 {
		fmt.Printf("  Unknown:      %s\n", strings.Join(ex.Dropped, ", "))
	}
	fmt.Printf("  Bias:         %+.4f\n", ex.Bias)
	fmt.Printf("  Decision:     %+.4f\n", ex.Decision)
	fmt.Printf("  Probability:  %.4f (%s)\n", ex.Probability, ex.Label)
	fmt.Println()

	return nil
}
