package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ppiankov/sentimenta/internal/model"
)

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer whose summaries go to out (stdout if nil)
func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{out: out}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes the report as a Markdown document
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	if err := os.WriteFile(path, []byte(Markdown(report)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown formats a report
func Markdown(report *model.Report) string {
	var b strings.Builder
	ds, m := report.Dataset, report.Metrics

	title := "Sentiment model report"
	if report.Training == nil {
		title = "Sentiment model evaluation"
	}
	fmt.Fprintf(&b, "# %s", title)
	if report.Subject != "" {
		fmt.Fprintf(&b, ": %s", report.Subject)
	}
	b.WriteString("\n\n")
	if report.Source != "" {
		fmt.Fprintf(&b, "- Source: `%s`\n", report.Source)
	}
	fmt.Fprintf(&b, "- Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("## Dataset\n\n")
	b.WriteString("| | Rows |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Loaded | %s |\n", humanize.Comma(int64(ds.Rows)))
	fmt.Fprintf(&b, "| Duplicates removed | %s |\n", humanize.Comma(int64(ds.Duplicates)))
	fmt.Fprintf(&b, "| Label conflicts removed | %s |\n", humanize.Comma(int64(ds.Conflicts)))
	fmt.Fprintf(&b, "| Unique | %s |\n", humanize.Comma(int64(ds.Unique)))
	fmt.Fprintf(&b, "| Negative / positive | %s / %s |\n", humanize.Comma(int64(ds.Negative)), humanize.Comma(int64(ds.Positive)))
	if report.Training != nil {
		fmt.Fprintf(&b, "| Train / test | %s / %s |\n", humanize.Comma(int64(ds.Train)), humanize.Comma(int64(ds.Test)))
	}
	b.WriteString("\n")

	if t := report.Training; t != nil {
		b.WriteString("## Training\n\n")
		fmt.Fprintf(&b, "- Vocabulary: %s terms (fit on %s split, min_df %d, n-grams %d-%d)\n",
			humanize.Comma(int64(t.VocabularySize)), t.FitScope, report.Vectorizer.MinDF,
			report.Vectorizer.NgramMin, report.Vectorizer.NgramMax)
		converged := "yes"
		if !t.Converged {
			converged = "no (iteration bound reached; parameters are usable but not optimal)"
		}
		fmt.Fprintf(&b, "- Optimizer: L-BFGS, %d iterations, %d evaluations, status %s\n", t.Iterations, t.Evaluations, t.Status)
		fmt.Fprintf(&b, "- Converged: %s\n", converged)
		fmt.Fprintf(&b, "- Final loss: %.6g\n", t.Loss)
		fmt.Fprintf(&b, "- Bias: %.6g\n", t.Bias)
		fmt.Fprintf(&b, "- Seed: %d\n", t.Seed)
		fmt.Fprintf(&b, "- Duration: %s\n\n", t.Duration.Round(time.Millisecond))
	}

	b.WriteString("## Metrics\n\n")
	fmt.Fprintf(&b, "Evaluated on %s reviews.\n\n", humanize.Comma(int64(m.Samples)))
	b.WriteString("| Metric | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Accuracy | %.4f |\n", m.Accuracy)
	if m.NoAUC {
		b.WriteString("| ROC-AUC | undefined (one class) |\n")
	} else {
		fmt.Fprintf(&b, "| ROC-AUC | %.4f |\n", m.ROCAUC)
	}
	fmt.Fprintf(&b, "| Precision | %.4f |\n", m.Precision)
	fmt.Fprintf(&b, "| Recall | %.4f |\n", m.Recall)
	fmt.Fprintf(&b, "| F1 | %.4f |\n\n", m.F1)

	b.WriteString("### Confusion matrix\n\n")
	b.WriteString("| true \\ predicted | negative | positive |\n|---|---:|---:|\n")
	fmt.Fprintf(&b, "| negative | %s | %s |\n", humanize.Comma(int64(m.Confusion.TN())), humanize.Comma(int64(m.Confusion.FP())))
	fmt.Fprintf(&b, "| positive | %s | %s |\n\n", humanize.Comma(int64(m.Confusion.FN())), humanize.Comma(int64(m.Confusion.TP())))

	if tf := report.TopFeatures; tf != nil && (len(tf.Positive) > 0 || len(tf.Negative) > 0) {
		b.WriteString("## Strongest terms\n\n")
		b.WriteString("| Positive | Weight | Negative | Weight |\n|---|---:|---|---:|\n")
		rows := len(tf.Positive)
		if len(tf.Negative) > rows {
			rows = len(tf.Negative)
		}
		for i := 0; i < rows; i++ {
			var pt, pw, nt, nw string
			if i < len(tf.Positive) {
				pt, pw = tf.Positive[i].Term, fmt.Sprintf("%+.3f", tf.Positive[i].Weight)
			}
			if i < len(tf.Negative) {
				nt, nw = tf.Negative[i].Term, fmt.Sprintf("%+.3f", tf.Negative[i].Weight)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", pt, pw, nt, nw)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderSummary prints a short human-readable summary
func (r *Renderer) RenderSummary(report *model.Report) {
	ds, m := report.Dataset, report.Metrics
	w := r.out

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	if report.Training != nil {
		fmt.Fprintf(w, "  Training Complete\n")
	} else {
		fmt.Fprintf(w, "  Evaluation Complete\n")
	}
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	if report.Subject != "" {
		fmt.Fprintf(w, "  Dataset:      %s\n", report.Subject)
	}
	fmt.Fprintf(w, "  Reviews:      %s unique of %s (%s duplicates, %s conflicts)\n",
		humanize.Comma(int64(ds.Unique)), humanize.Comma(int64(ds.Rows)),
		humanize.Comma(int64(ds.Duplicates)), humanize.Comma(int64(ds.Conflicts)))
	if t := report.Training; t != nil {
		fmt.Fprintf(w, "  Split:        %s train / %s test\n", humanize.Comma(int64(ds.Train)), humanize.Comma(int64(ds.Test)))
		fmt.Fprintf(w, "  Vocabulary:   %s terms\n", humanize.Comma(int64(t.VocabularySize)))
		if t.Converged {
			fmt.Fprintf(w, "  Optimizer:    converged in %d iterations\n", t.Iterations)
		} else {
			fmt.Fprintf(w, "  Optimizer:    ⚠ stopped after %d iterations (%s)\n", t.Iterations, t.Status)
		}
	}
	fmt.Fprintf(w, "  Accuracy:     %.4f\n", m.Accuracy)
	if m.NoAUC {
		fmt.Fprintf(w, "  ROC-AUC:      undefined (test set holds one class)\n")
	} else {
		fmt.Fprintf(w, "  ROC-AUC:      %.4f\n", m.ROCAUC)
	}
	fmt.Fprintf(w, "  F1:           %.4f\n", m.F1)
	fmt.Fprintf(w, "  Confusion:    TN %s  FP %s  FN %s  TP %s\n",
		humanize.Comma(int64(m.Confusion.TN())), humanize.Comma(int64(m.Confusion.FP())),
		humanize.Comma(int64(m.Confusion.FN())), humanize.Comma(int64(m.Confusion.TP())))
	fmt.Fprintf(w, "\n")
}
