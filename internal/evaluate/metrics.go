// Package evaluate computes held-out classification metrics: accuracy, the
// confusion matrix, ROC-AUC, and precision/recall/F1 for the positive class.
package evaluate

import (
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/ppiankov/sentimenta/internal/classify"
	"github.com/ppiankov/sentimenta/internal/model"
	"github.com/ppiankov/sentimenta/internal/vectorize"
)

// Classifier is anything that yields a positive-class probability
type Classifier interface {
	PredictProba(x vectorize.SparseVector) float64
}

// Evaluate scores every row of X and compares against y. Inputs are not
// modified.
func Evaluate(clf Classifier, X []vectorize.SparseVector, y []model.Label) (model.Metrics, error) {
	if len(X) == 0 {
		return model.Metrics{}, fmt.Errorf("%w: nothing to evaluate", model.ErrInvalidInput)
	}
	if len(X) != len(y) {
		return model.Metrics{}, fmt.Errorf("%w: %d feature rows but %d labels", model.ErrInvalidInput, len(X), len(y))
	}

	scores := make([]float64, len(X))
	for i, x := range X {
		scores[i] = clf.PredictProba(x)
	}
	return FromScores(scores, y)
}

// FromScores computes metrics from precomputed probabilities. Rows of a
// single class still get accuracy and the confusion matrix; ROC-AUC is then
// undefined and reported through Metrics.NoAUC.
func FromScores(scores []float64, y []model.Label) (model.Metrics, error) {
	if len(scores) != len(y) {
		return model.Metrics{}, fmt.Errorf("%w: %d scores but %d labels", model.ErrInvalidInput, len(scores), len(y))
	}

	pred := make([]model.Label, len(scores))
	for i, p := range scores {
		if p >= classify.Threshold {
			pred[i] = model.Positive
		}
	}

	conf, err := Confusion(y, pred)
	if err != nil {
		return model.Metrics{}, err
	}

	m := model.Metrics{
		Samples:   len(y),
		Accuracy:  float64(conf.TN()+conf.TP()) / float64(conf.Total()),
		Confusion: conf,
	}
	if conf.TP()+conf.FN() == 0 || conf.TN()+conf.FP() == 0 {
		m.NoAUC = true
	} else {
		auc, err := ROCAUC(scores, y)
		if err != nil {
			return model.Metrics{}, err
		}
		m.ROCAUC = auc
	}
	m.Precision, m.Recall, m.F1 = PrecisionRecallF1(conf)
	return m, nil
}

// Accuracy is the fraction of predictions equal to the true label
func Accuracy(y, pred []model.Label) (float64, error) {
	conf, err := Confusion(y, pred)
	if err != nil {
		return 0, err
	}
	return float64(conf.TN()+conf.TP()) / float64(conf.Total()), nil
}

// Confusion counts predictions into a [true][predicted] table
func Confusion(y, pred []model.Label) (model.Confusion, error) {
	var c model.Confusion
	if len(y) == 0 {
		return c, fmt.Errorf("%w: no labels", model.ErrInvalidInput)
	}
	if len(y) != len(pred) {
		return c, fmt.Errorf("%w: %d labels but %d predictions", model.ErrInvalidInput, len(y), len(pred))
	}
	for i := range y {
		if !y[i].Valid() || !pred[i].Valid() {
			return c, fmt.Errorf("%w: row %d has label %d, prediction %d", model.ErrInvalidInput, i, y[i], pred[i])
		}
		c[y[i]][pred[i]]++
	}
	return c, nil
}

// PrecisionRecallF1 derives positive-class metrics. A zero denominator
// yields 0.
func PrecisionRecallF1(c model.Confusion) (precision, recall, f1 float64) {
	if d := c.TP() + c.FP(); d > 0 {
		precision = float64(c.TP()) / float64(d)
	}
	if d := c.TP() + c.FN(); d > 0 {
		recall = float64(c.TP()) / float64(d)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// ROCAUC is the area under the ROC curve of scores against y. It equals the
// probability that a random positive outscores a random negative, with tied
// pairs counting one half.
func ROCAUC(scores []float64, y []model.Label) (float64, error) {
	if len(scores) != len(y) {
		return 0, fmt.Errorf("%w: %d scores but %d labels", model.ErrInvalidInput, len(scores), len(y))
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	classes := make([]bool, len(y))
	var pos, neg int
	for i, label := range y {
		switch label {
		case model.Positive:
			classes[i] = true
			pos++
		case model.Negative:
			neg++
		default:
			return 0, fmt.Errorf("%w: row %d has label %d", model.ErrInvalidInput, i, label)
		}
	}
	if pos == 0 || neg == 0 {
		return 0, fmt.Errorf("%w: ROC-AUC needs both classes (got %d positive, %d negative)", model.ErrInvalidInput, pos, neg)
	}

	stat.SortWeightedLabeled(sorted, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}
