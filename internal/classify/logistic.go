// Package classify implements L2-regularized binary logistic regression over
// sparse count vectors, trained with gonum's L-BFGS.
package classify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/ppiankov/sentimenta/internal/logging"
	"github.com/ppiankov/sentimenta/internal/model"
	"github.com/ppiankov/sentimenta/internal/vectorize"
)

// Threshold is the probability at or above which Predict returns Positive
const Threshold = 0.5

var errCanceled = errors.New("fit canceled")

// statusCanceled stops the optimizer when the fit context is done
var statusCanceled = optimize.NewStatus("Canceled", true, errCanceled)

// Model holds fitted parameters. It is immutable; accessors return copies.
type Model struct {
	weights []float64
	bias    float64
}

// FitResult describes how the optimizer terminated
type FitResult struct {
	Iterations  int
	Evaluations int
	Converged   bool
	Status      string
	Loss        float64
}

// Warning returns model.ErrConvergence when the optimizer stopped early
func (r FitResult) Warning() error {
	if r.Converged {
		return nil
	}
	return fmt.Errorf("%w: stopped with status %s after %d iterations", model.ErrConvergence, r.Status, r.Iterations)
}

// Option configures Fit
type Option func(*fitOptions)

type fitOptions struct {
	logger *zap.Logger
}

// WithLogger reports convergence warnings to logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *fitOptions) {
		o.logger = logger
	}
}

// New rebuilds a model from persisted parameters
func New(weights []float64, bias float64) (*Model, error) {
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %d is %v", model.ErrInvalidInput, i, w)
		}
	}
	if math.IsNaN(bias) || math.IsInf(bias, 0) {
		return nil, fmt.Errorf("%w: bias is %v", model.ErrInvalidInput, bias)
	}
	w := make([]float64, len(weights))
	copy(w, weights)
	return &Model{weights: w, bias: bias}, nil
}

// Fit minimizes the regularized log-loss
//
//	sum_i logloss(y_i, sigmoid(w.x_i + b)) + ||w||^2 / (2C)
//
// starting from all-zero parameters. Training has no randomness, so the same
// inputs always give the same model. Hitting MaxIter or a line-search stall
// is reported through FitResult.Converged, not as an error.
func Fit(ctx context.Context, X []vectorize.SparseVector, y []model.Label, dim int, cfg model.ClassifierConfig, opts ...Option) (*Model, FitResult, error) {
	o := fitOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrNop(o.logger)

	if err := validate(X, y, dim, cfg); err != nil {
		return nil, FitResult{}, err
	}

	obj := &objective{X: X, y: y, dim: dim, lambda: 1 / (2 * cfg.C)}
	problem := optimize.Problem{
		Func: obj.loss,
		Grad: obj.grad,
	}

	settings := &optimize.Settings{
		MajorIterations:   cfg.MaxIter,
		GradientThreshold: cfg.Tol,
		Converger:         &ctxConverger{ctx: ctx, next: &optimize.FunctionConverge{Absolute: 1e-10, Iterations: 100}},
	}
	memory := cfg.Memory
	if memory <= 0 {
		memory = 10
	}

	init := make([]float64, dim+1)
	result, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{Store: memory})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, FitResult{}, fmt.Errorf("fit classifier: %w", ctxErr)
	}
	if result == nil {
		return nil, FitResult{}, fmt.Errorf("fit classifier: %w", err)
	}

	fr := FitResult{
		Iterations:  result.Stats.MajorIterations,
		Evaluations: result.Stats.FuncEvaluations,
		Converged:   err == nil && converged(result.Status),
		Status:      result.Status.String(),
		Loss:        result.F,
	}
	if !fr.Converged {
		fields := []zap.Field{
			zap.String("status", fr.Status),
			zap.Int("iterations", fr.Iterations),
			zap.Float64("loss", fr.Loss),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logger.Warn("logistic regression did not converge; increase max_iter or rescale the data", fields...)
	}

	x := result.X
	if anyNonFinite(x) {
		return nil, fr, fmt.Errorf("fit classifier: optimizer produced non-finite parameters (status %s)", fr.Status)
	}

	m := &Model{
		weights: make([]float64, dim),
		bias:    x[dim],
	}
	copy(m.weights, x[:dim])

	logger.Debug("classifier fitted",
		zap.Int("dim", dim),
		zap.Int("samples", len(X)),
		zap.Int("iterations", fr.Iterations),
		zap.Bool("converged", fr.Converged),
		zap.Float64("loss", fr.Loss),
	)
	return m, fr, nil
}

func validate(X []vectorize.SparseVector, y []model.Label, dim int, cfg model.ClassifierConfig) error {
	switch {
	case len(X) == 0 || len(y) == 0:
		return fmt.Errorf("%w: no training samples", model.ErrInvalidInput)
	case len(X) != len(y):
		return fmt.Errorf("%w: %d feature rows but %d labels", model.ErrInvalidInput, len(X), len(y))
	case dim < 0:
		return fmt.Errorf("%w: negative dimension %d", model.ErrInvalidInput, dim)
	case cfg.C <= 0 || math.IsNaN(cfg.C) || math.IsInf(cfg.C, 0):
		return fmt.Errorf("%w: C must be a positive finite number, got %v", model.ErrInvalidInput, cfg.C)
	case cfg.MaxIter < 1:
		return fmt.Errorf("%w: max_iter must be at least 1, got %d", model.ErrInvalidInput, cfg.MaxIter)
	case cfg.Tol < 0:
		return fmt.Errorf("%w: tol must not be negative, got %v", model.ErrInvalidInput, cfg.Tol)
	}

	for i, label := range y {
		if !label.Valid() {
			return fmt.Errorf("%w: label %d at row %d is not 0 or 1", model.ErrInvalidInput, int(label), i)
		}
	}
	for i, x := range X {
		if x.Dim != dim {
			return fmt.Errorf("%w: row %d has dimension %d, want %d", model.ErrInvalidInput, i, x.Dim, dim)
		}
	}
	return nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.MethodConverge, optimize.StepConvergence:
		return true
	}
	return false
}

func anyNonFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// PredictProba returns sigmoid(w.x + b)
func (m *Model) PredictProba(x vectorize.SparseVector) float64 {
	return Sigmoid(m.Decision(x))
}

// Predict returns Positive when PredictProba(x) >= Threshold
func (m *Model) Predict(x vectorize.SparseVector) model.Label {
	if m.PredictProba(x) >= Threshold {
		return model.Positive
	}
	return model.Negative
}

// Decision returns the raw margin w.x + b
func (m *Model) Decision(x vectorize.SparseVector) float64 {
	return x.Dot(m.weights) + m.bias
}

// Weights returns a copy of the coefficient vector
func (m *Model) Weights() []float64 {
	w := make([]float64, len(m.weights))
	copy(w, m.weights)
	return w
}

// Bias returns the intercept
func (m *Model) Bias() float64 {
	return m.bias
}

// Dim returns the number of coefficients
func (m *Model) Dim() int {
	return len(m.weights)
}

// TopFeatures returns the k most positive and k most negative terms.
// terms[i] names coefficient i.
func (m *Model) TopFeatures(terms []string, k int) model.FeatureSummary {
	n := len(m.weights)
	if len(terms) < n {
		n = len(terms)
	}
	if k > n {
		k = n
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		wa, wb := m.weights[idx[a]], m.weights[idx[b]]
		if wa != wb {
			return wa > wb
		}
		return terms[idx[a]] < terms[idx[b]]
	})

	var summary model.FeatureSummary
	for _, i := range idx[:k] {
		if m.weights[i] > 0 {
			summary.Positive = append(summary.Positive, model.Feature{Term: terms[i], Weight: m.weights[i]})
		}
	}
	for j := n - 1; j >= n-k; j-- {
		i := idx[j]
		if m.weights[i] < 0 {
			summary.Negative = append(summary.Negative, model.Feature{Term: terms[i], Weight: m.weights[i]})
		}
	}
	return summary
}

// Sigmoid is the logistic function, evaluated without overflow
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1 + e^t)
func softplus(t float64) float64 {
	return math.Max(t, 0) + math.Log1p(math.Exp(-math.Abs(t)))
}

// objective is the regularized negative log-likelihood. Parameters are laid
// out as [w_0 ... w_{dim-1}, b].
type objective struct {
	X      []vectorize.SparseVector
	y      []model.Label
	dim    int
	lambda float64
}

func (o *objective) loss(params []float64) float64 {
	w, b := params[:o.dim], params[o.dim]

	var sum float64
	for i, x := range o.X {
		z := x.Dot(w) + b
		if o.y[i] == model.Positive {
			sum += softplus(-z)
		} else {
			sum += softplus(z)
		}
	}
	return sum + o.lambda*floats.Dot(w, w)
}

func (o *objective) grad(grad, params []float64) {
	w, b := params[:o.dim], params[o.dim]

	for i := range grad {
		grad[i] = 0
	}
	gw := grad[:o.dim]

	var gb float64
	for i, x := range o.X {
		r := Sigmoid(x.Dot(w)+b) - float64(o.y[i])
		x.AddScaledTo(gw, r)
		gb += r
	}
	floats.AddScaled(gw, 2*o.lambda, w)
	grad[o.dim] = gb
}

// ctxConverger aborts the optimization once ctx is done and otherwise
// defers to next
type ctxConverger struct {
	ctx  context.Context
	next optimize.Converger
}

func (c *ctxConverger) Init(dim int) {
	c.next.Init(dim)
}

func (c *ctxConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.ctx.Err() != nil {
		return statusCanceled
	}
	return c.next.Converged(loc)
}
