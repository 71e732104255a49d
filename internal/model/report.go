package model

import "time"

// Report is the complete output of a training or evaluation run
type Report struct {
	Subject     string           `json:"subject"`            // Dataset name (file base name or query)
	Source      string           `json:"source"`             // Path the reviews were read from
	GeneratedAt time.Time        `json:"generated_at"`
	Dataset     DatasetStats     `json:"dataset"`            // Row counts before and after dedup
	Training    *TrainSummary    `json:"training,omitempty"` // Absent for evaluate-only runs
	Metrics     Metrics          `json:"metrics"`            // Held-out metrics
	Vectorizer  VectorizerConfig `json:"vectorizer"`
	TopFeatures *FeatureSummary  `json:"top_features,omitempty"`
}

// DatasetStats describes the rows that went into a run
type DatasetStats struct {
	Rows       int `json:"rows"`
	Duplicates int `json:"duplicates"`
	Conflicts  int `json:"conflicts"` // Same text, different label; first label kept
	Unique     int `json:"unique"`
	Negative   int `json:"negative"`
	Positive   int `json:"positive"`
	Train      int `json:"train"`
	Test       int `json:"test"`
}

// TrainSummary records how the optimizer behaved
type TrainSummary struct {
	VocabularySize int           `json:"vocabulary_size"`
	FitScope       string        `json:"fit_scope"`
	Iterations     int           `json:"iterations"`
	Evaluations    int           `json:"evaluations"`
	Converged      bool          `json:"converged"`
	Status         string        `json:"status"`
	Loss           float64       `json:"loss"`
	Bias           float64       `json:"bias"`
	Seed           uint64        `json:"seed"`
	Duration       time.Duration `json:"duration_ns"`
}

// Metrics are held-out classification metrics
type Metrics struct {
	Samples   int       `json:"samples"`
	Accuracy  float64   `json:"accuracy"`
	ROCAUC    float64   `json:"roc_auc"`
	NoAUC     bool      `json:"roc_auc_undefined,omitempty"` // single-class rows; ROCAUC stays 0
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	Confusion Confusion `json:"confusion"`
}

// Confusion is a 2x2 table indexed [true label][predicted label]
type Confusion [2][2]int

// TN returns true negatives
func (c Confusion) TN() int { return c[Negative][Negative] }

// FP returns false positives
func (c Confusion) FP() int { return c[Negative][Positive] }

// FN returns false negatives
func (c Confusion) FN() int { return c[Positive][Negative] }

// TP returns true positives
func (c Confusion) TP() int { return c[Positive][Positive] }

// Total returns the number of counted predictions
func (c Confusion) Total() int { return c.TN() + c.FP() + c.FN() + c.TP() }

// Feature is a vocabulary term with its learned coefficient
type Feature struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// FeatureSummary lists the strongest terms in each direction
type FeatureSummary struct {
	Positive []Feature `json:"positive"`
	Negative []Feature `json:"negative"`
}
