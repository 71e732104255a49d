package model

import (
	"runtime"
	"time"
)

// Config holds every tunable of a training or scoring run
type Config struct {
	Vectorizer  VectorizerConfig  `yaml:"vectorizer" mapstructure:"vectorizer"`
	Classifier  ClassifierConfig  `yaml:"classifier" mapstructure:"classifier"`
	Split       SplitConfig       `yaml:"split" mapstructure:"split"`
	Dataset     DatasetConfig     `yaml:"dataset" mapstructure:"dataset"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// VectorizerConfig controls text normalization and vocabulary building
type VectorizerConfig struct {
	NgramMin       int      `yaml:"ngram_min" mapstructure:"ngram_min" json:"ngram_min"`
	NgramMax       int      `yaml:"ngram_max" mapstructure:"ngram_max" json:"ngram_max"`
	StopWords      string   `yaml:"stop_words" mapstructure:"stop_words" json:"stop_words"` // "english" or "none"
	ExtraStopWords []string `yaml:"extra_stop_words,omitempty" mapstructure:"extra_stop_words" json:"extra_stop_words,omitempty"`
	MinDF          int      `yaml:"min_df" mapstructure:"min_df" json:"min_df"`
	TokenPattern   string   `yaml:"token_pattern" mapstructure:"token_pattern" json:"token_pattern"`
	Lowercase      bool     `yaml:"lowercase" mapstructure:"lowercase" json:"lowercase"`
	StripAccents   bool     `yaml:"strip_accents" mapstructure:"strip_accents" json:"strip_accents"`
	FitScope       string   `yaml:"fit_scope" mapstructure:"fit_scope" json:"fit_scope"` // "train" or "full"
}

// ClassifierConfig controls logistic regression training
type ClassifierConfig struct {
	C       float64 `yaml:"c" mapstructure:"c" json:"c"` // inverse regularization strength
	MaxIter int     `yaml:"max_iter" mapstructure:"max_iter" json:"max_iter"`
	Tol     float64 `yaml:"tol" mapstructure:"tol" json:"tol"`          // gradient norm threshold
	Memory  int     `yaml:"memory" mapstructure:"memory" json:"memory"` // L-BFGS history size
}

// SplitConfig controls the train/test split
type SplitConfig struct {
	TestSize float64 `yaml:"test_size" mapstructure:"test_size" json:"test_size"`
	Seed     uint64  `yaml:"seed" mapstructure:"seed" json:"seed"`
}

// DatasetConfig describes where labelled reviews come from
type DatasetConfig struct {
	Source     string `yaml:"source" mapstructure:"source"` // "csv" or "sqlite"
	TextField  string `yaml:"text_field" mapstructure:"text_field"`
	LabelField string `yaml:"label_field" mapstructure:"label_field"`
	Query      string `yaml:"query" mapstructure:"query"`
}

// StoreConfig selects the artifact backend
type StoreConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // "files" or "bolt"
	Path    string `yaml:"path" mapstructure:"path"`
}

// CacheConfig configures score memoization
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// ConcurrencyConfig bounds row-parallel work
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Vectorizer: DefaultVectorizerConfig(),
		Classifier: ClassifierConfig{
			C:       1.0,
			MaxIter: 1000,
			Tol:     1e-4,
			Memory:  10,
		},
		Split: SplitConfig{
			TestSize: 0.5,
			Seed:     42,
		},
		Dataset: DatasetConfig{
			Source:     "csv",
			TextField:  "Text",
			LabelField: "Sentiment",
			Query:      "SELECT Text, Sentiment FROM reviews",
		},
		Store: StoreConfig{
			Backend: "files",
			Path:    "./model",
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             10 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultVectorizerConfig returns unigrams and bigrams, English stop words, min_df 20
func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{
		NgramMin:     1,
		NgramMax:     2,
		StopWords:    "english",
		MinDF:        20,
		TokenPattern: `^\p{L}{2,}$`,
		Lowercase:    true,
		StripAccents: true,
		FitScope:     "train",
	}
}
