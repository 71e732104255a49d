package vectorize

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/sentimenta/internal/model"
)

func testConfig(minDF int) model.VectorizerConfig {
	cfg := model.DefaultVectorizerConfig()
	cfg.MinDF = minDF
	return cfg
}

func TestAnalyzer_Normalize(t *testing.T) {
	a, err := NewAnalyzer(model.DefaultVectorizerConfig())
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "GREAT Movie", "great movie"},
		{"punctuation becomes space", "great,fun!!", "great fun"},
		{"collapse whitespace", "  a \t b\n\nc ", "a b c"},
		{"accents stripped", "Café naïve", "cafe naive"},
		{"symbols removed", "5/5 $$$ <3", "5 5 3"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAnalyzer_Tokens(t *testing.T) {
	a, err := NewAnalyzer(model.DefaultVectorizerConfig())
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"stop words removed", "This was an amazing film", []string{"amazing", "film"}},
		{"mixed alphanumeric dropped", "the l3ines were 42 great", []string{"great"}},
		{"single letters dropped", "a b c okay", []string{"okay"}},
		{"only stop words", "the and of it was", nil},
		{"only punctuation", "?!... ,,,", nil},
		{"sharp s kept whole", "straße", []string{"straße"}},
		{"slashed o kept whole", "smørrebrød", []string{"smørrebrød"}},
		{"stroke letter kept, accents stripped", "Łódź film", []string{"łodz", "film"}},
		{"cyrillic", "отличное кино", []string{"отличное", "кино"}},
		{"letters glued to digits dropped", "кино2 film", []string{"film"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Tokens(tt.input)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokens(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAnalyzer_KeepsAccentsWhenNotStripping(t *testing.T) {
	cfg := model.DefaultVectorizerConfig()
	cfg.StripAccents = false
	a, err := NewAnalyzer(cfg)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	got := a.Tokens("Naïve café, déjà vu")
	want := []string{"naïve", "café", "déjà", "vu"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}
}

func TestAnalyzer_PatternMustMatchWholeRun(t *testing.T) {
	cfg := model.DefaultVectorizerConfig()
	cfg.StopWords = "none"
	cfg.TokenPattern = `[a-z]{3}`
	a, err := NewAnalyzer(cfg)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	got := a.Tokens("bad films are fun")
	want := []string{"bad", "are", "fun"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}
}

func TestAnalyzer_BigramsSkipStopWords(t *testing.T) {
	a, err := NewAnalyzer(model.DefaultVectorizerConfig())
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	got := a.Analyze("The acting was superb and moving")
	want := []string{"acting", "superb", "moving", "acting superb", "superb moving"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze = %v, want %v", got, want)
	}
}

func TestAnalyzer_CustomStopWords(t *testing.T) {
	cfg := model.DefaultVectorizerConfig()
	cfg.StopWords = "none"
	cfg.ExtraStopWords = []string{"I", "We", "you", "the", "and", "am", "are"}
	a, err := NewAnalyzer(cfg)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	got := a.Tokens("We are not amused by the film")
	want := []string{"not", "amused", "by", "film"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}
}

func TestAnalyzer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.VectorizerConfig)
	}{
		{"bad pattern", func(c *model.VectorizerConfig) { c.TokenPattern = "([a-z" }},
		{"inverted range", func(c *model.VectorizerConfig) { c.NgramMin, c.NgramMax = 2, 1 }},
		{"zero range", func(c *model.VectorizerConfig) { c.NgramMin = 0 }},
		{"unknown preset", func(c *model.VectorizerConfig) { c.StopWords = "klingon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultVectorizerConfig()
			tt.mutate(&cfg)
			_, err := NewAnalyzer(cfg)
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestVectorizer_MinDF(t *testing.T) {
	corpus := []string{
		"great movie great cast",
		"great story",
		"boring movie",
		"rare gem",
	}

	v, err := New(testConfig(2), WithWorkers(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.Fit(context.Background(), corpus); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// "great" appears in 2 docs, "movie" in 2; everything else in 1
	want := map[string]int{"great": 0, "movie": 1}
	if got := v.Vocabulary(); !reflect.DeepEqual(got, want) {
		t.Errorf("Vocabulary = %v, want %v", got, want)
	}

	vec := v.Transform("Great, great movie! Unseen words vanish.")
	if vec.Dim != 2 {
		t.Errorf("Dim = %d, want 2", vec.Dim)
	}
	if vec.Get(0) != 2 || vec.Get(1) != 1 {
		t.Errorf("counts = %v, want great=2 movie=1", vec.ToDense())
	}
}

func TestVectorizer_EmptyCorpus(t *testing.T) {
	v, err := New(testConfig(20))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := v.Fit(context.Background(), nil); err != nil {
		t.Fatalf("Fit on empty corpus should not fail: %v", err)
	}
	if v.Size() != 0 {
		t.Errorf("expected empty vocabulary, got %d", v.Size())
	}

	// No term reaches min_df
	if err := v.Fit(context.Background(), []string{"lonely words here"}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if v.Size() != 0 {
		t.Errorf("expected empty vocabulary, got %d", v.Size())
	}

	vec := v.Transform("lonely words")
	if vec.Nnz() != 0 {
		t.Errorf("expected all-zero vector, got %v", vec)
	}
}

func TestVectorizer_Deterministic(t *testing.T) {
	corpus := make([]string, 0, 60)
	for i := 0; i < 20; i++ {
		corpus = append(corpus,
			"wonderful film with a brilliant cast",
			"terrible plot and awful acting",
			"brilliant direction, wonderful score",
		)
	}

	fit := func() *Vectorizer {
		v, err := New(testConfig(5), WithWorkers(4))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := v.Fit(context.Background(), corpus); err != nil {
			t.Fatalf("Fit: %v", err)
		}
		return v
	}

	a, b := fit(), fit()
	if !reflect.DeepEqual(a.Vocabulary(), b.Vocabulary()) {
		t.Fatal("vocabularies differ between identical fits")
	}

	probe := "A wonderful, brilliant cast in a terrible plot"
	if !a.Transform(probe).Equal(b.Transform(probe)) {
		t.Error("feature vectors differ between identical fits")
	}
}

func TestVectorizer_FitTransformMatchesTransformAll(t *testing.T) {
	corpus := []string{
		"good good fun",
		"good fun times",
		"bad times",
		"bad bad fun",
	}

	v, err := New(testConfig(2), WithWorkers(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fitted, err := v.FitTransform(context.Background(), corpus)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	again, err := v.TransformAll(context.Background(), corpus)
	if err != nil {
		t.Fatalf("TransformAll: %v", err)
	}

	if len(fitted) != len(corpus) || len(again) != len(corpus) {
		t.Fatalf("length mismatch: %d, %d", len(fitted), len(again))
	}
	for i := range corpus {
		if !fitted[i].Equal(again[i]) {
			t.Errorf("row %d: FitTransform %v != TransformAll %v", i, fitted[i], again[i])
		}
	}
}

func TestVectorizer_InverseTransform(t *testing.T) {
	corpus := []string{
		"superb acting superb story",
		"superb acting",
	}
	v, err := New(testConfig(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.Fit(context.Background(), corpus); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	got := v.InverseTransform(v.Transform("Story: superb acting. Missing words."))
	want := []string{"acting", "story", "superb", "superb acting"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InverseTransform = %v, want %v", got, want)
	}
}

func TestFromVocabulary(t *testing.T) {
	cfg := testConfig(1)

	v, err := FromVocabulary(cfg, map[string]int{"good": 1, "bad": 0})
	if err != nil {
		t.Fatalf("FromVocabulary: %v", err)
	}
	if term, _ := v.Term(1); term != "good" {
		t.Errorf("Term(1) = %q, want good", term)
	}
	if v.Transform("good good bad").Get(1) != 2 {
		t.Error("expected count 2 for good")
	}

	_, err = FromVocabulary(cfg, map[string]int{"good": 0, "bad": 0})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("duplicate index: expected ErrInvalidInput, got %v", err)
	}

	_, err = FromVocabulary(cfg, map[string]int{"good": 5})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("out of range index: expected ErrInvalidInput, got %v", err)
	}
}

func TestSparseVector(t *testing.T) {
	sv := NewSparseVector(5, map[int]float64{3: 2, 0: 1, 4: 0})
	if !reflect.DeepEqual(sv.Indices, []int{0, 3}) {
		t.Errorf("Indices = %v, want [0 3]", sv.Indices)
	}
	if got := sv.Dot([]float64{1, 1, 1, 0.5, 9}); got != 2 {
		t.Errorf("Dot = %v, want 2", got)
	}

	dst := make([]float64, 5)
	sv.AddScaledTo(dst, -2)
	if !reflect.DeepEqual(dst, []float64{-2, 0, 0, -4, 0}) {
		t.Errorf("AddScaledTo = %v", dst)
	}
	if !reflect.DeepEqual(sv.ToDense(), []float64{1, 0, 0, 2, 0}) {
		t.Errorf("ToDense = %v", sv.ToDense())
	}
}

func FuzzAnalyzer(f *testing.F) {
	f.Add("This was an amazing, wonderful, delightful film!")
	f.Add("")
	f.Add("l3ines 42 ??? café")
	f.Add(strings.Repeat("good ", 50))

	a, err := NewAnalyzer(model.DefaultVectorizerConfig())
	if err != nil {
		f.Fatalf("NewAnalyzer: %v", err)
	}

	f.Fuzz(func(t *testing.T, s string) {
		for _, gram := range a.Analyze(s) {
			if gram == "" || strings.Contains(gram, "  ") {
				t.Errorf("malformed n-gram %q", gram)
			}
			for _, tok := range strings.Split(gram, " ") {
				if a.IsStopWord(tok) {
					t.Errorf("stop word %q survived in %q", tok, gram)
				}
			}
		}
	})
}
