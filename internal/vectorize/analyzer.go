package vectorize

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/sentimenta/internal/model"
)

func errUnknownStopWords(preset string) error {
	return fmt.Errorf("%w: unknown stop-word preset %q (supported: english, none)", model.ErrInvalidInput, preset)
}

// Analyzer turns raw text into the n-gram sequence the vocabulary is built from.
// It is safe for concurrent use.
type Analyzer struct {
	cfg     model.VectorizerConfig
	pattern *regexp.Regexp
	stop    map[string]struct{}

	// transform.Chain keeps per-call state, so each goroutine borrows its own
	sanitizers sync.Pool
}

// NewAnalyzer validates cfg and compiles the token pattern
func NewAnalyzer(cfg model.VectorizerConfig) (*Analyzer, error) {
	if cfg.NgramMin < 1 || cfg.NgramMax < cfg.NgramMin {
		return nil, fmt.Errorf("%w: ngram range (%d, %d)", model.ErrInvalidInput, cfg.NgramMin, cfg.NgramMax)
	}
	if cfg.TokenPattern == "" {
		cfg.TokenPattern = model.DefaultVectorizerConfig().TokenPattern
	}

	// A candidate must match the pattern as a whole, not just contain a match
	pattern, err := regexp.Compile(`^(?:` + cfg.TokenPattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("%w: token pattern: %v", model.ErrInvalidInput, err)
	}

	extra := cfg.ExtraStopWords
	if cfg.Lowercase {
		extra = make([]string, len(cfg.ExtraStopWords))
		for i, w := range cfg.ExtraStopWords {
			extra[i] = strings.ToLower(w)
		}
	}
	stop, err := stopWordSet(cfg.StopWords, extra)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		cfg:     cfg,
		pattern: pattern,
		stop:    stop,
	}
	a.sanitizers.New = func() any {
		return a.newSanitizer()
	}
	return a, nil
}

// newSanitizer strips accents (optional) and replaces punctuation and symbols
// with spaces, so "great,fun" still yields two tokens
func (a *Analyzer) newSanitizer() transform.Transformer {
	blank := runes.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	})
	if !a.cfg.StripAccents {
		return blank
	}
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), blank, norm.NFC)
}

// Normalize applies accent stripping, punctuation removal, lowercasing and
// whitespace collapsing
func (a *Analyzer) Normalize(text string) string {
	t := a.sanitizers.Get().(transform.Transformer)
	clean, _, err := transform.String(t, text)
	a.sanitizers.Put(t)
	if err != nil {
		// Only invalid UTF-8 can get here; fall back to the raw text
		clean = text
	}

	if a.cfg.Lowercase {
		clean = strings.ToLower(clean)
	}
	return strings.Join(strings.Fields(clean), " ")
}

// Tokens returns the normalized tokens of text with stop words removed.
// Candidates are maximal runs of letters and digits in any script; a run
// is kept only when the token pattern matches all of it, so "l3ines" is
// dropped instead of yielding "ines".
func (a *Analyzer) Tokens(text string) []string {
	runs := strings.FieldsFunc(a.Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := runs[:0]
	for _, tok := range runs {
		if !a.pattern.MatchString(tok) {
			continue
		}
		if _, stop := a.stop[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Analyze returns every n-gram of the surviving token sequence, in order
func (a *Analyzer) Analyze(text string) []string {
	return ngrams(a.Tokens(text), a.cfg.NgramMin, a.cfg.NgramMax)
}

// IsStopWord reports whether the (already normalized) token is dropped
func (a *Analyzer) IsStopWord(token string) bool {
	_, ok := a.stop[token]
	return ok
}

func ngrams(tokens []string, minN, maxN int) []string {
	if len(tokens) == 0 {
		return nil
	}

	out := make([]string, 0, len(tokens)*(maxN-minN+1))
	for n := minN; n <= maxN; n++ {
		if n == 1 {
			out = append(out, tokens...)
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
