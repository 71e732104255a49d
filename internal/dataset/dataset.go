// Package dataset loads labelled reviews and prepares them for training:
// deduplication, class balance and a deterministic train/test split.
package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/ppiankov/sentimenta/internal/model"
)

// DedupStats reports what Dedup removed
type DedupStats struct {
	Rows       int // input rows
	Duplicates int // exact text+label repeats
	Conflicts  int // repeated text with a different label
	Unique     int // surviving rows
}

// Dedup keeps the first occurrence of every distinct text. Afterwards no two
// reviews share identical text; on a label conflict the first label wins.
func Dedup(reviews []model.Review) ([]model.Review, DedupStats) {
	stats := DedupStats{Rows: len(reviews)}
	first := make(map[string]model.Label, len(reviews))
	out := make([]model.Review, 0, len(reviews))

	for _, r := range reviews {
		label, seen := first[r.Text]
		if !seen {
			first[r.Text] = r.Sentiment
			out = append(out, r)
			continue
		}
		if label == r.Sentiment {
			stats.Duplicates++
		} else {
			stats.Conflicts++
		}
	}

	stats.Unique = len(out)
	return out, stats
}

// Split shuffles reviews with a seeded PCG source and holds out
// ceil(len*testFraction) of them, stratified by label: each class gives up
// its proportional share, and a class with at least two reviews always
// lands on both sides. The same seed and input always give the same split.
func Split(reviews []model.Review, testFraction float64, seed uint64) (train, test []model.Review, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("%w: test fraction %.3f must be in (0, 1)", model.ErrInvalidInput, testFraction)
	}

	nTest := int(math.Ceil(float64(len(reviews)) * testFraction))
	if nTest >= len(reviews) {
		nTest = len(reviews) - 1
	}
	if nTest < 1 {
		return nil, nil, fmt.Errorf("%w: %d reviews cannot be split into non-empty train and test sets", model.ErrInvalidInput, len(reviews))
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	classes := groupByLabel(reviews)
	quota := allocate(classes, len(reviews), nTest)

	for i, group := range classes {
		rng.Shuffle(len(group), func(a, b int) {
			group[a], group[b] = group[b], group[a]
		})
		cut := len(group) - quota[i]
		train = append(train, group[:cut]...)
		test = append(test, group[cut:]...)
	}

	rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
	rng.Shuffle(len(test), func(a, b int) { test[a], test[b] = test[b], test[a] })
	return train, test, nil
}

// groupByLabel copies reviews into one slice per label, in ascending label
// order, keeping input order within a label
func groupByLabel(reviews []model.Review) [][]model.Review {
	byLabel := make(map[model.Label][]model.Review)
	var labels []model.Label
	for _, r := range reviews {
		if _, ok := byLabel[r.Sentiment]; !ok {
			labels = append(labels, r.Sentiment)
		}
		byLabel[r.Sentiment] = append(byLabel[r.Sentiment], r)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	groups := make([][]model.Review, len(labels))
	for i, l := range labels {
		groups[i] = byLabel[l]
	}
	return groups
}

// allocate splits nTest held-out rows across classes by largest remainder,
// then moves each class with two or more rows into [1, size-1]
func allocate(classes [][]model.Review, total, nTest int) []int {
	quota := make([]int, len(classes))
	frac := make([]float64, len(classes))
	assigned := 0
	for i, group := range classes {
		exact := float64(len(group)) * float64(nTest) / float64(total)
		quota[i] = int(math.Floor(exact))
		frac[i] = exact - float64(quota[i])
		assigned += quota[i]
	}

	order := make([]int, len(classes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return frac[order[a]] > frac[order[b]] })
	for k := 0; assigned < nTest && k < len(order); k++ {
		quota[order[k]]++
		assigned++
	}

	for i, group := range classes {
		if len(group) < 2 {
			continue
		}
		if quota[i] < 1 {
			quota[i] = 1
		}
		if quota[i] > len(group)-1 {
			quota[i] = len(group) - 1
		}
	}
	return quota
}

// Texts returns the review texts in order
func Texts(reviews []model.Review) []string {
	out := make([]string, len(reviews))
	for i, r := range reviews {
		out[i] = r.Text
	}
	return out
}

// Labels returns the review labels in order
func Labels(reviews []model.Review) []model.Label {
	out := make([]model.Label, len(reviews))
	for i, r := range reviews {
		out[i] = r.Sentiment
	}
	return out
}

// ClassBalance counts negative and positive reviews
func ClassBalance(reviews []model.Review) (negative, positive int) {
	for _, r := range reviews {
		if r.Sentiment == model.Positive {
			positive++
		} else {
			negative++
		}
	}
	return negative, positive
}

// ParseLabel accepts the integer encodings 0 and 1
func ParseLabel(raw string) (model.Label, error) {
	switch strings.TrimSpace(raw) {
	case "0":
		return model.Negative, nil
	case "1":
		return model.Positive, nil
	default:
		return 0, fmt.Errorf("%w: sentiment %q is not 0 or 1", model.ErrInvalidInput, raw)
	}
}
