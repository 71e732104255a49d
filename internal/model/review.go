package model

import "fmt"

// Label is the binary sentiment class of a review
type Label int

const (
	Negative Label = 0
	Positive Label = 1
)

func (l Label) String() string {
	switch l {
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Valid reports whether l is one of the two known classes
func (l Label) Valid() bool {
	return l == Negative || l == Positive
}

// Review is a labelled text sample
type Review struct {
	Text      string `json:"text"`
	Sentiment Label  `json:"sentiment"`
}
