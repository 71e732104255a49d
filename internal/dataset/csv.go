package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/sentimenta/internal/model"
)

// LoadCSV reads reviews from a CSV file whose header names the text and
// label columns
func LoadCSV(path, textField, labelField string) ([]model.Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f, textField, labelField)
}

// ReadCSV parses reviews from r. Field order in the file does not matter;
// extra columns are ignored.
func ReadCSV(r io.Reader, textField, labelField string) ([]model.Review, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: dataset is empty", model.ErrInvalidInput)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	textCol, labelCol := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case textField:
			textCol = i
		case labelField:
			labelCol = i
		}
	}
	if textCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("%w: header %v lacks %q or %q", model.ErrInvalidInput, header, textField, labelField)
	}

	var reviews []model.Review
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if textCol >= len(record) || labelCol >= len(record) {
			return nil, fmt.Errorf("%w: line %d has %d fields", model.ErrInvalidInput, line, len(record))
		}

		label, err := ParseLabel(record[labelCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		reviews = append(reviews, model.Review{
			Text:      record[textCol],
			Sentiment: label,
		})
	}

	return reviews, nil
}
