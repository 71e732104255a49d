package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/sentimenta/internal/model"
)

// LoadSQLite runs query against the SQLite database at path. The query must
// return two columns: the review text and its 0/1 sentiment.
func LoadSQLite(ctx context.Context, path, query string) ([]model.Review, error) {
	// sql.Open would silently create an empty database
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reviews []model.Review
	row := 0
	for rows.Next() {
		row++
		var (
			text  sql.NullString
			label sql.NullInt64
		)
		if err := rows.Scan(&text, &label); err != nil {
			return nil, fmt.Errorf("row %d: scan: %w", row, err)
		}
		if !label.Valid || !model.Label(label.Int64).Valid() {
			return nil, fmt.Errorf("row %d: %w: sentiment %v is not 0 or 1", row, model.ErrInvalidInput, label.Int64)
		}
		reviews = append(reviews, model.Review{
			Text:      text.String,
			Sentiment: model.Label(label.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}
