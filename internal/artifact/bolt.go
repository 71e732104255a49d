package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	bolt "go.etcd.io/bbolt"

	"github.com/ppiankov/sentimenta/internal/model"
)

var (
	bucketName    = []byte("artifacts")
	vocabularyKey = []byte("vocabulary")
	modelKey      = []byte("model")
)

// BoltStore keeps an artifact as two keys of a single bbolt database file
type BoltStore struct {
	path string
	opts options
}

// NewBoltStore creates a store backed by the database file at path
func NewBoltStore(path string, opts ...Option) *BoltStore {
	return &BoltStore{
		path: path,
		opts: buildOptions(opts),
	}
}

// Location returns the database path
func (s *BoltStore) Location() string {
	return s.path
}

// Save writes both documents in one transaction
func (s *BoltStore) Save(ctx context.Context, b *Bundle) error {
	vocab, mdl, err := b.encode()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}

	err = s.opts.retry(ctx, "save bolt", func() error {
		db, err := bolt.Open(s.path, 0644, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		return db.Update(func(tx *bolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists(bucketName)
			if err != nil {
				return err
			}
			if err := bucket.Put(vocabularyKey, vocab); err != nil {
				return err
			}
			return bucket.Put(modelKey, mdl)
		})
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	s.opts.logger.Debug("artifact saved")
	return nil
}

var errMissingKeys = errors.New("artifact keys missing")

// Load reads both documents. A missing database, bucket or key is reported
// as model.ErrDataUnavailable.
func (s *BoltStore) Load(ctx context.Context) (*Bundle, error) {
	var vocab, mdl []byte

	err := s.opts.retry(ctx, "load bolt", func() error {
		// bolt.Open creates missing files; a read must not
		if _, err := os.Stat(s.path); err != nil {
			return err
		}

		db, err := bolt.Open(s.path, 0644, &bolt.Options{Timeout: time.Second, ReadOnly: true})
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		return db.View(func(tx *bolt.Tx) error {
			bucket := tx.Bucket(bucketName)
			if bucket == nil {
				return backoff.Permanent(errMissingKeys)
			}
			v, m := bucket.Get(vocabularyKey), bucket.Get(modelKey)
			if v == nil || m == nil {
				return backoff.Permanent(errMissingKeys)
			}
			// Values are only valid inside the transaction
			vocab = append([]byte(nil), v...)
			mdl = append([]byte(nil), m...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", model.ErrDataUnavailable, s.path, err)
	}

	b, err := decode(vocab, mdl)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return b, nil
}
