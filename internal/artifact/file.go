package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"

	"github.com/ppiankov/sentimenta/internal/model"
)

const (
	vocabularyFile = "vocabulary.json"
	modelFile      = "model.json"
)

// FileStore keeps an artifact as two JSON files in a directory
type FileStore struct {
	dir  string
	opts options
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string, opts ...Option) *FileStore {
	return &FileStore{
		dir:  dir,
		opts: buildOptions(opts),
	}
}

// Location returns the artifact directory
func (s *FileStore) Location() string {
	return s.dir
}

// Save writes both files. Each file is replaced atomically, so a reader
// never observes a half-written document.
func (s *FileStore) Save(ctx context.Context, b *Bundle) error {
	vocab, mdl, err := b.encode()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	for _, f := range []struct {
		name string
		data []byte
	}{
		{vocabularyFile, vocab},
		{modelFile, mdl},
	} {
		path := filepath.Join(s.dir, f.name)
		err := s.opts.retry(ctx, "save "+f.name, func() error {
			return writeAtomic(path, f.data)
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	s.opts.logger.Debug("artifact saved")
	return nil
}

// Load reads both files. A missing, unreadable or inconsistent artifact is
// reported as model.ErrDataUnavailable.
func (s *FileStore) Load(ctx context.Context) (*Bundle, error) {
	read := func(name string) ([]byte, error) {
		path := filepath.Join(s.dir, name)
		var data []byte
		err := s.opts.retry(ctx, "load "+name, func() error {
			var err error
			data, err = os.ReadFile(path)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", model.ErrDataUnavailable, path, err)
		}
		return data, nil
	}

	vocab, err := read(vocabularyFile)
	if err != nil {
		return nil, err
	}
	mdl, err := read(modelFile)
	if err != nil {
		return nil, err
	}

	b, err := decode(vocab, mdl)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.dir, err)
	}
	return b, nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it over path
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return backoff.Permanent(err)
	}
	return os.Rename(tmpName, path)
}
