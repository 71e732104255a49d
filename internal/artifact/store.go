package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ppiankov/sentimenta/internal/logging"
	"github.com/ppiankov/sentimenta/internal/model"
)

// Store saves and loads bundles
type Store interface {
	Save(ctx context.Context, b *Bundle) error
	Load(ctx context.Context) (*Bundle, error)
	Location() string
}

// NewStore returns the backend named by cfg.Backend
func NewStore(cfg model.StoreConfig, opts ...Option) (Store, error) {
	switch cfg.Backend {
	case "", "files":
		return NewFileStore(cfg.Path, opts...), nil
	case "bolt":
		return NewBoltStore(cfg.Path, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q (want files or bolt)", model.ErrInvalidInput, cfg.Backend)
	}
}

// Option configures a store
type Option func(*options)

type options struct {
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// WithLogger logs retries to logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBackOff overrides the retry schedule (tests use backoff.ZeroBackOff)
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(o *options) {
		o.newBackOff = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{newBackOff: defaultBackOff}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrNop(o.logger)
	return o
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

// retry runs op, retrying a transient failure once. Missing files and
// errors wrapped with backoff.Permanent are not retried.
func (o options) retry(ctx context.Context, what string, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(o.newBackOff(), 1), ctx)

	wrapped := func() error {
		err := op()
		if err != nil && errors.Is(err, fs.ErrNotExist) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		o.logger.Warn("artifact I/O failed, retrying",
			zap.String("op", what),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	return backoff.RetryNotify(wrapped, b, notify)
}
