package worker

import (
	"context"
	"fmt"
)

type rowJob[T any] struct {
	row int
	fn  func(ctx context.Context, i int) (T, error)
}

func (j rowJob[T]) Row() int { return j.row }

func (j rowJob[T]) Execute(ctx context.Context) Result {
	v, err := j.fn(ctx, j.row)
	return rowResult[T]{row: j.row, value: v, err: err}
}

type rowResult[T any] struct {
	row   int
	value T
	err   error
}

func (r rowResult[T]) Row() int   { return r.row }
func (r rowResult[T]) Err() error { return r.err }

// Map runs fn for every index in [0, n) on a pool of the given size and
// returns the outputs in index order. On failure the error of the lowest
// failing row is returned. Calls for different rows may run in any order.
func Map[T any](ctx context.Context, workers, n int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	out := make([]T, n)
	if n == 0 {
		return out, nil
	}

	if workers > n {
		workers = n
	}

	pool := NewPool(ctx, workers)
	pool.Start()

	for i := 0; i < n; i++ {
		if !pool.Submit(rowJob[T]{row: i, fn: fn}) {
			break
		}
	}

	slots := pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		if i >= len(slots) || slots[i] == nil {
			return nil, fmt.Errorf("worker pool lost row %d of %d", i, n)
		}
		if err := slots[i].Err(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = slots[i].(rowResult[T]).value
	}

	return out, nil
}
