package itemgate

import (
	"context"
	"sync"
)

type outcome[T any] struct {
	value T
	err   error
}

// completion is a value that is resolved at most once. Later calls to
// resolve are ignored, so competing producers cannot both deliver a result.
type completion[T any] struct {
	once sync.Once
	done chan struct{}
	out  outcome[T]
}

func newCompletion[T any]() *completion[T] {
	return &completion[T]{done: make(chan struct{})}
}

// resolve stores the result and reports whether this call won.
func (c *completion[T]) resolve(value T, err error) bool {
	won := false
	c.once.Do(func() {
		c.out = outcome[T]{value: value, err: err}
		close(c.done)
		won = true
	})
	return won
}

// wait blocks until the completion resolves or ctx is done. A cancelled
// context resolves the completion with the context error.
func (c *completion[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		var zero T
		c.resolve(zero, ctx.Err())
	}
	return c.out.value, c.out.err
}
