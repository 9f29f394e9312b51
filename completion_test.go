package itemgate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletion_ResolvesOnce(t *testing.T) {
	c := newCompletion[string]()

	var wg sync.WaitGroup
	wins := make(chan bool, 10)
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				wins <- c.resolve("finish", nil)
			} else {
				wins <- c.resolve("", errors.New("error"))
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for won := range wins {
		if won {
			count++
		}
	}
	assert.Equal(t, 1, count)

	v, err := c.wait(context.Background())
	if err == nil {
		assert.Equal(t, "finish", v)
	} else {
		assert.Empty(t, v)
	}
}

func TestCompletion_WaitCancelled(t *testing.T) {
	c := newCompletion[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.False(t, c.resolve(42, nil), "late producer must lose")
	v, err := c.wait(context.Background())
	assert.Equal(t, 0, v)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompletion_ResolvedBeforeWait(t *testing.T) {
	c := newCompletion[int]()
	assert.True(t, c.resolve(7, nil))

	v, err := c.wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
}
