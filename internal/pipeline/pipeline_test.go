package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}

	var called int32
	errs := Run(context.Background(), items, 2, func(_ context.Context, i int) error {
		atomic.AddInt32(&called, 1)
		if i == 1 {
			return errors.New("test error")
		}
		return nil
	})

	assert.Equal(t, int32(len(items)), called)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "test error")
}

func TestRunEmpty(t *testing.T) {
	assert.Nil(t, Run(context.Background(), nil, 4, func(context.Context, int) error { return nil }))
	assert.Nil(t, Run[int](context.Background(), []int{1}, 4, nil))
}

func TestRunDefaultWorkers(t *testing.T) {
	var called int32
	errs := Run(context.Background(), make([]string, 50), 0, func(context.Context, string) error {
		atomic.AddInt32(&called, 1)
		return nil
	})
	assert.Empty(t, errs)
	assert.Equal(t, int32(50), called)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errs := Run(ctx, []int{1, 2, 3}, 1, func(context.Context, int) error { return nil })
	require.NotEmpty(t, errs)
	assert.ErrorIs(t, errs[len(errs)-1], context.Canceled)
}
