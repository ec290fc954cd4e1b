package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_MemoizesUntilTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string](time.Minute, nil)
	c.now = func() time.Time { return now }

	var loads int
	load := func(context.Context) (string, error) {
		loads++
		return "v", nil
	}

	for range 3 {
		v, err := c.Get(context.Background(), "zh", load)
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	}
	assert.Equal(t, 1, loads)

	now = now.Add(2 * time.Minute)
	_, err := c.Get(context.Background(), "zh", load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestGet_Invalidate(t *testing.T) {
	c := New[int](0, nil)
	var n int
	load := func(context.Context) (int, error) {
		n++
		return n, nil
	}

	v, _ := c.Get(context.Background(), "k", load)
	assert.Equal(t, 1, v)
	v, _ = c.Get(context.Background(), "k", load)
	assert.Equal(t, 1, v)

	c.Invalidate()
	assert.Equal(t, 0, c.Len())
	v, _ = c.Get(context.Background(), "k", load)
	assert.Equal(t, 2, v)
}

func TestGet_ErrorsAreNotCached(t *testing.T) {
	c := New[int](time.Hour, nil)
	boom := errors.New("boom")

	_, err := c.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestGet_SingleFlight(t *testing.T) {
	var hits, misses atomic.Int32
	c := New[int](time.Hour, func(hit bool) {
		if hit {
			hits.Add(1)
		} else {
			misses.Add(1)
		}
	})

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		loads.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), "k", load)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	// 等所有 goroutine 都进入 miss 路径
	require.Eventually(t, func() bool { return misses.Load() == 8 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, int32(0), hits.Load())
}
