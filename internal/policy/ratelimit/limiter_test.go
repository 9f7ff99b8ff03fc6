package ratelimit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/feed-snapshot/internal/snapshot"
)

type countingFetcher struct {
	calls atomic.Int32
}

func (c *countingFetcher) Fetch(_ context.Context, req snapshot.FetchRequest) (snapshot.FetchResponse, error) {
	c.calls.Add(1)
	return snapshot.FetchResponse{URL: req.URL, StatusCode: 200}, nil
}

func TestLimiterWaitSpacesRequestsPerHost(t *testing.T) {
	l := New(Config{RPS: 10, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://example.com/a"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://example.com/b"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	start = time.Now()
	require.NoError(t, l.Wait(ctx, "https://other.example.com/a"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterDisabledNeverBlocks(t *testing.T) {
	l := New(Config{})
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://example.com/"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiterWaitHonoursContext(t *testing.T) {
	l := New(Config{RPS: 0.001, Burst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://example.com/"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "https://example.com/")
	require.Error(t, err)
}

func TestFetcherDelegatesAfterWait(t *testing.T) {
	next := &countingFetcher{}
	f := Wrap(next, New(Config{RPS: 100, Burst: 2}))

	resp, err := f.Fetch(context.Background(), snapshot.FetchRequest{URL: "https://example.com/rss"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/rss", resp.URL)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestFetcherSkipsDelegateWhenCancelled(t *testing.T) {
	next := &countingFetcher{}
	f := Wrap(next, New(Config{RPS: 0.001, Burst: 1}))
	_, err := f.Fetch(context.Background(), snapshot.FetchRequest{URL: "https://example.com/rss"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, snapshot.FetchRequest{URL: "https://example.com/rss"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(1), next.calls.Load())
}
