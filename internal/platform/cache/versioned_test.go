package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Number string `json:"number"`
}

func newTestCache(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "quotes", time.Minute), mr
}

func TestFetchJSONCachesLoaderResult(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Number: "QT-2026-0001"}, nil
	}

	key, err := c.BuildKey(ctx, "quote", "abc")
	require.NoError(t, err)
	assert.Equal(t, "quotes:quote:abc:v1", key)

	var first, second payload
	require.NoError(t, c.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &second, loader))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "QT-2026-0001", second.Number)
}

func TestBumpInvalidatesKeys(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	before, err := c.BuildKey(ctx, "list")
	require.NoError(t, err)
	require.NoError(t, c.Bump(ctx))
	after, err := c.BuildKey(ctx, "list")
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
	assert.Equal(t, "quotes:list:v2", after)
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var dest payload
	err := c.FetchJSON(ctx, "quotes:x:v1", &dest, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNilClientFallsThrough(t *testing.T) {
	c := NewVersioned(nil, "quotes", time.Minute)
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "quote", "1")
	require.NoError(t, err)
	assert.Equal(t, "quotes:quote:1", key)

	var dest payload
	require.NoError(t, c.FetchJSON(ctx, key, &dest, func(context.Context) (any, error) {
		return payload{Number: "QT-2026-0002"}, nil
	}))
	assert.Equal(t, "QT-2026-0002", dest.Number)
	assert.NoError(t, c.Bump(ctx))
}

func TestListenAppliesBumpsFromOtherInstances(t *testing.T) {
	writer, mr := newTestCache(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	reader := NewVersioned(client, "quotes", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	readerCtx := context.Background()

	ver, err := reader.Version(readerCtx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	done := make(chan error, 1)
	go func() { done <- reader.Listen(ctx) }()
	channel := reader.Channel()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, writer.Bump(ctx))
	require.Eventually(t, func() bool {
		v, err := reader.Version(readerCtx)
		return err == nil && v == 2
	}, time.Second, 10*time.Millisecond)

	// A published version ahead of the stored one is applied as is.
	require.NoError(t, client.Publish(ctx, channel, "7").Err())
	require.Eventually(t, func() bool {
		v, err := reader.Version(readerCtx)
		return err == nil && v == 7
	}, time.Second, 10*time.Millisecond)

	key, err := reader.BuildKey(readerCtx, "quote", "abc")
	require.NoError(t, err)
	assert.Equal(t, "quotes:quote:abc:v7", key)

	// Stale versions never move the namespace backwards.
	require.NoError(t, client.Publish(ctx, channel, "3").Err())
	assert.Never(t, func() bool {
		v, err := reader.Version(readerCtx)
		return err != nil || v != 7
	}, 200*time.Millisecond, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}
