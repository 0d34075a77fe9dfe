package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本地 redis，连不上时跳过
func newTestClient(t *testing.T) *Client {
	c := NewClient(Options{Addr: "127.0.0.1:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %s", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetAndSet(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "fundme:test:key", "value", time.Minute))
	v, err := c.Get(ctx, "fundme:test:key")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	_, err = c.Get(ctx, "fundme:test:missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, c.Del(ctx, "fundme:test:key"))
}

func TestPushToList(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "fundme:test:list"
	require.NoError(t, c.Del(ctx, key))
	require.NoError(t, c.PushToList(ctx, key, "a", "b"))
	vals, err := c.ListRange(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, vals)
	require.NoError(t, c.Del(ctx, key))
}
