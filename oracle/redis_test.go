package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/fundme/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本地 redis，连不上时跳过
func TestRedisFeed(t *testing.T) {
	c := redis.NewClient(redis.Options{Addr: "127.0.0.1:6379"})
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %s", err)
	}
	key := "fundme:test:price"
	defer c.Del(context.Background(), key)

	feed := NewRedisFeed(c, key)
	_, err := GetPrice(ctx, feed)
	assert.ErrorIs(t, err, ErrOracleUnavailable)

	require.NoError(t, feed.Publish(ctx, Report{Decimals: 8, RoundData: round(200000000000)}))
	price, err := GetPrice(ctx, feed)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000000", price.String())
}
