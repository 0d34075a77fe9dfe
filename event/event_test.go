package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/meta"
	"github.com/fundme/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSink(t *testing.T) {
	client := redis.NewClient(redis.Options{Addr: "127.0.0.1:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %s", err)
	}
	defer client.Close()

	key := "fundme:test:events"
	require.NoError(t, client.Del(ctx, key))
	sink := NewRedisSink(client, key)
	l := meta.Log{
		Address: common.HexToAddress("0x01"),
		Name:    "Funded",
		Args:    map[string]string{"amount": "1"},
	}
	require.NoError(t, sink.Publish(ctx, []meta.Log{l}))

	vals, err := client.ListRange(ctx, key)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	var got meta.Log
	require.NoError(t, json.Unmarshal([]byte(vals[0]), &got))
	assert.Equal(t, l, got)
	require.NoError(t, client.Del(ctx, key))
}

func TestMemorySink(t *testing.T) {
	s := &MemorySink{}
	require.NoError(t, s.Publish(context.Background(), []meta.Log{{Name: "a"}, {Name: "b"}}))
	assert.Len(t, s.Logs, 2)
	assert.NoError(t, NopSink{}.Publish(context.Background(), nil))
}

func TestHub(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	other, cancelOther := h.Subscribe()
	cancelOther()

	sink := MultiSink{h, NopSink{}}
	require.NoError(t, sink.Publish(context.Background(), []meta.Log{{Name: "Funded"}}))

	got := <-ch
	assert.Equal(t, "Funded", got.Name)
	_, open := <-other
	assert.False(t, open)

	cancel()
	cancel()
	_, open = <-ch
	assert.False(t, open)
}
