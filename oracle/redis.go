package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fundme/meta"
	"github.com/fundme/redis"
)

// 读取链下报价程序写入 redis 的喂价
type RedisFeed struct {
	client *redis.Client
	key    string
}

func NewRedisFeed(client *redis.Client, key string) *RedisFeed {
	return &RedisFeed{client: client, key: key}
}

func (f *RedisFeed) report(ctx context.Context) (Report, error) {
	var r Report
	val, err := f.client.Get(ctx, f.key)
	if err != nil {
		return r, unavailable(err)
	}
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return r, fmt.Errorf("%w: decode %s: %v", ErrOracleUnavailable, f.key, err)
	}
	return r, nil
}

func (f *RedisFeed) Decimals(ctx context.Context) (uint8, error) {
	r, err := f.report(ctx)
	return r.Decimals, err
}

func (f *RedisFeed) LatestRoundData(ctx context.Context) (meta.RoundData, error) {
	r, err := f.report(ctx)
	return r.RoundData, err
}

// 报价程序写入最新一轮喂价
func (f *RedisFeed) Publish(ctx context.Context, r Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return f.client.Set(ctx, f.key, string(data), 0)
}
