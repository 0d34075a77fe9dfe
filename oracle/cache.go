package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/fundme/meta"
	"golang.org/x/sync/singleflight"
)

// 在数据源前加一层TTL缓存，并发读取合并成一次
type CachedFeed struct {
	source AggregatorV3Interface
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group

	mu       sync.Mutex
	decimals *uint8
	round    meta.RoundData
	expires  time.Time
}

func NewCachedFeed(source AggregatorV3Interface, ttl time.Duration) *CachedFeed {
	return &CachedFeed{source: source, ttl: ttl, now: time.Now}
}

// 小数位数不会变化，只读一次
func (f *CachedFeed) Decimals(ctx context.Context) (uint8, error) {
	f.mu.Lock()
	if f.decimals != nil {
		d := *f.decimals
		f.mu.Unlock()
		return d, nil
	}
	f.mu.Unlock()

	v, err, _ := f.group.Do("decimals", func() (interface{}, error) {
		return f.source.Decimals(ctx)
	})
	if err != nil {
		return 0, err
	}
	d := v.(uint8)
	f.mu.Lock()
	f.decimals = &d
	f.mu.Unlock()
	return d, nil
}

func (f *CachedFeed) LatestRoundData(ctx context.Context) (meta.RoundData, error) {
	f.mu.Lock()
	if f.now().Before(f.expires) {
		r := f.round
		f.mu.Unlock()
		return r, nil
	}
	f.mu.Unlock()

	v, err, _ := f.group.Do("latestRoundData", func() (interface{}, error) {
		return f.source.LatestRoundData(ctx)
	})
	if err != nil {
		return meta.RoundData{}, err
	}
	r := v.(meta.RoundData)
	// 不可用的轮次不缓存
	if CheckRound(r) == nil {
		f.mu.Lock()
		f.round = r
		f.expires = f.now().Add(f.ttl)
		f.mu.Unlock()
	}
	return r, nil
}
