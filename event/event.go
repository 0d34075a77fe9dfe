package event

import (
	"context"
	"encoding/json"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/meta"
	"github.com/fundme/redis"
)

// Sink 接收已上链交易产生的合约事件
type Sink interface {
	Publish(ctx context.Context, logs []meta.Log) error
}

// 丢弃所有事件
type NopSink struct{}

func (NopSink) Publish(context.Context, []meta.Log) error {
	return nil
}

// 把事件以json写入redis列表，供链下订阅者消费
type RedisSink struct {
	client *redis.Client
	key    string
}

func NewRedisSink(client *redis.Client, key string) *RedisSink {
	return &RedisSink{client: client, key: key}
}

func (s *RedisSink) Publish(ctx context.Context, logs []meta.Log) error {
	if len(logs) == 0 {
		return nil
	}
	values := make([]string, 0, len(logs))
	for _, l := range logs {
		data, err := json.Marshal(l)
		if err != nil {
			log.Errorf("marshal event %s error: %s", l.Name, err)
			continue
		}
		values = append(values, string(data))
	}
	return s.client.PushToList(ctx, s.key, values...)
}

// 内存记录，测试用
type MemorySink struct {
	Logs []meta.Log
}

func (s *MemorySink) Publish(_ context.Context, logs []meta.Log) error {
	s.Logs = append(s.Logs, logs...)
	return nil
}
