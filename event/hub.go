package event

import (
	"context"
	"sync"

	"github.com/cloudflare/cfssl/log"
	"github.com/fundme/meta"
)

// 订阅者缓冲区大小，满了之后丢弃事件
const subscriberBuffer = 64

// Hub 把事件推送给所有在线订阅者（websocket 连接）
type Hub struct {
	mu     sync.Mutex
	nextId int
	subs   map[int]chan meta.Log
}

func NewHub() *Hub {
	return &Hub{subs: map[int]chan meta.Log{}}
}

// 返回事件通道和取消订阅函数
func (h *Hub) Subscribe() (<-chan meta.Log, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextId
	h.nextId++
	ch := make(chan meta.Log, subscriberBuffer)
	h.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// 当前订阅者数量
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) Publish(_ context.Context, logs []meta.Log) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		for _, l := range logs {
			select {
			case ch <- l:
			default:
				log.Warningf("subscriber %d is slow, dropped event %s", id, l.Name)
			}
		}
	}
	return nil
}

// 依次投递给多个 Sink，返回第一个错误
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, logs []meta.Log) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ctx, logs); err != nil && first == nil {
			first = err
		}
	}
	return first
}
