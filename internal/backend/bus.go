package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, fn func(payload []byte)) (unsubscribe func(), err error)
}

// RedisBus fans change events out over redis PUBLISH/SUBSCRIBE so every api
// instance sees them.
type RedisBus struct {
	rdb *redis.Client
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.rdb.Publish(ctx, channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string, fn func([]byte)) (func(), error) {
	ps := b.rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			fn([]byte(msg.Payload))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = ps.Close()
			<-done
		})
	}, nil
}

// LocalBus delivers synchronously inside the process.
type LocalBus struct {
	mu   sync.RWMutex
	next int
	subs map[string]map[int]func([]byte)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]func([]byte))}
}

func (b *LocalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	fns := make([]func([]byte), 0, len(b.subs[channel]))
	for _, fn := range b.subs[channel] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(payload)
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context, channel string, fn func([]byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]func([]byte))
	}
	id := b.next
	b.next++
	b.subs[channel][id] = fn

	return func() {
		b.mu.Lock()
		delete(b.subs[channel], id)
		b.mu.Unlock()
	}, nil
}
