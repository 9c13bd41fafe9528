// Package realtime relays sensor batches to websocket clients.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Channel is the topic every sensor batch is published on.
const Channel = "sensor_update"

// Bus carries raw JSON payloads between API instances.
type Bus interface {
	Publish(ctx context.Context, payload []byte) error
	// Subscribe returns a channel that is closed when ctx ends.
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// RedisBus uses Redis pub/sub so every instance sees every batch.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, payload []byte) error {
	if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan []byte, error) {
	ps := b.client.Subscribe(ctx, Channel)
	// wait for the subscription confirmation
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// LocalBus is the single-instance fallback when no Redis is configured.
type LocalBus struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[chan []byte]struct{})}
}

// Publish never blocks; a subscriber with a full buffer misses the payload.
func (b *LocalBus) Publish(_ context.Context, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context) (<-chan []byte, error) {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}
