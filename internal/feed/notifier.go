package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Notifier carries "homeworks changed" signals between writers and hubs.
type Notifier interface {
	Publish(ctx context.Context) error
	// Listen delivers a signal per change until ctx ends.
	Listen(ctx context.Context) (<-chan struct{}, error)
}

// RedisNotifier fans change signals out to every API instance over pub/sub.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier builds a notifier on channel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Publish(ctx context.Context) error {
	if err := n.client.Publish(ctx, n.channel, "changed").Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Listen(ctx context.Context) (<-chan struct{}, error) {
	ps := n.client.Subscribe(ctx, n.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				signal(out)
			}
		}
	}()
	return out, nil
}

// LocalNotifier signals listeners within the process. Used when Redis is off.
type LocalNotifier struct {
	mu        sync.Mutex
	listeners map[chan struct{}]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[chan struct{}]struct{})}
}

func (n *LocalNotifier) Publish(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.listeners {
		signal(ch)
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.listeners, ch)
		close(ch)
		n.mu.Unlock()
	}()
	return ch, nil
}

// signal coalesces pending notifications into one.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
