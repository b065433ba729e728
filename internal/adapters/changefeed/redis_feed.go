package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"manifest-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

var _ ports.ChangeFeed = (*RedisFeed)(nil)

// RedisFeed carries change events over a Redis pub/sub channel so every
// server instance sees writes made through any other.
type RedisFeed struct {
	client  *redis.Client
	channel string
}

// NewRedisFeed parses a redis:// URL and verifies the connection.
func NewRedisFeed(ctx context.Context, url, channel string) (*RedisFeed, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis feed: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis feed: ping: %w", err)
	}
	return &RedisFeed{client: client, channel: channel}, nil
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

func (f *RedisFeed) Publish(ctx context.Context, ev ports.ChangeEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis feed: encode event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, b).Err(); err != nil {
		return fmt.Errorf("redis feed: publish: %w", err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan ports.ChangeEvent, error) {
	sub := f.client.Subscribe(ctx, f.channel)
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis feed: subscribe %s: %w", f.channel, err)
	}

	out := make(chan ports.ChangeEvent, 16)
	msgs := sub.Channel()

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev ports.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("redis feed: drop malformed event channel=%s err=%v", f.channel, err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
