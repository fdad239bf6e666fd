package fanout

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"private-chat/internal/protocol"
)

// RedisConfig defines fields used for parsing from environment variables
type RedisConfig struct {
	Addr          string `env:"REDIS_ADDR"`
	Password      string `env:"REDIS_PASSWORD"`
	DB            int    `env:"REDIS_DB" envDefault:"0"`
	ChannelPrefix string `env:"REDIS_CHANNEL_PREFIX" envDefault:"chat:group:"`
}

// RedisFabric shares groups between server instances through Redis pub/sub.
// Each instance keeps one Redis subscription per group that has local subscribers
// and hands received frames to a local Hub.
type RedisFabric struct {
	logger *zap.SugaredLogger
	rdb    *redis.Client
	prefix string
	local  *Hub
	ps     *redis.PubSub
	done   chan struct{}

	mu         sync.Mutex
	subscribed map[string]struct{}
}

// NewRedisFabric starts the receive loop on rdb, rdb is not closed by Close
func NewRedisFabric(ctx context.Context, logger *zap.SugaredLogger, rdb *redis.Client, prefix string) *RedisFabric {
	f := &RedisFabric{
		logger:     logger,
		rdb:        rdb,
		prefix:     prefix,
		local:      NewHub(),
		ps:         rdb.Subscribe(ctx),
		done:       make(chan struct{}),
		subscribed: make(map[string]struct{}),
	}
	go f.receive()
	return f
}

func (f *RedisFabric) channel(group string) string {
	return f.prefix + group
}

func (f *RedisFabric) receive() {
	defer close(f.done)

	for msg := range f.ps.Channel() {
		group := strings.TrimPrefix(msg.Channel, f.prefix)
		if err := f.local.deliver(group, []byte(msg.Payload)); err != nil {
			f.logger.Debugf("Dropping frame for group %s: %v", group, err)
		}
	}
}

func (f *RedisFabric) Subscribe(ctx context.Context, group string, sub Subscriber) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.local.Subscribe(ctx, group, sub); err != nil {
		return err
	}
	if _, ok := f.subscribed[group]; ok {
		return nil
	}

	if err := f.ps.Subscribe(ctx, f.channel(group)); err != nil {
		_ = f.local.Unsubscribe(ctx, group, sub)
		return err
	}
	f.subscribed[group] = struct{}{}
	f.logger.Debugf("Subscribed to redis channel %s", f.channel(group))
	return nil
}

func (f *RedisFabric) Unsubscribe(ctx context.Context, group string, sub Subscriber) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_ = f.local.Unsubscribe(ctx, group, sub)
	if _, ok := f.subscribed[group]; !ok || f.local.Len(group) > 0 {
		return nil
	}

	delete(f.subscribed, group)
	return f.ps.Unsubscribe(ctx, f.channel(group))
}

func (f *RedisFabric) Publish(ctx context.Context, group string, ev protocol.Event) error {
	frame, err := protocol.Encode(ev)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, f.channel(group), frame).Err()
}

// Close stops the receive loop and drops all local subscriptions
func (f *RedisFabric) Close() error {
	err := f.ps.Close()
	<-f.done
	_ = f.local.Close()
	return err
}
