package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// RedisOptions configures the redis client used by the change feed.
type RedisOptions struct {
	Addr           string
	Password       string
	DB             int
	ConnectTimeout time.Duration
	RetryInterval  time.Duration
	MaxWait        time.Duration
}

// NewRedisClient connects to redis, retrying with capped exponential backoff
// until ConnectTimeout elapses.
func NewRedisClient(ctx context.Context, opts RedisOptions, log *logger.Logger) (*redis.Client, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 30 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	wait := opts.RetryInterval
	for attempt := 1; ; attempt++ {
		err := client.Ping(ctx).Err()
		if err == nil {
			log.Info("Redis: connected", "addr", opts.Addr, "attempts", attempt)
			return client, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = client.Close()
			return nil, fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempt, err)
		case <-timer.C:
			log.Warn("Redis: connection failed, retrying", "addr", opts.Addr, "attempt", attempt, "error", err)
		}

		wait *= 2
		if wait > opts.MaxWait {
			wait = opts.MaxWait
		}
	}
}

var _ model.ChangePublisher = (*RedisPublisher)(nil)

// RedisPublisher announces changes on a redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event model.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

var _ model.ChangeSource = (*RedisSource)(nil)

// RedisSource reads changes published by RedisPublisher.
type RedisSource struct {
	client  *redis.Client
	channel string
	logger  *logger.Logger
}

func NewRedisSource(client *redis.Client, channel string, logger *logger.Logger) *RedisSource {
	return &RedisSource{client: client, channel: channel, logger: logger}
}

// Run subscribes to the channel until ctx is done. The redis client
// resubscribes on its own after connection loss; messages published while
// nothing was subscribed are lost, so every subscription is reported as a
// reset event.
func (s *RedisSource) Run(ctx context.Context, out chan<- model.ChangeEvent) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.logger.Info("RedisSource: subscribed", "channel", s.channel)

	select {
	case out <- model.NewResetEvent():
	case <-ctx.Done():
		return nil
	}

	messages := pubsub.ChannelWithSubscriptions()
	for {
		var msg any
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %s closed", s.channel)
			}
			msg = m
		}

		var event model.ChangeEvent
		switch m := msg.(type) {
		case *redis.Subscription:
			if m.Kind != "subscribe" {
				continue
			}
			s.logger.Warn("RedisSource: resubscribed, changes may have been missed", "channel", s.channel)
			event = model.NewResetEvent()
		case *redis.Message:
			parsed, err := model.ParseChangeEvent([]byte(m.Payload))
			if err != nil {
				s.logger.Error("RedisSource: dropping malformed payload", "error", err)
				continue
			}
			event = parsed
		default:
			continue
		}

		select {
		case out <- event:
		case <-ctx.Done():
			return nil
		}
	}
}
