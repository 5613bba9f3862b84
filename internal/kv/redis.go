package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces keys and the change channel.
	Prefix string
}

// RedisStore keeps each key as a redis string and announces writes on a
// pub/sub channel.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions, log *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return NewRedisStoreWithClient(client, opts.Prefix, log), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string, log *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = "hooky:"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisStore{client: client, prefix: prefix, log: log}
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) channel() string {
	return r.prefix + "changes"
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return json.RawMessage(data), true, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, key string, value any) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), []byte(data), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	if err := r.client.Publish(ctx, r.channel(), key).Err(); err != nil {
		r.log.Warn("redis publish failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Watch implements Store.
func (r *RedisStore) Watch(ctx context.Context, key string) (<-chan Change, error) {
	sub := r.client.Subscribe(ctx, r.channel())
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	last, _, err := r.Get(ctx, key)
	if err != nil {
		sub.Close()
		return nil, err
	}

	ch := make(chan Change, watchBuffer)
	messages := sub.Channel()
	go func() {
		defer close(ch)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if msg.Payload != key {
					continue
				}
				cur, _, err := r.Get(ctx, key)
				if err != nil {
					r.log.Warn("redis reload failed", zap.String("key", key), zap.Error(err))
					continue
				}
				if sameValue(last, cur) {
					continue
				}
				last = cur
				if !send(ctx, ch, Change{Key: key, Value: cur}) {
					return
				}
			}
		}
	}()
	return ch, nil
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
