package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	oserrors "github.com/vnykmshr/objstream/pkg/common/errors"
	"github.com/vnykmshr/objstream/pkg/common/validation"
)

// RedisConfig configures a Redis list endpoint.
type RedisConfig struct {
	// Client is the Redis connection. Required.
	Client redis.UniversalClient

	// Key is the list key. The end-of-stream marker lives at Key + ":eof".
	Key string

	// PollTimeout bounds each blocking pop while waiting for items. Redis
	// blocks in whole seconds, so values under a second are raised to one.
	PollTimeout time.Duration

	// OpTimeout bounds calls made without a caller context, such as End
	// (defaults to 5 seconds).
	OpTimeout time.Duration

	// TTL expires the list and marker after the sink ends (0 = never).
	TTL time.Duration
}

// DefaultRedisConfig returns a configuration for key with default timeouts.
func DefaultRedisConfig(client redis.UniversalClient, key string) RedisConfig {
	return RedisConfig{
		Client:      client,
		Key:         key,
		PollTimeout: time.Second,
		OpTimeout:   5 * time.Second,
	}
}

func (c RedisConfig) validate() (RedisConfig, error) {
	if c.Client == nil {
		return c, oserrors.NewValidationError("sources", "client", nil, "redis client is required")
	}
	if err := validation.ValidateNotEmpty("sources", "key", c.Key); err != nil {
		return c, err
	}
	if c.PollTimeout < time.Second {
		c.PollTimeout = time.Second
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 5 * time.Second
	}
	if c.TTL < 0 {
		return c, oserrors.NewValidationError("sources", "ttl", c.TTL, "must be non-negative")
	}
	return c, nil
}

func (c RedisConfig) eofKey() string {
	return c.Key + ":eof"
}

// RedisListSink is a Writable that appends msgpack-encoded items to a Redis
// list. End writes the end-of-stream marker.
type RedisListSink[T any] struct {
	config RedisConfig

	mu    sync.Mutex
	ended bool
	err   error
}

// NewRedisListSink validates config and returns a sink.
func NewRedisListSink[T any](config RedisConfig) (*RedisListSink[T], error) {
	config, err := config.validate()
	if err != nil {
		return nil, err
	}
	return &RedisListSink[T]{config: config}, nil
}

func (s *RedisListSink[T]) Write(ctx context.Context, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if s.ended {
		return oserrors.NewOperationError("sources", "RedisListSink.Write", oserrors.ErrClosed).
			WithContext("key=" + s.config.Key)
	}

	data, err := msgpack.Marshal(item)
	if err != nil {
		return oserrors.NewOperationError("sources", "RedisListSink.Write", err).
			WithContext(fmt.Sprintf("encode %T", item))
	}
	if err := s.config.Client.RPush(ctx, s.config.Key, data).Err(); err != nil {
		return redisError("RedisListSink.Write", s.config.Key, err)
	}
	return nil
}

// End marks the list as complete. It is idempotent.
func (s *RedisListSink[T]) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || s.err != nil {
		return s.err
	}
	s.ended = true

	ctx, cancel := context.WithTimeout(context.Background(), s.config.OpTimeout)
	defer cancel()

	pipe := s.config.Client.TxPipeline()
	pipe.Set(ctx, s.config.eofKey(), "1", s.config.TTL)
	if s.config.TTL > 0 {
		pipe.Expire(ctx, s.config.Key, s.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return redisError("RedisListSink.End", s.config.Key, err)
	}
	return nil
}

// Destroy fails the sink; later writes return err. The end marker is not
// written, so readers keep waiting until their context ends.
func (s *RedisListSink[T]) Destroy(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		if err == nil {
			err = oserrors.ErrClosed
		}
		s.err = err
	}
}

// RedisListSource is a Readable that pops msgpack-encoded items from a Redis
// list until the list is empty and the end-of-stream marker is present.
type RedisListSource[T any] struct {
	config RedisConfig
}

// NewRedisListSource validates config and returns a source.
func NewRedisListSource[T any](config RedisConfig) (*RedisListSource[T], error) {
	config, err := config.validate()
	if err != nil {
		return nil, err
	}
	return &RedisListSource[T]{config: config}, nil
}

func (s *RedisListSource[T]) Read(ctx context.Context) (T, error) {
	var zero T

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, err := s.config.Client.BLPop(ctx, s.config.PollTimeout, s.config.Key).Result()
		if err == nil {
			return s.decode(res[1])
		}
		if !errors.Is(err, redis.Nil) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, ctxErr
			}
			return zero, redisError("RedisListSource.Read", s.config.Key, err)
		}

		n, err := s.config.Client.Exists(ctx, s.config.eofKey()).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, ctxErr
			}
			return zero, redisError("RedisListSource.Read", s.config.eofKey(), err)
		}
		if n == 0 {
			continue
		}

		// The marker is written after the last push, so one more
		// non-blocking pop settles whether anything is left.
		data, err := s.config.Client.LPop(ctx, s.config.Key).Result()
		if errors.Is(err, redis.Nil) {
			return zero, io.EOF
		}
		if err != nil {
			return zero, redisError("RedisListSource.Read", s.config.Key, err)
		}
		return s.decode(data)
	}
}

func (s *RedisListSource[T]) decode(data string) (T, error) {
	var item T
	if err := msgpack.Unmarshal([]byte(data), &item); err != nil {
		return item, oserrors.NewOperationError("sources", "RedisListSource.Read", err).
			WithContext(fmt.Sprintf("decode %T", item))
	}
	return item, nil
}

// ResetRedisList deletes the list at key and its end-of-stream marker.
func ResetRedisList(ctx context.Context, client redis.UniversalClient, key string) error {
	if err := client.Del(ctx, key, key+":eof").Err(); err != nil {
		return redisError("ResetRedisList", key, err)
	}
	return nil
}

// redisError wraps a client failure for key. Network and deadline timeouts
// also match oserrors.ErrTimeout, so callers can treat them as temporary.
func redisError(op, key string, err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		err = fmt.Errorf("%w: %w", oserrors.ErrTimeout, err)
	}
	return oserrors.NewOperationError("sources", op, err).WithContext("key=" + key)
}
