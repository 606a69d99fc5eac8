package store

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/sentinelsoft/rulegraph/pkg/errors"
)

// defaultKeyPrefix namespaces artifact keys so a shared Redis instance can
// hold other data alongside the artifacts.
const defaultKeyPrefix = "rulegraph:"

// RedisOptions configures a Redis-backed store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix overrides the default key namespace.
	KeyPrefix string
}

// RedisStore keeps artifacts as Redis string values.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "connecting to redis at %s", opts.Addr)
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(name string) (string, error) {
	if err := errors.ValidateArtifactName(name); err != nil {
		return "", err
	}
	return s.prefix + name, nil
}

func (s *RedisStore) Put(ctx context.Context, name string, data []byte) error {
	k, err := s.key(name)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, k, data, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	k, err := s.key(name)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, k).Bytes()
	if err == redis.Nil {
		return nil, ErrMissing
	}
	return data, err
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	k, err := s.key(name)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, k).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
