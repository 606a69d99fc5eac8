package store

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisStore() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)

	if err := s.Put(ctx, ArtifactStats, []byte(`{"cycles":[]}`)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	got, err := s.Get(ctx, ArtifactStats)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != `{"cycles":[]}` {
		t.Errorf("Get() = %q", got)
	}

	if err := s.Delete(ctx, ArtifactStats); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(ctx, ArtifactStats); !errors.Is(err, ErrMissing) {
		t.Errorf("Get() after delete = %v, want ErrMissing", err)
	}
}

func TestRedisStoreMissing(t *testing.T) {
	s := newTestRedis(t)
	if _, err := s.Get(context.Background(), ArtifactHeatmap); !errors.Is(err, ErrMissing) {
		t.Errorf("Get() = %v, want ErrMissing", err)
	}
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	s, err := NewRedisStore(ctx, RedisOptions{Addr: mr.Addr(), KeyPrefix: "custom:"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Put(ctx, ArtifactGraph, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("custom:" + ArtifactGraph) {
		t.Errorf("key not namespaced, have keys %v", mr.Keys())
	}
}

func TestRedisStoreConnectFailure(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisOptions{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Error("NewRedisStore() should fail against a closed port")
	}
}
