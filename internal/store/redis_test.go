package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis is an in-memory stand-in for the two commands the store uses.
type fakeRedis struct {
	values map[string]string
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Close() error { return nil }

func TestRedisStoreRoundTrip(t *testing.T) {
	assertRoundTrip(t, NewRedisStore(newFakeRedis(), "jobflow:snapshot"))
}

func TestRedisStoreMissingKeyIsEmpty(t *testing.T) {
	st := NewRedisStore(newFakeRedis(), "jobflow:snapshot")

	jobs, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Expected no error for missing key, got %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("Expected empty snapshot, got %d", len(jobs))
	}
}

func TestRedisStorePropagatesErrors(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	st := NewRedisStore(fake, "jobflow:snapshot")

	if err := st.Save(context.Background(), sampleJobs()); err == nil {
		t.Error("Expected save error")
	}
	if _, err := st.Load(context.Background()); err == nil {
		t.Error("Expected load error")
	}
}
