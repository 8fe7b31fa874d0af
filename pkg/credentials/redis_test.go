package credentials

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis connects to a local Redis and skips the test when none is running.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func testSealer(t *testing.T) *Sealer {
	t.Helper()
	sealer, err := NewSealer(bytes.Repeat([]byte{42}, SealKeySize))
	if err != nil {
		t.Fatalf("NewSealer() failed: %v", err)
	}
	return sealer
}

func TestNewRedisStore_Validation(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer redisClient.Close()

	if _, err := NewRedisStore(nil, testSealer(t), zerolog.Nop()); err == nil {
		t.Error("expected error for nil redis client")
	}
	if _, err := NewRedisStore(redisClient, nil, zerolog.Nop()); err == nil {
		t.Error("expected error for nil sealer")
	}
}

func TestRedisStore_SetAndGet(t *testing.T) {
	redisClient := setupTestRedis(t)
	store, err := NewRedisStore(redisClient, testSealer(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRedisStore() failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Set(ctx, completeSettings()); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	got, err := store.Get(ctx, KeyAPISecret)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != "cs_test" {
		t.Errorf("Get() = %q, want %q", got, "cs_test")
	}

	raw, err := redisClient.Get(ctx, RedisKeyPrefix+KeyAPISecret).Bytes()
	if err != nil {
		t.Fatalf("raw redis get failed: %v", err)
	}
	if bytes.Contains(raw, []byte("cs_test")) {
		t.Error("secret stored in cleartext")
	}

	creds, err := NewStoreProvider(store).Credentials(ctx)
	if err != nil {
		t.Fatalf("Credentials() failed: %v", err)
	}
	if creds.BaseURL != "https://shop.example.com" {
		t.Errorf("BaseURL = %q", creds.BaseURL)
	}
}

func TestRedisStore_MissingAndClear(t *testing.T) {
	redisClient := setupTestRedis(t)
	store, _ := NewRedisStore(redisClient, testSealer(t), zerolog.Nop())
	ctx := context.Background()

	if _, err := store.Get(ctx, KeyAPIKey); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() on empty store error = %v, want ErrKeyNotFound", err)
	}

	store.Set(ctx, completeSettings())
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	if _, err := NewStoreProvider(store).Credentials(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Credentials() after Clear error = %v, want ErrNotConfigured", err)
	}
}

func TestRedisStore_WrongKey(t *testing.T) {
	redisClient := setupTestRedis(t)
	ctx := context.Background()

	writer, _ := NewRedisStore(redisClient, testSealer(t), zerolog.Nop())
	writer.Set(ctx, completeSettings())

	other, _ := NewSealer(bytes.Repeat([]byte{9}, SealKeySize))
	reader, _ := NewRedisStore(redisClient, other, zerolog.Nop())

	if _, err := reader.Get(ctx, KeyAPIKey); !errors.Is(err, ErrSealedValue) {
		t.Errorf("Get() with wrong key error = %v, want ErrSealedValue", err)
	}
}
