package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/homedash/internal/common"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestSaveAndConsume(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "tok-1", "u1", time.Hour); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	userID, err := store.Consume(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("want u1, got %q", userID)
	}
}

func TestConsume_SecondCallFails(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "tok-1", "u1", time.Hour); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if _, err := store.Consume(ctx, "tok-1"); err != nil {
		t.Fatalf("first Consume error: %v", err)
	}
	if _, err := store.Consume(ctx, "tok-1"); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("second Consume: want ErrSessionNotFound, got %v", err)
	}
}

func TestConsume_UnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Consume(context.Background(), "never-saved")
	if !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestConsume_ExpiredRecord(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "tok-1", "u1", time.Minute); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Consume(ctx, "tok-1"); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound after TTL, got %v", err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "tok-1", "u1", time.Hour); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := store.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	// deleting again must not fail
	if err := store.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
	if err := store.Delete(ctx, "never-saved"); err != nil {
		t.Fatalf("Delete of unknown token error: %v", err)
	}
}

func TestStoreOutage_SurfacesUnavailable(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	if err := store.Save(context.Background(), "t", "u", time.Hour); !errors.Is(err, common.ErrorStoreUnavailable) {
		t.Fatalf("want ErrorStoreUnavailable, got %v", err)
	}
	if _, err := store.Consume(context.Background(), "t"); !errors.Is(err, common.ErrorStoreUnavailable) {
		t.Fatalf("want ErrorStoreUnavailable, got %v", err)
	}
}

func TestRawTokenNeverStored(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	const token = "very-secret-refresh-token"
	if err := store.Save(ctx, token, "u1", time.Hour); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	for _, k := range mr.Keys() {
		if k == keyPrefix+token {
			t.Fatalf("raw token used as key: %q", k)
		}
	}
}
