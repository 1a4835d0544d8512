package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/app"
)

func TestSessionStoreSetsAndClearsLivenessKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session := app.NewSession(1, 4321, "host")
	if prev, replaced := store.Put(session); replaced || prev != nil {
		t.Fatalf("expected fresh put")
	}
	if !mr.Exists("quiz:session:1") {
		t.Fatalf("expected liveness key to be set")
	}
	if got, _ := store.Get(1); got != session {
		t.Fatalf("expected stored session back")
	}

	if _, ok := store.Delete(1); !ok {
		t.Fatalf("expected delete to find session")
	}
	if mr.Exists("quiz:session:1") {
		t.Fatalf("expected liveness key to be removed")
	}
}
