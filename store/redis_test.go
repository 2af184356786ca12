package store

import (
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
)

// TestRedisDatabaseWriteReadDelete exercises RedisDatabase against a real
// redis instance, grounded on benchmarks/redis_test.go's pattern of reading
// the server address from the environment and skipping when it is not
// configured.
func TestRedisDatabaseWriteReadDelete(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set; skipping redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	db := NewRedisDatabase(client)

	key := "featureflow_test:doc1:content:v1"
	defer db.Delete(key)

	writeAll(t, db, key, []byte("redis value"))
	if !db.Exists(key) {
		t.Fatal("expected key to exist after write")
	}
	if got := readAll(t, db, key); string(got) != "redis value" {
		t.Fatalf("got %q", got)
	}
	if err := db.Delete(key); err != nil {
		t.Fatal(err)
	}
	if db.Exists(key) {
		t.Fatal("expected key to be gone after delete")
	}
}
