package store

import (
	"os"
	"testing"

	"github.com/bradfitz/gomemcache/memcache"
)

// TestMemcacheDatabaseWriteReadDelete exercises MemcacheDatabase against a
// real memcached instance, grounded on benchmarks/memcahced_test.go's
// pattern of reading the server address from the environment and skipping
// when it is not configured.
func TestMemcacheDatabaseWriteReadDelete(t *testing.T) {
	addr := os.Getenv("MEMCACHED_ADDRESS")
	if addr == "" {
		t.Skip("MEMCACHED_ADDRESS not set; skipping memcache integration test")
	}

	client := memcache.New(addr)
	db := NewMemcacheDatabase(client)

	key := "featureflow_test_doc1_content_v1"
	defer db.Delete(key)

	writeAll(t, db, key, []byte("memcache value"))
	if !db.Exists(key) {
		t.Fatal("expected key to exist after write")
	}
	if got := readAll(t, db, key); string(got) != "memcache value" {
		t.Fatalf("got %q", got)
	}
	if err := db.Delete(key); err != nil {
		t.Fatal(err)
	}
	if db.Exists(key) {
		t.Fatal("expected key to be gone after delete")
	}
}
