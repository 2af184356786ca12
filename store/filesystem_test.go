package store

import (
	"errors"
	"io"
	"testing"

	"github.com/colinsongf/featureflow"
)

func writeAll(t *testing.T, db featureflow.Database, key string, data []byte) {
	t.Helper()
	w, err := db.WriteStream(key, "application/octet-stream")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func readAll(t *testing.T, db featureflow.Database, key string) []byte {
	t.Helper()
	r, err := db.ReadStream(key)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestFileSystemDatabaseWriteReadDelete(t *testing.T) {
	db, err := NewFileSystemDatabase(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := "doc1:content:v1"
	writeAll(t, db, key, []byte("hello world"))

	if !db.Exists(key) {
		t.Fatal("expected key to exist after write")
	}
	if got := readAll(t, db, key); string(got) != "hello world" {
		t.Fatalf("got %q", got)
	}
	size, err := db.Size(key)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len("hello world")) {
		t.Fatalf("expected size %d, got %d", len("hello world"), size)
	}

	if err := db.Delete(key); err != nil {
		t.Fatal(err)
	}
	if db.Exists(key) {
		t.Fatal("expected key to be gone after delete")
	}
}

func TestFileSystemDatabaseReadMissingKeyReturnsErrNotFound(t *testing.T) {
	db, err := NewFileSystemDatabase(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.ReadStream("missing")
	if !errors.Is(err, featureflow.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}
}

func TestFileSystemDatabaseIterIds(t *testing.T) {
	db, err := NewFileSystemDatabase(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	kb := featureflow.NewKeyBuilder()

	writeAll(t, db, kb.Build("doc1", "content", "v1"), []byte("a"))
	writeAll(t, db, kb.Build("doc1", "word_count", "v1"), []byte("1"))
	writeAll(t, db, kb.Build("doc2", "content", "v1"), []byte("b"))

	ids, err := db.IterIds(kb)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[featureflow.DocId]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen["doc1"] || !seen["doc2"] || len(seen) != 2 {
		t.Fatalf("expected doc1 and doc2, got %v", ids)
	}
}

// TestFileSystemDatabaseEscapesPathSeparators verifies a composed key that
// happens to contain a path separator cannot escape Root.
func TestFileSystemDatabaseEscapesPathSeparators(t *testing.T) {
	db, err := NewFileSystemDatabase(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := "../../etc/passwd"
	writeAll(t, db, key, []byte("x"))
	if !db.Exists(key) {
		t.Fatal("expected escaped key to exist under Root")
	}
}
