// Package store collects Database backends beyond the in-process
// MapDatabase kept in the core package.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/colinsongf/featureflow"
)

// FileSystemDatabase stores one file per composed key under Root, grounded
// on the original's FileSystemDatabase (data.py). Keys become flat filenames
// through escapeKey rather than being used verbatim, since a composed key may
// contain path separators the KeyBuilder's separator choice did not
// anticipate.
type FileSystemDatabase struct {
	Root string
}

// NewFileSystemDatabase creates root if it does not already exist.
func NewFileSystemDatabase(root string) (*FileSystemDatabase, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %q: %w", root, err)
	}
	return &FileSystemDatabase{Root: root}, nil
}

func (db *FileSystemDatabase) path(key string) string {
	return filepath.Join(db.Root, filepath.FromSlash(escapeKey(key)))
}

// escapeKey replaces path separators so a composed key (which may contain
// arbitrary bytes up to the KeyBuilder's own separator) cannot escape Root.
func escapeKey(key string) string {
	b := []byte(key)
	for i, c := range b {
		if c == '/' || c == '\\' || c == 0 {
			b[i] = '_'
		}
	}
	return string(b)
}

type fsWriteStream struct {
	f   *os.File
	tmp string
	dst string
}

func (w *fsWriteStream) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *fsWriteStream) Close() error {
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmp)
		return err
	}
	return os.Rename(w.tmp, w.dst)
}

func (db *FileSystemDatabase) WriteStream(key, _ string) (featureflow.WritableStream, error) {
	dst := db.path(key)
	tmp := dst + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("store: creating %q: %w", tmp, err)
	}
	return &fsWriteStream{f: f, tmp: tmp, dst: dst}, nil
}

func (db *FileSystemDatabase) ReadStream(key string) (featureflow.ReadableStream, error) {
	f, err := os.Open(db.path(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %q", featureflow.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("store: opening %q: %w", key, err)
	}
	return f, nil
}

func (db *FileSystemDatabase) Size(key string) (int64, error) {
	fi, err := os.Stat(db.path(key))
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("%w: %q", featureflow.ErrNotFound, key)
	}
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (db *FileSystemDatabase) Exists(key string) bool {
	_, err := os.Stat(db.path(key))
	return err == nil
}

func (db *FileSystemDatabase) Delete(key string) error {
	err := os.Remove(db.path(key))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %q", featureflow.ErrNotFound, key)
	}
	return err
}

func (db *FileSystemDatabase) IterIds(kb featureflow.KeyBuilder) ([]featureflow.DocId, error) {
	entries, err := os.ReadDir(db.Root)
	if err != nil {
		return nil, fmt.Errorf("store: reading %q: %w", db.Root, err)
	}

	seen := make(map[featureflow.DocId]bool)
	var ids []featureflow.DocId
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		docId, _, _, err := kb.Decompose(e.Name())
		if err != nil {
			continue
		}
		if seen[docId] {
			continue
		}
		seen[docId] = true
		ids = append(ids, docId)
	}
	return ids, nil
}
