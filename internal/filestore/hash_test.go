package filestore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileHash_KnownValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FileHash(path)
	if err != nil {
		t.Fatalf("FileHash failed: %v", err)
	}
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("FileHash = %q, want %q", got, want)
	}
}

func TestDirHash_OrderIndependent(t *testing.T) {
	mk := func(names ...string) string {
		dir := t.TempDir()
		for _, n := range names {
			if err := os.WriteFile(filepath.Join(dir, n), []byte("content of "+n), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		return dir
	}

	// Same files regardless of creation order.
	d1 := mk("a.txt", "b.txt", "c.txt")
	d2 := mk("c.txt", "a.txt", "b.txt")

	h1, err := DirHash(d1)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := DirHash(d2)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("identical directories hashed differently: %q vs %q", h1, h2)
	}
}

func TestDirHash_ContentSensitive(t *testing.T) {
	d1 := t.TempDir()
	d2 := t.TempDir()
	if err := os.WriteFile(filepath.Join(d1, "a.txt"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(d2, "a.txt"), []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}

	h1, err := DirHash(d1)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := DirHash(d2)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("different contents produced the same directory hash")
	}
}

func TestCollectionHash_Empty(t *testing.T) {
	if got := collectionHash(nil, nil); got != EmptyCollectionHash {
		t.Errorf("collectionHash(nil, nil) = %q, want %q", got, EmptyCollectionHash)
	}
}

func TestCollectionHash_PathSensitive(t *testing.T) {
	hashes := []string{"aaa", "bbb"}
	h1 := collectionHash(hashes, []string{"model-1/a", "model-1/b"})
	h2 := collectionHash(hashes, []string{"model-1/a", "model-1/c"})
	if h1 == h2 {
		t.Error("different normalized paths produced the same collection hash")
	}
}
