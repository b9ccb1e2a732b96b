package filestore

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestDriver(t *testing.T) (*Local, string) {
	t.Helper()
	root := t.TempDir()
	l := NewLocal(root, "model-1")
	if err := l.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	unsealOnCleanup(t, l)
	return l, root
}

// unsealOnCleanup restores write permissions on sealed collections so
// the test's temp directory can be removed.
func unsealOnCleanup(t *testing.T, l *Local) {
	t.Helper()
	t.Cleanup(func() {
		restoreWritable(l.collectionsDir())
	})
}

func TestCreateCollection_Deterministic(t *testing.T) {
	l, root := newTestDriver(t)
	writeFile(t, filepath.Join(root, "data.txt"), "v1")
	writeFile(t, filepath.Join(root, "dir", "nested.txt"), "nested")

	paths := []string{
		filepath.Join(root, "data.txt"),
		filepath.Join(root, "dir"),
	}

	first, err := l.CreateCollection(paths)
	if err != nil {
		t.Fatalf("first CreateCollection failed: %v", err)
	}
	second, err := l.CreateCollection(paths)
	if err != nil {
		t.Fatalf("second CreateCollection failed: %v", err)
	}
	if first != second {
		t.Errorf("same inputs produced different hashes: %q vs %q", first, second)
	}

	hashes, err := l.ListCollections()
	if err != nil {
		t.Fatalf("ListCollections failed: %v", err)
	}
	if len(hashes) != 1 {
		t.Errorf("expected 1 collection after dedup, got %d", len(hashes))
	}
}

func TestCreateCollection_PortableAcrossRoots(t *testing.T) {
	l1, root1 := newTestDriver(t)
	root2 := t.TempDir()
	l2 := NewLocal(root2, "model-1")
	if err := l2.Init(); err != nil {
		t.Fatal(err)
	}
	unsealOnCleanup(t, l2)

	writeFile(t, filepath.Join(root1, "data.txt"), "same bytes")
	writeFile(t, filepath.Join(root2, "data.txt"), "same bytes")

	h1, err := l1.CreateCollection([]string{filepath.Join(root1, "data.txt")})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := l2.CreateCollection([]string{filepath.Join(root2, "data.txt")})
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("same content at different roots hashed differently: %q vs %q", h1, h2)
	}
}

func TestCreateCollection_EmptyInputs(t *testing.T) {
	l, _ := newTestDriver(t)

	hash, err := l.CreateCollection(nil)
	if err != nil {
		t.Fatalf("CreateCollection(nil) failed: %v", err)
	}
	if hash != EmptyCollectionHash {
		t.Errorf("empty collection hash = %q, want %q", hash, EmptyCollectionHash)
	}
	if !l.ExistsCollection(hash) {
		t.Error("empty collection directory was not created")
	}
}

func TestCreateCollection_MissingPath(t *testing.T) {
	l, root := newTestDriver(t)
	_, err := l.CreateCollection([]string{filepath.Join(root, "missing.txt")})
	if err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestCreateCollection_ReadOnly(t *testing.T) {
	l, root := newTestDriver(t)
	writeFile(t, filepath.Join(root, "data.txt"), "v1")
	writeFile(t, filepath.Join(root, "dir", "nested.txt"), "nested")

	hash, err := l.CreateCollection([]string{
		filepath.Join(root, "data.txt"),
		filepath.Join(root, "dir"),
	})
	if err != nil {
		t.Fatal(err)
	}

	err = filepath.Walk(l.CollectionPath(hash), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().Perm()&0o222 != 0 {
			t.Errorf("%s has write bit set: %v", path, info.Mode().Perm())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateCollection_RenameTarget(t *testing.T) {
	l, root := newTestDriver(t)
	writeFile(t, filepath.Join(root, "data.txt"), "v1")

	plain, err := l.CreateCollection([]string{filepath.Join(root, "data.txt")})
	if err != nil {
		t.Fatal(err)
	}
	renamed, err := l.CreateCollection([]string{filepath.Join(root, "data.txt") + ">other.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if plain == renamed {
		t.Error("renamed entry should hash differently from plain entry")
	}
	if _, err := os.Stat(filepath.Join(l.CollectionPath(renamed), "other.txt")); err != nil {
		t.Errorf("renamed file missing in collection: %v", err)
	}
}

func TestTransferCollection_RestoresWrite(t *testing.T) {
	l, root := newTestDriver(t)
	writeFile(t, filepath.Join(root, "dir", "nested.txt"), "nested")

	hash, err := l.CreateCollection([]string{filepath.Join(root, "dir")})
	if err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), "work")
	if err := l.TransferCollection(hash, dst); err != nil {
		t.Fatalf("TransferCollection failed: %v", err)
	}

	target := filepath.Join(dst, "dir", "nested.txt")
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o200 == 0 {
		t.Errorf("transferred file is not writable: %v", info.Mode().Perm())
	}
	if err := os.WriteFile(target, []byte("changed"), 0o644); err != nil {
		t.Errorf("cannot write transferred file: %v", err)
	}
}

func TestDeleteCollection(t *testing.T) {
	l, root := newTestDriver(t)
	writeFile(t, filepath.Join(root, "data.txt"), "v1")

	hash, err := l.CreateCollection([]string{filepath.Join(root, "data.txt")})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.DeleteCollection(hash); err != nil {
		t.Fatalf("DeleteCollection failed: %v", err)
	}
	if l.ExistsCollection(hash) {
		t.Error("collection still exists after delete")
	}
	if err := l.DeleteCollection(hash); err == nil {
		t.Error("deleting a missing collection should fail")
	}
}

func TestCreateCollection_ContentChangesHash(t *testing.T) {
	l, root := newTestDriver(t)
	path := filepath.Join(root, "data.txt")

	writeFile(t, path, "v1")
	h1, err := l.CreateCollection([]string{path})
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, path, "v2")
	h2, err := l.CreateCollection([]string{path})
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("different file contents produced the same hash")
	}
}
