package filestore

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EmptyCollectionHash is the well-known hash of a collection built from
// no input paths: SHA-1 of the empty string.
const EmptyCollectionHash = "da39a3ee5e6b4b0d3255bfef95601890afd80709"

// FileHash returns the SHA-256 of a file's contents as a hex string.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DirHash returns a recursive MD5 over a directory's contents: the MD5
// of each file under the directory, sorted, concatenated and hashed
// again. Entry order on disk does not affect the result.
func DirHash(dir string) (string, error) {
	var fileHashes []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		h := md5.New()
		if _, err := io.Copy(h, f); err != nil {
			return fmt.Errorf("hashing %s: %w", path, err)
		}
		fileHashes = append(fileHashes, hex.EncodeToString(h.Sum(nil)))
		return nil
	})
	if err != nil {
		return "", err
	}

	sort.Strings(fileHashes)
	h := md5.New()
	io.WriteString(h, strings.Join(fileHashes, ""))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// collectionHash derives the collection id from the per-entry hashes (in
// input order) and the comma-joined normalized paths. The SHA-1 hex
// digest of that string is the filehash.
func collectionHash(entryHashes, normalizedPaths []string) string {
	h := sha1.New()
	io.WriteString(h, strings.Join(entryHashes, ""))
	io.WriteString(h, strings.Join(normalizedPaths, ","))
	return hex.EncodeToString(h.Sum(nil))
}
