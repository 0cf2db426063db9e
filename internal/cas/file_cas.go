package cas

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// FileCAS implements CAS using file system storage under a repository's
// objects directory. Blobs are zstd-compressed on disk; hashes always
// refer to the uncompressed content.
type FileCAS struct {
	root    string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewFileCAS creates a new file-based CAS rooted at the given directory.
func NewFileCAS(root string) (*FileCAS, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create objects dir: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &FileCAS{root: root, encoder: encoder, decoder: decoder}, nil
}

// getPath returns the file path for a given hash.
// Uses a two-level directory structure to avoid too many files in one
// directory, e.g. ab/cdef1234...
func (f *FileCAS) getPath(hash Hash) string {
	hexStr := hex.EncodeToString(hash[:])
	return filepath.Join(f.root, hexStr[:2], hexStr[2:])
}

// Put implements CAS.Put.
func (f *FileCAS) Put(hash Hash, data []byte) error {
	computed := SumB3(data)
	if computed != hash {
		return fmt.Errorf("hash mismatch: expected %s, got %s", hash.String(), computed.String())
	}

	path := f.getPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create object subdir: %w", err)
	}

	// Content-addressed, so an existing object never needs rewriting.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	compressed := f.encoder.EncodeAll(data, nil)

	// Write to a temporary file first, then rename (atomic on POSIX).
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, compressed, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize object: %w", err)
	}

	return nil
}

// Get implements CAS.Get.
func (f *FileCAS) Get(hash Hash) ([]byte, error) {
	path := f.getPath(hash)

	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("hash not found: %s", hash.String())
		}
		return nil, fmt.Errorf("read object: %w", err)
	}

	data, err := f.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress object %s: %w", hash.String(), err)
	}

	computed := SumB3(data)
	if computed != hash {
		return nil, fmt.Errorf("corrupted object: hash mismatch for %s", hash.String())
	}

	return data, nil
}

// Has implements CAS.Has.
func (f *FileCAS) Has(hash Hash) (bool, error) {
	_, err := os.Stat(f.getPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
