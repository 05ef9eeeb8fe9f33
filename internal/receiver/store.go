package receiver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/NamanBalaji/resumable/internal/logger"
)

const chunksDir = ".chunks"

// File is an assembled upload.
type File struct {
	Identifier string
	Path       string
	Size       int64
}

// chunkStore keeps received chunks on disk until every chunk of a file is present.
type chunkStore struct {
	dir string
	mu  sync.Mutex
}

func newChunkStore(dir string) (*chunkStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, chunksDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	return &chunkStore{dir: dir}, nil
}

// chunkDir hashes the identifier so clients cannot choose the path.
func (s *chunkStore) chunkDir(identifier string) string {
	sum := blake3.Sum256([]byte(identifier))
	return filepath.Join(s.dir, chunksDir, hex.EncodeToString(sum[:16]))
}

func (s *chunkStore) chunkPath(identifier string, n int) string {
	return filepath.Join(s.chunkDir(identifier), strconv.Itoa(n))
}

// outputPath keeps rel inside the output directory.
func (s *chunkStore) outputPath(rel string) string {
	return filepath.Join(s.dir, filepath.Clean(string(filepath.Separator)+filepath.FromSlash(rel)))
}

func (s *chunkStore) hasChunk(identifier string, n int, size int64) bool {
	info, err := os.Stat(s.chunkPath(identifier, n))
	return err == nil && info.Size() == size
}

// put writes a chunk through a temp file so readers never see partial data.
func (s *chunkStore) put(identifier string, n int, data []byte) error {
	dir := s.chunkDir(identifier)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create chunk directory: %w", err)
	}

	tmp := filepath.Join(dir, "."+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}

	if err := os.Rename(tmp, s.chunkPath(identifier, n)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to store chunk: %w", err)
	}

	return nil
}

// assemble joins the chunks of identifier into rel once all totalChunks are
// present. It returns nil while chunks are still missing.
func (s *chunkStore) assemble(identifier, rel string, totalChunks int) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for n := 1; n <= totalChunks; n++ {
		if _, err := os.Stat(s.chunkPath(identifier, n)); err != nil {
			return nil, nil
		}
	}

	dst := s.outputPath(rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(dst), "."+uuid.NewString()+".part")

	size, err := s.concat(tmp, identifier, totalChunks)
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to move assembled file: %w", err)
	}

	if err := os.RemoveAll(s.chunkDir(identifier)); err != nil {
		logger.Warnf("Failed to remove chunks of %s: %v", identifier, err)
	}

	return &File{Identifier: identifier, Path: dst, Size: size}, nil
}

func (s *chunkStore) concat(dst, identifier string, totalChunks int) (int64, error) {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	var total int64
	for n := 1; n <= totalChunks; n++ {
		written, err := appendFile(out, s.chunkPath(identifier, n))
		if err != nil {
			out.Close()
			return 0, fmt.Errorf("failed to append chunk %d: %w", n, err)
		}

		total += written
	}

	return total, errors.Join(out.Sync(), out.Close())
}

func appendFile(w io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return io.Copy(w, f)
}
