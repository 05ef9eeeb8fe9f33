package resumable

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// Source is a file-like value that can be split into chunks.
type Source interface {
	io.ReaderAt
	Name() string
	RelativePath() string
	Size() int64
	Type() string
}

// FileSource reads a file on disk. The file is opened per read so many
// sources can be queued without holding descriptors.
type FileSource struct {
	path         string
	name         string
	relativePath string
	size         int64
	mimeType     string
}

// NewFileSource stats path and detects its MIME type from its content.
func NewFileSource(path string) (*FileSource, error) {
	return newFileSource(path, filepath.Base(path))
}

func newFileSource(path, relativePath string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	mimeType := "application/octet-stream"
	if info.Size() > 0 {
		if m, err := mimetype.DetectFile(path); err == nil {
			mimeType = m.String()
		}
	}

	return &FileSource{
		path:         path,
		name:         info.Name(),
		relativePath: filepath.ToSlash(relativePath),
		size:         info.Size(),
		mimeType:     mimeType,
	}, nil
}

func (s *FileSource) Name() string         { return s.name }
func (s *FileSource) RelativePath() string { return s.relativePath }
func (s *FileSource) Size() int64          { return s.size }
func (s *FileSource) Type() string         { return s.mimeType }
func (s *FileSource) Path() string         { return s.path }

func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return f.ReadAt(p, off)
}

// BytesSource is an in-memory Source.
type BytesSource struct {
	*bytes.Reader
	name     string
	mimeType string
}

func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{
		Reader:   bytes.NewReader(data),
		name:     name,
		mimeType: mimetype.Detect(data).String(),
	}
}

func (s *BytesSource) Name() string         { return s.name }
func (s *BytesSource) RelativePath() string { return s.name }
func (s *BytesSource) Type() string         { return s.mimeType }
